package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureVector_SetAndHas(t *testing.T) {
	t.Parallel()

	for _, f := range AllFlags {
		t.Run(string(f), func(t *testing.T) {
			t.Parallel()
			var fv FeatureVector
			assert.False(t, fv.Has(f))
			require.True(t, fv.Set(f, true))
			assert.True(t, fv.Has(f))

			// Only the one flag flips.
			for _, other := range AllFlags {
				if other != f {
					assert.False(t, fv.Has(other), "flag %s leaked into %s", f, other)
				}
			}
		})
	}
}

func TestFeatureVector_UnknownFlag(t *testing.T) {
	t.Parallel()

	var fv FeatureVector
	assert.False(t, fv.Set(Flag("not_a_flag"), true))
	assert.False(t, fv.Has(Flag("not_a_flag")))
	assert.False(t, IsKnownFlag("not_a_flag"))
	assert.True(t, IsKnownFlag("prior_exit"))
}

func TestFeatureVector_Flags(t *testing.T) {
	t.Parallel()

	fv := FeatureVector{PriorExit: true, TopUniversity: true}
	flags := fv.Flags()
	assert.Len(t, flags, len(AllFlags))
	assert.True(t, flags[FlagPriorExit])
	assert.True(t, flags[FlagTopUniversity])
	assert.False(t, flags[FlagSeasonedFounder])
}

func TestAllFlagsUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[Flag]bool)
	for _, f := range AllFlags {
		assert.False(t, seen[f], "duplicate flag %s", f)
		seen[f] = true
	}
	assert.Len(t, seen, 25)
}

func TestEnrichmentRecord_LocationString(t *testing.T) {
	t.Parallel()

	var nilRec *EnrichmentRecord
	assert.Equal(t, "", nilRec.LocationString())
	assert.Equal(t, "", (&EnrichmentRecord{}).LocationString())

	rec := &EnrichmentRecord{Location: &Location{Location: "Austin, Texas, United States"}}
	assert.Equal(t, "Austin, Texas, United States", rec.LocationString())
}
