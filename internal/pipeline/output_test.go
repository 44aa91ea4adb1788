package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/merlin/internal/model"
)

func sampleRecords() []model.ScoredCompanyRecord {
	ft := int64(500000)
	return []model.ScoredCompanyRecord{
		{
			Name: "Acme", WebsiteDomain: "acme.io", Stage: "SEED", FundingTotal: &ft,
			Sectors: []string{"Financial Services", "Business Services"}, SubSectors: []string{},
			Scores: model.ScoreBreakdown{Team: 23, Market: 100, Funding: 70, Total: 59.35},
		},
		{
			Name: "Beta", WebsiteDomain: "beta.io",
			Sectors: []string{}, SubSectors: []string{},
			Scores: model.ScoreBreakdown{Funding: 25, Total: 5},
		},
	}
}

func TestFormatLeaderboard(t *testing.T) {
	out := FormatLeaderboard(sampleRecords(), 0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Acme "))
	assert.Contains(t, lines[0], "Total:  59.35  (Team:  23.00, Market: 100.00, Funding:  70.00)")

	assert.Len(t, strings.Split(strings.TrimRight(FormatLeaderboard(sampleRecords(), 1), "\n"), "\n"), 1)
	assert.Empty(t, FormatLeaderboard(nil, 0))
}

func TestFormatLeaderboard_LongName(t *testing.T) {
	recs := []model.ScoredCompanyRecord{{Name: strings.Repeat("x", 40)}}
	line := FormatLeaderboard(recs, 0)
	assert.True(t, strings.HasPrefix(line, strings.Repeat("x", 29)+"…"))
}

func TestWriteRecords_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, sampleRecords(), FormatTable))
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "acme.io")
	assert.Contains(t, out, "59.35")
}

func TestWriteRecords_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, sampleRecords(), FormatCSV))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "Acme", rows[1][0])
	assert.Equal(t, "500000", rows[1][4])
	assert.Equal(t, "Financial Services; Business Services", rows[1][9])
	assert.Equal(t, "59.35", rows[1][11])
	assert.Equal(t, "", rows[2][4])
}

func TestWriteRecords_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, sampleRecords(), FormatJSON))

	var got []model.ScoredCompanyRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Acme", got[0].Name)

	buf.Reset()
	require.NoError(t, WriteRecords(&buf, nil, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteRecords_UnknownFormat(t *testing.T) {
	err := WriteRecords(&bytes.Buffer{}, nil, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}
