package pipeline

import (
	"fmt"
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/merlin/internal/enrich"
	"github.com/sells-group/merlin/internal/model"
	"github.com/sells-group/merlin/internal/scorer"
)

const acmeEnvelope = `{
  "companyFound": true,
  "company": {
    "entityUrn": "urn:harmonic:company:1",
    "website": {"url": "https://acme.io", "domain": "acme.io"},
    "description": "Payroll",
    "stage": "SEED",
    "headcount": 4,
    "customerType": "B2B",
    "location": {"location": "Denver, Colorado, United States"},
    "funding": {"fundingTotal": 500000, "numFundingRounds": 1, "investors": [{"name": "Seed Fund"}]},
    "tagsV2": [{"type": "MARKET_VERTICAL", "displayValue": "Financial Services"}],
    "employees": [{"fullName": "Ada", "highlights": [{"category": "Prior Exit", "text": "Sold a company"}]}]
  }
}`

func acmeCompany() model.CompanyRecord {
	return model.CompanyRecord{
		Name:        "Acme",
		Domain:      "https://www.acme.io/",
		Description: "SMB tools",
		Stage:       "Pre Seed",
		Industry:    "Fintech",
	}
}

func TestProcessPayload_Acme(t *testing.T) {
	rec, err := ProcessPayload(acmeCompany(), []byte(acmeEnvelope), scorer.DefaultWeights())
	require.NoError(t, err)

	assert.Equal(t, "Acme", rec.Name)
	assert.Equal(t, "urn:harmonic:company:1", rec.HarmonicID)
	assert.Equal(t, "https://acme.io", rec.WebsiteURL)
	assert.Equal(t, "acme.io", rec.WebsiteDomain)
	assert.Equal(t, "Payroll", rec.Description)
	assert.Equal(t, "B2B", rec.CustomerType)
	require.NotNil(t, rec.Headcount)
	assert.Equal(t, 4, *rec.Headcount)
	assert.Equal(t, "SEED", rec.Stage)
	require.NotNil(t, rec.FundingTotal)
	assert.Equal(t, int64(500000), *rec.FundingTotal)
	require.NotNil(t, rec.NumFundingRounds)
	assert.Equal(t, 1, *rec.NumFundingRounds)
	assert.Equal(t, []string{"Seed Fund"}, rec.Investors)
	assert.Equal(t, []string{"Financial Services"}, rec.Sectors)
	assert.Equal(t, []string{}, rec.SubSectors)
	assert.Equal(t, "United States", rec.Country)
	assert.Equal(t, "Colorado", rec.State)
	require.Len(t, rec.Founders, 1)
	assert.Equal(t, "Ada", rec.Founders[0].Name)

	assert.True(t, rec.Features.PriorExit)
	assert.Equal(t, model.ScoreBreakdown{Team: 23, Market: 100, Funding: 70, Total: 59.35}, rec.Scores)
}

func TestProcess_NoEnrichment(t *testing.T) {
	rec, err := Process(acmeCompany(), nil, scorer.DefaultWeights())
	require.NoError(t, err)

	assert.Equal(t, "acme.io", rec.WebsiteDomain)
	assert.Equal(t, "https://acme.io", rec.WebsiteURL)
	assert.Equal(t, "SMB tools", rec.Description)
	assert.Equal(t, "Pre Seed", rec.Stage)
	assert.Equal(t, []string{"Fintech"}, rec.Sectors)
	assert.NotNil(t, rec.SubSectors)
	assert.NotNil(t, rec.Investors)
	assert.NotNil(t, rec.Founders)
	assert.Nil(t, rec.Headcount)
	assert.Nil(t, rec.FundingTotal)
	assert.Empty(t, rec.Country)

	// market is gated off without a location; PRE_SEED 65 + 25 bracket bonus.
	assert.Equal(t, model.ScoreBreakdown{Team: 0, Market: 0, Funding: 90, Total: 18}, rec.Scores)
}

func TestProcess_NoDomainAnywhere(t *testing.T) {
	company := acmeCompany()
	company.Domain = ""
	rec, err := Process(company, &model.EnrichmentRecord{}, scorer.DefaultWeights())
	require.NoError(t, err)
	assert.Empty(t, rec.WebsiteDomain)
	assert.Empty(t, rec.WebsiteURL)
	assert.Equal(t, []string{}, rec.Sectors)
}

func TestProcess_EnrichmentDomainWithoutURL(t *testing.T) {
	rec, err := Process(acmeCompany(), &model.EnrichmentRecord{WebsiteDomain: "Acme.com"}, scorer.DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, "acme.com", rec.WebsiteDomain)
	assert.Equal(t, "https://acme.com", rec.WebsiteURL)
}

func TestProcess_MissingName(t *testing.T) {
	company := acmeCompany()
	company.Name = "  "
	_, err := Process(company, nil, scorer.DefaultWeights())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingName))
}

func TestProcessPayload_Variants(t *testing.T) {
	w := scorer.DefaultWeights()

	tests := []struct {
		name     string
		payload  string
		wantErr  error
		enriched bool
	}{
		{"empty", "", nil, false},
		{"null", "null", nil, false},
		{"not found", `{"companyFound": false, "company": null}`, nil, false},
		{"found", acmeEnvelope, nil, true},
		{"array", `[1,2]`, enrich.ErrNotObject, false},
		{"company not object", `{"companyFound": true, "company": "acme"}`, enrich.ErrNotObject, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ProcessPayload(acmeCompany(), []byte(tt.payload), w)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, eris.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.enriched, rec.HarmonicID != "")
		})
	}
}

func TestProcessPayload_OversizedNumbers(t *testing.T) {
	w := scorer.DefaultWeights()

	tests := []struct {
		name   string
		amount string
	}{
		{"1e20", "1e20"},
		{"overflows float64", "1e400"},
	}
	for _, tt := range tests {
		for _, quoted := range []bool{false, true} {
			amount := tt.amount
			if quoted {
				amount = `"` + amount + `"`
			}
			t.Run(fmt.Sprintf("%s quoted=%v", tt.name, quoted), func(t *testing.T) {
				payload := fmt.Sprintf(`{"companyFound": true, "company": {
					"stage": "SERIES_B",
					"headcount": %s,
					"funding": {"fundingTotal": %s}
				}}`, amount, amount)

				rec, err := ProcessPayload(acmeCompany(), []byte(payload), w)
				require.NoError(t, err)

				require.NotNil(t, rec.FundingTotal)
				assert.Equal(t, int64(math.MaxInt64), *rec.FundingTotal)
				assert.Equal(t, int64(math.MaxInt64), rec.Features.FundingTotal)
				require.NotNil(t, rec.Headcount)
				assert.Equal(t, math.MaxInt, *rec.Headcount)

				// SERIES_B base 0, above every funding bracket.
				assert.Equal(t, 0.0, rec.Scores.Funding)
				// full headcount ladder: 5 + 15 + 20.
				assert.Equal(t, 40.0, rec.Scores.Team)
			})
		}
	}
}

func TestProcessPayload_NegativeOverflowStaysNegative(t *testing.T) {
	payload := `{"companyFound": true, "company": {"stage": "SERIES_B", "headcount": -1e400, "funding": {"fundingTotal": -1e20}}}`
	rec, err := ProcessPayload(acmeCompany(), []byte(payload), scorer.DefaultWeights())
	require.NoError(t, err)

	require.NotNil(t, rec.FundingTotal)
	assert.Equal(t, int64(math.MinInt64), *rec.FundingTotal)
	require.NotNil(t, rec.Headcount)
	assert.Equal(t, math.MinInt, *rec.Headcount)
	assert.Equal(t, 0.0, rec.Scores.Team)
}

func TestSplitLocation(t *testing.T) {
	tests := []struct {
		in      string
		country string
		state   string
	}{
		{"San Francisco, California, United States", "United States", "California"},
		{"Toronto, Canada", "Canada", "Toronto"},
		{"Germany", "Germany", ""},
		{" , ", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			country, state := SplitLocation(tt.in)
			assert.Equal(t, tt.country, country)
			assert.Equal(t, tt.state, state)
		})
	}
}
