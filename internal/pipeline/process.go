// Package pipeline assembles scored company records from self-reported
// companies and vendor payloads, one company at a time or in batches.
package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/merlin/internal/enrich"
	"github.com/sells-group/merlin/internal/features"
	"github.com/sells-group/merlin/internal/ingest"
	"github.com/sells-group/merlin/internal/model"
	"github.com/sells-group/merlin/internal/scorer"
)

// ErrMissingName is returned for a company with an empty name.
var ErrMissingName = eris.New("pipeline: company name is empty")

// Process scores one company. enr may be nil when no enrichment exists.
func Process(company model.CompanyRecord, enr *model.EnrichmentRecord, w scorer.Weights) (model.ScoredCompanyRecord, error) {
	if strings.TrimSpace(company.Name) == "" {
		return model.ScoredCompanyRecord{}, ErrMissingName
	}

	fv := features.Build(company, enr)
	scores := scorer.Score(fv, w)

	domain := ingest.CleanDomain(company.Domain)
	rec := model.ScoredCompanyRecord{
		Name:        strings.TrimSpace(company.Name),
		Description: company.Description,
		Sectors:     nonNil(fv.MarketVerticals),
		SubSectors:  nonNil(fv.MarketSubVerticals),
		Location:    fv.Location,
		Stage:       fv.Stage,
		Investors:   []string{},
		Founders:    []model.FounderContact{},
		Scores:      scores,
		Features:    fv,
	}
	// Without enrichment the self-reported industry stands in as the sector.
	if enr == nil && len(rec.Sectors) == 0 {
		if ind := strings.TrimSpace(company.Industry); ind != "" {
			rec.Sectors = []string{ind}
		}
	}

	if enr != nil {
		rec.HarmonicID = enr.HarmonicID
		if enr.WebsiteDomain != "" {
			domain = ingest.CleanDomain(enr.WebsiteDomain)
		}
		if enr.Description != nil {
			rec.Description = *enr.Description
		}
		if enr.CustomerType != nil {
			rec.CustomerType = *enr.CustomerType
		}
		rec.Headcount = copyInt(enr.Headcount)
		rec.NumFundingRounds = copyInt(enr.NumFundingRounds)
		if enr.FundingTotal != nil {
			ft := fv.FundingTotal
			rec.FundingTotal = &ft
		}
		if len(enr.Investors) > 0 {
			rec.Investors = append([]string(nil), enr.Investors...)
		}
		if len(enr.Founders) > 0 {
			rec.Founders = append([]model.FounderContact(nil), enr.Founders...)
		}
	}

	rec.WebsiteDomain = domain
	rec.WebsiteURL = websiteURL(enr, domain)
	rec.Country, rec.State = SplitLocation(rec.Location)
	return rec, nil
}

// ProcessPayload maps a vendor response envelope and scores the company.
// An empty or null payload scores the company without enrichment.
func ProcessPayload(company model.CompanyRecord, payload []byte, w scorer.Weights) (model.ScoredCompanyRecord, error) {
	var enr *model.EnrichmentRecord
	if p := strings.TrimSpace(string(payload)); p != "" && p != "null" {
		var err error
		enr, err = enrich.MapResponse(payload)
		if err != nil {
			return model.ScoredCompanyRecord{}, eris.Wrapf(err, "pipeline: map payload for %s", company.Name)
		}
	}
	return Process(company, enr, w)
}

// SplitLocation parses "City, State, Country" style strings. The last part is
// the country and the one before it the state; a single part is the country.
func SplitLocation(location string) (country, state string) {
	var parts []string
	for _, p := range strings.Split(location, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[len(parts)-1], parts[len(parts)-2]
	}
}

func websiteURL(enr *model.EnrichmentRecord, domain string) string {
	if enr != nil && enr.WebsiteURL != "" {
		return enr.WebsiteURL
	}
	if domain == "" {
		return ""
	}
	return "https://" + domain
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
