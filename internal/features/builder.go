// Package features merges a self-reported company with its optional vendor
// enrichment into the flat vector the scorer consumes.
package features

import (
	"math"
	"strings"

	"github.com/sells-group/merlin/internal/model"
)

// highlightFlags maps vendor highlight categories to feature flags. Labels
// are matched exactly; anything not listed is ignored.
var highlightFlags = map[string]model.Flag{
	"$5M Club":                              model.FlagFiveMClub,
	"$10M Club":                             model.FlagTenMClub,
	"$20M Club":                             model.FlagTwentyMClub,
	"$50M+ Club":                            model.FlagFiftyMPlusClub,
	"FIVE_M_CLUB":                           model.FlagFiveMClub,
	"TEN_M_CLUB":                            model.FlagTenMClub,
	"TWENTY_M_CLUB":                         model.FlagTwentyMClub,
	"FIFTY_M_PLUS_CLUB":                     model.FlagFiftyMPlusClub,
	"Current Student":                       model.FlagCurrentStudent,
	"Deep Technical Background":             model.FlagDeepTechnicalBackground,
	"Elite Industry Experience":             model.FlagEliteIndustryExperience,
	"Founder Turned Operator":               model.FlagFounderTurnedOperator,
	"HBCU Alum":                             model.FlagHBCUAlum,
	"Jack of All Trades":                    model.FlagJackOfAllTrades,
	"Legacy Tech Company Experience":        model.FlagLegacyTechCompanyExperience,
	"Major Research Institution Experience": model.FlagMajorResearchInstitutionExperience,
	"Major Tech Company Experience":         model.FlagMajorTechCompanyExperience,
	"Prior Exit":                            model.FlagPriorExit,
	"Prior VC Backed Executive":             model.FlagPriorVCBackedExecutive,
	"Prior VC Backed Founder":               model.FlagPriorVCBackedFounder,
	"Seasoned Adviser":                      model.FlagSeasonedAdviser,
	"Seasoned Executive":                    model.FlagSeasonedExecutive,
	"Seasoned Founder":                      model.FlagSeasonedFounder,
	"Seasoned Operator":                     model.FlagSeasonedOperator,
	"Top AI Experience":                     model.FlagTopAIExperience,
	"Top Company Alum":                      model.FlagTopCompanyAlum,
	"Top University":                        model.FlagTopUniversity,
	"Top Web3 Experience":                   model.FlagTopWeb3Experience,
	"YC Backed Founder":                     model.FlagYCBackedFounder,
}

// FlagForCategory returns the flag a highlight category maps to.
func FlagForCategory(category string) (model.Flag, bool) {
	f, ok := highlightFlags[category]
	return f, ok
}

// Build produces the feature vector for one company. enr may be nil, in
// which case every value falls back to the self-reported record and all
// flags stay false.
func Build(company model.CompanyRecord, enr *model.EnrichmentRecord) model.FeatureVector {
	fv := model.FeatureVector{
		Description:        company.Description,
		Stage:              company.Stage,
		MarketVerticals:    []string{},
		MarketSubVerticals: []string{},
	}
	if enr == nil {
		return fv
	}

	// Both descriptions are kept so SMB wording from either source counts.
	if enr.Description != nil {
		fv.Description = strings.TrimSpace(company.Description + " " + *enr.Description)
	}

	switch {
	case enr.Stage != nil:
		fv.Stage = *enr.Stage
	case enr.FundingStage != nil:
		fv.Stage = *enr.FundingStage
	}

	if enr.FundingTotal != nil {
		fv.FundingTotal = clampInt64(*enr.FundingTotal)
	}
	if enr.Headcount != nil {
		fv.Headcount = *enr.Headcount
	}
	fv.Location = enr.LocationString()
	if enr.CustomerType != nil {
		fv.CustomerType = *enr.CustomerType
	}
	if enr.MarketVerticals != nil {
		fv.MarketVerticals = append([]string(nil), enr.MarketVerticals...)
	}
	if enr.MarketSubVerticals != nil {
		fv.MarketSubVerticals = append([]string(nil), enr.MarketSubVerticals...)
	}

	for _, f := range flagsFrom(enr.FounderEmployeeHighlights) {
		fv.Set(f, true)
	}

	// Company-level highlights only contribute the adviser signal.
	for _, f := range flagsFrom(enr.EmployeeHighlights) {
		if f == model.FlagSeasonedAdviser {
			fv.SeasonedAdviser = true
		}
	}

	return fv
}

func flagsFrom(highlights []model.EmployeeHighlight) []model.Flag {
	var out []model.Flag
	for _, h := range highlights {
		if f, ok := highlightFlags[h.Category]; ok {
			out = append(out, f)
		}
	}
	return out
}

// clampInt64 truncates f toward zero, saturating at the int64 bounds.
func clampInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}
