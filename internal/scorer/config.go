// Package scorer implements the linear team, market and funding scoring rules
// used to rank early-stage companies.
package scorer

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/merlin/internal/model"
)

// Market aggregation modes.
const (
	AggregateSum = "sum"
	AggregateMax = "max"
)

// MaxScore is the ceiling of every sub-score and the composite.
const MaxScore = 100.0

// CompositeWeights blends the three sub-scores into the total. They must sum
// to 1.0.
type CompositeWeights struct {
	Team    float64 `yaml:"team" mapstructure:"team" json:"team"`
	Market  float64 `yaml:"market" mapstructure:"market" json:"market"`
	Funding float64 `yaml:"funding" mapstructure:"funding" json:"funding"`
}

// HeadcountBonus holds the stacked headcount tiers added to the team score.
type HeadcountBonus struct {
	OverTwo float64 `yaml:"over_two" mapstructure:"over_two" json:"over_two"`
	SixPlus float64 `yaml:"six_plus" mapstructure:"six_plus" json:"six_plus"`
	TenPlus float64 `yaml:"ten_plus" mapstructure:"ten_plus" json:"ten_plus"`
}

// FundingBracket awards Bonus when total funding is at or below UpperBound.
type FundingBracket struct {
	UpperBound float64 `yaml:"upper_bound" mapstructure:"upper_bound" json:"upper_bound"`
	Bonus      float64 `yaml:"bonus" mapstructure:"bonus" json:"bonus"`
}

// Weights is the full, human-tunable scoring configuration. It is passed
// explicitly into Score; there is no package-level active copy.
type Weights struct {
	Composite CompositeWeights `yaml:"composite" mapstructure:"composite" json:"composite"`

	// Team is keyed by feature flag name (see model.AllFlags).
	Team      map[string]float64 `yaml:"team" mapstructure:"team" json:"team"`
	Headcount HeadcountBonus     `yaml:"headcount" mapstructure:"headcount" json:"headcount"`

	Verticals         map[string]float64 `yaml:"verticals" mapstructure:"verticals" json:"verticals"`
	SubVerticals      map[string]float64 `yaml:"sub_verticals" mapstructure:"sub_verticals" json:"sub_verticals"`
	AIBonus           float64            `yaml:"ai_bonus" mapstructure:"ai_bonus" json:"ai_bonus"`
	SMBBonus          float64            `yaml:"smb_bonus" mapstructure:"smb_bonus" json:"smb_bonus"`
	MarketAggregation string             `yaml:"market_aggregation" mapstructure:"market_aggregation" json:"market_aggregation"`

	StageBase        map[string]float64 `yaml:"stage_base" mapstructure:"stage_base" json:"stage_base"`
	UnknownStageBase float64            `yaml:"unknown_stage_base" mapstructure:"unknown_stage_base" json:"unknown_stage_base"`
	NoStageBase      float64            `yaml:"no_stage_base" mapstructure:"no_stage_base" json:"no_stage_base"`
	FundingBrackets  []FundingBracket   `yaml:"funding_brackets" mapstructure:"funding_brackets" json:"funding_brackets"`
}

// DefaultWeights returns the canonical rule set.
func DefaultWeights() Weights {
	return Weights{
		Composite: CompositeWeights{Team: 0.45, Market: 0.35, Funding: 0.20},

		Team: map[string]float64{
			string(model.FlagTopUniversity):                      6,
			string(model.FlagTopCompanyAlum):                     10,
			string(model.FlagTopAIExperience):                    18,
			string(model.FlagTopWeb3Experience):                  10,
			string(model.FlagMajorTechCompanyExperience):         15,
			string(model.FlagLegacyTechCompanyExperience):        4,
			string(model.FlagMajorResearchInstitutionExperience): 8,
			string(model.FlagDeepTechnicalBackground):            10,
			string(model.FlagEliteIndustryExperience):            10,
			string(model.FlagSeasonedOperator):                   8,
			string(model.FlagSeasonedExecutive):                  12,
			string(model.FlagSeasonedFounder):                    20,
			string(model.FlagSeasonedAdviser):                    5,
			string(model.FlagPriorVCBackedFounder):               18,
			string(model.FlagPriorVCBackedExecutive):             12,
			string(model.FlagPriorExit):                          18,
			string(model.FlagYCBackedFounder):                    12,
			string(model.FlagFiveMClub):                          4,
			string(model.FlagTenMClub):                           6,
			string(model.FlagTwentyMClub):                        8,
			string(model.FlagFiftyMPlusClub):                     10,
			string(model.FlagFounderTurnedOperator):              0,
			string(model.FlagHBCUAlum):                           5,
			string(model.FlagJackOfAllTrades):                    2,
			string(model.FlagCurrentStudent):                     0,
		},
		Headcount: HeadcountBonus{OverTwo: 5, SixPlus: 15, TenPlus: 20},

		Verticals: map[string]float64{
			"Business Services":          65,
			"Financial Services":         85,
			"Real Estate & Construction": 65,
			"Life Sciences & Healthcare": 65,
		},
		SubVerticals: map[string]float64{
			// Business Services
			"Legal & Compliance Services":            5,
			"Staffing, Recruitment & Future Of Work": 10,
			"Accounting & Finance Services":          10,
			"Sales & Customer Service":               5,

			// Financial Services
			"Banking & Lending Technology":        10,
			"Payment Processing & Infrastructure": 10,
			"Cryptocurrency & Blockchain":         3,
			"Insurance Technology - Insurtech":    10,
			"Traditional Financial Services":      10,
			"Investor Technology":                 5,

			// Real Estate & Construction
			"Property Technology - PropTech": 5,
			"Real Estate & Construction":     10,

			// Life Sciences & Healthcare
			"Healthcare Insurance & Benefits":             25,
			"Biotechnology & Pharmaceuticals":             20,
			"Digital Health & Telemedicine":               10,
			"Medical Devices & Diagnostics":               5,
			"Healthcare Provider Services":                25,
			"Healthcare Data & EHR Technology":            25,
			"Analytics & Business Intelligence Platforms": 5,

			// Consumer Products & Services
			"Home Services": 25,
		},
		AIBonus:           0,
		SMBBonus:          15,
		MarketAggregation: AggregateSum,

		StageBase: map[string]float64{
			"PRE_SEED": 65,
			"SEED":     45,
			"SERIES_A": 25,
			"SERIES_B": 0,
			"SERIES_C": 0,
			"SERIES_D": 0,
			"SERIES_E": 0,
		},
		UnknownStageBase: 5,
		NoStageBase:      0,
		FundingBrackets: []FundingBracket{
			{UpperBound: 1_000_000, Bonus: 25},
			{UpperBound: 5_000_000, Bonus: 15},
			{UpperBound: 10_000_000, Bonus: 10},
		},
	}
}

// ValidateWeights checks that a Weights value is internally consistent.
func ValidateWeights(w Weights) error {
	var errs []string

	composite := map[string]float64{
		"composite.team":    w.Composite.Team,
		"composite.market":  w.Composite.Market,
		"composite.funding": w.Composite.Funding,
	}
	for name, v := range composite {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if sum := w.Composite.Team + w.Composite.Market + w.Composite.Funding; math.Abs(sum-1) > 0.001 {
		errs = append(errs, fmt.Sprintf("composite weights should sum to 1.0, got %.3f", sum))
	}

	for _, name := range sortedKeys(w.Team) {
		if !model.IsKnownFlag(name) {
			errs = append(errs, fmt.Sprintf("team.%s is not a known flag", name))
		}
		if w.Team[name] < 0 {
			errs = append(errs, fmt.Sprintf("team.%s must be >= 0", name))
		}
	}
	errs = append(errs, negativeEntries("verticals", w.Verticals)...)
	errs = append(errs, negativeEntries("sub_verticals", w.SubVerticals)...)
	errs = append(errs, negativeEntries("stage_base", w.StageBase)...)

	scalars := map[string]float64{
		"headcount.over_two": w.Headcount.OverTwo,
		"headcount.six_plus": w.Headcount.SixPlus,
		"headcount.ten_plus": w.Headcount.TenPlus,
		"ai_bonus":           w.AIBonus,
		"smb_bonus":          w.SMBBonus,
		"unknown_stage_base": w.UnknownStageBase,
		"no_stage_base":      w.NoStageBase,
	}
	for name, v := range scalars {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if w.NoStageBase > w.UnknownStageBase {
		errs = append(errs, "no_stage_base must be <= unknown_stage_base")
	}

	for i, b := range w.FundingBrackets {
		if b.Bonus < 0 {
			errs = append(errs, fmt.Sprintf("funding_brackets[%d].bonus must be >= 0", i))
		}
		if i > 0 && b.UpperBound <= w.FundingBrackets[i-1].UpperBound {
			errs = append(errs, fmt.Sprintf("funding_brackets[%d] must be ascending by upper_bound", i))
		}
	}

	switch w.MarketAggregation {
	case "", AggregateSum, AggregateMax:
	default:
		errs = append(errs, fmt.Sprintf("market_aggregation must be %q or %q, got %q", AggregateSum, AggregateMax, w.MarketAggregation))
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("scorer: weights validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func negativeEntries(section string, m map[string]float64) []string {
	var errs []string
	for _, k := range sortedKeys(m) {
		if m[k] < 0 {
			errs = append(errs, fmt.Sprintf("%s[%q] must be >= 0", section, k))
		}
	}
	return errs
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// weightsFile is the on-disk layout of a standalone weights file.
type weightsFile struct {
	Weights Weights `yaml:"weights"`
}

// LoadWeightsFile reads weights from a YAML file with a top-level "weights"
// key. Keys absent from the file keep their default values. The result is
// validated before it is returned.
func LoadWeightsFile(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, eris.Wrapf(err, "scorer: read weights file %s", path)
	}
	return ParseWeights(data)
}

// ParseWeights decodes a weights document over DefaultWeights and validates
// the result.
func ParseWeights(data []byte) (Weights, error) {
	f := weightsFile{Weights: DefaultWeights()}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Weights{}, eris.Wrap(err, "scorer: parse weights")
	}
	if err := ValidateWeights(f.Weights); err != nil {
		return Weights{}, err
	}
	return f.Weights, nil
}

// ConfigHash returns a short SHA-256 digest of the weights so stored scores
// can be traced back to the rule set that produced them.
func ConfigHash(w Weights) string {
	data, err := json.Marshal(w)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16])
}
