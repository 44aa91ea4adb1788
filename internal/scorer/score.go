package scorer

import (
	"math"
	"strings"
	"unicode"

	"github.com/sells-group/merlin/internal/model"
)

// Score computes the team, market and funding sub-scores for fv and blends
// them into the composite. It is pure and total: any FeatureVector yields a
// breakdown with every value in [0, 100], rounded to two decimals.
func Score(fv model.FeatureVector, w Weights) model.ScoreBreakdown {
	team := scoreTeam(fv, w)
	market := scoreMarket(fv, w)
	funding := scoreFunding(fv, w)

	total := w.Composite.Team*team + w.Composite.Market*market + w.Composite.Funding*funding

	return model.ScoreBreakdown{
		Team:    round2(team),
		Market:  round2(market),
		Funding: round2(funding),
		Total:   round2(clamp(total)),
	}
}

// scoreTeam sums the weights of every set flag plus the stacked headcount
// tiers. Flags are visited in model.AllFlags order.
func scoreTeam(fv model.FeatureVector, w Weights) float64 {
	var score float64
	for _, f := range model.AllFlags {
		if fv.Has(f) {
			score += w.Team[string(f)]
		}
	}

	hc := fv.Headcount
	if hc > 2 {
		score += w.Headcount.OverTwo
	}
	if hc >= 6 {
		score += w.Headcount.SixPlus
	}
	if hc >= 10 {
		score += w.Headcount.TenPlus
	}

	return clamp(score)
}

// scoreMarket is zero outside North America. Inside it, vertical and
// sub-vertical weights are combined (summed, or the strongest of each with
// AggregateMax) and the AI and SMB bonuses are added.
func scoreMarket(fv model.FeatureVector, w Weights) float64 {
	if !IsNorthAmerica(fv.Location) {
		return 0
	}

	maxMode := w.MarketAggregation == AggregateMax
	score := combine(fv.MarketVerticals, w.Verticals, maxMode) +
		combine(fv.MarketSubVerticals, w.SubVerticals, maxMode)

	if HasAIVertical(fv.MarketVerticals) {
		score += w.AIBonus
	}
	if IsSMBEnabled(fv.Description) {
		score += w.SMBBonus
	}

	return clamp(score)
}

func combine(values []string, weights map[string]float64, maxMode bool) float64 {
	var out float64
	for _, v := range values {
		wt := weights[v]
		if maxMode {
			out = math.Max(out, wt)
		} else {
			out += wt
		}
	}
	return out
}

// scoreFunding favors earlier stages and smaller raises.
func scoreFunding(fv model.FeatureVector, w Weights) float64 {
	score := stageBase(fv.Stage, w)

	amount := float64(fv.FundingTotal)
	for _, b := range w.FundingBrackets {
		if amount <= b.UpperBound {
			score += b.Bonus
			break
		}
	}

	return clamp(score)
}

func stageBase(stage string, w Weights) float64 {
	key := StageKey(stage)
	if key == "" {
		return w.NoStageBase
	}
	if base, ok := w.StageBase[key]; ok {
		return base
	}
	return w.UnknownStageBase
}

// StageKey normalizes a stage label to the stage table's key form
// ("Pre Seed" -> "PRE_SEED").
func StageKey(stage string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(stage)), " ", "_")
}

var (
	northAmericaKeywords = []string{
		"united states",
		"united states of america",
		"u.s.",
		"canada",
	}

	// Short country tokens only count as whole words, so "Belarus" and
	// "Jerusalem" stay out.
	northAmericaTokens = map[string]bool{"us": true, "usa": true}

	usStateCodes = map[string]bool{
		"al": true, "ak": true, "az": true, "ar": true, "ca": true, "co": true, "ct": true,
		"de": true, "fl": true, "ga": true, "hi": true, "id": true, "il": true, "in": true,
		"ia": true, "ks": true, "ky": true, "la": true, "me": true, "md": true, "ma": true,
		"mi": true, "mn": true, "ms": true, "mo": true, "mt": true, "ne": true, "nv": true,
		"nh": true, "nj": true, "nm": true, "ny": true, "nc": true, "nd": true, "oh": true,
		"ok": true, "or": true, "pa": true, "ri": true, "sc": true, "sd": true, "tn": true,
		"tx": true, "ut": true, "vt": true, "va": true, "wa": true, "wv": true, "wi": true,
		"wy": true,
	}

	aiKeywords = []string{"ai", "artificial intelligence", "machine learning"}
)

// IsNorthAmerica reports whether a free-text location looks like the US or
// Canada. Multi-word country names match as substrings; "us", "usa" and
// state codes must appear as standalone words.
func IsNorthAmerica(location string) bool {
	loc := strings.ToLower(location)
	if loc == "" {
		return false
	}
	for _, kw := range northAmericaKeywords {
		if strings.Contains(loc, kw) {
			return true
		}
	}
	words := strings.FieldsFunc(loc, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		if northAmericaTokens[w] || usStateCodes[w] {
			return true
		}
	}
	return false
}

// IsSMBEnabled reports whether a description suggests the company sells to
// small businesses.
func IsSMBEnabled(description string) bool {
	text := strings.ToLower(description)
	if strings.Contains(text, "smb") {
		return true
	}
	return strings.Contains(text, "small") && strings.Contains(text, "business")
}

// HasAIVertical reports whether any vertical mentions AI or ML.
func HasAIVertical(verticals []string) bool {
	for _, v := range verticals {
		lower := strings.ToLower(v)
		for _, kw := range aiKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(v, MaxScore))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
