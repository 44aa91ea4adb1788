// Package enrich maps raw Harmonic company payloads into model.EnrichmentRecord.
//
// The vendor schema is loose and changes without notice, so the payload is
// walked as an untyped JSON tree and every lookup falls back to a zero
// value. Mapping only fails when the payload is not a JSON object.
package enrich

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/merlin/internal/model"
)

// ErrNotObject is returned when a payload is not a JSON object.
var ErrNotObject = eris.New("enrich: payload is not a JSON object")

// Tag types routed into typed buckets. Matching is case-insensitive.
const (
	TagIndustry          = "INDUSTRY"
	TagMarketVertical    = "MARKET_VERTICAL"
	TagMarketSubVertical = "MARKET_SUB_VERTICAL"
	TagTechnologyType    = "TECHNOLOGY_TYPE"
	TagProductType       = "PRODUCT_TYPE"
)

// Map parses a raw company payload and normalizes it.
func Map(payload []byte) (*model.EnrichmentRecord, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrNotObject
	}
	return MapResult(gjson.ParseBytes(payload))
}

// MapResponse handles the enrichCompanyByIdentifiers envelope
// ({"companyFound": bool, "company": {...}}). It returns (nil, nil) when the
// vendor did not find the company.
func MapResponse(payload []byte) (*model.EnrichmentRecord, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrNotObject
	}
	env := gjson.ParseBytes(payload)
	if !env.IsObject() {
		return nil, ErrNotObject
	}
	company := env.Get("company")
	if !env.Get("companyFound").Bool() || !company.Exists() || company.Type == gjson.Null {
		return nil, nil
	}
	return MapResult(company)
}

// MapResult normalizes an already parsed company node.
func MapResult(c gjson.Result) (*model.EnrichmentRecord, error) {
	if !c.IsObject() {
		return nil, ErrNotObject
	}

	funding := c.Get("funding")
	tags := classifyTags(c.Get("tagsV2"))
	categories, texts := extractHighlights(c.Get("highlights"))
	traction := extractTractionMetrics(c.Get("tractionMetrics"))
	founders := extractFounders(c.Get("employees"))

	rec := &model.EnrichmentRecord{
		HarmonicID:    c.Get("entityUrn").String(),
		WebsiteDomain: c.Get("website.domain").String(),
		WebsiteURL:    c.Get("website.url").String(),

		Description:  optString(c.Get("description")),
		CustomerType: optString(c.Get("customerType")),

		Stage:            optString(c.Get("stage")),
		FundingStage:     optString(funding.Get("fundingStage")),
		FundingTotal:     optFloat(funding.Get("fundingTotal")),
		NumFundingRounds: optInt(funding.Get("numFundingRounds")),
		LastFundingAt:    optString(funding.Get("lastFundingAt")),
		Investors:        extractInvestors(funding.Get("investors")),

		Headcount:               optInt(c.Get("headcount")),
		FoundingDate:            optString(c.Get("foundingDate.date")),
		FoundingDateGranularity: optString(c.Get("foundingDate.granularity")),
		Location:                extractLocation(c.Get("location")),

		Tags:               displayValues(c.Get("tags")),
		TagsV2:             displayValues(c.Get("tagsV2")),
		Industries:         tags.industries,
		MarketVerticals:    tags.marketVerticals,
		MarketSubVerticals: tags.marketSubVerticals,
		TechnologyTypes:    tags.technologyTypes,
		ProductTypes:       tags.productTypes,

		HighlightCategories: categories,
		HighlightTexts:      texts,
		EmployeeHighlights:  extractEmployeeHighlights(c.Get("employeeHighlights")),

		TractionMetrics:     traction,
		AdvisorHeadcount:    traction.HeadcountAdvisor,
		WebTraffic:          optFloat(c.Get("webTraffic")),
		LikelihoodOfBacking: optFloat(c.Get("likelihoodOfBacking")),

		Founders:                  founders,
		FounderEmployeeHighlights: flattenFounderHighlights(founders),
	}

	// Older payloads only carry industries on the legacy tag list.
	if rec.Industries == nil {
		rec.Industries = legacyIndustries(c.Get("tags"))
	}

	return rec, nil
}

// extractFounders builds founder contacts from the employee list, skipping
// anyone without a name.
func extractFounders(employees gjson.Result) []model.FounderContact {
	var founders []model.FounderContact
	for _, emp := range arrayOf(employees) {
		name := emp.Get("fullName").String()
		if name == "" {
			continue
		}

		founders = append(founders, model.FounderContact{
			Name:        name,
			Title:       founderTitle(emp.Get("experience")),
			LinkedInURL: optString(emp.Get("socials.linkedin.url")),
			Emails:      dedupeEmails(emp.Get("contact.emails")),
			Highlights:  extractEmployeeHighlights(emp.Get("highlights")),
		})
	}
	return founders
}

// founderTitle prefers the title of a founder role and falls back to the
// first listed experience.
func founderTitle(experience gjson.Result) *string {
	entries := arrayOf(experience)
	for _, exp := range entries {
		if strings.Contains(strings.ToUpper(exp.Get("roleType").String()), "FOUNDER") {
			return optString(exp.Get("title"))
		}
	}
	if len(entries) > 0 {
		return optString(entries[0].Get("title"))
	}
	return nil
}

// dedupeEmails drops empty addresses and duplicates, keeping first-seen order.
func dedupeEmails(emails gjson.Result) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range arrayOf(emails) {
		addr := e.String()
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// extractEmployeeHighlights keeps entries with a category or a text.
func extractEmployeeHighlights(highlights gjson.Result) []model.EmployeeHighlight {
	var out []model.EmployeeHighlight
	for _, h := range arrayOf(highlights) {
		cat := h.Get("category").String()
		txt := h.Get("text").String()
		if cat == "" && txt == "" {
			continue
		}
		out = append(out, model.EmployeeHighlight{Category: cat, Text: txt})
	}
	return out
}

func flattenFounderHighlights(founders []model.FounderContact) []model.EmployeeHighlight {
	var out []model.EmployeeHighlight
	for _, f := range founders {
		out = append(out, f.Highlights...)
	}
	return out
}

// extractHighlights splits company highlights into parallel category and
// text lists.
func extractHighlights(highlights gjson.Result) (categories, texts []string) {
	for _, h := range arrayOf(highlights) {
		if cat := h.Get("category").String(); cat != "" {
			categories = append(categories, cat)
		}
		if txt := h.Get("text").String(); txt != "" {
			texts = append(texts, txt)
		}
	}
	return categories, texts
}

func extractInvestors(investors gjson.Result) []string {
	var names []string
	for _, inv := range arrayOf(investors) {
		// Company-shaped investors carry name, person-shaped carry fullName.
		name := inv.Get("name").String()
		if name == "" {
			name = inv.Get("fullName").String()
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func extractTractionMetrics(tm gjson.Result) model.TractionMetrics {
	latest := func(key string) *float64 {
		return optFloat(tm.Get(key + ".latestMetricValue"))
	}
	return model.TractionMetrics{
		HeadcountAdvisor:   latest("headcountAdvisor"),
		FacebookFollowers:  latest("facebookFollowerCount"),
		LinkedInFollowers:  latest("linkedinFollowerCount"),
		InstagramFollowers: latest("instagramFollowerCount"),
		TwitterFollowers:   latest("twitterFollowerCount"),
	}
}

func extractLocation(loc gjson.Result) *model.Location {
	if !loc.IsObject() {
		return nil
	}
	return &model.Location{
		Location:         loc.Get("location").String(),
		AddressFormatted: loc.Get("addressFormatted").String(),
	}
}

type tagGroups struct {
	industries         []string
	marketVerticals    []string
	marketSubVerticals []string
	technologyTypes    []string
	productTypes       []string
}

// classifyTags routes each typed tag into its bucket in a single pass.
// Unknown types and empty display values are ignored.
func classifyTags(tags gjson.Result) tagGroups {
	var g tagGroups
	for _, t := range arrayOf(tags) {
		value := t.Get("displayValue").String()
		if value == "" {
			continue
		}
		switch strings.ToUpper(t.Get("type").String()) {
		case TagIndustry:
			g.industries = append(g.industries, value)
		case TagMarketVertical:
			g.marketVerticals = append(g.marketVerticals, value)
		case TagMarketSubVertical:
			g.marketSubVerticals = append(g.marketSubVerticals, value)
		case TagTechnologyType:
			g.technologyTypes = append(g.technologyTypes, value)
		case TagProductType:
			g.productTypes = append(g.productTypes, value)
		}
	}
	return g
}

func legacyIndustries(tags gjson.Result) []string {
	var out []string
	for _, t := range arrayOf(tags) {
		value := t.Get("displayValue").String()
		if value != "" && strings.EqualFold(t.Get("type").String(), TagIndustry) {
			out = append(out, value)
		}
	}
	return out
}

func displayValues(tags gjson.Result) []string {
	var out []string
	for _, t := range arrayOf(tags) {
		if v := t.Get("displayValue").String(); v != "" {
			out = append(out, v)
		}
	}
	return out
}
