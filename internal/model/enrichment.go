package model

// EmployeeHighlight is a categorized signal about a person, e.g.
// {Category: "Prior Exit", Text: "Sold Acme to Initech"}.
type EmployeeHighlight struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// FounderContact is a single founder pulled from the vendor employee list.
// Emails and Highlights are nil when the vendor had nothing for them.
type FounderContact struct {
	Name        string              `json:"name"`
	Title       *string             `json:"title"`
	LinkedInURL *string             `json:"linkedin_url"`
	Emails      []string            `json:"emails"`
	Highlights  []EmployeeHighlight `json:"highlights"`
}

// Location is the vendor's structured place descriptor.
type Location struct {
	Location         string `json:"location"`
	AddressFormatted string `json:"address_formatted"`
}

// TractionMetrics holds the latest value of each tracked metric. A nil
// pointer means the vendor returned no node for that metric.
type TractionMetrics struct {
	HeadcountAdvisor   *float64 `json:"headcount_advisor"`
	FacebookFollowers  *float64 `json:"facebook_followers"`
	LinkedInFollowers  *float64 `json:"linkedin_followers"`
	InstagramFollowers *float64 `json:"instagram_followers"`
	TwitterFollowers   *float64 `json:"twitter_followers"`
}

// EnrichmentRecord is the normalized form of one vendor company payload.
//
// Slice fields are nil when the payload had no data for them, which keeps
// "not returned" distinguishable from "returned empty". A record is built
// once per mapping call and treated as read-only afterwards.
type EnrichmentRecord struct {
	// Identity
	HarmonicID    string `json:"harmonic_id"`
	WebsiteDomain string `json:"website_domain"`
	WebsiteURL    string `json:"website_url"`

	// Descriptive
	Description  *string `json:"description"`
	CustomerType *string `json:"customer_type"`

	// Lifecycle and funding
	Stage            *string  `json:"stage"`
	FundingStage     *string  `json:"funding_stage"`
	FundingTotal     *float64 `json:"funding_total"`
	NumFundingRounds *int     `json:"num_funding_rounds"`
	LastFundingAt    *string  `json:"last_funding_at"`
	Investors        []string `json:"investors"`

	// Size, age and geography
	Headcount               *int      `json:"headcount"`
	FoundingDate            *string   `json:"founding_date"`
	FoundingDateGranularity *string   `json:"founding_date_granularity"`
	Location                *Location `json:"location"`

	// Classification
	Tags               []string `json:"tags"`
	TagsV2             []string `json:"tags_v2"`
	Industries         []string `json:"industries"`
	MarketVerticals    []string `json:"market_verticals"`
	MarketSubVerticals []string `json:"market_sub_verticals"`
	TechnologyTypes    []string `json:"technology_types"`
	ProductTypes       []string `json:"product_types"`

	// Highlights
	HighlightCategories       []string            `json:"highlight_categories"`
	HighlightTexts            []string            `json:"highlight_texts"`
	EmployeeHighlights        []EmployeeHighlight `json:"employee_highlights"`
	FounderEmployeeHighlights []EmployeeHighlight `json:"founder_employee_highlights"`

	// Traction and extra signals
	TractionMetrics     TractionMetrics `json:"traction_metrics"`
	AdvisorHeadcount    *float64        `json:"advisor_headcount"`
	WebTraffic          *float64        `json:"web_traffic"`
	LikelihoodOfBacking *float64        `json:"likelihood_of_backing"`

	Founders []FounderContact `json:"founders"`
}

// LocationString returns the free-text place string, or "" when the record
// carries no location.
func (e *EnrichmentRecord) LocationString() string {
	if e == nil || e.Location == nil {
		return ""
	}
	return e.Location.Location
}
