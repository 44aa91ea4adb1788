// Package model defines the records that flow through the triage pipeline:
// self-reported companies, normalized vendor enrichment, feature vectors and
// the final scored output.
package model

// CompanyRecord is a company as it appears in the source list, before any
// vendor lookup. Fields may be empty but are never absent.
type CompanyRecord struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
	Stage       string `json:"stage"`
	Industry    string `json:"industry"`
}

// ScoredCompanyRecord is the externally visible result for one company.
// List fields are always non-nil so consumers can range over them safely.
type ScoredCompanyRecord struct {
	// Identity
	Name          string `json:"name"`
	WebsiteURL    string `json:"website_url"`
	WebsiteDomain string `json:"website_domain"`
	Description   string `json:"description"`
	HarmonicID    string `json:"harmonic_id,omitempty"`

	// Size
	Headcount    *int   `json:"headcount"`
	CustomerType string `json:"customer_type"`

	// Sectors
	Sectors    []string `json:"sectors"`
	SubSectors []string `json:"sub_sectors"`

	// Geography
	Location string `json:"location"`
	Country  string `json:"country"`
	State    string `json:"state"`

	// Funding
	Stage            string   `json:"stage"`
	FundingTotal     *int64   `json:"funding_total"`
	NumFundingRounds *int     `json:"num_funding_rounds"`
	Investors        []string `json:"investors"`

	Founders []FounderContact `json:"founders"`

	Scores   ScoreBreakdown `json:"scores"`
	Features FeatureVector  `json:"features"`
}
