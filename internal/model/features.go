package model

// Flag names one boolean founder-quality signal on a FeatureVector. The
// string value doubles as the key used in team weight tables.
type Flag string

const (
	FlagFiveMClub                          Flag = "five_m_club"
	FlagTenMClub                           Flag = "ten_m_club"
	FlagTwentyMClub                        Flag = "twenty_m_club"
	FlagFiftyMPlusClub                     Flag = "fifty_m_plus_club"
	FlagCurrentStudent                     Flag = "current_student"
	FlagDeepTechnicalBackground            Flag = "deep_technical_background"
	FlagEliteIndustryExperience            Flag = "elite_industry_experience"
	FlagFounderTurnedOperator              Flag = "founder_turned_operator"
	FlagHBCUAlum                           Flag = "hbcu_alum"
	FlagJackOfAllTrades                    Flag = "jack_of_all_trades"
	FlagLegacyTechCompanyExperience        Flag = "legacy_tech_company_experience"
	FlagMajorResearchInstitutionExperience Flag = "major_research_institution_experience"
	FlagMajorTechCompanyExperience         Flag = "major_tech_company_experience"
	FlagPriorExit                          Flag = "prior_exit"
	FlagPriorVCBackedExecutive             Flag = "prior_vc_backed_executive"
	FlagPriorVCBackedFounder               Flag = "prior_vc_backed_founder"
	FlagSeasonedAdviser                    Flag = "seasoned_adviser"
	FlagSeasonedExecutive                  Flag = "seasoned_executive"
	FlagSeasonedFounder                    Flag = "seasoned_founder"
	FlagSeasonedOperator                   Flag = "seasoned_operator"
	FlagTopAIExperience                    Flag = "top_ai_experience"
	FlagTopCompanyAlum                     Flag = "top_company_alum"
	FlagTopUniversity                      Flag = "top_university"
	FlagTopWeb3Experience                  Flag = "top_web3_experience"
	FlagYCBackedFounder                    Flag = "yc_backed_founder"
)

// AllFlags lists every recognized flag in a fixed order. Scoring iterates
// this slice so sums are accumulated in the same order on every call.
var AllFlags = []Flag{
	FlagFiveMClub,
	FlagTenMClub,
	FlagTwentyMClub,
	FlagFiftyMPlusClub,
	FlagCurrentStudent,
	FlagDeepTechnicalBackground,
	FlagEliteIndustryExperience,
	FlagFounderTurnedOperator,
	FlagHBCUAlum,
	FlagJackOfAllTrades,
	FlagLegacyTechCompanyExperience,
	FlagMajorResearchInstitutionExperience,
	FlagMajorTechCompanyExperience,
	FlagPriorExit,
	FlagPriorVCBackedExecutive,
	FlagPriorVCBackedFounder,
	FlagSeasonedAdviser,
	FlagSeasonedExecutive,
	FlagSeasonedFounder,
	FlagSeasonedOperator,
	FlagTopAIExperience,
	FlagTopCompanyAlum,
	FlagTopUniversity,
	FlagTopWeb3Experience,
	FlagYCBackedFounder,
}

// FeatureVector is the flat, scoring-ready view of one company.
type FeatureVector struct {
	Description        string   `json:"description"`
	Stage              string   `json:"stage"`
	FundingTotal       int64    `json:"funding_total"`
	Location           string   `json:"location"`
	MarketVerticals    []string `json:"market_verticals"`
	MarketSubVerticals []string `json:"market_sub_verticals"`
	CustomerType       string   `json:"customer_type"`
	Headcount          int      `json:"headcount"`

	// Founder quality
	FiveMClub                          bool `json:"five_m_club"`
	TenMClub                           bool `json:"ten_m_club"`
	TwentyMClub                        bool `json:"twenty_m_club"`
	FiftyMPlusClub                     bool `json:"fifty_m_plus_club"`
	CurrentStudent                     bool `json:"current_student"`
	DeepTechnicalBackground            bool `json:"deep_technical_background"`
	EliteIndustryExperience            bool `json:"elite_industry_experience"`
	FounderTurnedOperator              bool `json:"founder_turned_operator"`
	HBCUAlum                           bool `json:"hbcu_alum"`
	JackOfAllTrades                    bool `json:"jack_of_all_trades"`
	LegacyTechCompanyExperience        bool `json:"legacy_tech_company_experience"`
	MajorResearchInstitutionExperience bool `json:"major_research_institution_experience"`
	MajorTechCompanyExperience         bool `json:"major_tech_company_experience"`
	PriorExit                          bool `json:"prior_exit"`
	PriorVCBackedExecutive             bool `json:"prior_vc_backed_executive"`
	PriorVCBackedFounder               bool `json:"prior_vc_backed_founder"`
	SeasonedAdviser                    bool `json:"seasoned_adviser"`
	SeasonedExecutive                  bool `json:"seasoned_executive"`
	SeasonedFounder                    bool `json:"seasoned_founder"`
	SeasonedOperator                   bool `json:"seasoned_operator"`
	TopAIExperience                    bool `json:"top_ai_experience"`
	TopCompanyAlum                     bool `json:"top_company_alum"`
	TopUniversity                      bool `json:"top_university"`
	TopWeb3Experience                  bool `json:"top_web3_experience"`
	YCBackedFounder                    bool `json:"yc_backed_founder"`
}

var flagFields = map[Flag]func(*FeatureVector) *bool{
	FlagFiveMClub:                          func(fv *FeatureVector) *bool { return &fv.FiveMClub },
	FlagTenMClub:                           func(fv *FeatureVector) *bool { return &fv.TenMClub },
	FlagTwentyMClub:                        func(fv *FeatureVector) *bool { return &fv.TwentyMClub },
	FlagFiftyMPlusClub:                     func(fv *FeatureVector) *bool { return &fv.FiftyMPlusClub },
	FlagCurrentStudent:                     func(fv *FeatureVector) *bool { return &fv.CurrentStudent },
	FlagDeepTechnicalBackground:            func(fv *FeatureVector) *bool { return &fv.DeepTechnicalBackground },
	FlagEliteIndustryExperience:            func(fv *FeatureVector) *bool { return &fv.EliteIndustryExperience },
	FlagFounderTurnedOperator:              func(fv *FeatureVector) *bool { return &fv.FounderTurnedOperator },
	FlagHBCUAlum:                           func(fv *FeatureVector) *bool { return &fv.HBCUAlum },
	FlagJackOfAllTrades:                    func(fv *FeatureVector) *bool { return &fv.JackOfAllTrades },
	FlagLegacyTechCompanyExperience:        func(fv *FeatureVector) *bool { return &fv.LegacyTechCompanyExperience },
	FlagMajorResearchInstitutionExperience: func(fv *FeatureVector) *bool { return &fv.MajorResearchInstitutionExperience },
	FlagMajorTechCompanyExperience:         func(fv *FeatureVector) *bool { return &fv.MajorTechCompanyExperience },
	FlagPriorExit:                          func(fv *FeatureVector) *bool { return &fv.PriorExit },
	FlagPriorVCBackedExecutive:             func(fv *FeatureVector) *bool { return &fv.PriorVCBackedExecutive },
	FlagPriorVCBackedFounder:               func(fv *FeatureVector) *bool { return &fv.PriorVCBackedFounder },
	FlagSeasonedAdviser:                    func(fv *FeatureVector) *bool { return &fv.SeasonedAdviser },
	FlagSeasonedExecutive:                  func(fv *FeatureVector) *bool { return &fv.SeasonedExecutive },
	FlagSeasonedFounder:                    func(fv *FeatureVector) *bool { return &fv.SeasonedFounder },
	FlagSeasonedOperator:                   func(fv *FeatureVector) *bool { return &fv.SeasonedOperator },
	FlagTopAIExperience:                    func(fv *FeatureVector) *bool { return &fv.TopAIExperience },
	FlagTopCompanyAlum:                     func(fv *FeatureVector) *bool { return &fv.TopCompanyAlum },
	FlagTopUniversity:                      func(fv *FeatureVector) *bool { return &fv.TopUniversity },
	FlagTopWeb3Experience:                  func(fv *FeatureVector) *bool { return &fv.TopWeb3Experience },
	FlagYCBackedFounder:                    func(fv *FeatureVector) *bool { return &fv.YCBackedFounder },
}

// Has reports whether flag f is set. Unknown flags report false.
func (fv FeatureVector) Has(f Flag) bool {
	field, ok := flagFields[f]
	if !ok {
		return false
	}
	return *field(&fv)
}

// Set assigns flag f and reports whether f is a recognized flag.
func (fv *FeatureVector) Set(f Flag, v bool) bool {
	field, ok := flagFields[f]
	if !ok {
		return false
	}
	*field(fv) = v
	return true
}

// Flags returns the state of every recognized flag.
func (fv FeatureVector) Flags() map[Flag]bool {
	out := make(map[Flag]bool, len(AllFlags))
	for _, f := range AllFlags {
		out[f] = fv.Has(f)
	}
	return out
}

// IsKnownFlag reports whether name is one of AllFlags.
func IsKnownFlag(name string) bool {
	_, ok := flagFields[Flag(name)]
	return ok
}

// ScoreBreakdown holds the three sub-scores and the weighted composite, all
// on a 0-100 scale and rounded to two decimals.
type ScoreBreakdown struct {
	Team    float64 `json:"team"`
	Market  float64 `json:"market"`
	Funding float64 `json:"funding"`
	Total   float64 `json:"total"`
}
