package models

type AnalysisMode string

const (
	ModeExternal AnalysisMode = "external"
	ModeInternal AnalysisMode = "internal"
)

// Valid reports whether m is a known analysis mode
func (m AnalysisMode) Valid() bool {
	return m == ModeExternal || m == ModeInternal
}

type UnitTypeMetrics struct {
	UnitType       string  `json:"unitType"`
	TotalUnits     int     `json:"totalUnits"`
	AvailableUnits int     `json:"availableUnits"`
	VacancyRate    float64 `json:"vacancyRate"`
	AvgRent        float64 `json:"avgRent"`
	AvgSqFt        float64 `json:"avgSqFt"`
	RentRange      Range   `json:"rentRange"`
	RentSamples    int     `json:"rentSamples"`
}

// PropertySummary is the property-level roll-up of its bucket metrics
type PropertySummary struct {
	TotalUnits     int     `json:"totalUnits"`
	AvailableUnits int     `json:"availableUnits"`
	VacancyRate    float64 `json:"vacancyRate"`
	AvgRent        float64 `json:"avgRent"`
	RentSamples    int     `json:"rentSamples"`
}

type PropertyAnalysis struct {
	PropertyID  int64                      `json:"propertyId"`
	Name        string                     `json:"name"`
	ProfileType ProfileType                `json:"profileType"`
	UnitTypes   map[string]UnitTypeMetrics `json:"unitTypes"`
	Summary     PropertySummary            `json:"summary"`
	DistanceKm  *float64                   `json:"distanceKm,omitempty"`
}

// Market position labels
const (
	AboveMarket  = "above market"
	AtMarket     = "at market"
	BelowMarket  = "below market"
	NoMarketData = "no market data"
)

type MarketInsights struct {
	SubjectVsMarket        string  `json:"subjectVsMarket"`
	RentDeltaPercent       float64 `json:"rentDeltaPercent"`
	StrongestUnitType      string  `json:"strongestUnitType"`
	TotalVacancies         int     `json:"totalVacancies"`
	CompetitorAvgVacancies float64 `json:"competitorAvgVacancies"`
}

type FilteredAnalysis struct {
	Mode           AnalysisMode       `json:"mode"`
	Criteria       FilterCriteria     `json:"filterCriteria"`
	Subject        PropertyAnalysis   `json:"subject"`
	Competitors    []PropertyAnalysis `json:"competitors"`
	MarketInsights MarketInsights     `json:"marketInsights"`
}
