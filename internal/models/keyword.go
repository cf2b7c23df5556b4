// internal/models/keyword.go
package models

// Competition is the coarse difficulty tier of a keyword.
type Competition string

const (
	CompetitionLow    Competition = "low"
	CompetitionMedium Competition = "medium"
	CompetitionHigh   Competition = "high"
)

// Competitions lists the tiers in ascending difficulty.
var Competitions = []Competition{CompetitionLow, CompetitionMedium, CompetitionHigh}

// Weight is the factor used in backlink estimation: low=1, medium=2, high=3.
// Unknown values weigh as low.
func (c Competition) Weight() int {
	switch c {
	case CompetitionHigh:
		return 3
	case CompetitionMedium:
		return 2
	default:
		return 1
	}
}

func (c Competition) IsValid() bool {
	switch c {
	case CompetitionLow, CompetitionMedium, CompetitionHigh:
		return true
	}
	return false
}

// Keyword is a generated search term with synthetic metrics.
type Keyword struct {
	ID                 string      `json:"id"`
	Text               string      `json:"text"`
	MonthlyVolume      int         `json:"monthly_volume"`
	Competition        Competition `json:"competition"`
	RankingPotential   int         `json:"ranking_potential"`
	TimeEstimateMonths int         `json:"time_estimate_months"`
}
