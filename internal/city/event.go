package city

import "fmt"

// EventRequest is the city summary sent to the narrative service.
type EventRequest struct {
	Year               float64 `json:"year"`
	Era                Era     `json:"era"`
	Population         float64 `json:"population"`
	BuildingCount      int     `json:"buildingCount"`
	MissionDescription *string `json:"missionDescription"`
	MissionCompleted   *bool   `json:"missionCompleted"`
}

// Event is a validated narrative response. Era is always a known era and
// Mission, when set, has a usable target.
type Event struct {
	Headline         string   `json:"newsHeadline"`
	PopulationGrowth float64  `json:"populationGrowth"`
	MoneyBonus       float64  `json:"moneyBonus"`
	Era              Era      `json:"era"`
	Mission          *Mission `json:"mission"`
	Fallback         bool     `json:"-"`
}

// Fallback bonuses applied when the narrative service is unavailable.
const (
	FallbackPopulation = 5
	FallbackMoney      = 20
)

// FallbackEvent is the fixed event substituted for a failed request.
func FallbackEvent(req EventRequest) Event {
	return Event{
		Headline:         FallbackHeadline(req.Year),
		PopulationGrowth: FallbackPopulation,
		MoneyBonus:       FallbackMoney,
		Era:              req.Era,
		Fallback:         true,
	}
}

// FallbackHeadline is the generic headline for a year.
func FallbackHeadline(year float64) string {
	return fmt.Sprintf("Year %d: the town grows slowly but surely.", int(year))
}
