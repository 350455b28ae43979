// City event generation: the narrative service's side of the simulation's
// CityEventClient contract.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/talgya/boomtown/internal/city"
)

const eventSystemPrompt = `You are the game master of a frontier city-building game. Each time you are consulted you read the town's status and write the next event in its history.

Respond ONLY with a single JSON object:
- "newsHeadline": one short newspaper headline that fits the era (WILD_WEST = cowboys and saloons, INDUSTRIAL = factories and railways, MODERN = cars and skyscrapers, FUTURE = technology)
- "populationGrowth": a number of new residents (may be negative after a disaster)
- "moneyBonus": a number of dollars gained or lost
- "era": one of "WILD_WEST", "INDUSTRIAL", "MODERN", "FUTURE" (WILD_WEST before 1900, INDUSTRIAL before 1950, MODERN before 2020, FUTURE after)
- "mission": null, or an object with "description", "targetType" (one of "POPULATION", "BUILDING_COUNT", "MONEY") and "targetValue" (a number)

Mission rules: if there is no mission or the current one is completed, create a new one with a target that is reachable but challenging for the town's current stats. If the current mission is not completed, return null to keep it.`

// wireEvent is the JSON shape the model is asked to produce.
type wireEvent struct {
	Headline         string       `json:"newsHeadline"`
	PopulationGrowth float64      `json:"populationGrowth"`
	MoneyBonus       float64      `json:"moneyBonus"`
	Era              string       `json:"era"`
	Mission          *wireMission `json:"mission"`
}

type wireMission struct {
	Description string  `json:"description"`
	TargetType  string  `json:"targetType"`
	TargetValue float64 `json:"targetValue"`
}

// EventWriter turns city summaries into narrative events.
type EventWriter struct {
	client    *Client
	maxTokens int
}

// NewEventWriter wraps client. A nil or disabled client makes every request
// resolve to the fallback event.
func NewEventWriter(client *Client) *EventWriter {
	return &EventWriter{client: client, maxTokens: 400}
}

// CityEvent asks the model for the next event.
func (w *EventWriter) CityEvent(ctx context.Context, req city.EventRequest) (city.Event, error) {
	if !w.client.Enabled() {
		return city.FallbackEvent(req), nil
	}

	text, err := w.client.Complete(ctx, eventSystemPrompt, buildEventPrompt(req), w.maxTokens)
	if err != nil {
		return city.Event{}, fmt.Errorf("city event: %w", err)
	}
	return parseEventResponse(text, req)
}

func buildEventPrompt(req city.EventRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Year: %d\n", int(req.Year))
	fmt.Fprintf(&b, "Era: %s\n", req.Era)
	fmt.Fprintf(&b, "Population: %d\n", int(req.Population))
	fmt.Fprintf(&b, "Buildings: %d\n", req.BuildingCount)

	if req.MissionDescription != nil {
		completed := req.MissionCompleted != nil && *req.MissionCompleted
		fmt.Fprintf(&b, "Current mission: %q. Completed: %t.\n", *req.MissionDescription, completed)
	} else {
		b.WriteString("No active mission. Create a new beginner mission.\n")
	}

	b.WriteString("\nWhat happens next? Respond with a single JSON object.")
	return b.String()
}

// parseEventResponse extracts and validates the event. Fields the model got
// wrong are defaulted rather than rejected; only a missing or unparseable
// JSON object is an error.
func parseEventResponse(response string, req city.EventRequest) (city.Event, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return city.Event{}, fmt.Errorf("no JSON object found in response")
	}

	var w wireEvent
	if err := json.Unmarshal([]byte(response[start:end+1]), &w); err != nil {
		return city.Event{}, fmt.Errorf("parse city event: %w", err)
	}

	ev := city.Event{
		Headline:         strings.TrimSpace(w.Headline),
		PopulationGrowth: finite(w.PopulationGrowth),
		MoneyBonus:       finite(w.MoneyBonus),
		Era:              req.Era,
		Mission:          w.Mission.validate(),
	}
	if ev.Headline == "" {
		ev.Headline = city.FallbackHeadline(req.Year)
	}
	if era, ok := city.ParseEra(strings.ToUpper(strings.TrimSpace(w.Era))); ok {
		ev.Era = era
	}
	return ev, nil
}

// validate converts the wire mission, returning nil when it is unusable.
func (m *wireMission) validate() *city.Mission {
	if m == nil {
		return nil
	}
	desc := strings.TrimSpace(m.Description)
	target, ok := city.ParseTargetType(strings.ToUpper(strings.TrimSpace(m.TargetType)))
	if desc == "" || !ok || math.IsNaN(m.TargetValue) || math.IsInf(m.TargetValue, 0) || m.TargetValue <= 0 {
		return nil
	}
	return &city.Mission{Description: desc, TargetType: target, TargetValue: m.TargetValue}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
