package progress

import "github.com/talgya/boomtown/internal/city"

// Evaluate marks m completed the first time its target is met and reports
// whether that happened on this call. Completion is never undone.
func Evaluate(m *city.Mission, population, money float64, buildingCount int) bool {
	if m == nil || m.Completed {
		return false
	}
	if !m.Satisfied(population, money, buildingCount) {
		return false
	}
	m.Completed = true
	return true
}

// ResolveMission applies a narrative response to the active mission. A new
// mission replaces the old one; otherwise a completed mission is cleared and
// an open one is kept.
func ResolveMission(current, incoming *city.Mission) *city.Mission {
	if incoming != nil {
		m := *incoming
		m.Completed = false
		return &m
	}
	if current != nil && current.Completed {
		return nil
	}
	return current
}

// Trigger decides when the narrative service is consulted.
type Trigger struct {
	Every float64 // simulated years between requests
}

// Due reports whether a request should fire: enough years have passed since
// last, or the mission is complete, and nothing is already in flight.
func (t Trigger) Due(year, last float64, m *city.Mission, loading bool) bool {
	if loading {
		return false
	}
	return year-last >= t.Every || (m != nil && m.Completed)
}
