// Package progress decides era transitions, mission lifecycle, and when the
// narrative service is consulted.
package progress

import "github.com/talgya/boomtown/internal/city"

// ThresholdEra is the most advanced era whose start year has been reached.
func ThresholdEra(year float64) city.Era {
	for i := len(city.Eras) - 1; i > 0; i-- {
		if year >= city.Eras[i].StartYear() {
			return city.Eras[i]
		}
	}
	return city.EraWildWest
}

// ResolveEra picks the most advanced of the current era, the narrative hint,
// and the year threshold. The result never precedes current.
func ResolveEra(current, hint city.Era, year float64) city.Era {
	out := current
	if hint > out && int(hint) < len(city.Eras) {
		out = hint
	}
	if t := ThresholdEra(year); t > out {
		out = t
	}
	return out
}
