// Package traffic advances vehicles, pedestrians, and wildlife every render
// frame. Road agents walk the road graph node to node; wildlife wanders the
// open terrain.
package traffic

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/talgya/boomtown/internal/roads"
)

// Tuning constants. Speeds are world units per second, distances on an edge
// are fractions of its length.
const (
	VehicleSpeed    = 0.8
	PedestrianSpeed = 0.4

	SafeDistance = 0.6  // minimum gap to the vehicle ahead, in progress units
	SpeedEasing  = 3.0  // per second
	StuckSpeed   = 0.05 // below this a vehicle counts as stalled
	StuckTimeout = 3.0  // seconds stalled before respawning

	SidewalkOffset = 0.85
	SideFlipChance = 0.2

	ArrivalRadius = 0.5
	WaterSink     = -0.3
)

// Kind distinguishes the three agent families.
type Kind uint8

const (
	Vehicle Kind = iota
	Pedestrian
	Wildlife
)

var kindNames = [...]string{"VEHICLE", "PEDESTRIAN", "WILDLIFE"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind resolves an upper-case kind name.
func ParseKind(s string) (Kind, bool) {
	i := slices.Index(kindNames[:], s)
	return Kind(max(i, 0)), i >= 0
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown agent kind %q", string(b))
	}
	*k = v
	return nil
}

// RoadAgent is a vehicle or pedestrian travelling from node Current toward
// node Next. Progress is the fraction of that edge already covered.
type RoadAgent struct {
	ID        int     `json:"id"`
	Kind      Kind    `json:"kind"`
	Current   string  `json:"current"`
	Next      string  `json:"next"`
	Prev      string  `json:"prev"`
	Progress  float64 `json:"progress"`
	Speed     float64 `json:"speed"`
	MaxSpeed  float64 `json:"max_speed"`
	Lane      float64 `json:"lane"` // signed sideways offset from the centre line
	StuckTime float64 `json:"stuck_time"`

	spawned bool
}

// Species of wildlife.
type Species uint8

const (
	Bison Species = iota
	Deer
)

var speciesNames = [...]string{"BISON", "DEER"}

func (s Species) String() string {
	if int(s) < len(speciesNames) {
		return speciesNames[s]
	}
	return fmt.Sprintf("Species(%d)", uint8(s))
}

func (s Species) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseSpecies resolves an upper-case species name.
func ParseSpecies(s string) (Species, bool) {
	i := slices.Index(speciesNames[:], s)
	return Species(max(i, 0)), i >= 0
}

func (s *Species) UnmarshalText(b []byte) error {
	v, ok := ParseSpecies(string(b))
	if !ok {
		return fmt.Errorf("unknown species %q", string(b))
	}
	*s = v
	return nil
}

// Animal wanders between random points on the map, idling on arrival.
type Animal struct {
	ID      int     `json:"id"`
	Species Species `json:"species"`
	X       float64 `json:"x"`
	Z       float64 `json:"z"`
	TargetX float64 `json:"target_x"`
	TargetZ float64 `json:"target_z"`
	Speed   float64 `json:"speed"`
	Idle    float64 `json:"idle"`
}

// chooseNext picks the node after cur, avoiding an immediate U-turn back to
// prev unless cur is a dead end. Isolated nodes loop onto themselves.
func chooseNext(g *roads.Graph, cur *roads.Node, prev string, rng *rand.Rand) string {
	if len(cur.Neighbors) == 0 {
		if prev != "" && g.Has(prev) {
			return prev
		}
		return cur.ID
	}
	candidates := make([]string, 0, len(cur.Neighbors))
	for _, id := range cur.Neighbors {
		if id != prev {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		candidates = cur.Neighbors
	}
	return candidates[rng.Intn(len(candidates))]
}

// ease moves cur toward target by factor, clamped to [0, 1].
func ease(cur, target, factor float64) float64 {
	if factor > 1 {
		factor = 1
	}
	if factor < 0 {
		factor = 0
	}
	return cur + (target-cur)*factor
}
