// Package city defines the building catalog, eras, and missions shared by the
// simulation, economy, and traffic packages.
package city

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Era is one of the four fixed progression stages.
type Era uint8

const (
	EraWildWest Era = iota
	EraIndustrial
	EraModern
	EraFuture
)

// Eras lists every era in ascending order.
var Eras = [...]Era{EraWildWest, EraIndustrial, EraModern, EraFuture}

var eraNames = [...]string{"WILD_WEST", "INDUSTRIAL", "MODERN", "FUTURE"}

func (e Era) String() string {
	if int(e) < len(eraNames) {
		return eraNames[e]
	}
	return fmt.Sprintf("Era(%d)", uint8(e))
}

// ParseEra resolves an upper-case era name.
func ParseEra(s string) (Era, bool) {
	for i, name := range eraNames {
		if name == s {
			return Era(i), true
		}
	}
	return EraWildWest, false
}

func (e Era) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Era) UnmarshalText(b []byte) error {
	v, ok := ParseEra(string(b))
	if !ok {
		return fmt.Errorf("unknown era %q", string(b))
	}
	*e = v
	return nil
}

// StartYear is the year each era begins.
func (e Era) StartYear() float64 {
	switch e {
	case EraIndustrial:
		return 1900
	case EraModern:
		return 1950
	case EraFuture:
		return 2020
	default:
		return 1850
	}
}

// PopulationMultiplier scales building capacity in the current era.
func (e Era) PopulationMultiplier() float64 {
	switch e {
	case EraIndustrial:
		return 2
	case EraModern:
		return 5
	case EraFuture:
		return 10
	default:
		return 1
	}
}

// BuildingType is the closed set of things that can occupy a tile.
type BuildingType uint8

const (
	Residential BuildingType = iota
	Commercial
	Industrial
	Road
	Bridge
	Sheriff
	Mayor
	Hospital
	Stable
	Blacksmith
	Farm
	Forest
	Demolish // pseudo-type for the demolish action
	GoldMine
	SilverMine
	CoalMine
)

var buildingNames = [...]string{
	"RESIDENTIAL", "COMMERCIAL", "INDUSTRIAL", "ROAD", "BRIDGE", "SHERIFF",
	"MAYOR", "HOSPITAL", "STABLE", "BLACKSMITH", "FARM", "FOREST", "DEMOLISH",
	"GOLD_MINE", "SILVER_MINE", "COAL_MINE",
}

// BuildingTypes lists every type in declaration order.
func BuildingTypes() []BuildingType {
	out := make([]BuildingType, len(buildingNames))
	for i := range buildingNames {
		out[i] = BuildingType(i)
	}
	return out
}

func (t BuildingType) String() string {
	if int(t) < len(buildingNames) {
		return buildingNames[t]
	}
	return fmt.Sprintf("BuildingType(%d)", uint8(t))
}

// ParseBuildingType resolves an upper-case building name.
func ParseBuildingType(s string) (BuildingType, bool) {
	for i, name := range buildingNames {
		if name == s {
			return BuildingType(i), true
		}
	}
	return 0, false
}

func (t BuildingType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *BuildingType) UnmarshalText(b []byte) error {
	v, ok := ParseBuildingType(string(b))
	if !ok {
		return fmt.Errorf("unknown building type %q", string(b))
	}
	*t = v
	return nil
}

// IsRoad reports whether traffic can travel over the type.
func (t BuildingType) IsRoad() bool {
	return t == Road || t == Bridge
}

// IsMine reports whether the type is one of the generated resource mines.
func (t BuildingType) IsMine() bool {
	return t == GoldMine || t == SilverMine || t == CoalMine
}

// Building is a placed structure on one grid tile.
type Building struct {
	ID       string       `json:"id"`
	Type     BuildingType `json:"type"`
	Era      Era          `json:"era"`
	GridX    int          `json:"grid_x"`
	GridZ    int          `json:"grid_z"`
	Rotation float64      `json:"rotation"`
	Variant  int          `json:"variant"`
}

// NewBuilding creates a building with a fresh id.
func NewBuilding(t BuildingType, era Era, gx, gz int, rotation float64, variant int) Building {
	return Building{
		ID:       uuid.NewString(),
		Type:     t,
		Era:      era,
		GridX:    gx,
		GridZ:    gz,
		Rotation: rotation,
		Variant:  variant,
	}
}

// TargetType is what a mission measures.
type TargetType uint8

const (
	TargetPopulation TargetType = iota
	TargetBuildingCount
	TargetMoney
)

var targetNames = [...]string{"POPULATION", "BUILDING_COUNT", "MONEY"}

func (t TargetType) String() string {
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return fmt.Sprintf("TargetType(%d)", uint8(t))
}

// ParseTargetType resolves an upper-case target name.
func ParseTargetType(s string) (TargetType, bool) {
	for i, name := range targetNames {
		if name == s {
			return TargetType(i), true
		}
	}
	return 0, false
}

func (t TargetType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TargetType) UnmarshalText(b []byte) error {
	v, ok := ParseTargetType(string(b))
	if !ok {
		return fmt.Errorf("unknown target type %q", string(b))
	}
	*t = v
	return nil
}

// Mission is the single active player objective.
type Mission struct {
	Description string     `json:"description"`
	TargetType  TargetType `json:"target_type"`
	TargetValue float64    `json:"target_value"`
	Completed   bool       `json:"completed"`
}

// Satisfied reports whether the mission target is met by the given stats.
// It does not consult or change Completed.
func (m *Mission) Satisfied(population, money float64, buildingCount int) bool {
	if m == nil || math.IsNaN(m.TargetValue) {
		return false
	}
	switch m.TargetType {
	case TargetPopulation:
		return population >= m.TargetValue
	case TargetMoney:
		return money >= m.TargetValue
	case TargetBuildingCount:
		return float64(buildingCount) >= m.TargetValue
	}
	return false
}
