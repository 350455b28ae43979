package traffic

import (
	"math"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/roads"
	"github.com/talgya/boomtown/internal/terrain"
)

// Vertical offsets in world units.
const (
	BridgeDeck       = 0.2
	OffMapHeight     = 0.5
	PedestrianOffset = 0.25
	WagonOffset      = 0.06 // dirt roads of the first era sit almost flush
	PavedRoadOffset  = 0.25
)

// EffectiveHeight is the surface an agent stands on at a world position.
// Bridge decks sit a fixed offset above the terrain beneath them.
func EffectiveHeight(m *terrain.Map, x, z float64, bridge bool) float64 {
	tile := m.AtWorld(x, z)
	if bridge {
		base := 0.0
		if tile != nil {
			base = tile.SurfaceY()
		}
		return base + BridgeDeck
	}
	if tile != nil {
		return tile.SurfaceY()
	}
	return OffMapHeight
}

// EdgeHeight interpolates surface height between two nodes by progress.
func EdgeHeight(m *terrain.Map, from, to *roads.Node, progress float64) float64 {
	y1 := EffectiveHeight(m, from.X, from.Z, from.IsBridge())
	y2 := EffectiveHeight(m, to.X, to.Z, to.IsBridge())
	return y1 + (y2-y1)*progress
}

// Pose is an agent's world transform for the renderer.
type Pose struct {
	ID      int     `json:"id"`
	Kind    Kind    `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Heading float64 `json:"heading"` // radians about the vertical axis, 0 = +Z
	Detail  string  `json:"detail,omitempty"`
}

// Poses computes transforms for every agent that currently has a position.
// Road agents without a next node are omitted.
func (s *Simulator) Poses(g *roads.Graph, m *terrain.Map, era city.Era) []Pose {
	out := make([]Pose, 0, len(s.Vehicles)+len(s.Pedestrians)+len(s.Wildlife))

	vehicleOffset := PavedRoadOffset
	if era == city.EraWildWest {
		vehicleOffset = WagonOffset
	}
	for _, a := range s.Vehicles {
		if p, ok := roadPose(a, g, m, vehicleOffset); ok {
			out = append(out, p)
		}
	}
	for _, a := range s.Pedestrians {
		if p, ok := roadPose(a, g, m, PedestrianOffset); ok {
			out = append(out, p)
		}
	}
	for _, a := range s.Wildlife {
		y := EffectiveHeight(m, a.X, a.Z, false)
		if tile := m.AtWorld(a.X, a.Z); tile != nil && tile.Kind == terrain.Water {
			y += WaterSink
		}
		out = append(out, Pose{
			ID:      a.ID,
			Kind:    Wildlife,
			X:       a.X,
			Y:       y,
			Z:       a.Z,
			Heading: math.Atan2(a.TargetX-a.X, a.TargetZ-a.Z),
			Detail:  a.Species.String(),
		})
	}
	return out
}

func roadPose(a *RoadAgent, g *roads.Graph, m *terrain.Map, offset float64) (Pose, bool) {
	from, to := g.Node(a.Current), g.Node(a.Next)
	if from == nil || to == nil {
		return Pose{}, false
	}

	dx, dz := to.X-from.X, to.Z-from.Z
	length := math.Sqrt(dx*dx + dz*dz)
	if length == 0 {
		length = 1
	}
	// Right-hand perpendicular of the travel direction.
	rx, rz := dz/length, -dx/length

	return Pose{
		ID:      a.ID,
		Kind:    a.Kind,
		X:       from.X + dx*a.Progress + rx*a.Lane,
		Y:       EdgeHeight(m, from, to, a.Progress) + offset,
		Z:       from.Z + dz*a.Progress + rz*a.Lane,
		Heading: math.Atan2(dx, dz),
	}, true
}
