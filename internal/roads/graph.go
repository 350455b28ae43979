// Package roads maintains the traversable graph over placed road and bridge
// tiles. Two tiles are linked when they are axis-aligned immediate neighbours.
package roads

import (
	"math"
	"slices"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/terrain"
)

const epsilon = 0.1

// Node is one road or bridge tile.
type Node struct {
	ID        string            `json:"id"`
	Coord     terrain.Coord     `json:"coord"`
	X         float64           `json:"x"` // world units
	Z         float64           `json:"z"`
	Type      city.BuildingType `json:"type"`
	Neighbors []string          `json:"neighbors"`
}

// IsBridge reports whether traffic crosses this node on a bridge deck.
func (n *Node) IsBridge() bool {
	return n.Type == city.Bridge
}

// Graph is the road network. It is updated incrementally with Add and
// Remove; Build rebuilds it from a building list.
type Graph struct {
	TileSize float64 `json:"tile_size"`
	Version  uint64  `json:"version"` // bumped on every structural change

	nodes   map[string]*Node
	byCoord map[terrain.Coord]string
	order   []string
}

// NewGraph creates an empty graph.
func NewGraph(tileSize float64) *Graph {
	return &Graph{
		TileSize: tileSize,
		nodes:    make(map[string]*Node),
		byCoord:  make(map[terrain.Coord]string),
	}
}

// Build creates a graph holding every road and bridge in buildings.
func Build(buildings []city.Building, tileSize float64) *Graph {
	g := NewGraph(tileSize)
	for _, b := range buildings {
		g.Add(b)
	}
	return g
}

// Add inserts a road or bridge building and links it to its neighbours.
// Other building types and duplicate ids are ignored.
func (g *Graph) Add(b city.Building) bool {
	if !b.Type.IsRoad() {
		return false
	}
	if _, ok := g.nodes[b.ID]; ok {
		return false
	}
	c := terrain.Coord{X: b.GridX, Z: b.GridZ}
	if _, ok := g.byCoord[c]; ok {
		return false
	}

	n := &Node{
		ID:    b.ID,
		Coord: c,
		X:     float64(b.GridX) * g.TileSize,
		Z:     float64(b.GridZ) * g.TileSize,
		Type:  b.Type,
	}
	for _, d := range [4]terrain.Coord{{X: 0, Z: -1}, {X: 0, Z: 1}, {X: 1, Z: 0}, {X: -1, Z: 0}} {
		id, ok := g.byCoord[terrain.Coord{X: c.X + d.X, Z: c.Z + d.Z}]
		if !ok {
			continue
		}
		other := g.nodes[id]
		n.Neighbors = append(n.Neighbors, id)
		other.Neighbors = append(other.Neighbors, n.ID)
	}

	g.nodes[n.ID] = n
	g.byCoord[c] = n.ID
	g.order = append(g.order, n.ID)
	g.Version++
	return true
}

// Remove deletes a node and unlinks it from its neighbours.
func (g *Graph) Remove(id string) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	for _, nid := range n.Neighbors {
		other := g.nodes[nid]
		other.Neighbors = slices.DeleteFunc(other.Neighbors, func(s string) bool { return s == id })
	}
	delete(g.nodes, id)
	delete(g.byCoord, n.Coord)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == id })
	g.Version++
	return true
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Has reports whether id is in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// At returns the node on a grid coordinate, or nil.
func (g *Graph) At(c terrain.Coord) *Node {
	return g.nodes[g.byCoord[c]]
}

// IDs returns node ids in insertion order.
func (g *Graph) IDs() []string {
	return slices.Clone(g.order)
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Clone deep-copies the graph.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		TileSize: g.TileSize,
		Version:  g.Version,
		nodes:    make(map[string]*Node, len(g.nodes)),
		byCoord:  make(map[terrain.Coord]string, len(g.byCoord)),
		order:    slices.Clone(g.order),
	}
	for id, n := range g.nodes {
		c := *n
		c.Neighbors = slices.Clone(n.Neighbors)
		out.nodes[id] = &c
	}
	for c, id := range g.byCoord {
		out.byCoord[c] = id
	}
	return out
}

// Adjacent reports whether a and b are axis-aligned neighbours: equal on one
// axis and exactly one tile apart on the other, within a small tolerance.
func Adjacent(a, b *Node, tileSize float64) bool {
	if a.ID == b.ID {
		return false
	}
	dx := math.Abs(a.X - b.X)
	dz := math.Abs(a.Z - b.Z)
	return (dx < epsilon && math.Abs(dz-tileSize) < epsilon) ||
		(dz < epsilon && math.Abs(dx-tileSize) < epsilon)
}
