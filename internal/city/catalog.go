package city

// Stats holds the economic constants of one building type.
type Stats struct {
	Cost     float64 `json:"cost"`
	Income   float64 `json:"income"`   // added per income collection
	Capacity float64 `json:"capacity"` // residents supported before the era multiplier
}

var catalog = map[BuildingType]Stats{
	Residential: {Cost: 100, Income: 5, Capacity: 15},
	Commercial:  {Cost: 200, Income: 15, Capacity: 5},
	Industrial:  {Cost: 300, Income: 25, Capacity: 0},
	Road:        {Cost: 10, Income: 0, Capacity: 0},
	Bridge:      {Cost: 100, Income: 0, Capacity: 0},
	Sheriff:     {Cost: 500, Income: 0, Capacity: 2},
	Mayor:       {Cost: 1000, Income: 10, Capacity: 5},
	Hospital:    {Cost: 800, Income: 5, Capacity: 20},
	Stable:      {Cost: 150, Income: 10, Capacity: 5},
	Blacksmith:  {Cost: 250, Income: 20, Capacity: 3},
	Farm:        {Cost: 150, Income: 12, Capacity: 10},
	Forest:      {Cost: 50, Income: 2, Capacity: 0},
	Demolish:    {Cost: 50, Income: 0, Capacity: 0},
	GoldMine:    {Cost: 0, Income: 50, Capacity: 5},
	SilverMine:  {Cost: 0, Income: 30, Capacity: 5},
	CoalMine:    {Cost: 0, Income: 20, Capacity: 10},
}

// StatsFor returns the economic constants for t.
func StatsFor(t BuildingType) Stats {
	return catalog[t]
}

// Cost is shorthand for StatsFor(t).Cost.
func Cost(t BuildingType) float64 {
	return catalog[t].Cost
}

// Purchasable reports whether players may place t directly.
// Mines only come from terrain generation; DEMOLISH is an action.
func (t BuildingType) Purchasable() bool {
	return int(t) < len(buildingNames) && t != Demolish && !t.IsMine()
}

// ProvidesJobs reports whether t counts toward the growth rate as a job slot.
func (t BuildingType) ProvidesJobs() bool {
	switch t {
	case Commercial, Industrial, Blacksmith, Stable:
		return true
	}
	return false
}

// Attracts reports whether t counts toward the growth rate as an attractor.
func (t BuildingType) Attracts() bool {
	switch t {
	case Mayor, Sheriff, Hospital, Forest:
		return true
	}
	return false
}
