package traffic

import "slices"

// Occupant is one vehicle's position on an edge.
type Occupant struct {
	AgentID  int     `json:"agent_id"`
	Progress float64 `json:"progress"`
}

// Registry indexes vehicles by the node they are leaving.
type Registry map[string][]Occupant

// Ahead reports whether another vehicle on edge is in front of progress and
// closer than gap.
func (r Registry) Ahead(edge string, agentID int, progress, gap float64) bool {
	for _, o := range r[edge] {
		if o.AgentID == agentID {
			continue
		}
		if o.Progress > progress && o.Progress-progress < gap {
			return true
		}
	}
	return false
}

// put replaces the agent's entry on edge in one step.
func (r Registry) put(edge string, agentID int, progress float64) {
	list := slices.DeleteFunc(r[edge], func(o Occupant) bool { return o.AgentID == agentID })
	r[edge] = append(list, Occupant{AgentID: agentID, Progress: progress})
}

func (r Registry) remove(edge string, agentID int) {
	list, ok := r[edge]
	if !ok {
		return
	}
	list = slices.DeleteFunc(list, func(o Occupant) bool { return o.AgentID == agentID })
	if len(list) == 0 {
		delete(r, edge)
		return
	}
	r[edge] = list
}

// prune drops edges for which keep returns false.
func (r Registry) prune(keep func(edge string) bool) {
	for edge := range r {
		if !keep(edge) {
			delete(r, edge)
		}
	}
}

// occupancyDelta is the registry change produced by one vehicle step.
type occupancyDelta struct {
	leave    []string
	enter    string
	progress float64
}

func (r Registry) apply(agentID int, d occupancyDelta) {
	for _, edge := range d.leave {
		r.remove(edge, agentID)
	}
	if d.enter != "" {
		r.put(d.enter, agentID, d.progress)
	}
}
