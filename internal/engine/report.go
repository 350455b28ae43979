package engine

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/economy"
)

// AnnualReport summarises the town when the simulated year rolls over.
type AnnualReport struct {
	Year       int      `json:"year"`
	Era        city.Era `json:"era"`
	Money      float64  `json:"money"`
	Population float64  `json:"population"`
	Capacity   float64  `json:"capacity"`
	Buildings  int      `json:"buildings"`
	Roads      int      `json:"roads"`
	Income     float64  `json:"income"` // per collection at the current building mix
	Mission    string   `json:"mission,omitempty"`
}

// annualReport builds the report for the current state. Callers hold mu.
func (s *Simulation) annualReport(r economy.Report) AnnualReport {
	st := &s.state
	rep := AnnualReport{
		Year:       int(st.Year),
		Era:        st.Era,
		Money:      st.Money,
		Population: st.Population,
		Capacity:   r.Capacity,
		Buildings:  len(st.Buildings),
		Roads:      s.graph.Len(),
		Income:     economy.Income(st.Buildings),
	}
	if st.Mission != nil {
		rep.Mission = st.Mission.Description
	}
	return rep
}

func (s *Simulation) publishReport(rep AnnualReport) {
	slog.Info("annual report",
		"year", rep.Year,
		"era", rep.Era,
		"money", "$"+humanize.CommafWithDigits(rep.Money, 0),
		"population", humanize.Comma(int64(rep.Population)),
		"capacity", humanize.Comma(int64(rep.Capacity)),
		"buildings", rep.Buildings,
		"roads", rep.Roads,
		"income", humanize.CommafWithDigits(rep.Income, 0),
	)
	if s.OnAnnualReport != nil {
		s.OnAnnualReport(rep)
	}
}
