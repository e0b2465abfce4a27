package report

import (
	"sort"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal/workorder"
)

type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary aggregates finalized orders over a date range.
type Summary struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	Total         int       `json:"total"`
	ByTechnician  []Count   `json:"by_technician"`
	ByServiceType []Count   `json:"by_service_type"`
}

func Summarize(orders []*workorder.WorkOrder, from, to time.Time) Summary {
	perTech := map[string]int{}
	perService := map[string]int{}
	for _, wo := range orders {
		name := wo.TechnicianName
		if name == "" {
			name = wo.TechnicianID
		}
		perTech[name]++
		perService[wo.ServiceType]++
	}
	return Summary{
		From:          from,
		To:            to,
		Total:         len(orders),
		ByTechnician:  ranked(perTech),
		ByServiceType: ranked(perService),
	}
}

// ranked orders by count descending, then name.
func ranked(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
