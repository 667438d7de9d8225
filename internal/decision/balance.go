package decision

import (
	"fmt"
	"strings"

	"github.com/lazypower/waypoint/internal/model"
)

// BalanceReport is the life-wheel analysis for a goal list.
type BalanceReport struct {
	Distribution model.LifeWheelDistribution `json:"distribution"`
	Max          int                         `json:"max"`
	Min          int                         `json:"min"`
	Average      float64                     `json:"average"`
	Neglected    []model.Dimension           `json:"neglected"`
	OverFocused  []model.Dimension           `json:"overFocused"`
	IsBalanced   bool                        `json:"isBalanced"`
	Commentary   string                      `json:"commentary"`
}

// Balance counts goals per dimension, including candidate when it is set,
// and flags dimensions that are neglected or over-focused. It is a pure
// function of its input.
func Balance(goals []model.Goal, candidate model.Dimension) BalanceReport {
	dist := model.NewDistribution()
	for _, g := range goals {
		if g.Dimension.Valid() {
			dist[g.Dimension]++
		}
	}
	if candidate.Valid() {
		dist[candidate]++
	}

	r := BalanceReport{
		Distribution: dist,
		Min:          dist[model.Dimensions[0]],
		Neglected:    []model.Dimension{},
		OverFocused:  []model.Dimension{},
	}
	total := 0
	for _, d := range model.Dimensions {
		n := dist[d]
		total += n
		r.Max = max(r.Max, n)
		r.Min = min(r.Min, n)
	}
	r.Average = float64(total) / float64(len(model.Dimensions))

	for _, d := range model.Dimensions {
		n := dist[d]
		if n == 0 {
			r.Neglected = append(r.Neglected, d)
		}
		// n > 0 keeps an empty wheel from flagging every dimension.
		if n > 0 && float64(n) >= 2*r.Average {
			r.OverFocused = append(r.OverFocused, d)
		}
	}
	r.IsBalanced = r.Max-r.Min <= 2 && len(r.Neglected) <= 2
	r.Commentary = commentary(r, total)
	return r
}

func commentary(r BalanceReport, total int) string {
	if total == 0 {
		return "No goals yet. Pick any area of the wheel to start."
	}
	var parts []string
	if r.IsBalanced {
		parts = append(parts, "Your goals are spread evenly across the wheel.")
	} else {
		parts = append(parts, "Your goals are unevenly spread.")
	}
	if len(r.OverFocused) > 0 {
		parts = append(parts, fmt.Sprintf("Most of your attention is on %s.", joinDimensions(r.OverFocused)))
	}
	if len(r.Neglected) > 0 {
		parts = append(parts, fmt.Sprintf("Nothing is planned for %s.", joinDimensions(r.Neglected)))
	}
	return strings.Join(parts, " ")
}

func joinDimensions(ds []model.Dimension) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = strings.ReplaceAll(string(d), "_", "-")
	}
	return strings.Join(names, ", ")
}
