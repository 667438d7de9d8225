package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lazypower/waypoint/internal/engine"
	"github.com/lazypower/waypoint/internal/model"
)

const maxContextItems = 10

// handleGetContext returns a markdown digest for an owner: the memories most
// relevant to q (or the strongest ones when q is empty), open adjustments and
// today's tasks. Agents inject it before planning conversations.
func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	digest, err := s.buildContext(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"context": digest})
}

func (s *Server) buildContext(ctx context.Context, ownerID, query string) (string, error) {
	var b strings.Builder
	b.WriteString("<context>\n## Waypoint\n")

	results, err := s.Engine.Search(ctx, engine.SearchRequest{
		OwnerID: ownerID,
		Query:   query,
		Limit:   maxContextItems,
	})
	if err != nil {
		return "", err
	}

	// Key facts first, everything else under memories.
	var key, other []model.MemoryRecord
	for _, res := range results {
		if res.Memory.Type.IsKey() {
			key = append(key, res.Memory)
		} else {
			other = append(other, res.Memory)
		}
	}
	if len(key) > 0 {
		b.WriteString("\n### Key Facts\n")
		for _, m := range key {
			writeMemory(&b, m)
		}
	}
	if len(other) > 0 {
		b.WriteString("\n### Memories\n")
		for _, m := range other {
			writeMemory(&b, m)
		}
	}

	adjs, err := s.Planner.PendingAdjustments(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if len(adjs) > 0 {
		b.WriteString("\n### Pending Adjustments\n")
		for _, a := range adjs {
			labels := make([]string, 0, len(a.Options))
			for _, o := range a.Options {
				labels = append(labels, fmt.Sprintf("%s) %s", o.ID, o.Label))
			}
			fmt.Fprintf(&b, "- [%s] %s (options: %s)\n", a.AdjustmentType, a.Rationale, strings.Join(labels, "; "))
		}
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	tasks, err := s.Planner.Tasks(ctx, ownerID, today, today.AddDate(0, 0, 1))
	if err != nil {
		return "", err
	}
	if len(tasks) > 0 {
		b.WriteString("\n### Today\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "- [%s] %s (%d min, %s energy)\n", t.Status, t.Title, t.EstimatedDuration, t.EnergyLevel)
		}
	}

	b.WriteString("</context>")
	return b.String(), nil
}

func writeMemory(b *strings.Builder, m model.MemoryRecord) {
	line := m.Text
	if m.ReminderDate != nil {
		line += " (" + m.ReminderDate.Format(time.DateOnly) + ")"
	}
	fmt.Fprintf(b, "- [%s] %s\n", m.Type, line)
}
