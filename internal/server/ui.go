package server

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/report"
)

var planPage = template.Must(template.New("plan").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · waypoint</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: .35rem .5rem; text-align: left; }
th { background: #f4f4f4; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// handlePlanPage serves a goal's plan as a standalone HTML page.
func (s *Server) handlePlanPage(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Planner.Goal(r.Context(), chi.URLParam(r, "goalID"))
	if err != nil {
		http.Error(w, err.Error(), werrors.StatusOf(err))
		return
	}
	body, err := report.PlanHTML(*plan.Goal, plan.Tasks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// body is goldmark output with raw HTML disabled.
	err = planPage.Execute(w, map[string]any{
		"Title": plan.Goal.Title,
		"Body":  template.HTML(body),
	})
	if err != nil {
		s.Logger.Error("render plan page", "goal", plan.Goal.ID, "error", err)
	}
}
