package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/waypoint/internal/engine"
	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/model"
	"github.com/lazypower/waypoint/internal/planner"
	"github.com/lazypower/waypoint/internal/report"
)

// requestTimeout bounds handlers that may call the generation tier. Decisions
// still fall back inside it.
const requestTimeout = 60 * time.Second

func ownerParam(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.URL.Query().Get("ownerId"))
	if owner == "" {
		return "", werrors.NewInvalidRequest("ownerId parameter required")
	}
	return owner, nil
}

func csvParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var in engine.CaptureInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := s.Engine.Capture(ctx, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	req := engine.SearchRequest{
		OwnerID: owner,
		Query:   q.Get("q"),
		Type:    model.MemoryType(q.Get("type")),
		Tags:    csvParam(r, "tags"),
	}
	if req.Type != "" && !req.Type.Valid() {
		s.writeError(w, r, werrors.NewInvalidRequest(fmt.Sprintf("invalid type %q", req.Type)))
		return
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			s.writeError(w, r, werrors.NewInvalidRequest("limit must be a positive integer"))
			return
		}
		req.Limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	results, err := s.Engine.Search(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []engine.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleUpdateTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SystemTags *[]string `json:"systemTags"`
		UserTags   []string  `json:"userTags"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var system []string
	if req.SystemTags != nil {
		system = append([]string{}, *req.SystemTags...)
	}
	m, err := s.Engine.UpdateTags(r.Context(), chi.URLParam(r, "id"), system, req.UserTags)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleClarify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"ownerId"`
		Prompt  string `json:"prompt"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, r, werrors.NewInvalidRequest("prompt is required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, s.Decisions.Clarify(ctx, req.OwnerID, req.Prompt))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var in planner.CreateGoalInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	plan, err := s.Planner.CreateGoal(ctx, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var statuses []model.GoalStatus
	for _, st := range csvParam(r, "status") {
		statuses = append(statuses, model.GoalStatus(st))
	}
	goals, err := s.Planner.ListGoals(r.Context(), owner, statuses...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals, "count": len(goals)})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Planner.Goal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if plan.Tasks == nil {
		plan.Tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleGoalPlan renders the plan as Markdown, or HTML with ?format=html.
func (s *Server) handleGoalPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Planner.Goal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "html":
		html, err := report.PlanHTML(*plan.Goal, plan.Tasks)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, report.PlanMarkdown(*plan.Goal, plan.Tasks))
	default:
		s.writeError(w, r, werrors.NewInvalidRequest("format must be markdown or html"))
	}
}

func (s *Server) handleGoalStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.GoalStatus `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.Planner.SetGoalStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Progress *int `json:"progress"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Progress == nil {
		s.writeError(w, r, werrors.NewInvalidRequest("progress is required"))
		return
	}
	g, err := s.Planner.SetGoalProgress(r.Context(), chi.URLParam(r, "id"), *req.Progress)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cancelled, err := s.Planner.DeleteGoal(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := "deleted"
	if cancelled {
		status = "cancelled"
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": status})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bal, err := s.Planner.Balance(r.Context(), owner, model.Dimension(r.URL.Query().Get("dimension")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in planner.CreateTaskInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.Planner.CreateTask(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleListTasks lists tasks in [from, to). Dates are YYYY-MM-DD.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var from, to time.Time
	for name, dst := range map[string]*time.Time{"from": &from, "to": &to} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			s.writeError(w, r, werrors.NewInvalidRequest(fmt.Sprintf("%s must be YYYY-MM-DD", name)))
			return
		}
		*dst = t
	}
	tasks, err := s.Planner.Tasks(r.Context(), owner, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.Planner.StartTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var in planner.CheckInInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.TaskID = chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := s.Planner.CheckIn(ctx, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handlePendingAdjustments(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	adjs, err := s.Planner.PendingAdjustments(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if adjs == nil {
		adjs = []model.Adjustment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"adjustments": adjs, "count": len(adjs)})
}

func (s *Server) handleAcceptAdjustment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionID string `json:"optionId"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	res, err := s.Planner.AcceptAdjustment(r.Context(), chi.URLParam(r, "id"), req.OptionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRejectAdjustment(w http.ResponseWriter, r *http.Request) {
	res, err := s.Planner.RejectAdjustment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
