package server

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/waypoint/internal/decision"
	"github.com/lazypower/waypoint/internal/engine"
	werrors "github.com/lazypower/waypoint/internal/errors"
	"github.com/lazypower/waypoint/internal/metrics"
	"github.com/lazypower/waypoint/internal/planner"
	"github.com/lazypower/waypoint/internal/store"
)

// Deps are the services the API exposes.
type Deps struct {
	DB        *store.DB
	Engine    *engine.Engine
	Decisions *decision.Engine
	Planner   *planner.Planner
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Server is the waypoint HTTP API server.
type Server struct {
	Deps
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given services and version string.
func New(deps Deps, version string) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		Deps:    deps,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", s.Metrics.Handler())
	r.Get("/plans/{goalID}", s.handlePlanPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/context", s.handleGetContext)

		r.Post("/memories", s.handleCapture)
		r.Get("/memories/search", s.handleSearch)
		r.Patch("/memories/{id}/tags", s.handleUpdateTags)

		r.Post("/goals/clarify", s.handleClarify)
		r.Post("/goals", s.handleCreateGoal)
		r.Get("/goals", s.handleListGoals)
		r.Get("/goals/{id}", s.handleGetGoal)
		r.Get("/goals/{id}/plan", s.handleGoalPlan)
		r.Post("/goals/{id}/status", s.handleGoalStatus)
		r.Post("/goals/{id}/progress", s.handleGoalProgress)
		r.Delete("/goals/{id}", s.handleDeleteGoal)
		r.Get("/balance", s.handleBalance)

		r.Post("/tasks", s.handleCreateTask)
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks/{id}/start", s.handleStartTask)
		r.Post("/tasks/{id}/checkins", s.handleCheckIn)

		r.Get("/adjustments", s.handlePendingAdjustments)
		r.Post("/adjustments/{id}/accept", s.handleAcceptAdjustment)
		r.Post("/adjustments/{id}/reject", s.handleRejectAdjustment)
	})

	s.router = r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.DB.PingContext(r.Context()); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.DB.Path,
		"llm":     s.Decisions != nil && s.Decisions.LLM != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps coded errors to their status; anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := werrors.StatusOf(err)
	body := map[string]any{"error": err.Error()}
	var e *werrors.Error
	if stderrors.As(err, &e) {
		body["code"] = e.Code
		body["error"] = e.Message
		if e.Details != nil {
			body["details"] = e.Details
		}
	} else {
		body["code"] = werrors.ErrInternal
	}
	if status >= 500 {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return werrors.NewInvalidRequest("invalid json: " + err.Error())
	}
	return nil
}
