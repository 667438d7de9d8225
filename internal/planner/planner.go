// Package planner owns goal, task, check-in and adjustment lifecycles. It
// calls the decision engine for generated content and keeps the store
// consistent with the status machines in model.
package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/lazypower/waypoint/internal/decision"
	"github.com/lazypower/waypoint/internal/events"
	"github.com/lazypower/waypoint/internal/metrics"
	"github.com/lazypower/waypoint/internal/store"
)

// Planner coordinates plan mutations for all owners.
type Planner struct {
	DB        *store.DB
	Decisions *decision.Engine
	Events    events.Publisher
	Metrics   *metrics.Metrics

	logger *slog.Logger
	now    func() time.Time
}

// New creates a Planner. A nil publisher drops events.
func New(db *store.DB, decisions *decision.Engine, pub events.Publisher, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Planner{
		DB:        db,
		Decisions: decisions,
		Events:    pub,
		logger:    logger,
		now:       time.Now,
	}
}

// today returns local midnight.
func (p *Planner) today() time.Time {
	t := p.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// publish sends an event without failing the caller.
func (p *Planner) publish(ctx context.Context, typ, ownerID string, data any) {
	if err := p.Events.Publish(ctx, events.New(typ, ownerID, data)); err != nil {
		p.Metrics.EventDropped()
		p.logger.Warn("event publish failed", "type", typ, "owner", ownerID, "error", err)
	}
}
