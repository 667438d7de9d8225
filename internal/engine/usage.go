package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lazypower/waypoint/internal/metrics"
	"github.com/lazypower/waypoint/internal/store"
)

// UsageRecorder bumps usage counts in the background. Increments are a
// heuristic signal; failures are logged and dropped.
type UsageRecorder struct {
	db      *store.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewUsageRecorder(db *store.DB, logger *slog.Logger, m *metrics.Metrics) *UsageRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageRecorder{db: db, logger: logger, metrics: m}
}

// Record schedules an increment for ids and returns immediately.
func (u *UsageRecorder) Record(ids []string) {
	if len(ids) == 0 {
		return
	}
	ids = append([]string(nil), ids...)
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := u.db.IncrementUsage(ctx, ids); err != nil {
			u.logger.Warn("usage increment dropped", "count", len(ids), "error", err)
			u.metrics.UsageDropped()
		}
	}()
}

// Wait blocks until every scheduled increment has finished.
func (u *UsageRecorder) Wait() {
	u.wg.Wait()
}
