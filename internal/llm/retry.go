package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RetryConfig holds retry configuration for completion requests.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig returns retry defaults sized for interactive decisions.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Second,
	}
}

// Retrying wraps a Client and retries transient failures with exponential backoff.
// The caller's context bounds the whole sequence.
type Retrying struct {
	next   Client
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetrying wraps next with retry.
func NewRetrying(next Client, cfg RetryConfig, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Retrying{next: next, cfg: cfg, logger: logger}
}

// Complete forwards req, retrying while the error is transient and attempts remain.
func (r *Retrying) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := r.backoff(attempt)
			r.logger.Debug("retrying completion",
				"request_id", req.RequestID,
				"attempt", attempt+1,
				"backoff", backoff,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := r.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsTransient(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (r *Retrying) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= r.cfg.BackoffMultiplier
	}
	d := time.Duration(float64(r.cfg.BackoffBase) * multiplier)
	if d > r.cfg.MaxBackoff {
		d = r.cfg.MaxBackoff
	}
	return d
}
