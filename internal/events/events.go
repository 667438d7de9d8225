// Package events publishes planning domain events. Publication is
// best-effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Event types.
const (
	GoalCreated        = "goal.created"
	CheckInRecorded    = "checkin.recorded"
	AdjustmentCreated  = "adjustment.created"
	AdjustmentResolved = "adjustment.resolved"
)

// Event is the envelope published for every domain change.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	OwnerID string    `json:"ownerId"`
	At      time.Time `json:"at"`
	Data    any       `json:"data,omitempty"`
}

// New builds an event with a fresh id and timestamp.
func New(typ, ownerID string, data any) Event {
	return Event{ID: uuid.NewString(), Type: typ, OwnerID: ownerID, At: time.Now().UTC(), Data: data}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// NATSPublisher publishes JSON events on <prefix>.<type>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials NATS. The connection reconnects in the background.
func Connect(url, prefix, name string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(typ string) string {
	return subject(p.prefix, typ)
}

func subject(prefix, typ string) string {
	if prefix == "" {
		return typ
	}
	return prefix + "." + typ
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	if err := p.nc.Publish(p.Subject(e.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain NATS: %w", err)
	}
	return nil
}

// NewPublisher returns a NATS publisher when url is set, else Nop. A failed
// dial is logged and degrades to Nop.
func NewPublisher(url, prefix string, logger *slog.Logger) Publisher {
	if url == "" {
		return Nop{}
	}
	p, err := Connect(url, prefix, "waypoint")
	if err != nil {
		logger.Warn("events disabled", "error", err)
		return Nop{}
	}
	logger.Info("publishing events", "url", url, "prefix", prefix)
	return p
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the published event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
