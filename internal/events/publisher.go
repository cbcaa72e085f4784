// Package events publishes provisioning lifecycle events for external
// observers. Publishing is optional; the noop publisher is the default.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types emitted during a run.
const (
	TypeRunStarted      = "run.started"
	TypeRepoProvisioned = "repo.provisioned"
	TypeRepoFailed      = "repo.failed"
	TypeRunCompleted    = "run.completed"
)

// DefaultSubject is the NATS subject events are published to.
const DefaultSubject = "provision.events"

// Event is one lifecycle notification.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Repo      string    `json:"repo,omitempty"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits run events. Implementations must tolerate being called
// for every repository in a run.
type Publisher interface {
	Publish(event Event) error
	Close()
}

// NoopPublisher drops all events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) error { return nil }
func (NoopPublisher) Close()              {}

// NATSPublisher publishes events as JSON to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the given NATS URL. An empty subject selects
// DefaultSubject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	if subject == "" {
		subject = DefaultSubject
	}
	slog.Info("NATS event publishing enabled", slog.String("url", url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) Publish(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
