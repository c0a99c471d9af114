// Package events publishes ticket lifecycle events for downstream consumers.
package events

import (
	"context"
	"time"
)

// Type names a ticket lifecycle transition.
type Type string

const (
	TicketCreated   Type = "ticket.created"
	TicketContacted Type = "ticket.contacted"
	TicketResolved  Type = "ticket.resolved"
)

// Event describes one lifecycle transition.
type Event struct {
	Type        Type      `json:"event"`
	TicketID    string    `json:"ticket_id"`
	SubmitterID string    `json:"submitter_id,omitempty"`
	AgentID     string    `json:"agent_id,omitempty"`
	Channel     string    `json:"channel,omitempty"`
	Time        time.Time `json:"time"`
}

// Publisher delivers events. Publishing is best-effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
