// Package desk implements the support desk: the per-user routing engine that
// turns inbound events into outbound actions, and the agent-facing dispatch
// operations on the ticket store.
package desk

import (
	"errors"
	"fmt"

	"github.com/Riv33R/Support-bot/internal/access"
	"github.com/Riv33R/Support-bot/internal/ticket"
	"github.com/Riv33R/Support-bot/pkg/protocol"
)

var (
	// ErrForbidden is returned when a non-agent calls an agent-only operation.
	ErrForbidden = errors.New("desk: forbidden")
	// ErrNotFound is returned when the referenced ticket is not in the store.
	ErrNotFound = errors.New("desk: ticket not found")
)

// Summary is one ticket as presented to an agent, with the tokens of the
// two actions available on it.
type Summary struct {
	Ticket       protocol.Ticket
	ContactToken string
	ResolveToken string
}

// Listing is the result of Dispatcher.List.
type Listing struct {
	Summaries []Summary
}

// Empty reports that the store held no tickets.
func (l Listing) Empty() bool { return len(l.Summaries) == 0 }

// Dispatcher runs the agent-only browse, contact and resolve operations.
type Dispatcher struct {
	store  ticket.Store
	policy *access.Policy
}

// NewDispatcher creates a dispatcher over store, gated by policy.
func NewDispatcher(store ticket.Store, policy *access.Policy) *Dispatcher {
	return &Dispatcher{store: store, policy: policy}
}

// List returns a summary of every open ticket.
func (d *Dispatcher) List(agentID string) (Listing, error) {
	if !d.policy.IsAgent(agentID) {
		return Listing{}, ErrForbidden
	}
	tickets, err := d.store.LoadAll()
	if err != nil {
		return Listing{}, fmt.Errorf("desk: list: %w", err)
	}
	summaries := make([]Summary, 0, len(tickets))
	for _, t := range tickets {
		summaries = append(summaries, Summary{
			Ticket:       t,
			ContactToken: protocol.ContactToken(t.ID),
			ResolveToken: protocol.ResolveToken(t.ID),
		})
	}
	return Listing{Summaries: summaries}, nil
}

// Contact looks up ticketID and returns it so the caller can notify the
// submitter. Repeated calls notify again each time.
func (d *Dispatcher) Contact(agentID, ticketID string) (protocol.Ticket, error) {
	if !d.policy.IsAgent(agentID) {
		return protocol.Ticket{}, ErrForbidden
	}
	tickets, err := d.store.LoadAll()
	if err != nil {
		return protocol.Ticket{}, fmt.Errorf("desk: contact: %w", err)
	}
	t, ok := ticket.Find(tickets, ticketID)
	if !ok {
		return protocol.Ticket{}, ErrNotFound
	}
	return t, nil
}

// Resolve removes ticketID. When two agents race, the store guarantees that
// exactly one of them succeeds; the other gets ErrNotFound.
func (d *Dispatcher) Resolve(agentID, ticketID string) error {
	if !d.policy.IsAgent(agentID) {
		return ErrForbidden
	}
	removed, err := d.store.Remove(ticketID)
	if err != nil {
		return fmt.Errorf("desk: resolve: %w", err)
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}
