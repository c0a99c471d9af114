// Package connector defines how messaging platforms feed events into the
// desk and render the actions it returns.
package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// Connector is the interface for external messaging platforms (Telegram, Slack, etc.).
type Connector interface {
	// Name returns the connector type (e.g., "telegram", "slack").
	Name() string
	// Start begins listening for inbound events. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
	// Send renders a single action outside of any inbound event. EditPrevious
	// has no message to edit here and is sent as a new message.
	Send(ctx context.Context, action protocol.Action) error
}

// Handler turns one inbound event into the actions to render in reply.
type Handler func(ctx context.Context, ev protocol.Event) []protocol.Action

// Render calls send for every action in order. A failed action does not
// stop the rest; all failures are returned joined.
func Render(actions []protocol.Action, send func(protocol.Action) error) error {
	var errs []error
	for i, a := range actions {
		if err := send(a); err != nil {
			errs = append(errs, fmt.Errorf("action %d (%s to %s): %w", i, a.Kind, a.TargetID, err))
		}
	}
	return errors.Join(errs...)
}
