package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// ErrNoRoute is returned when no registered connector serves a channel.
var ErrNoRoute = errors.New("connector: no route to channel")

// Registry tracks running connectors by name so messages can reach a user
// on the channel they wrote from, whichever connector the current event
// arrived on.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]Connector
	fallback string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Connector)}
}

// Register adds c under c.Name(), replacing any connector of that name.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	r.conns[c.Name()] = c
	r.mu.Unlock()
}

// SetFallback names the connector used for an empty channel, as found on
// tickets imported from a legacy file.
func (r *Registry) SetFallback(name string) {
	r.mu.Lock()
	r.fallback = name
	r.mu.Unlock()
}

// Get returns the connector serving channel.
func (r *Registry) Get(channel string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if channel == "" {
		channel = r.fallback
	}
	c, ok := r.conns[channel]
	return c, ok
}

// Names returns the registered connector names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Notify sends text to userID through the connector serving channel.
func (r *Registry) Notify(ctx context.Context, channel, userID, text string) error {
	c, ok := r.Get(channel)
	if !ok {
		return fmt.Errorf("%w %q", ErrNoRoute, channel)
	}
	if err := c.Send(ctx, protocol.DirectMessage(userID, text)); err != nil {
		return fmt.Errorf("connector: notify via %s: %w", c.Name(), err)
	}
	return nil
}
