package ticket

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Riv33R/Support-bot/pkg/protocol"
)

var (
	// ErrIOFailure marks errors where the durable read or write did not complete.
	ErrIOFailure = errors.New("ticket store: io failure")
	// ErrDuplicateID is returned by Append when the ID is already stored.
	ErrDuplicateID = errors.New("ticket store: duplicate id")
)

// Store is the persistence interface for open tickets.
//
// Implementations serialize Append and Remove through a single critical
// section, so concurrent callers never lose updates and a ticket is removed
// at most once.
type Store interface {
	// LoadAll returns every ticket in insertion order. An empty store is not an error.
	LoadAll() ([]protocol.Ticket, error)
	// Append adds a ticket.
	Append(t protocol.Ticket) error
	// Remove deletes the ticket with the given ID and reports whether it existed.
	Remove(id string) (bool, error)
	// Close releases underlying resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open creates the store for backend inside dataDir.
func Open(backend, dataDir string) (Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, ioFailure("create data dir", err)
	}
	switch backend {
	case "", BackendJSON:
		return NewFileStore(filepath.Join(dataDir, "tickets.json")), nil
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, "tickets.db"))
	default:
		return nil, fmt.Errorf("ticket store: unknown backend %q", backend)
	}
}

// Find returns the ticket with the given ID from a snapshot.
func Find(tickets []protocol.Ticket, id string) (protocol.Ticket, bool) {
	for _, t := range tickets {
		if t.ID == id {
			return t, true
		}
	}
	return protocol.Ticket{}, false
}

func ioFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIOFailure, op, err)
}
