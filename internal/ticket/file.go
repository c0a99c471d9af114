package ticket

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// FileStore keeps all tickets in a single JSON array file.
// Every mutation rewrites the whole file: the desk only ever holds as many
// tickets as humans can submit, so the collection stays small.
//
// Besides its own mutex, every operation holds a flock on "<path>.lock",
// so separate stores on one file (the daemon and a deskctl import) never
// overwrite each other's writes.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) LoadAll() ([]protocol.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockPath(s.lockFile(), false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.readLocked()
}

func (s *FileStore) Append(t protocol.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockPath(s.lockFile(), true)
	if err != nil {
		return err
	}
	defer unlock()

	tickets, err := s.readLocked()
	if err != nil {
		return err
	}
	if _, ok := Find(tickets, t.ID); ok {
		return ErrDuplicateID
	}
	return s.writeLocked(append(tickets, t))
}

func (s *FileStore) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockPath(s.lockFile(), true)
	if err != nil {
		return false, err
	}
	defer unlock()

	tickets, err := s.readLocked()
	if err != nil {
		return false, err
	}
	for i, t := range tickets {
		if t.ID == id {
			kept := append(tickets[:i:i], tickets[i+1:]...)
			if err := s.writeLocked(kept); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) lockFile() string { return s.path + ".lock" }

func (s *FileStore) readLocked() ([]protocol.Ticket, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []protocol.Ticket{}, nil
	}
	if err != nil {
		return nil, ioFailure("read "+s.path, err)
	}
	if len(data) == 0 {
		return []protocol.Ticket{}, nil
	}

	var tickets []protocol.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, ioFailure("decode "+s.path, err)
	}
	if tickets == nil {
		tickets = []protocol.Ticket{}
	}
	return tickets, nil
}

// writeLocked replaces the file atomically: write a sibling temp file, sync,
// then rename over the original.
func (s *FileStore) writeLocked(tickets []protocol.Ticket) error {
	data, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return ioFailure("encode", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tickets-*.json")
	if err != nil {
		return ioFailure("create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return ioFailure("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return ioFailure("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return ioFailure("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return ioFailure("replace "+s.path, err)
	}
	return nil
}
