package ticket

import (
	"errors"
	"fmt"
	"os"
)

// ImportLegacy copies every ticket from a tickets.json file into dst,
// skipping IDs dst already holds. It returns the number of tickets added.
func ImportLegacy(dst Store, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, ioFailure("stat "+path, err)
	}
	src, err := NewFileStore(path).LoadAll()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, t := range src {
		if t.ID == "" {
			continue
		}
		err := dst.Append(t)
		if errors.Is(err, ErrDuplicateID) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("ticket store: import %s: %w", t.ID, err)
		}
		added++
	}
	return added, nil
}
