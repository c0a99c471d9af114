//go:build unix

package ticket

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// lockPath takes an advisory flock(2) on path, shared or exclusive. Other
// processes (or other FileStores in this one) using the same path block
// until unlock is called. A missing parent directory yields a no-op lock:
// nothing can have written there yet.
func lockPath(path string, exclusive bool) (unlock func(), err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if errors.Is(err, fs.ErrNotExist) {
		return func() {}, nil
	}
	if err != nil {
		return nil, ioFailure("open lock "+path, err)
	}

	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	for {
		err = unix.Flock(int(f.Fd()), how)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		f.Close()
		return nil, ioFailure("lock "+path, err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
