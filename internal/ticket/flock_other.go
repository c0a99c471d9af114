//go:build !unix

package ticket

// lockPath is a no-op where flock(2) is unavailable; FileStore then only
// serializes writers inside one process.
func lockPath(string, bool) (func(), error) {
	return func() {}, nil
}
