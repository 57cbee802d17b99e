package store

import "strings"

// isSQLiteConflict reports whether the error is a SQLITE_BUSY or
// "database is locked" error. Both are transient concurrency errors
// that warrant a retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY") ||
		strings.Contains(err.Error(), "database is locked")
}
