// Package lock guards a store directory against being opened by two
// processes (or two Stores in one process) at once.
package lock

import "github.com/pkg/errors"

// LockFileName is created inside the locked directory.
const LockFileName = "LOCK"

// ErrLocked is returned when the directory is already locked.
var ErrLocked = errors.New("directory already in use by another store")
