// Package runlock guarantees that at most one update run touches the data directory.
package runlock

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrRunInProgress is returned when another process holds the lock.
var ErrRunInProgress = errors.New("another update run is in progress")

// Lock is an acquired OS file lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock at path without waiting.
func Acquire(path string) (*Lock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", path, ErrRunInProgress)
	}
	return &Lock{fl: fl}, nil
}

// Release unlocks. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
