package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSpawn matches every *SpawnError
	ErrSpawn = errors.New("session spawn failed")
	// ErrClosed is returned by Create after Shutdown
	ErrClosed = errors.New("session manager is shut down")
)

// SpawnError reports a process that could not be created
type SpawnError struct {
	Shell string
	Dir   string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s in %s: %v", e.Shell, e.Dir, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSpawn) true for any SpawnError
func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }
