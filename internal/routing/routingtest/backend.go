// Package routingtest provides an in-memory routing.Backend for tests.
package routingtest

import (
	"context"
	"errors"
	"sync"

	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

// Backend is an in-memory session table. It also satisfies tabs.Sessions.
type Backend struct {
	mu      sync.Mutex
	next    id.SessionID
	live    map[id.SessionID]bool
	cwd     map[id.SessionID]string
	written map[id.SessionID]string
	sizes   map[id.SessionID][2]uint16
	events  chan routing.Event

	// CreateErr, when set, fails every Create
	CreateErr error
}

// NewBackend creates an empty backend
func NewBackend() *Backend {
	return &Backend{
		live:    make(map[id.SessionID]bool),
		cwd:     make(map[id.SessionID]string),
		written: make(map[id.SessionID]string),
		sizes:   make(map[id.SessionID][2]uint16),
		events:  make(chan routing.Event, 64),
	}
}

func (b *Backend) Create(_ context.Context, opts routing.CreateOptions) (id.SessionID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CreateErr != nil {
		return 0, b.CreateErr
	}
	b.next++
	b.live[b.next] = true
	b.cwd[b.next] = opts.Dir
	b.sizes[b.next] = [2]uint16{opts.Cols, opts.Rows}
	return b.next, nil
}

func (b *Backend) Destroy(sid id.SessionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.live, sid)
}

func (b *Backend) Write(sid id.SessionID, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live[sid] {
		return errors.New("session gone")
	}
	b.written[sid] += string(data)
	return nil
}

func (b *Backend) Resize(sid id.SessionID, cols, rows uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sizes[sid] = [2]uint16{cols, rows}
	return nil
}

func (b *Backend) Cwd(sid id.SessionID) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dir := b.cwd[sid]
	return dir, dir != "" && b.live[sid]
}

func (b *Backend) Has(sid id.SessionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live[sid]
}

func (b *Backend) Events() <-chan routing.Event { return b.events }

// Emit queues an event as if the session had produced it
func (b *Backend) Emit(ev routing.Event) {
	b.events <- ev
}

// Written returns everything written to a session
func (b *Backend) Written(sid id.SessionID) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written[sid]
}

// Size returns the last grid a session was given
func (b *Backend) Size(sid id.SessionID) (cols, rows uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.sizes[sid]
	return s[0], s[1]
}

// SetCwd overrides the directory reported for a session
func (b *Backend) SetCwd(sid id.SessionID, dir string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cwd[sid] = dir
}

// Close ends the event stream
func (b *Backend) Close() {
	close(b.events)
}
