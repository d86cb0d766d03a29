package routing

import (
	"context"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/termplex/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"go.uber.org/zap"
)

// Command outcomes recorded in metrics
const (
	statusOK    = "ok"
	statusError = "error"
	statusStale = "stale"
)

type subscription struct {
	id      uint64
	handler Handler
}

// Router executes commands against a Backend and dispatches its events
type Router struct {
	backend Backend
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
}

// NewRouter creates a router over the given backend
func NewRouter(backend Backend, log *logging.Logger, metrics *monitoring.Metrics) *Router {
	return &Router{
		backend: backend,
		log:     logging.OrNop(log).Named("routing"),
		metrics: metrics,
	}
}

// Subscribe registers a handler for every delivered event.
// The returned func removes it and is safe to call more than once.
func (r *Router) Subscribe(h Handler) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	sid := r.nextID
	r.subs = append(r.subs, subscription{id: sid, handler: h})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s.id == sid {
					r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Run is the single dispatcher. It drains the backend's event channel until
// ctx is cancelled or the channel is closed.
func (r *Router) Run(ctx context.Context) error {
	events := r.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.dispatch(ev)
		}
	}
}

// dispatch delivers one event, dropping it if its session left the table
func (r *Router) dispatch(ev Event) bool {
	if !r.backend.Has(ev.Session) {
		r.metrics.StaleEventDropped()
		r.log.Debug("Dropped stale event",
			zap.String("type", string(ev.Type)),
			zap.Uint64("session", uint64(ev.Session)))
		return false
	}

	if ev.Type == EventData {
		r.metrics.RecordBytes(monitoring.DirectionOut, len(ev.Data))
	}
	r.metrics.RecordEvent(string(ev.Type))

	r.mu.RLock()
	subs := make([]Handler, len(r.subs))
	for i, s := range r.subs {
		subs[i] = s.handler
	}
	r.mu.RUnlock()

	for _, h := range subs {
		h(ev)
	}
	return true
}

// Handle executes a command. Commands naming sessions that are no longer in
// the table are ignored and return an empty reply without error.
func (r *Router) Handle(ctx context.Context, cmd Command) (Reply, error) {
	reply := Reply{Type: cmd.Type, RequestID: cmd.RequestID, Session: cmd.Session}

	switch cmd.Type {
	case CommandDestroy, CommandInput, CommandResize, CommandGetCwd:
		if !r.backend.Has(cmd.Session) {
			r.metrics.RecordCommand(string(cmd.Type), statusStale)
			r.log.Debug("Ignored command for unknown session",
				zap.String("type", string(cmd.Type)),
				zap.Uint64("session", uint64(cmd.Session)))
			return reply, nil
		}
	}

	var err error
	switch cmd.Type {
	case CommandCreate:
		var sid id.SessionID
		sid, err = r.backend.Create(ctx, CreateOptions{Dir: cmd.Cwd, Cols: cmd.Cols, Rows: cmd.Rows})
		reply.Session = sid

	case CommandDestroy:
		r.backend.Destroy(cmd.Session)

	case CommandInput:
		err = r.backend.Write(cmd.Session, cmd.Data)
		if err == nil {
			r.metrics.RecordBytes(monitoring.DirectionIn, len(cmd.Data))
		}

	case CommandResize:
		err = r.backend.Resize(cmd.Session, cmd.Cols, cmd.Rows)

	case CommandGetCwd:
		if dir, ok := r.backend.Cwd(cmd.Session); ok {
			reply.Cwd = &dir
		}

	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}

	if err != nil {
		r.metrics.RecordCommand(string(cmd.Type), statusError)
		return reply, err
	}
	r.metrics.RecordCommand(string(cmd.Type), statusOK)
	return reply, nil
}
