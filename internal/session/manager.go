package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/termplex/internal/infrastructure/config"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

const (
	readBufferSize     = 32 * 1024
	defaultEventBuffer = 256
	shutdownWorkers    = 16
)

// CreateOptions configures a new session
type CreateOptions = routing.CreateOptions

// Options configures a Manager
type Options struct {
	Shell config.ShellConfig
	Spawn config.SpawnConfig
	// Spawner defaults to PTYSpawner
	Spawner  Spawner
	Registry *id.Registry
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	// EventBuffer is the capacity of the dispatch channel
	EventBuffer int
}

// Session is one process and its terminal
type Session struct {
	ID        id.SessionID
	Shell     string
	Dir       string
	StartedAt time.Time

	proc    Process
	alive   atomic.Bool
	code    atomic.Int64
	exited  chan struct{}
	drained chan struct{}
}

// Info is a snapshot of a session for listings
type Info struct {
	ID        id.SessionID `json:"id"`
	Pid       int          `json:"pid"`
	Shell     string       `json:"shell"`
	Dir       string       `json:"dir"`
	Alive     bool         `json:"alive"`
	ExitCode  *int         `json:"exit_code,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// Manager manages terminal sessions
type Manager struct {
	cfg      config.ShellConfig
	spawner  Spawner
	breaker  *resilience.Breaker
	registry *id.Registry
	log      *logging.Logger
	metrics  *monitoring.Metrics

	// mu guards sessions and closed. Goroutines are added to wg only while
	// holding it, so Shutdown's Wait never races an Add.
	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
	closed   bool

	events   chan routing.Event
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a new session manager
func NewManager(opts Options) *Manager {
	if opts.Spawner == nil {
		opts.Spawner = PTYSpawner{}
	}
	if opts.Registry == nil {
		opts.Registry = id.NewRegistry()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Shell.DrainTimeout.Duration <= 0 {
		opts.Shell.DrainTimeout.Duration = 500 * time.Millisecond
	}
	if opts.Shell.KillTimeout.Duration <= 0 {
		opts.Shell.KillTimeout.Duration = 2 * time.Second
	}
	log := logging.OrNop(opts.Logger).Named("session")

	return &Manager{
		cfg:      opts.Shell,
		spawner:  opts.Spawner,
		breaker:  NewSpawnBreaker(opts.Spawn, log),
		registry: opts.Registry,
		log:      log,
		metrics:  opts.Metrics,
		sessions: make(map[id.SessionID]*Session),
		events:   make(chan routing.Event, opts.EventBuffer),
		quit:     make(chan struct{}),
	}
}

// NewSpawnBreaker builds the breaker that guards process creation
func NewSpawnBreaker(cfg config.SpawnConfig, log *logging.Logger) *resilience.Breaker {
	maxFailures := uint32(cfg.MaxFailures)
	if cfg.MaxFailures <= 0 {
		maxFailures = 5
	}

	return resilience.New("spawn", resilience.Settings{
		Cooldown: cfg.Cooldown.Duration,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logging.OrNop(log).Warn("Spawn breaker changed state",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
}

// Events returns the single channel every session pushes into
func (m *Manager) Events() <-chan routing.Event {
	return m.events
}

// Create spawns the configured shell on a fresh PTY
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (id.SessionID, error) {
	select {
	case <-m.quit:
		return 0, ErrClosed
	default:
	}

	dir := m.resolveDir(opts.Dir)
	req := SpawnRequest{
		Shell: m.cfg.Path,
		Args:  m.cfg.Args,
		Dir:   dir,
		Env:   append(os.Environ(), "TERM="+m.cfg.Term),
		Cols:  orDefault(opts.Cols, m.cfg.Cols, 80),
		Rows:  orDefault(opts.Rows, m.cfg.Rows, 24),
	}

	var proc Process
	err := m.breaker.Do(func() error {
		var err error
		proc, err = m.spawner.Spawn(ctx, req)
		return err
	})
	if err != nil {
		m.metrics.SpawnFailed()
		m.log.Error("Failed to spawn session",
			zap.String("shell", req.Shell),
			zap.String("dir", dir),
			zap.Error(err))
		return 0, &SpawnError{Shell: req.Shell, Dir: dir, Err: err}
	}

	s := &Session{
		ID:        m.registry.NextSession(),
		Shell:     req.Shell,
		Dir:       dir,
		StartedAt: time.Now(),
		proc:      proc,
		exited:    make(chan struct{}),
		drained:   make(chan struct{}),
	}
	s.alive.Store(true)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.discard(proc)
		return 0, ErrClosed
	}
	m.sessions[s.ID] = s
	m.wg.Add(2)
	m.mu.Unlock()

	m.metrics.SessionSpawned()
	m.log.Info("Session started",
		zap.Uint64("session", uint64(s.ID)),
		zap.Int("pid", proc.Pid()),
		zap.String("dir", dir))

	go m.readOutput(s)
	go m.monitorProcess(s)

	return s.ID, nil
}

// readOutput copies PTY output into data events until the PTY closes
func (m *Manager) readOutput(s *Session) {
	defer m.wg.Done()
	defer close(s.drained)

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.proc.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			m.emit(routing.Event{Type: routing.EventData, Session: s.ID, Data: data})
		}
		if err != nil {
			// EIO is how Linux reports a PTY whose slave side has gone away
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, unix.EIO) {
				m.log.Debug("Session read ended", zap.Uint64("session", uint64(s.ID)), zap.Error(err))
			}
			return
		}
	}
}

// monitorProcess reaps the process and emits its exit after output drains
func (m *Manager) monitorProcess(s *Session) {
	defer m.wg.Done()

	code, err := s.proc.Wait()
	if err != nil {
		m.log.Debug("Session wait failed", zap.Uint64("session", uint64(s.ID)), zap.Error(err))
	}
	s.code.Store(int64(code))
	s.alive.Store(false)
	close(s.exited)

	timer := time.NewTimer(m.cfg.DrainTimeout.Duration)
	select {
	case <-s.drained:
	case <-timer.C:
	}
	timer.Stop()

	if m.Has(s.ID) {
		m.metrics.SessionExited()
		m.log.Info("Session exited",
			zap.Uint64("session", uint64(s.ID)),
			zap.Int("code", code))
	}
	m.emit(routing.Event{Type: routing.EventExit, Session: s.ID, Code: code})
}

// emit pushes onto the dispatch channel; events after Shutdown are dropped
func (m *Manager) emit(ev routing.Event) {
	select {
	case <-m.quit:
		return
	default:
	}

	select {
	case m.events <- ev:
	case <-m.quit:
	}
}

// Destroy removes the session from the table and terminates its process.
// Destroying an unknown or already destroyed id does nothing.
func (m *Manager) Destroy(sid id.SessionID) {
	m.mu.Lock()
	s, ok := m.sessions[sid]
	if ok {
		delete(m.sessions, sid)
		m.wg.Add(1)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	m.metrics.SessionRemoved()
	m.log.Info("Session destroyed", zap.Uint64("session", uint64(sid)))

	m.hangup(s)
	go func() {
		defer m.wg.Done()
		m.reap(context.Background(), s)
	}()
}

// discard kills a process spawned after Shutdown began
func (m *Manager) discard(proc Process) {
	if err := proc.Signal(unix.SIGKILL); err != nil {
		m.log.Debug("Failed to kill discarded process", zap.Int("pid", proc.Pid()), zap.Error(err))
	}
	_ = proc.Close()
	_, _ = proc.Wait()
}

func (m *Manager) hangup(s *Session) {
	if s.alive.Load() {
		if err := s.proc.Signal(unix.SIGHUP); err != nil {
			m.log.Debug("Failed to signal session", zap.Uint64("session", uint64(s.ID)), zap.Error(err))
		}
	}
	if err := s.proc.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		m.log.Debug("Failed to close PTY", zap.Uint64("session", uint64(s.ID)), zap.Error(err))
	}
}

// reap waits for the process to exit, escalating to SIGKILL after KillTimeout
func (m *Manager) reap(ctx context.Context, s *Session) error {
	timer := time.NewTimer(m.cfg.KillTimeout.Duration)
	defer timer.Stop()

	select {
	case <-s.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	m.log.Warn("Session ignored SIGHUP, killing", zap.Uint64("session", uint64(s.ID)))
	if err := s.proc.Signal(unix.SIGKILL); err != nil {
		m.log.Debug("Failed to kill session", zap.Uint64("session", uint64(s.ID)), zap.Error(err))
	}

	select {
	case <-s.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Write sends input to a session. Unknown or exited sessions are ignored.
func (m *Manager) Write(sid id.SessionID, data []byte) error {
	s := m.get(sid)
	if s == nil || !s.alive.Load() || len(data) == 0 {
		return nil
	}
	if _, err := s.proc.Write(data); err != nil {
		return fmt.Errorf("failed to write to %s: %w", sid, err)
	}
	return nil
}

// Resize changes terminal dimensions. Unknown or exited sessions are ignored.
func (m *Manager) Resize(sid id.SessionID, cols, rows uint16) error {
	s := m.get(sid)
	if s == nil || !s.alive.Load() || cols == 0 || rows == 0 {
		return nil
	}
	if err := s.proc.Resize(cols, rows); err != nil {
		return fmt.Errorf("failed to resize %s: %w", sid, err)
	}
	return nil
}

// Cwd returns the live working directory of a session's process
func (m *Manager) Cwd(sid id.SessionID) (string, bool) {
	s := m.get(sid)
	if s == nil {
		return "", false
	}

	var (
		dir string
		err error
	)
	if r, ok := s.proc.(cwdReporter); ok {
		dir, err = r.Cwd()
	} else {
		dir, err = processCwd(s.proc.Pid())
	}
	if err != nil || dir == "" {
		m.log.Debug("Cwd lookup failed", zap.Uint64("session", uint64(sid)), zap.Error(err))
		return "", false
	}
	return dir, true
}

// Has reports whether the session is in the table
func (m *Manager) Has(sid id.SessionID) bool {
	return m.get(sid) != nil
}

// Alive reports whether the session's process is still running
func (m *Manager) Alive(sid id.SessionID) bool {
	s := m.get(sid)
	return s != nil && s.alive.Load()
}

// Len returns the number of sessions in the table
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns all sessions ordered by id
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		info := Info{
			ID:        s.ID,
			Pid:       s.proc.Pid(),
			Shell:     s.Shell,
			Dir:       s.Dir,
			Alive:     s.alive.Load(),
			StartedAt: s.StartedAt,
		}
		if !info.Alive {
			code := int(s.code.Load())
			info.ExitCode = &code
		}
		infos = append(infos, info)
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Shutdown destroys every session in parallel and waits for their goroutines.
// Events produced after Shutdown starts are dropped.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.quitOnce.Do(func() { close(m.quit) })

	m.mu.Lock()
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for sid, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, sid)
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(shutdownWorkers)
	for _, s := range all {
		s := s
		m.metrics.SessionRemoved()
		g.Go(func() error {
			m.hangup(s)
			return m.reap(gctx, s)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to stop sessions: %w", err)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.log.Info("Session manager stopped", zap.Int("sessions", len(all)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) get(sid id.SessionID) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sid]
}

// resolveDir returns dir if it is an existing directory, else the home directory
func (m *Manager) resolveDir(dir string) string {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		m.log.Warn("Working directory unavailable, using home", zap.String("dir", dir))
	}
	return HomeDir()
}

// HomeDir returns the user's home directory, or / if it cannot be determined
func HomeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return "/"
}

func orDefault(v uint16, configured int, fallback uint16) uint16 {
	if v > 0 {
		return v
	}
	if configured > 0 && configured <= 0xFFFF {
		return uint16(configured)
	}
	return fallback
}
