package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// fakeProcess is an in-memory Process. Output written with Emit is what the
// session reader sees; Exit ends the process with a code.
type fakeProcess struct {
	pid int

	outR *io.PipeReader
	outW *io.PipeWriter

	mu        sync.Mutex
	input     []byte
	size      [2]uint16
	signals   []syscall.Signal
	ignoreHUP bool
	cwd       string
	closed    bool

	exitOnce sync.Once
	exitCode chan int
}

func newFakeProcess(pid int) *fakeProcess {
	r, w := io.Pipe()
	return &fakeProcess{
		pid:      pid,
		outR:     r,
		outW:     w,
		exitCode: make(chan int, 1),
	}
}

func (f *fakeProcess) Read(b []byte) (int, error) { return f.outR.Read(b) }

func (f *fakeProcess) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = append(f.input, b...)
	return len(b), nil
}

func (f *fakeProcess) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return f.outR.Close()
}

func (f *fakeProcess) Resize(cols, rows uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.size = [2]uint16{cols, rows}
	return nil
}

func (f *fakeProcess) Pid() int { return f.pid }

func (f *fakeProcess) Signal(sig syscall.Signal) error {
	f.mu.Lock()
	f.signals = append(f.signals, sig)
	ignore := f.ignoreHUP
	f.mu.Unlock()

	switch {
	case sig == unix.SIGKILL:
		f.Exit(128 + int(unix.SIGKILL))
	case sig == unix.SIGHUP && !ignore:
		f.Exit(128 + int(unix.SIGHUP))
	}
	return nil
}

func (f *fakeProcess) Wait() (int, error) { return <-f.exitCode, nil }

func (f *fakeProcess) Cwd() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cwd == "" {
		return "", errors.New("no cwd")
	}
	return f.cwd, nil
}

// Emit writes process output; it blocks until the session reader consumes it
func (f *fakeProcess) Emit(s string) {
	_, _ = f.outW.Write([]byte(s))
}

// Exit closes the output stream and ends the process
func (f *fakeProcess) Exit(code int) {
	f.exitOnce.Do(func() {
		_ = f.outW.Close()
		f.exitCode <- code
	})
}

func (f *fakeProcess) Signals() []syscall.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]syscall.Signal(nil), f.signals...)
}

func (f *fakeProcess) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.input)
}

func (f *fakeProcess) Size() [2]uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// fakeSpawner hands out fakeProcesses and records requests
type fakeSpawner struct {
	mu       sync.Mutex
	procs    []*fakeProcess
	requests []SpawnRequest
	err      error
	calls    int
}

func (s *fakeSpawner) Spawn(_ context.Context, req SpawnRequest) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p := newFakeProcess(1000 + len(s.procs))
	s.procs = append(s.procs, p)
	s.requests = append(s.requests, req)
	return p, nil
}

func (s *fakeSpawner) last() (*fakeProcess, SpawnRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[len(s.procs)-1], s.requests[len(s.requests)-1]
}

func (s *fakeSpawner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// gatedSpawner spawns through inner, then holds the result until release closes
type gatedSpawner struct {
	inner   Spawner
	spawned chan struct{}
	release chan struct{}
}

func (g gatedSpawner) Spawn(ctx context.Context, req SpawnRequest) (Process, error) {
	p, err := g.inner.Spawn(ctx, req)
	close(g.spawned)
	<-g.release
	return p, err
}
