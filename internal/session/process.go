package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Process is a running child attached to a terminal
type Process interface {
	io.ReadWriteCloser
	Resize(cols, rows uint16) error
	Pid() int
	// Signal delivers sig to the process group
	Signal(sig syscall.Signal) error
	// Wait blocks until the process exits and returns its exit code
	Wait() (int, error)
}

// Spawner starts processes
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (Process, error)
}

// SpawnRequest describes a process to start
type SpawnRequest struct {
	Shell string
	Args  []string
	Dir   string
	Env   []string
	Cols  uint16
	Rows  uint16
}

// cwdReporter is implemented by processes that know their own directory
type cwdReporter interface {
	Cwd() (string, error)
}

// PTYSpawner starts processes on a fresh pseudo-terminal
type PTYSpawner struct{}

// Spawn starts req.Shell as a session leader with the PTY as controlling terminal
func (PTYSpawner) Spawn(ctx context.Context, req SpawnRequest) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(req.Shell, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = req.Env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: req.Cols, Rows: req.Rows})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	return &ptyProcess{cmd: cmd, ptmx: ptmx}, nil
}

type ptyProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

func (p *ptyProcess) Read(b []byte) (int, error)  { return p.ptmx.Read(b) }
func (p *ptyProcess) Write(b []byte) (int, error) { return p.ptmx.Write(b) }
func (p *ptyProcess) Close() error                { return p.ptmx.Close() }
func (p *ptyProcess) Pid() int                    { return p.cmd.Process.Pid }

func (p *ptyProcess) Resize(cols, rows uint16) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

func (p *ptyProcess) Signal(sig syscall.Signal) error {
	// pty.Start makes the child a session leader, so its pid is the group id
	err := unix.Kill(-p.cmd.Process.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func (p *ptyProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1, err
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
