// Package sidecar supervises the companion process started alongside a
// database connection.
//
// A Handle moves Exited -> Active on Start and back to Exited when the
// process exits or is killed. Active and Paused alternate through Pause and
// Resume on platforms with job-control signals.
package sidecar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tablex/pkg/adapters/mysql"
	"github.com/leapstack-labs/tablex/pkg/adapters/sqlite"
	"github.com/leapstack-labs/tablex/pkg/core"
)

// DefaultBinary is the sidecar executable looked up on PATH.
const DefaultBinary = "tablex-sidecar"

// killWait bounds how long Kill waits for the process to be reaped.
const killWait = 5 * time.Second

// Args returns the command line arguments for a connection string.
func Args(d core.Dialect, connString string) ([]string, error) {
	switch d {
	case core.SQLite:
		path, err := sqlite.Path(connString)
		if err != nil {
			return nil, err
		}
		return []string{"sqlite3", "-f", path}, nil
	case core.PostgreSQL:
		return []string{"pg", "--url", connString}, nil
	case core.MySQL:
		addr, err := mysql.Address(connString)
		if err != nil {
			return nil, err
		}
		return []string{"mysql", "--url", addr}, nil
	}
	return nil, &core.UnsupportedDriverError{Prefix: string(d)}
}

// Supervisor starts sidecar processes.
type Supervisor struct {
	// Binary is the executable name or path. Defaults to DefaultBinary.
	Binary string
	Logger *slog.Logger

	// OnExit is called once per handle after its process has exited and
	// its output has been drained. err is the process exit error, nil for
	// a clean exit.
	OnExit func(h *Handle, err error)
}

// Start launches the sidecar for a connection. ctx only bounds the launch;
// the process outlives it.
func (s *Supervisor) Start(ctx context.Context, d core.Dialect, connString string) (*Handle, error) {
	binary := s.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	args, err := Args(d, connString)
	if err != nil {
		return nil, &core.SpawnError{Binary: binary, Err: err}
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, &core.SpawnError{Binary: binary, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &core.SpawnError{Binary: binary, Err: err}
	}

	cmd := exec.Command(path, args...) //nolint:noctx
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &core.SpawnError{Binary: binary, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &core.SpawnError{Binary: binary, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &core.SpawnError{Binary: binary, Err: err}
	}

	h := &Handle{
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now(),
		status:    core.SidecarActive,
		done:      make(chan struct{}),
	}
	logger = logger.With(slog.Int("pid", h.pid), slog.String("dialect", string(d)))
	logger.Debug("sidecar started", slog.String("binary", path))

	go h.supervise(logger, stdout, stderr, s.OnExit)
	return h, nil
}

// Handle is one launched sidecar process.
type Handle struct {
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	done      chan struct{}

	mu      sync.Mutex
	status  core.SidecarStatus
	lastErr string
}

func (h *Handle) supervise(logger *slog.Logger, stdout, stderr io.Reader, onExit func(*Handle, error)) {
	var g errgroup.Group
	g.Go(func() error { return drain(logger, "stdout", stdout) })
	g.Go(func() error { return drain(logger, "stderr", stderr) })
	if err := g.Wait(); err != nil {
		logger.Debug("sidecar output closed", slog.String("error", err.Error()))
	}

	err := h.cmd.Wait()
	if err != nil {
		logger.Debug("sidecar exited", slog.String("error", err.Error()))
	} else {
		logger.Debug("sidecar exited")
	}
	h.mu.Lock()
	h.status = core.SidecarExited
	if err != nil {
		h.lastErr = err.Error()
	}
	h.mu.Unlock()
	close(h.done)

	if onExit != nil {
		onExit(h, err)
	}
}

func drain(logger *slog.Logger, stream string, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		logger.Debug(sc.Text(), slog.String("stream", stream))
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to read sidecar %s: %w", stream, err)
	}
	return nil
}

// PID returns the process id.
func (h *Handle) PID() int { return h.pid }

// Done is closed once the process has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns a snapshot of the handle's status.
func (h *Handle) State() core.SidecarState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return core.SidecarState{
		Status:    h.status,
		PID:       h.pid,
		StartedAt: h.startedAt,
		LastError: h.lastErr,
	}
}

func (h *Handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Kill stops the process and waits briefly for it to be reaped. Killing an
// exited handle is a no-op.
func Kill(h *Handle) error {
	if h == nil || h.exited() {
		return nil
	}
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return &core.KillError{PID: h.pid, Err: err}
	}
	select {
	case <-h.done:
	case <-time.After(killWait):
	}
	return nil
}

// Pause suspends an active process.
func Pause(h *Handle) error {
	return h.transition(core.SidecarActive, core.SidecarPaused, stopSignal)
}

// Resume continues a paused process.
func Resume(h *Handle) error {
	return h.transition(core.SidecarPaused, core.SidecarActive, continueSignal)
}

func (h *Handle) transition(from, to core.SidecarStatus, sig func(*os.Process) error) error {
	if h == nil {
		return fmt.Errorf("sidecar not running")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status != from {
		return fmt.Errorf("sidecar is %s, not %s", h.status, from)
	}
	if err := sig(h.cmd.Process); err != nil {
		return &core.KillError{PID: h.pid, Err: err}
	}
	h.status = to
	return nil
}
