package session

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/tablex/internal/sidecar"
	"github.com/leapstack-labs/tablex/pkg/core"
)

// StartSidecar (re)starts the sidecar for the active connection. A launch
// failure leaves the status Exited with the error recorded.
func (m *Manager) StartSidecar(ctx context.Context) (core.SidecarState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startSidecarLocked(ctx)
}

func (m *Manager) startSidecarLocked(ctx context.Context) (core.SidecarState, error) {
	c, err := m.active()
	if err != nil {
		return m.sidecarStateLocked(), err
	}
	if m.sidecar != nil {
		if err := sidecar.Kill(m.sidecar); err != nil {
			return m.sidecarStateLocked(), err
		}
		m.sidecar = nil
	}

	gen := m.generation
	sup := &sidecar.Supervisor{
		Binary: m.cfg.Sidecar.Binary,
		Logger: m.logger,
		OnExit: func(h *sidecar.Handle, err error) { m.sidecarExited(gen, h, err) },
	}
	h, err := sup.Start(ctx, c.dialect(), c.url)
	if err != nil {
		m.lastSidecar = core.SidecarState{Status: core.SidecarExited, LastError: err.Error()}
		return m.lastSidecar, err
	}
	m.sidecar = h
	return h.State(), nil
}

// sidecarExited runs on the sidecar's drain goroutine. Exits of handles
// that are no longer current are ignored.
func (m *Manager) sidecarExited(gen uint64, h *sidecar.Handle, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.sidecar != h {
		return
	}
	m.lastSidecar = h.State()
	m.sidecar = nil
	if err != nil {
		m.logger.Warn("sidecar exited", slog.Int("pid", h.PID()), slog.String("error", err.Error()))
	}
}

// KillSidecar stops the sidecar. Killing when none runs is a no-op.
func (m *Manager) KillSidecar() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sidecar == nil {
		return nil
	}
	if err := sidecar.Kill(m.sidecar); err != nil {
		return err
	}
	m.lastSidecar = m.sidecar.State()
	m.lastSidecar.Status = core.SidecarExited
	m.sidecar = nil
	return nil
}

// PauseSidecar suspends the running sidecar.
func (m *Manager) PauseSidecar() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sidecar.Pause(m.sidecar)
}

// ResumeSidecar continues a paused sidecar.
func (m *Manager) ResumeSidecar() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sidecar.Resume(m.sidecar)
}

// SidecarStatus reports the sidecar state.
func (m *Manager) SidecarStatus() core.SidecarState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sidecarStateLocked()
}

func (m *Manager) sidecarStateLocked() core.SidecarState {
	if m.sidecar != nil {
		return m.sidecar.State()
	}
	return m.lastSidecar
}

// SidecarDone returns a channel closed when the current sidecar exits. With
// no sidecar running the channel is already closed.
func (m *Manager) SidecarDone() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sidecar == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.sidecar.Done()
}
