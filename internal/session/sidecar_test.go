//go:build unix

package session

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/leapstack-labs/tablex/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sidecarScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sidecar.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)) //nolint:gosec
	return path
}

func alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func TestManager_SidecarFollowsConnection(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{Sidecar: SidecarConfig{
		Enabled: true,
		Binary:  sidecarScript(t, "exec sleep 30"),
	}})

	connect(t, m, "")
	first := m.SidecarStatus()
	require.Equal(t, core.SidecarActive, first.Status)
	assert.True(t, alive(first.PID))

	require.NoError(t, m.PauseSidecar())
	assert.Equal(t, core.SidecarPaused, m.SidecarStatus().Status)
	require.NoError(t, m.ResumeSidecar())

	// Reconnecting replaces the sidecar.
	connect(t, m, "")
	second := m.SidecarStatus()
	require.Equal(t, core.SidecarActive, second.Status)
	assert.NotEqual(t, first.PID, second.PID)
	assert.False(t, alive(first.PID))

	require.NoError(t, m.DropConnection())
	assert.Equal(t, core.SidecarExited, m.SidecarStatus().Status)
	assert.False(t, alive(second.PID))

	_, err := m.StartSidecar(ctx)
	assert.ErrorIs(t, err, core.ErrNotConnected)
}

func TestManager_SidecarExitReported(t *testing.T) {
	m := newManager(t, Config{Sidecar: SidecarConfig{
		Enabled: true,
		Binary:  sidecarScript(t, "echo starting; exit 4"),
	}})
	connect(t, m, "")

	require.Eventually(t, func() bool {
		return m.SidecarStatus().Status == core.SidecarExited
	}, 10*time.Second, 10*time.Millisecond)
	assert.Equal(t, "exit status 4", m.SidecarStatus().LastError)

	// Database commands are unaffected.
	_, err := m.GetTables(context.Background())
	assert.NoError(t, err)
}

func TestManager_KillSidecar(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, Config{Sidecar: SidecarConfig{Binary: sidecarScript(t, "exec sleep 30")}})
	connect(t, m, "")
	assert.Equal(t, core.SidecarExited, m.SidecarStatus().Status)

	state, err := m.StartSidecar(ctx)
	require.NoError(t, err)
	require.Equal(t, core.SidecarActive, state.Status)

	require.NoError(t, m.KillSidecar())
	assert.Equal(t, core.SidecarExited, m.SidecarStatus().Status)
	assert.False(t, alive(state.PID))
	require.NoError(t, m.KillSidecar())
}
