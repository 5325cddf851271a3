package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePIDFileAndRead(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "sub", "remotefs.pid")

	cleanup, err := WritePIDFile(pidPath)
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(pidPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), mustAtoi(t, string(data)))

	pid, running, err := ReadPID(pidPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, running, "the test process itself is alive")
}

func TestWritePIDFileCleanupRemovesFile(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "remotefs.pid")

	cleanup, err := WritePIDFile(pidPath)
	require.NoError(t, err)

	cleanup()

	_, err = os.Stat(pidPath)
	assert.True(t, os.IsNotExist(err))
}

func TestReadPIDMissingFile(t *testing.T) {
	_, _, err := ReadPID(filepath.Join(t.TempDir(), "does-not-exist.pid"))
	assert.Error(t, err)
}

func TestReadPIDStaleEntryNotRunning(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "remotefs.pid")

	// PID 999999 is assumed not to belong to any live process.
	require.NoError(t, os.WriteFile(pidPath, []byte("999999"), 0o644))

	_, running, err := ReadPID(pidPath)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestCheckNotRunningAllowsStartWhenNoPidFile(t *testing.T) {
	err := checkNotRunning(filepath.Join(t.TempDir(), "remotefs.pid"))
	assert.NoError(t, err)
}

func TestCheckNotRunningRemovesStalePidFile(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "remotefs.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("999999"), 0o644))

	err := checkNotRunning(pidPath)
	require.NoError(t, err)

	_, err = os.Stat(pidPath)
	assert.True(t, os.IsNotExist(err))
}

func TestStopMissingPidFileFails(t *testing.T) {
	err := Stop(filepath.Join(t.TempDir(), "remotefs.pid"), false)
	assert.Error(t, err)
}

func TestStopStalePidFileIsRemoved(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "remotefs.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("999999"), 0o644))

	require.NoError(t, Stop(pidPath, false))

	_, err := os.Stat(pidPath)
	assert.True(t, os.IsNotExist(err))
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			t.Fatalf("not a pid: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n
}
