package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise the real fsnotify.Watcher rather than a fake, in
// the same spirit as the teacher's MangleWatcher integration coverage —
// but unlike the teacher (which skips its watcher tests outright because
// fsnotify's background goroutines confuse goleak on Windows), this
// package carries no goleak TestMain, so a real run here is safe.

func writeConfigFile(t *testing.T, path string, dailyBudget, intervalMS int) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DailyBudget = dailyBudget
	cfg.IntervalMS = intervalMS
	cfg.TestBypass = true
	require.NoError(t, cfg.Save(path))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evo.yaml")
	writeConfigFile(t, path, 1000, 60000)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Stop()

	var last *Config
	require.NoError(t, w.Start(func(cfg *Config) {
		last = cfg
	}))

	writeConfigFile(t, path, 5000, 60000)

	waitFor(t, 2*time.Second, func() bool {
		return last != nil && last.DailyBudget == 5000
	})
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evo.yaml")
	writeConfigFile(t, path, 1000, 60000)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	require.NoError(t, w.Start(func(*Config) {}))

	w.Stop()
	assert.NotPanics(t, func() { w.Stop() })
}

func TestWatcherIgnoresUnparseableReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evo.yaml")
	writeConfigFile(t, path, 1000, 60000)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Stop()

	calls := 0
	require.NoError(t, w.Start(func(cfg *Config) {
		calls++
	}))

	require.NoError(t, os.WriteFile(path, []byte("daily_budget: [1, 2\nunterminated_flow_sequence: true"), 0o644))
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 0, calls, "a reload that fails to parse must not invoke the callback")

	writeConfigFile(t, path, 7000, 60000)
	waitFor(t, 2*time.Second, func() bool { return calls == 1 })
}
