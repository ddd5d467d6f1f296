package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, dbPath string, debounce time.Duration) *atomic.Int32 {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var calls atomic.Int32
	go func() {
		defer close(done)
		if err := Database(ctx, dbPath, debounce, logger, func() { calls.Add(1) }); err != nil {
			t.Errorf("Database: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return &calls
}

func TestDatabase_WriteTriggersCallback(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "outline.db")
	calls := startWatcher(t, dbPath, 20*time.Millisecond)

	_ = os.WriteFile(dbPath+"-wal", []byte("page"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "write to wal did not trigger callback")
}

func TestDatabase_Debounces(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "outline.db")
	calls := startWatcher(t, dbPath, 300*time.Millisecond)

	for i := range 5 {
		_ = os.WriteFile(dbPath, []byte{byte(i)}, 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "burst did not trigger callback")
	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 for a single burst", got)
	}
}

func TestDatabase_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	calls := startWatcher(t, filepath.Join(dir, "outline.db"), 20*time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "outline.db.bak"), []byte("x"), 0o644)

	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}

func TestIsDatabaseFile(t *testing.T) {
	cases := map[string]bool{
		"outline.db":         true,
		"outline.db-wal":     true,
		"outline.db-journal": true,
		"outline.db-shm":     false,
		"outline.db.bak":     false,
		"other.db":           false,
	}
	for name, want := range cases {
		if got := isDatabaseFile(name, "outline.db"); got != want {
			t.Errorf("isDatabaseFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDatabase_MissingDir(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	err := Database(context.Background(), filepath.Join(t.TempDir(), "nope", "x.db"), 0, logger, func() {})
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
