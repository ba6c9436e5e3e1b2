package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type eventRecorder struct {
	mu     sync.Mutex
	events []EventType
	paths  []string
}

func (r *eventRecorder) record(path string, ev EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.paths = append(r.paths, path)
}

func (r *eventRecorder) wait(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		r.mu.Lock()
		got := len(r.events)
		r.mu.Unlock()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("saw %d events, want at least %d", got, n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFSWatcher_CreateAndDelete(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFSWatcher(testLogger())
	if err != nil {
		t.Fatalf("NewFSWatcher: %v", err)
	}
	defer w.Stop()

	rec := &eventRecorder{}
	w.OnChange(rec.record)

	if err := w.Watch(context.Background(), dir); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec.wait(t, 1)

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	rec.wait(t, 2)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.events[0] != EventCreate {
		t.Errorf("first event = %v, want EventCreate", rec.events[0])
	}
	if rec.paths[0] != path {
		t.Errorf("first event path = %q, want %q", rec.paths[0], path)
	}
	last := rec.events[len(rec.events)-1]
	if last != EventDelete {
		t.Errorf("last event = %v, want EventDelete", last)
	}
}

func TestFSWatcher_WatchReplacesDirectory(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	w, err := NewFSWatcher(testLogger())
	if err != nil {
		t.Fatalf("NewFSWatcher: %v", err)
	}
	defer w.Stop()

	rec := &eventRecorder{}
	w.OnChange(rec.record)

	ctx := context.Background()
	if err := w.Watch(ctx, dirA); err != nil {
		t.Fatalf("Watch A: %v", err)
	}
	if err := w.Watch(ctx, dirB); err != nil {
		t.Fatalf("Watch B: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dirB, "b.mp4"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec.wait(t, 1)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, p := range rec.paths {
		if filepath.Dir(p) == dirA {
			t.Errorf("received event for unwatched directory: %q", p)
		}
	}
}

func TestFSWatcher_WatchMissingDirFails(t *testing.T) {
	w, err := NewFSWatcher(testLogger())
	if err != nil {
		t.Fatalf("NewFSWatcher: %v", err)
	}
	defer w.Stop()

	if err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error watching missing directory")
	}
}
