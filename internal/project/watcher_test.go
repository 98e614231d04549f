package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherSeesAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "section.toml")
	snap := Export(fixtureSection(t))
	if err := Save(snap, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	// An atomic temp+rename save from "another process".
	if err := Save(snap, path); err != nil {
		t.Fatalf("external save: %v", err)
	}

	select {
	case ch := <-w.Changes:
		if ch.Kind != ChangeModified {
			t.Fatalf("kind = %v, want ChangeModified", ch.Kind)
		}
		if ch.Path != path {
			t.Fatalf("path = %q, want %q", ch.Path, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change event after external save")
	}
}

// A consumer that stopped reading must not wedge the event loop or Stop:
// notifications beyond the buffer are dropped, not blocked on.
func TestWatcherStopWithUnreadChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "section.toml")
	if err := Save(Export(fixtureSection(t)), path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Overfill the buffer with nobody reading w.Changes.
	for i := 0; i < 2*cap(w.changes); i++ {
		w.emitChange()
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop blocked with unread changes pending")
	}
}

func TestWatcherSeesRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "section.toml")
	if err := Save(Export(fixtureSection(t)), path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case ch := <-w.Changes:
		if ch.Kind != ChangeRemoved {
			t.Fatalf("kind = %v, want ChangeRemoved", ch.Kind)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change event after removal")
	}
}
