package mirror

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type chanEditor chan string

func (c chanEditor) Edit(content string) { c <- content }

func startMirror(t *testing.T) (*Mirror, chanEditor) {
	t.Helper()
	m, err := New(filepath.Join(t.TempDir(), "doc.txt"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Apply("remote v1"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	edits := make(chanEditor, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, edits) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	return m, edits
}

func TestMirror_ApplyWritesFile(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "nested", "doc.txt"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Apply("hello"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	data, err := os.ReadFile(m.Path())
	if err != nil || string(data) != "hello" {
		t.Fatalf("expected hello on disk, got %q (%v)", data, err)
	}
}

func TestMirror_OutsideWriteBecomesEdit(t *testing.T) {
	m, edits := startMirror(t)

	if err := os.WriteFile(m.Path(), []byte("typed locally"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A plain write may surface as truncate then write; wait for the final
	// content.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-edits:
			if got == "typed locally" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for edit")
		}
	}
}

func TestMirror_IgnoresOwnWrites(t *testing.T) {
	m, edits := startMirror(t)

	if err := m.Apply("remote v2"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	select {
	case got := <-edits:
		t.Fatalf("own write reported as edit: %q", got)
	case <-time.After(300 * time.Millisecond):
	}
}
