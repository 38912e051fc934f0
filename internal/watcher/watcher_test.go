package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/catalog"
)

type recordingSyncer struct {
	mu    sync.Mutex
	calls int
	docs  []catalog.Document
}

func (s *recordingSyncer) Synchronize(_ context.Context, doc catalog.Document) (*catalog.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.docs = append(s.docs, doc)
	return &catalog.Report{}, nil
}

func (s *recordingSyncer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestWatcherTriggersSyncOnWrite(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "cards.yaml")
	if err := os.WriteFile(sourcePath, []byte("A1:\n  name: Genetic Apex\n"), 0o644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	syncer := &recordingSyncer{}
	w := New(sourcePath, 50*time.Millisecond, syncer, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to install before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(sourcePath, []byte("A1:\n  name: Genetic Apex Updated\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite source file: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for syncer.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never triggered a synchronization")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "cards.yaml")
	if err := os.WriteFile(sourcePath, []byte("A1:\n  name: Genetic Apex\n"), 0o644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	syncer := &recordingSyncer{}
	w := New(sourcePath, 50*time.Millisecond, syncer, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("noise"), 0o644); err != nil {
		t.Fatalf("failed to write unrelated file: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if n := syncer.callCount(); n != 0 {
		t.Errorf("expected no synchronization for unrelated files, got %d", n)
	}
}
