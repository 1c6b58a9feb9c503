package broker

import (
	"context"
	"testing"
	"time"

	"github.com/lherron/foldermerge/internal/domain"
)

func TestPushThenNextIsFIFO(t *testing.T) {
	b := New()
	b.Push(&domain.PathRecord{RelPath: "a"})
	b.Push(&domain.PathRecord{RelPath: "b"})

	ctx := context.Background()
	first, err := b.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first.RelPath != "a" {
		t.Errorf("expected a first, got %s", first.RelPath)
	}
	second, err := b.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if second.RelPath != "b" {
		t.Errorf("expected b second, got %s", second.RelPath)
	}
}

func TestNextBlocksUntilPush(t *testing.T) {
	b := New()
	result := make(chan *domain.PathRecord, 1)
	go func() {
		rec, _ := b.Next(context.Background())
		result <- rec
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-result:
		t.Fatal("Next returned before anything was pushed")
	default:
	}

	b.Push(&domain.PathRecord{RelPath: "late"})
	select {
	case rec := <-result:
		if rec.RelPath != "late" {
			t.Errorf("expected late, got %s", rec.RelPath)
		}
	case <-time.After(time.Second):
		t.Fatal("Next never returned after Push")
	}
}

func TestNextRespectsCancellation(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := b.Next(ctx)
		result <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(time.Second):
		t.Fatal("Next never returned after cancellation")
	}
}

func TestPushIgnoresDuplicates(t *testing.T) {
	b := New()
	b.Push(&domain.PathRecord{RelPath: "dup"})
	b.Push(&domain.PathRecord{RelPath: "dup"})
	if b.Len() != 1 {
		t.Errorf("expected duplicate push to be ignored, queue len = %d", b.Len())
	}
}

func TestCloseUnblocksWithEmptyResult(t *testing.T) {
	b := New()
	result := make(chan *domain.PathRecord, 1)
	go func() {
		rec, _ := b.Next(context.Background())
		result <- rec
	}()
	time.Sleep(20 * time.Millisecond)
	b.Close()
	select {
	case rec := <-result:
		if rec != nil {
			t.Errorf("expected nil record after close, got %v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("Next never returned after Close")
	}
}
