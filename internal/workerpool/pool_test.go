package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/lherron/foldermerge/internal/domain"
)

func TestPoolRunProcessesAllItems(t *testing.T) {
	items := make(chan int, 100)
	for i := 0; i < 100; i++ {
		items <- i
	}
	close(items)

	var seen int64
	pool := &Pool[int]{Jobs: 4}
	counts, err := pool.Run(context.Background(), items, func(ctx context.Context, item int) error {
		atomic.AddInt64(&seen, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen != 100 {
		t.Errorf("expected 100 items processed, got %d", seen)
	}
	if counts.Completed() != 100 || counts.Succeeded() != 100 || counts.Failed() != 0 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestPoolRunTracksFailures(t *testing.T) {
	items := make(chan int, 10)
	for i := 0; i < 10; i++ {
		items <- i
	}
	close(items)

	pool := &Pool[int]{Jobs: 2}
	counts, err := pool.Run(context.Background(), items, func(ctx context.Context, item int) error {
		if item%2 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected non-fatal errors to not abort Run, got %v", err)
	}
	if counts.Failed() != 5 || counts.Succeeded() != 5 {
		t.Errorf("expected 5/5 split, got %+v", counts)
	}
}

func TestPoolRunStopsOnFatal(t *testing.T) {
	items := make(chan int, 1000)
	for i := 0; i < 1000; i++ {
		items <- i
	}
	close(items)

	pool := &Pool[int]{Jobs: 4}
	_, err := pool.Run(context.Background(), items, func(ctx context.Context, item int) error {
		if item == 3 {
			return FatalIfStoreUnavailable(&domain.StoreUnavailableError{Path: "x", Err: errors.New("disk gone")})
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected fatal error to propagate")
	}
}
