// Package fingerprint runs the content-hashing worker pool: for every path
// that is a same-size file on both sides, it computes and persists the
// 64-bit hash each side needs before the Classifier can tell equal content
// from a conflict.
package fingerprint

import (
	"context"
	"path/filepath"

	"github.com/lherron/foldermerge/internal/domain"
	"github.com/lherron/foldermerge/internal/hashsum"
	"github.com/lherron/foldermerge/internal/store"
	"github.com/lherron/foldermerge/internal/workerpool"
)

// job is one side of one path record still needing a hash.
type job struct {
	relPath string
	side    domain.Side
	absPath string
}

// Pool computes hashes for pending rows in the Store using a bounded number
// of worker goroutines.
type Pool struct {
	Store *store.Store
	ARoot string
	BRoot string
	Jobs  int
}

// Run drains every row from the Store that needs hashing on either side and
// blocks until they are all processed or ctx is cancelled. It can be called
// repeatedly by the Coordinator as the Scanner discovers more rows.
func (p *Pool) Run(ctx context.Context) (*workerpool.Counts, error) {
	pending := make(chan job, 256)

	go func() {
		defer close(pending)
		p.enqueue(ctx, pending, domain.SideA, p.ARoot)
		p.enqueue(ctx, pending, domain.SideB, p.BRoot)
	}()

	pool := &workerpool.Pool[job]{Jobs: p.Jobs}
	return pool.Run(ctx, pending, p.hashOne)
}

func (p *Pool) enqueue(ctx context.Context, out chan<- job, side domain.Side, root string) {
	recs, err := p.Store.Paths.IterPending(side)
	if err != nil {
		return
	}
	for _, rec := range recs {
		if ctx.Err() != nil {
			return
		}
		out <- job{relPath: rec.RelPath, side: side, absPath: filepath.Join(root, rec.RelPath)}
	}
}

func (p *Pool) hashOne(ctx context.Context, j job) error {
	hash, err := hashsum.File(j.absPath)
	if err != nil {
		_ = p.Store.Paths.SetStatus(j.relPath, domain.StatusFailed, (&domain.SourceIOError{RelPath: j.relPath, Side: j.side, Err: err}).Error())
		return err
	}
	if err := p.Store.Paths.SetHash(j.relPath, j.side, hash); err != nil {
		return workerpool.FatalIfStoreUnavailable(err)
	}
	return nil
}
