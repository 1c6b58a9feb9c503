// Package coordinator wires the scanner, fingerprinter, classifier, broker
// and applier into one run and owns its lifecycle: opening the Store,
// resuming or starting fresh, driving the pipeline to completion, and
// reporting progress while it goes.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/lherron/foldermerge/internal/applier"
	"github.com/lherron/foldermerge/internal/broker"
	"github.com/lherron/foldermerge/internal/classify"
	"github.com/lherron/foldermerge/internal/db"
	"github.com/lherron/foldermerge/internal/domain"
	"github.com/lherron/foldermerge/internal/fingerprint"
	"github.com/lherron/foldermerge/internal/resolver"
	"github.com/lherron/foldermerge/internal/scanner"
	"github.com/lherron/foldermerge/internal/store"
	"github.com/lherron/foldermerge/internal/workerpool"
)

// progressInterval is how often ProgressSnapshots are published, per §4.8's
// "bounded rate (e.g. 10 Hz)".
const progressInterval = 100 * time.Millisecond

// Options configures a single merge run.
type Options struct {
	ARoot        string
	BRoot        string
	DestRoot     string
	DBPath       string
	Reset        bool
	Jobs         int
	SerialApply  bool
	ExcludeGlobs []string
	Resolver     resolver.Resolver
}

// Result summarizes a finished (or aborted) run.
type Result struct {
	Run     *domain.Run
	Mode    domain.Mode
	Final   domain.ProgressSnapshot
	Failed  []*domain.PathRecord
	Aborted bool
}

// Coordinator drives one merge run end to end.
type Coordinator struct {
	opts           Options
	store          *store.Store
	database       *db.DB
	hashMismatches []*domain.HashMismatchOnResumeError
}

// HashMismatches reports any applied row that Open found no longer matches
// its recorded content when resuming a prior run (see §7's
// HashMismatchOnResume). Each one has already been demoted back to ready.
func (c *Coordinator) HashMismatches() []*domain.HashMismatchOnResumeError {
	return c.hashMismatches
}

// Open prepares a Coordinator: opens/migrates the Store, begins or resumes
// the Run, and sweeps stale temp files left by an interrupted prior run
// against the same destination.
func Open(opts Options) (*Coordinator, *domain.Run, domain.Mode, error) {
	database, err := db.Open(opts.DBPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open store: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		if mismatch, ok := err.(*domain.SchemaVersionMismatchError); ok {
			return nil, nil, "", mismatch
		}
		return nil, nil, "", fmt.Errorf("migrate store: %w", err)
	}

	s := store.New(database)

	if opts.Reset {
		if err := s.Runs.Reset(); err != nil {
			database.Close()
			return nil, nil, "", fmt.Errorf("reset store: %w", err)
		}
	}

	run, mode, err := s.Runs.BeginRun(opts.ARoot, opts.BRoot, opts.DestRoot, opts.Jobs, opts.SerialApply)
	if err != nil {
		database.Close()
		return nil, nil, "", err
	}

	if err := applier.CleanStaleTempFiles(opts.DestRoot, run.ID); err != nil {
		database.Close()
		return nil, nil, "", fmt.Errorf("clean stale temp files: %w", err)
	}

	c := &Coordinator{opts: opts, store: s, database: database}

	if mode == domain.ModeResumed {
		mismatches, err := c.applier(run).VerifyApplied(context.Background())
		if err != nil {
			database.Close()
			return nil, nil, "", fmt.Errorf("verify applied paths: %w", err)
		}
		c.hashMismatches = mismatches
	}

	return c, run, mode, nil
}

// Close releases the underlying Store connection.
func (c *Coordinator) Close() error {
	return c.store.Close()
}

// Run drives the run to completion, or until ctx is cancelled. Progress
// snapshots are sent on progressCh at progressInterval without blocking; a
// snapshot is dropped when progressCh has no room for it.
func (c *Coordinator) Run(ctx context.Context, run *domain.Run, progressCh chan<- domain.ProgressSnapshot) (Result, error) {
	stopProgress := c.publishProgress(ctx, progressCh)
	defer stopProgress()

	if err := c.scanPhase(ctx, run); err != nil {
		return c.abortedResult(run), err
	}

	if err := c.hashAndClassifyPhase(ctx, run); err != nil {
		return c.abortedResult(run), err
	}

	if err := c.applier(run).ApplyDirectories(ctx); err != nil {
		return c.abortedResult(run), err
	}

	if err := c.store.Runs.MarkPhase(run.ID, domain.PhaseApplying); err != nil {
		return c.abortedResult(run), err
	}

	if err := c.resolveAndApply(ctx, run); err != nil {
		return c.abortedResult(run), err
	}

	final, err := c.store.Paths.Counts()
	if err != nil {
		return c.abortedResult(run), err
	}
	failed, err := c.store.Paths.Failed()
	if err != nil {
		return c.abortedResult(run), err
	}

	phase := domain.PhaseDone
	if ctx.Err() != nil {
		phase = domain.PhaseAborted
	}
	_ = c.store.Runs.MarkPhase(run.ID, phase)

	return Result{Run: run, Final: final, Failed: failed, Aborted: ctx.Err() != nil}, ctx.Err()
}

func (c *Coordinator) abortedResult(run *domain.Run) Result {
	_ = c.store.Runs.MarkPhase(run.ID, domain.PhaseAborted)
	final, _ := c.store.Paths.Counts()
	failed, _ := c.store.Paths.Failed()
	return Result{Run: run, Final: final, Failed: failed, Aborted: true}
}

// scanPhase walks both roots concurrently, recording every entry found.
func (c *Coordinator) scanPhase(ctx context.Context, run *domain.Run) error {
	if err := c.store.Runs.MarkPhase(run.ID, domain.PhaseScanning); err != nil {
		return err
	}

	opts := scanner.Options{ExcludeGlobs: c.opts.ExcludeGlobs}

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	walk := func(root string, side domain.Side) {
		defer wg.Done()
		err := scanner.Walk(ctx, root, opts, func(e scanner.Entry) error {
			return c.store.Paths.UpsertScanResult(store.ScanResult{
				RelPath:       e.RelPath,
				Side:          side,
				Kind:          e.Kind,
				Size:          e.Size,
				MTime:         e.MTime,
				SymlinkTarget: e.SymlinkTarget,
			})
		})
		if err != nil {
			errs <- fmt.Errorf("scan %s: %w", root, err)
		}
	}

	wg.Add(2)
	go walk(c.opts.ARoot, domain.SideA)
	go walk(c.opts.BRoot, domain.SideB)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// hashAndClassifyPhase fingerprints every equal-size file pair once (a
// single IterPending pass covers every row scanning could have produced,
// since that set depends only on kind/size, not on classification order),
// then classifies every row once every side's data is in.
func (c *Coordinator) hashAndClassifyPhase(ctx context.Context, run *domain.Run) error {
	if err := c.store.Runs.MarkPhase(run.ID, domain.PhaseHashing); err != nil {
		return err
	}

	fp := &fingerprint.Pool{Store: c.store, ARoot: c.opts.ARoot, BRoot: c.opts.BRoot, Jobs: c.opts.Jobs}
	if _, err := fp.Run(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unclassified, err := c.store.Paths.Unclassified()
	if err != nil {
		return err
	}
	for _, rec := range unclassified {
		if !classify.Ready(rec) {
			continue // hash still missing; shouldn't happen after a full fingerprint pass
		}
		action := classify.Classify(rec)
		if action.Kind == "" {
			continue
		}
		if err := c.store.Paths.SetAction(rec.RelPath, action); err != nil {
			return workerpool.FatalIfStoreUnavailable(err)
		}
	}
	return nil
}

// resolveAndApply pushes every awaiting_decision row through the Broker and
// Resolver while the Applier drains ready rows, either concurrently (the
// default) or with the Applier held back until every conflict is decided
// (--serial-apply).
func (c *Coordinator) resolveAndApply(ctx context.Context, run *domain.Run) error {
	pending, err := c.store.Paths.AwaitingDecision()
	if err != nil {
		return err
	}

	b := broker.New()
	for _, rec := range pending {
		b.Push(rec)
	}
	b.Close() // classification is a single pass; no further conflicts will ever be pushed

	resolveDone := make(chan struct{})
	resolve := func() error {
		defer close(resolveDone)
		return c.drainBroker(ctx, b)
	}
	apply := func(done <-chan struct{}) error {
		pool := c.applier(run)
		if _, err := pool.Run(ctx, done); err != nil {
			return err
		}
		return nil
	}

	if c.opts.SerialApply {
		if err := resolve(); err != nil {
			return err
		}
		return apply(resolveDone)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs <- resolve() }()
	go func() { defer wg.Done(); errs <- apply(resolveDone) }()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) drainBroker(ctx context.Context, b *broker.Broker) error {
	for {
		rec, err := b.Next(ctx)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil // closed and empty
		}

		candidate := domain.Candidate{
			RelPath:  rec.RelPath,
			KindA:    rec.KindA,
			KindB:    rec.KindB,
			SizeA:    rec.SizeA,
			SizeB:    rec.SizeB,
			MTimeA:   rec.MTimeA,
			MTimeB:   rec.MTimeB,
			HashA:    rec.HashA,
			HashB:    rec.HashB,
			AbsPathA: filepath.Join(c.opts.ARoot, rec.RelPath),
			AbsPathB: filepath.Join(c.opts.BRoot, rec.RelPath),
		}

		choice, err := c.opts.Resolver.Resolve(ctx, candidate)
		if err != nil {
			return err
		}

		winner := decideWinner(rec, choice)
		decision := domain.ConflictDecision{
			RelPath:   rec.RelPath,
			Choice:    choice,
			Winner:    winner,
			Action:    classify.ActionForSide(rec, winner),
			DecidedAt: time.Now(),
		}
		if err := c.store.Conflicts.Record(rec, decision); err != nil {
			return workerpool.FatalIfStoreUnavailable(err)
		}
	}
}

// decideWinner applies §4.6's tie-break rule: prefer_newer picks the
// strictly larger mtime, prefer_older the strictly smaller one, ties break
// to side A.
func decideWinner(rec *domain.PathRecord, choice domain.Choice) domain.Side {
	switch choice.Underlying() {
	case domain.ChoicePreferNewer:
		if rec.MTimeB.After(rec.MTimeA) {
			return domain.SideB
		}
		return domain.SideA
	case domain.ChoicePreferOlder:
		if rec.MTimeB.Before(rec.MTimeA) {
			return domain.SideB
		}
		return domain.SideA
	default:
		return domain.SideA
	}
}

func (c *Coordinator) applier(run *domain.Run) *applier.Pool {
	return &applier.Pool{
		Store:    c.store,
		ARoot:    c.opts.ARoot,
		BRoot:    c.opts.BRoot,
		DestRoot: c.opts.DestRoot,
		RunID:    run.ID,
		Jobs:     c.opts.Jobs,
	}
}

// publishProgress starts a background goroutine sending ProgressSnapshots
// on ch until the returned stop func is called. A nil ch disables it.
func (c *Coordinator) publishProgress(ctx context.Context, ch chan<- domain.ProgressSnapshot) func() {
	if ch == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if snap, err := c.store.Paths.Counts(); err == nil {
					select {
					case ch <- snap:
					default:
					}
				}
			}
		}
	}()
	return func() { close(done) }
}
