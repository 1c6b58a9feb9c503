package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lherron/foldermerge/internal/domain"
)

// RunStore manages the single run row tracked by a Store.
type RunStore struct {
	store *Store
}

// BeginRun opens (or resumes) the one Run a Store can track at a time.
//
// If no run exists, a fresh one is started. If a run already exists its
// roots are compared against the requested ones: a mismatch is a fatal
// RootMismatchError, a match resumes it. BeginRun never discards an
// existing run; a caller that wants a fresh start calls Reset first.
func (rs *RunStore) BeginRun(aRoot, bRoot, destRoot string, jobs int, serialApply bool) (*domain.Run, domain.Mode, error) {
	existing, err := rs.get()
	if err != nil {
		return nil, "", err
	}

	if existing != nil {
		if existing.ARoot != aRoot || existing.BRoot != bRoot || existing.DestRoot != destRoot {
			return nil, "", &domain.RootMismatchError{
				StorePath:  rs.store.db.Path(),
				StoredA:    existing.ARoot,
				StoredB:    existing.BRoot,
				StoredDest: existing.DestRoot,
				RequestedA: aRoot,
				RequestedB: bRoot,
				RequestedD: destRoot,
			}
		}
		if err := rs.store.Paths.ResetApplying(); err != nil {
			return nil, "", err
		}
		return existing, domain.ModeResumed, nil
	}

	run := &domain.Run{
		ID:          uuid.NewString(),
		ARoot:       aRoot,
		BRoot:       bRoot,
		DestRoot:    destRoot,
		Phase:       domain.PhaseScanning,
		Jobs:        jobs,
		SerialApply: serialApply,
	}

	err = rs.store.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO runs (id, a_root, b_root, dest_root, phase, jobs, serial_apply) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.ARoot, run.BRoot, run.DestRoot, string(run.Phase), run.Jobs, run.SerialApply,
		)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	return run, domain.ModeFresh, nil
}

// Reset drops every row from every table this store owns. The Coordinator
// calls it before BeginRun when --reset was given.
func (rs *RunStore) Reset() error {
	return rs.store.withTx(func(tx *sql.Tx) error {
		for _, table := range []string{"conflict_log", "paths", "runs"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (rs *RunStore) get() (*domain.Run, error) {
	row := rs.store.db.QueryRow(`SELECT id, a_root, b_root, dest_root, phase, jobs, serial_apply, created_at FROM runs LIMIT 1`)

	var run domain.Run
	var phase string
	var createdAt string
	err := row.Scan(&run.ID, &run.ARoot, &run.BRoot, &run.DestRoot, &phase, &run.Jobs, &run.SerialApply, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreUnavailableError{Path: rs.store.db.Path(), Err: err}
	}
	run.Phase = domain.Phase(phase)
	run.CreatedAt = parseTimestamp(createdAt)
	return &run, nil
}

// MarkPhase advances the run's recorded lifecycle phase.
func (rs *RunStore) MarkPhase(runID string, phase domain.Phase) error {
	return rs.store.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE runs SET phase = ? WHERE id = ?`, string(phase), runID)
		return err
	})
}
