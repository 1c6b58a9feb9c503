package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lherron/foldermerge/internal/domain"
)

// PathStore manages the per-relative-path rows for the active run.
type PathStore struct {
	store *Store
}

// ScanResult is what the Scanner reports for one entry on one side.
type ScanResult struct {
	RelPath       string
	Side          domain.Side
	Kind          domain.Kind
	Size          int64
	MTime         time.Time
	SymlinkTarget string
}

// UpsertScanResult merges scan information for one side into a path's row,
// creating the row if this is the first side to report it.
func (ps *PathStore) UpsertScanResult(r ScanResult) error {
	return ps.store.withTx(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM paths WHERE rel_path = ?`, r.RelPath).Scan(&exists); err != nil {
			return err
		}

		mtimeStr := formatTimestamp(r.MTime)

		if exists == 0 {
			var inA, inB int
			kindA, kindB := domain.KindAbsent, domain.KindAbsent
			sizeA, sizeB := int64(0), int64(0)
			mtimeA, mtimeB := "", ""
			symA, symB := "", ""
			switch r.Side {
			case domain.SideA:
				inA = 1
				kindA, sizeA, mtimeA, symA = r.Kind, r.Size, mtimeStr, r.SymlinkTarget
			case domain.SideB:
				inB = 1
				kindB, sizeB, mtimeB, symB = r.Kind, r.Size, mtimeStr, r.SymlinkTarget
			}
			_, err := tx.Exec(
				`INSERT INTO paths (rel_path, in_a, in_b, kind_a, kind_b, size_a, size_b, mtime_a, mtime_b, symlink_target_a, symlink_target_b, status)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.RelPath, inA, inB, string(kindA), string(kindB), sizeA, sizeB, nullIfEmpty(mtimeA), nullIfEmpty(mtimeB), nullIfEmpty(symA), nullIfEmpty(symB), string(domain.StatusPending),
			)
			return err
		}

		switch r.Side {
		case domain.SideA:
			_, err := tx.Exec(
				`UPDATE paths SET in_a = 1, kind_a = ?, size_a = ?, mtime_a = ?, symlink_target_a = ? WHERE rel_path = ?`,
				string(r.Kind), r.Size, nullIfEmpty(mtimeStr), nullIfEmpty(r.SymlinkTarget), r.RelPath,
			)
			return err
		case domain.SideB:
			_, err := tx.Exec(
				`UPDATE paths SET in_b = 1, kind_b = ?, size_b = ?, mtime_b = ?, symlink_target_b = ? WHERE rel_path = ?`,
				string(r.Kind), r.Size, nullIfEmpty(mtimeStr), nullIfEmpty(r.SymlinkTarget), r.RelPath,
			)
			return err
		}
		return nil
	})
}

// Get fetches a single row by relative path.
func (ps *PathStore) Get(relPath string) (*domain.PathRecord, error) {
	row := ps.store.db.QueryRow(pathSelectColumns+` WHERE rel_path = ?`, relPath)
	return scanPathRow(row)
}

// SetHash records the content hash computed for one side of a row.
func (ps *PathStore) SetHash(relPath string, side domain.Side, hash uint64) error {
	col := "hash_a"
	if side == domain.SideB {
		col = "hash_b"
	}
	return ps.store.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE paths SET `+col+` = ? WHERE rel_path = ?`, int64(hash), relPath)
		return err
	})
}

// SetAction records the Classifier's decision for a row and advances status
// to awaiting_decision for a conflict, or to ready for any other action.
func (ps *PathStore) SetAction(relPath string, action domain.Action) error {
	status := domain.StatusReady
	if action.Kind == domain.ActionConflict {
		status = domain.StatusAwaitingDecision
	}
	return ps.store.withTx(func(tx *sql.Tx) error {
		var awaitingSince interface{}
		if status == domain.StatusAwaitingDecision {
			awaitingSince = formatTimestamp(time.Now())
		}
		_, err := tx.Exec(
			`UPDATE paths SET action_kind = ?, action_source = ?, action_symlink = ?, status = ?, awaiting_since = COALESCE(awaiting_since, ?) WHERE rel_path = ?`,
			string(action.Kind), string(action.Source), nullIfEmpty(action.SymlinkTarget), string(status), awaitingSince, relPath,
		)
		return err
	})
}

// SetStatus transitions a row's status, optionally attaching an error message.
func (ps *PathStore) SetStatus(relPath string, status domain.Status, errText string) error {
	return ps.store.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE paths SET status = ?, error = ? WHERE rel_path = ?`, string(status), nullIfEmpty(errText), relPath)
		return err
	})
}

// ClaimReady atomically claims up to limit rows in status=ready whose action
// matches actionKind ("" matches any action), flipping them to
// status=applying, and returns the claimed rows. This is the compare-and-
// swap dispatch that keeps the Applier pool from ever targeting the same
// path twice.
func (ps *PathStore) ClaimReady(limit int, actionKind domain.ActionKind) ([]*domain.PathRecord, error) {
	var claimed []string
	err := ps.store.withTx(func(tx *sql.Tx) error {
		var rows *sql.Rows
		var err error
		if actionKind == "" {
			rows, err = tx.Query(`SELECT rel_path FROM paths WHERE status = ? LIMIT ?`, string(domain.StatusReady), limit)
		} else {
			rows, err = tx.Query(`SELECT rel_path FROM paths WHERE status = ? AND action_kind = ? LIMIT ?`, string(domain.StatusReady), string(actionKind), limit)
		}
		if err != nil {
			return err
		}
		var relPaths []string
		for rows.Next() {
			var rp string
			if err := rows.Scan(&rp); err != nil {
				rows.Close()
				return err
			}
			relPaths = append(relPaths, rp)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, rp := range relPaths {
			res, err := tx.Exec(`UPDATE paths SET status = ? WHERE rel_path = ? AND status = ?`,
				string(domain.StatusApplying), rp, string(domain.StatusReady))
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 1 {
				claimed = append(claimed, rp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.PathRecord, 0, len(claimed))
	for _, rp := range claimed {
		rec, err := ps.Get(rp)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ResetApplying demotes every row left in status=applying back to ready.
// A row only sits in applying between ClaimReady's CAS and the applier
// worker committing a terminal status; anything still there when a run
// resumes was interrupted mid-apply (graceful shutdown's grace period
// expiring, or a hard crash) and needs to be re-offered to the pipeline
// per the resume contract, not left stuck forever.
func (ps *PathStore) ResetApplying() error {
	return ps.store.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE paths SET status = ? WHERE status = ?`, string(domain.StatusReady), string(domain.StatusApplying))
		return err
	})
}

// IterPending returns every row still needing hashing on the given side
// (a file on both sides, sizes equal, hash not yet computed).
func (ps *PathStore) IterPending(side domain.Side) ([]*domain.PathRecord, error) {
	col := "hash_a"
	if side == domain.SideB {
		col = "hash_b"
	}
	rows, err := ps.store.db.Query(
		pathSelectColumns+` WHERE kind_a = 'file' AND kind_b = 'file' AND size_a = size_b AND `+col+` IS NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PathRecord
	for rows.Next() {
		rec, err := scanPathRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Unclassified returns every row that has not yet been given an Action.
func (ps *PathStore) Unclassified() ([]*domain.PathRecord, error) {
	rows, err := ps.store.db.Query(pathSelectColumns + ` WHERE action_kind IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PathRecord
	for rows.Next() {
		rec, err := scanPathRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AwaitingDecision returns every row currently blocked on a human decision,
// ordered by the time it first entered that state (FIFO).
func (ps *PathStore) AwaitingDecision() ([]*domain.PathRecord, error) {
	rows, err := ps.store.db.Query(pathSelectColumns + ` WHERE status = ? ORDER BY awaiting_since ASC`, string(domain.StatusAwaitingDecision))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PathRecord
	for rows.Next() {
		rec, err := scanPathRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Counts returns the tallies used to build a ProgressSnapshot.
func (ps *PathStore) Counts() (domain.ProgressSnapshot, error) {
	var snap domain.ProgressSnapshot
	row := ps.store.db.QueryRow(`SELECT COUNT(*) FROM paths`)
	if err := row.Scan(&snap.Total); err != nil {
		return snap, err
	}
	counts := []struct {
		status string
		dest   *int64
	}{
		{string(domain.StatusAwaitingDecision), &snap.AwaitingDecision},
		{string(domain.StatusApplied), &snap.Applied},
		{string(domain.StatusFailed), &snap.Failed},
	}
	for _, c := range counts {
		if err := ps.store.db.QueryRow(`SELECT COUNT(*) FROM paths WHERE status = ?`, c.status).Scan(c.dest); err != nil {
			return snap, err
		}
	}
	if err := ps.store.db.QueryRow(`SELECT COUNT(*) FROM paths WHERE action_kind IS NOT NULL`).Scan(&snap.Classified); err != nil {
		return snap, err
	}
	return snap, nil
}

// Applied returns every row currently marked applied, so a resumed run can
// re-verify each one still matches its recorded content.
func (ps *PathStore) Applied() ([]*domain.PathRecord, error) {
	rows, err := ps.store.db.Query(pathSelectColumns+` WHERE status = ?`, string(domain.StatusApplied))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PathRecord
	for rows.Next() {
		rec, err := scanPathRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Failed returns every row left in status=failed, for the end-of-run summary.
func (ps *PathStore) Failed() ([]*domain.PathRecord, error) {
	rows, err := ps.store.db.Query(pathSelectColumns+` WHERE status = ?`, string(domain.StatusFailed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PathRecord
	for rows.Next() {
		rec, err := scanPathRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const pathSelectColumns = `SELECT rel_path, in_a, in_b, kind_a, kind_b, size_a, size_b, mtime_a, mtime_b,
	hash_a, hash_b, symlink_target_a, symlink_target_b, action_kind, action_source, action_symlink,
	status, decision_choice, winner, awaiting_since, error FROM paths`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPathRow(row *sql.Row) (*domain.PathRecord, error) {
	rec, err := scanInto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func scanPathRows(rows *sql.Rows) (*domain.PathRecord, error) {
	return scanInto(rows)
}

func scanInto(rs rowScanner) (*domain.PathRecord, error) {
	var rec domain.PathRecord
	var inA, inB int
	var kindA, kindB string
	var mtimeA, mtimeB sql.NullString
	var hashA, hashB sql.NullInt64
	var symA, symB sql.NullString
	var actionKind, actionSource, actionSymlink sql.NullString
	var status string
	var decisionChoice, winner sql.NullString
	var awaitingSince sql.NullString
	var errText sql.NullString

	err := rs.Scan(
		&rec.RelPath, &inA, &inB, &kindA, &kindB, &rec.SizeA, &rec.SizeB, &mtimeA, &mtimeB,
		&hashA, &hashB, &symA, &symB, &actionKind, &actionSource, &actionSymlink,
		&status, &decisionChoice, &winner, &awaitingSince, &errText,
	)
	if err != nil {
		return nil, err
	}

	rec.InA = inA == 1
	rec.InB = inB == 1
	rec.KindA = domain.Kind(kindA)
	rec.KindB = domain.Kind(kindB)
	rec.MTimeA = nullableTimestamp(mtimeA)
	rec.MTimeB = nullableTimestamp(mtimeB)
	if hashA.Valid {
		v := uint64(hashA.Int64)
		rec.HashA = &v
	}
	if hashB.Valid {
		v := uint64(hashB.Int64)
		rec.HashB = &v
	}
	rec.SymlinkTargetA = symA.String
	rec.SymlinkTargetB = symB.String
	if actionKind.Valid {
		rec.Action = &domain.Action{
			Kind:          domain.ActionKind(actionKind.String),
			Source:        domain.Side(actionSource.String),
			SymlinkTarget: actionSymlink.String,
		}
	}
	rec.Status = domain.Status(status)
	rec.DecisionChoice = domain.Choice(decisionChoice.String)
	rec.Winner = domain.Side(winner.String)
	rec.AwaitingSince = nullableTimestamp(awaitingSince)
	rec.Error = errText.String

	return &rec, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// snapshotJSON serializes a candidate side for the conflict_log audit columns.
func snapshotJSON(kind domain.Kind, size int64, mtime string, hash *uint64) string {
	m := map[string]interface{}{
		"kind":  kind,
		"size":  size,
		"mtime": mtime,
	}
	if hash != nil {
		m["hash"] = *hash
	}
	b, _ := json.Marshal(m)
	return string(b)
}
