package store

import (
	"database/sql"

	"github.com/lherron/foldermerge/internal/domain"
)

// ConflictStore manages the append-only conflict_log table.
type ConflictStore struct {
	store *Store
}

// Record writes a resolved conflict's decision to both the path row and the
// append-only audit log in a single transaction, then advances the path to
// ready. This is the sole write path for a conflict resolution: the two
// writes commit together or not at all.
func (cs *ConflictStore) Record(rec *domain.PathRecord, decision domain.ConflictDecision) error {
	aSnap := snapshotJSON(rec.KindA, rec.SizeA, formatTimestamp(rec.MTimeA), rec.HashA)
	bSnap := snapshotJSON(rec.KindB, rec.SizeB, formatTimestamp(rec.MTimeB), rec.HashB)

	return cs.store.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO conflict_log (rel_path, choice, winner, a_snapshot, b_snapshot) VALUES (?, ?, ?, ?, ?)`,
			rec.RelPath, string(decision.Choice), string(decision.Winner), aSnap, bSnap,
		)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`UPDATE paths SET status = ?, decision_choice = ?, winner = ?, action_kind = ?, action_source = ?, action_symlink = ? WHERE rel_path = ?`,
			string(domain.StatusReady), string(decision.Choice), string(decision.Winner),
			string(decision.Action.Kind), string(decision.Action.Source), nullIfEmpty(decision.Action.SymlinkTarget), rec.RelPath,
		)
		return err
	})
}

// Count returns the number of decisions recorded, used to check property P5
// (log length equals the number of conflict-classified rows) in tests.
func (cs *ConflictStore) Count() (int64, error) {
	var n int64
	err := cs.store.db.QueryRow(`SELECT COUNT(*) FROM conflict_log`).Scan(&n)
	return n, err
}
