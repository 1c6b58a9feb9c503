package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lherron/foldermerge/internal/db"
	"github.com/lherron/foldermerge/internal/domain"
)

// setupTestDB creates a temporary migrated database for a test.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestBeginRunFreshThenResume(t *testing.T) {
	database := setupTestDB(t)
	s := New(database)

	run, mode, err := s.Runs.BeginRun("/a", "/b", "/dest", 4, false)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if mode != domain.ModeFresh {
		t.Errorf("expected fresh mode, got %s", mode)
	}
	if run.ID == "" {
		t.Error("expected non-empty run id")
	}

	again, mode, err := s.Runs.BeginRun("/a", "/b", "/dest", 4, false)
	if err != nil {
		t.Fatalf("BeginRun resume: %v", err)
	}
	if mode != domain.ModeResumed {
		t.Errorf("expected resumed mode, got %s", mode)
	}
	if again.ID != run.ID {
		t.Errorf("expected same run id on resume, got %s vs %s", again.ID, run.ID)
	}
}

func TestBeginRunRootMismatch(t *testing.T) {
	database := setupTestDB(t)
	s := New(database)

	if _, _, err := s.Runs.BeginRun("/a", "/b", "/dest", 4, false); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	_, _, err := s.Runs.BeginRun("/a", "/b", "/other-dest", 4, false)
	if err == nil {
		t.Fatal("expected RootMismatchError, got nil")
	}
	if _, ok := err.(*domain.RootMismatchError); !ok {
		t.Errorf("expected *domain.RootMismatchError, got %T: %v", err, err)
	}
}

func TestUpsertScanResultMergesBothSides(t *testing.T) {
	database := setupTestDB(t)
	s := New(database)

	now := time.Now()
	if err := s.Paths.UpsertScanResult(ScanResult{RelPath: "a.txt", Side: domain.SideA, Kind: domain.KindFile, Size: 10, MTime: now}); err != nil {
		t.Fatalf("UpsertScanResult A: %v", err)
	}
	if err := s.Paths.UpsertScanResult(ScanResult{RelPath: "a.txt", Side: domain.SideB, Kind: domain.KindFile, Size: 12, MTime: now}); err != nil {
		t.Fatalf("UpsertScanResult B: %v", err)
	}

	rec, err := s.Paths.Get("a.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil {
		t.Fatal("expected row to exist")
	}
	if !rec.InA || !rec.InB {
		t.Errorf("expected both sides recorded, got in_a=%v in_b=%v", rec.InA, rec.InB)
	}
	if rec.SizeA != 10 || rec.SizeB != 12 {
		t.Errorf("unexpected sizes: %d, %d", rec.SizeA, rec.SizeB)
	}
	if rec.Status != domain.StatusPending {
		t.Errorf("expected pending status, got %s", rec.Status)
	}
}

func TestSetActionConflictSetsAwaitingDecision(t *testing.T) {
	database := setupTestDB(t)
	s := New(database)
	now := time.Now()
	_ = s.Paths.UpsertScanResult(ScanResult{RelPath: "c.txt", Side: domain.SideA, Kind: domain.KindFile, Size: 5, MTime: now})
	_ = s.Paths.UpsertScanResult(ScanResult{RelPath: "c.txt", Side: domain.SideB, Kind: domain.KindFile, Size: 5, MTime: now})

	if err := s.Paths.SetAction("c.txt", domain.Action{Kind: domain.ActionConflict}); err != nil {
		t.Fatalf("SetAction: %v", err)
	}

	rec, err := s.Paths.Get("c.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != domain.StatusAwaitingDecision {
		t.Errorf("expected awaiting_decision, got %s", rec.Status)
	}
	if rec.AwaitingSince.IsZero() {
		t.Error("expected awaiting_since to be set")
	}
}

func TestClaimReadyIsCompareAndSwap(t *testing.T) {
	database := setupTestDB(t)
	s := New(database)
	now := time.Now()
	_ = s.Paths.UpsertScanResult(ScanResult{RelPath: "d.txt", Side: domain.SideA, Kind: domain.KindFile, Size: 1, MTime: now})
	_ = s.Paths.SetAction("d.txt", domain.Action{Kind: domain.ActionCopy, Source: domain.SideA})

	claimed1, err := s.Paths.ClaimReady(10, "")
	if err != nil {
		t.Fatalf("ClaimReady: %v", err)
	}
	if len(claimed1) != 1 {
		t.Fatalf("expected 1 claimed row, got %d", len(claimed1))
	}

	claimed2, err := s.Paths.ClaimReady(10, "")
	if err != nil {
		t.Fatalf("ClaimReady second: %v", err)
	}
	if len(claimed2) != 0 {
		t.Errorf("expected no rows on second claim, got %d", len(claimed2))
	}
}

func TestConflictLogRecordedOnResolve(t *testing.T) {
	database := setupTestDB(t)
	s := New(database)
	now := time.Now()
	_ = s.Paths.UpsertScanResult(ScanResult{RelPath: "e.txt", Side: domain.SideA, Kind: domain.KindFile, Size: 5, MTime: now})
	_ = s.Paths.UpsertScanResult(ScanResult{RelPath: "e.txt", Side: domain.SideB, Kind: domain.KindFile, Size: 6, MTime: now})
	_ = s.Paths.SetAction("e.txt", domain.Action{Kind: domain.ActionConflict})

	rec, err := s.Paths.Get("e.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := s.Conflicts.Record(rec, domain.ConflictDecision{RelPath: "e.txt", Choice: domain.ChoicePreferNewer, Winner: domain.SideB}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	n, err := s.Conflicts.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 logged conflict, got %d", n)
	}

	rec, err = s.Paths.Get("e.txt")
	if err != nil {
		t.Fatalf("Get after record: %v", err)
	}
	if rec.Status != domain.StatusReady {
		t.Errorf("expected ready status after decision, got %s", rec.Status)
	}
	if rec.Winner != domain.SideB {
		t.Errorf("expected winner B, got %s", rec.Winner)
	}
}
