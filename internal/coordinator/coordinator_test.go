package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lherron/foldermerge/internal/domain"
	"github.com/lherron/foldermerge/internal/resolver"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestRunMergesNonConflictingTrees(t *testing.T) {
	tmp := t.TempDir()
	aRoot := filepath.Join(tmp, "a")
	bRoot := filepath.Join(tmp, "b")
	destRoot := filepath.Join(tmp, "dest")

	writeFile(t, filepath.Join(aRoot, "only_a.txt"), "hello from a")
	writeFile(t, filepath.Join(bRoot, "only_b.txt"), "hello from b")
	writeFile(t, filepath.Join(aRoot, "shared.txt"), "same content")
	writeFile(t, filepath.Join(bRoot, "shared.txt"), "same content")

	opts := Options{
		ARoot:    aRoot,
		BRoot:    bRoot,
		DestRoot: destRoot,
		DBPath:   filepath.Join(tmp, "merge.db"),
		Jobs:     2,
		Resolver: resolver.Policy{Choice: domain.ChoicePreferNewer},
	}

	c, run, mode, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	if mode != domain.ModeFresh {
		t.Errorf("expected fresh mode, got %s", mode)
	}

	result, err := c.Run(context.Background(), run, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Aborted {
		t.Fatal("expected run to complete")
	}
	if result.Final.Failed != 0 {
		t.Errorf("expected no failures, got %d", result.Final.Failed)
	}

	for _, rel := range []string{"only_a.txt", "only_b.txt", "shared.txt"} {
		if _, err := os.Stat(filepath.Join(destRoot, rel)); err != nil {
			t.Errorf("expected %s to exist in destination: %v", rel, err)
		}
	}
}

func TestRunResolvesConflictWithPolicyResolver(t *testing.T) {
	tmp := t.TempDir()
	aRoot := filepath.Join(tmp, "a")
	bRoot := filepath.Join(tmp, "b")
	destRoot := filepath.Join(tmp, "dest")

	writeFile(t, filepath.Join(aRoot, "conflict.txt"), "version a")
	writeFile(t, filepath.Join(bRoot, "conflict.txt"), "version b, longer")

	now := time.Now()
	if err := os.Chtimes(filepath.Join(aRoot, "conflict.txt"), now, now.Add(-time.Hour)); err != nil {
		t.Fatalf("chtimes a: %v", err)
	}
	if err := os.Chtimes(filepath.Join(bRoot, "conflict.txt"), now, now); err != nil {
		t.Fatalf("chtimes b: %v", err)
	}

	opts := Options{
		ARoot:    aRoot,
		BRoot:    bRoot,
		DestRoot: destRoot,
		DBPath:   filepath.Join(tmp, "merge.db"),
		Jobs:     2,
		Resolver: resolver.Policy{Choice: domain.ChoicePreferNewer},
	}

	c, run, _, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	result, err := c.Run(context.Background(), run, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Final.Failed != 0 {
		t.Errorf("expected no failures, got %d", result.Final.Failed)
	}

	got, err := os.ReadFile(filepath.Join(destRoot, "conflict.txt"))
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != "version b, longer" {
		t.Errorf("expected newer side B to win, got %q", got)
	}
}

func TestOpenResumeAfterInterruption(t *testing.T) {
	tmp := t.TempDir()
	aRoot := filepath.Join(tmp, "a")
	bRoot := filepath.Join(tmp, "b")
	destRoot := filepath.Join(tmp, "dest")
	dbPath := filepath.Join(tmp, "merge.db")

	writeFile(t, filepath.Join(aRoot, "f.txt"), "content")

	opts := Options{ARoot: aRoot, BRoot: bRoot, DestRoot: destRoot, DBPath: dbPath, Jobs: 1, Resolver: resolver.Policy{Choice: domain.ChoicePreferNewer}}

	c1, run1, mode1, err := Open(opts)
	if err != nil {
		t.Fatalf("Open first: %v", err)
	}
	if mode1 != domain.ModeFresh {
		t.Errorf("expected fresh, got %s", mode1)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	c2, run2, mode2, err := Open(opts)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	defer c2.Close()
	if mode2 != domain.ModeResumed {
		t.Errorf("expected resumed, got %s", mode2)
	}
	if run2.ID != run1.ID {
		t.Errorf("expected same run id across resume, got %s vs %s", run1.ID, run2.ID)
	}
}

func TestOpenRootMismatchWithoutReset(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "merge.db")

	opts := Options{ARoot: "/a", BRoot: "/b", DestRoot: "/dest", DBPath: dbPath, Resolver: resolver.Policy{}}
	c1, _, _, err := Open(opts)
	if err != nil {
		t.Fatalf("Open first: %v", err)
	}
	c1.Close()

	opts.DestRoot = "/other-dest"
	_, _, _, err = Open(opts)
	if err == nil {
		t.Fatal("expected RootMismatchError")
	}
	if _, ok := err.(*domain.RootMismatchError); !ok {
		t.Errorf("expected *domain.RootMismatchError, got %T: %v", err, err)
	}
}
