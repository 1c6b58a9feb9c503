// Package scanner walks the two source trees being merged and reports
// every entry it finds so the Store can build the initial path inventory.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/lherron/foldermerge/internal/domain"
	"github.com/lherron/foldermerge/internal/paths"
)

// Entry is one filesystem entry discovered under a source root.
type Entry struct {
	RelPath       string
	Kind          domain.Kind
	Size          int64
	MTime         time.Time
	SymlinkTarget string
}

// Sink receives entries as the walk discovers them. Implementations should
// return quickly; Walk does not buffer beyond what the OS directory-read
// call itself buffers.
type Sink func(Entry) error

// Options controls what a Walk skips.
type Options struct {
	// ExcludeGlobs are shell-style glob patterns (supporting **) matched
	// against the entry's relative path; matches are skipped entirely,
	// including their subtree for directories.
	ExcludeGlobs []string
}

// Walk performs one depth-first, pre-order traversal of root, invoking sink
// for every entry other than root itself. Directories are always reported
// before their contents (relied on by the Applier's ordering guarantee).
// Symlinks are reported but never followed.
func Walk(ctx context.Context, root string, opts Options, sink Sink) error {
	root = filepath.Clean(root)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		for _, g := range opts.ExcludeGlobs {
			if paths.MatchGlob(g, rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		entry := Entry{RelPath: rel, MTime: info.ModTime()}

		switch {
		case d.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entry.Kind = domain.KindSymlink
			entry.SymlinkTarget = target
		case d.IsDir():
			entry.Kind = domain.KindDir
		default:
			entry.Kind = domain.KindFile
			entry.Size = info.Size()
		}

		return sink(entry)
	})
}
