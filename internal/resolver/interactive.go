package resolver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/lherron/foldermerge/internal/domain"
)

// maxInspectBytes bounds how much of each candidate file Interactive will
// read to build a diff; for larger files only the first maxInspectBytes of
// each side are diffed.
const maxInspectBytes = 2 << 20 // 2 MiB

// Interactive prompts a human on In/Out for every conflict, following the
// three-choice shape the original tool offered: keep the newer file, keep
// the older one, or inspect both before deciding.
type Interactive struct {
	In  io.Reader
	Out io.Writer
}

func (r Interactive) Resolve(ctx context.Context, c domain.Candidate) (domain.Choice, error) {
	reader := bufio.NewReader(r.In)
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		yellow.Fprintf(r.Out, "\nCONFLICT: %s\n", c.RelPath)
		cyan.Fprintf(r.Out, "  A: %s  size=%d  mtime=%s  hash=%s\n", c.AbsPathA, c.SizeA, c.MTimeA.Format("2006-01-02 15:04:05"), formatHash(c.HashA))
		cyan.Fprintf(r.Out, "  B: %s  size=%d  mtime=%s  hash=%s\n", c.AbsPathB, c.SizeB, c.MTimeB.Format("2006-01-02 15:04:05"), formatHash(c.HashB))
		fmt.Fprintln(r.Out, "  [1] keep newer   [2] keep older   [3] inspect both first")

		fmt.Fprint(r.Out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", &domain.ResolverAbortedError{RelPath: c.RelPath}
		}

		switch strings.TrimSpace(line) {
		case "1", "n", "newer":
			return domain.ChoicePreferNewer, nil
		case "2", "o", "older":
			return domain.ChoicePreferOlder, nil
		case "3", "i", "inspect":
			r.showDiff(c)
			choice, err := r.askAfterInspect(c, reader)
			if err != nil {
				return "", err
			}
			return choice, nil
		default:
			fmt.Fprintln(r.Out, "  please answer 1, 2, or 3")
		}
	}
}

func (r Interactive) askAfterInspect(c domain.Candidate, reader *bufio.Reader) (domain.Choice, error) {
	fmt.Fprintln(r.Out, "  [1] keep newer   [2] keep older")
	for {
		fmt.Fprint(r.Out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", &domain.ResolverAbortedError{RelPath: c.RelPath}
		}
		switch strings.TrimSpace(line) {
		case "1", "n", "newer":
			return domain.ChoiceInspectThenNewer, nil
		case "2", "o", "older":
			return domain.ChoiceInspectThenOlder, nil
		default:
			fmt.Fprintln(r.Out, "  please answer 1 or 2")
		}
	}
}

func (r Interactive) showDiff(c domain.Candidate) {
	aBytes, aErr := readCapped(c.AbsPathA)
	bBytes, bErr := readCapped(c.AbsPathB)
	if aErr != nil || bErr != nil || looksBinary(aBytes) || looksBinary(bBytes) {
		fmt.Fprintln(r.Out, "  (binary or unreadable content; no textual diff available)")
		return
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(aBytes)),
		B:        difflib.SplitLines(string(bBytes)),
		FromFile: c.AbsPathA,
		ToFile:   c.AbsPathB,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil || text == "" {
		fmt.Fprintln(r.Out, "  (no textual differences found in a byte-identical prefix)")
		return
	}
	fmt.Fprint(r.Out, text)
}

func readCapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, maxInspectBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func looksBinary(b []byte) bool {
	return bytes.IndexByte(b, 0) != -1
}

func formatHash(h *uint64) string {
	if h == nil {
		return "-"
	}
	return fmt.Sprintf("%016x", *h)
}
