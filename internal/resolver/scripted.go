package resolver

import (
	"context"
	"fmt"

	"github.com/lherron/foldermerge/internal/domain"
)

// Scripted answers conflicts from a fixed lookup table, keyed by relative
// path. Used by integration tests and by automation that has pre-decided
// every conflict out of band. A path missing from Answers is an error
// rather than silently falling back to a default, so a stale fixture fails
// loudly instead of resolving conflicts it was never told about.
type Scripted struct {
	Answers map[string]domain.Choice
}

func (s Scripted) Resolve(ctx context.Context, c domain.Candidate) (domain.Choice, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	choice, ok := s.Answers[c.RelPath]
	if !ok {
		return "", fmt.Errorf("scripted resolver has no answer for %q", c.RelPath)
	}
	return choice, nil
}
