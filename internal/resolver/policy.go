package resolver

import (
	"context"

	"github.com/lherron/foldermerge/internal/domain"
)

// Policy always returns the same bare choice, for unattended runs.
type Policy struct {
	Choice domain.Choice // must be ChoicePreferNewer or ChoicePreferOlder
}

func (p Policy) Resolve(ctx context.Context, c domain.Candidate) (domain.Choice, error) {
	return p.Choice, ctx.Err()
}
