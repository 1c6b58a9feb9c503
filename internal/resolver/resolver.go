// Package resolver defines the pluggable interface the Conflict Broker
// calls to turn a conflicted path into a Choice, plus the three concrete
// implementations this repository ships: interactive, scripted, and policy.
package resolver

import (
	"context"

	"github.com/lherron/foldermerge/internal/domain"
)

// Resolver decides how a single conflict should be resolved. Resolve may
// block indefinitely (an interactive prompt is untimed by design); it
// should only return an error for cancellation or a hard I/O failure, never
// to express "no opinion" (there is always a Choice to return).
type Resolver interface {
	Resolve(ctx context.Context, c domain.Candidate) (domain.Choice, error)
}
