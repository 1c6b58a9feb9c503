// Package classify turns a path's two-sided scan/hash state into the Action
// the Applier will eventually run. It is a pure function: no I/O, no Store
// access, safe to call from any goroutine on a stable snapshot of a row.
package classify

import "github.com/lherron/foldermerge/internal/domain"

// Classify implements the truth table: which side (if either) is missing
// the path, whether both sides agree on kind and content, and otherwise
// whether policy C's kind/target mismatch applies.
func Classify(rec *domain.PathRecord) domain.Action {
	switch {
	case rec.InA && !rec.InB:
		return oneSided(rec.KindA, domain.SideA, rec.SymlinkTargetA)
	case rec.InB && !rec.InA:
		return oneSided(rec.KindB, domain.SideB, rec.SymlinkTargetB)
	}

	// Both sides present.
	switch {
	case rec.KindA == domain.KindDir && rec.KindB == domain.KindDir:
		return domain.Action{Kind: domain.ActionMkdir}

	case rec.KindA == domain.KindSymlink && rec.KindB == domain.KindSymlink:
		if rec.SymlinkTargetA == rec.SymlinkTargetB {
			return domain.Action{Kind: domain.ActionSymlink, Source: domain.SideA, SymlinkTarget: rec.SymlinkTargetA}
		}
		return domain.Action{Kind: domain.ActionConflict}

	case rec.KindA == domain.KindFile && rec.KindB == domain.KindFile:
		if rec.SizeA != rec.SizeB {
			return domain.Action{Kind: domain.ActionConflict}
		}
		if rec.HashA == nil || rec.HashB == nil {
			// Not yet hashed; caller should not classify prematurely.
			return domain.Action{}
		}
		if *rec.HashA == *rec.HashB {
			return domain.Action{Kind: domain.ActionCopy, Source: domain.SideA}
		}
		return domain.Action{Kind: domain.ActionConflict}

	default:
		// Kind mismatch (e.g. file vs dir): policy C, resolved by mtime.
		return domain.Action{Kind: domain.ActionConflict}
	}
}

// Ready reports whether rec has everything Classify needs (both sides
// scanned, and hashed if both are equal-size files).
func Ready(rec *domain.PathRecord) bool {
	if !rec.InA || !rec.InB {
		return true
	}
	if rec.KindA == domain.KindFile && rec.KindB == domain.KindFile && rec.SizeA == rec.SizeB {
		return rec.HashA != nil && rec.HashB != nil
	}
	return true
}

// ActionForSide builds the Action that recreates whichever side a resolved
// conflict picked as its winner. Used once a Resolver's Choice has been
// turned into a Side, since a conflict's original Action is always
// domain.ActionConflict and carries no source of its own.
func ActionForSide(rec *domain.PathRecord, side domain.Side) domain.Action {
	if side == domain.SideB {
		return oneSided(rec.KindB, domain.SideB, rec.SymlinkTargetB)
	}
	return oneSided(rec.KindA, domain.SideA, rec.SymlinkTargetA)
}

func oneSided(kind domain.Kind, side domain.Side, symlinkTarget string) domain.Action {
	switch kind {
	case domain.KindDir:
		return domain.Action{Kind: domain.ActionMkdir}
	case domain.KindSymlink:
		return domain.Action{Kind: domain.ActionSymlink, Source: side, SymlinkTarget: symlinkTarget}
	default:
		return domain.Action{Kind: domain.ActionCopy, Source: side}
	}
}
