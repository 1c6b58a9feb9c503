package domain

import "time"

// Phase represents where a Run currently stands in its lifecycle.
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseHashing  Phase = "hashing"
	PhaseApplying Phase = "applying"
	PhaseDone     Phase = "done"
	PhaseAborted  Phase = "aborted"
)

// Side identifies one of the two source trees being merged.
type Side string

const (
	SideA      Side = "a"
	SideB      Side = "b"
	SideNone   Side = ""
)

// Kind is the filesystem entry type recorded for a path on one side.
type Kind string

const (
	KindFile    Kind = "file"
	KindDir     Kind = "dir"
	KindSymlink Kind = "symlink"
	KindAbsent  Kind = "absent"
)

// Status is the position of a PathRecord in the apply state machine.
type Status string

const (
	StatusPending           Status = "pending"
	StatusClassified        Status = "classified"
	StatusAwaitingDecision  Status = "awaiting_decision"
	StatusReady             Status = "ready"
	StatusApplying          Status = "applying"
	StatusApplied           Status = "applied"
	StatusFailed            Status = "failed"
)

// ActionKind names the operation the Applier will run for a path.
type ActionKind string

const (
	ActionCopy         ActionKind = "copy"
	ActionMkdir        ActionKind = "mkdir"
	ActionSymlink      ActionKind = "symlink"
	ActionConflict     ActionKind = "conflict"
)

// Action is the discriminated result the Classifier attaches to a row.
// Only the fields relevant to Kind are meaningful.
type Action struct {
	Kind           ActionKind
	Source         Side   // for copy/symlink: which side to copy from
	SymlinkTarget  string // for symlink: the link target to write
}

// Choice is the operator's answer for a single conflict.
type Choice string

const (
	ChoicePreferNewer      Choice = "prefer_newer"
	ChoicePreferOlder      Choice = "prefer_older"
	ChoiceInspectThenNewer Choice = "inspect_then_newer"
	ChoiceInspectThenOlder Choice = "inspect_then_older"
)

// Underlying reports which bare choice (newer/older) an inspect variant maps to.
func (c Choice) Underlying() Choice {
	switch c {
	case ChoiceInspectThenNewer:
		return ChoicePreferNewer
	case ChoiceInspectThenOlder:
		return ChoicePreferOlder
	default:
		return c
	}
}

// Run is a single merge execution.
type Run struct {
	ID          string
	ARoot       string
	BRoot       string
	DestRoot    string
	Phase       Phase
	Jobs        int
	SerialApply bool
	CreatedAt   time.Time
}

// Mode reports whether a Store was opened fresh or resumed from a prior Run.
type Mode string

const (
	ModeFresh   Mode = "fresh"
	ModeResumed Mode = "resumed"
)

// PathRecord is the per-relative-path row tracked in the Store.
type PathRecord struct {
	RelPath         string
	InA             bool
	InB             bool
	KindA           Kind
	KindB           Kind
	SizeA           int64
	SizeB           int64
	MTimeA          time.Time
	MTimeB          time.Time
	HashA           *uint64
	HashB           *uint64
	SymlinkTargetA  string
	SymlinkTargetB  string
	Action          *Action
	Status          Status
	DecisionChoice  Choice
	Winner          Side
	AwaitingSince   time.Time
	Error           string
}

// NeedsHash reports whether side s still needs its content hash computed
// before the Classifier can decide this row.
func (p *PathRecord) NeedsHash(s Side) bool {
	if p.KindA != KindFile || p.KindB != KindFile {
		return false
	}
	if p.SizeA != p.SizeB {
		return false
	}
	switch s {
	case SideA:
		return p.HashA == nil
	case SideB:
		return p.HashB == nil
	default:
		return false
	}
}

// Candidate is a snapshot of both sides of a conflicted path, handed to a Resolver.
type Candidate struct {
	RelPath  string
	KindA    Kind
	KindB    Kind
	SizeA    int64
	SizeB    int64
	MTimeA   time.Time
	MTimeB   time.Time
	HashA    *uint64
	HashB    *uint64
	AbsPathA string
	AbsPathB string
}

// ConflictDecision is the durable record of how one conflict was resolved.
type ConflictDecision struct {
	RelPath   string
	Choice    Choice
	Winner    Side
	Action    Action
	DecidedAt time.Time
}

// ProgressSnapshot is what the Coordinator publishes on its progress channel.
type ProgressSnapshot struct {
	Total            int64
	Classified       int64
	AwaitingDecision int64
	Applied          int64
	Failed           int64
}
