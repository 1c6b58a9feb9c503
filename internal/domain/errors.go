package domain

import "fmt"

// StoreUnavailableError wraps a fatal Store I/O or corruption failure.
type StoreUnavailableError struct {
	Path string
	Err  error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable at %s: %v", e.Path, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// SchemaVersionMismatchError is returned when a Store's applied migrations
// don't match what this binary expects.
type SchemaVersionMismatchError struct {
	Path    string
	Current string
}

func (e *SchemaVersionMismatchError) Error() string {
	return fmt.Sprintf("database at %s has schema version %q which this build does not recognize; run with --reset to start over", e.Path, e.Current)
}

// RootMismatchError is returned when --db points at a Store whose recorded
// source/destination roots differ from the ones passed on the command line,
// and --reset was not given.
type RootMismatchError struct {
	StorePath   string
	StoredA     string
	StoredB     string
	StoredDest  string
	RequestedA  string
	RequestedB  string
	RequestedD  string
}

func (e *RootMismatchError) Error() string {
	return fmt.Sprintf(
		"database %s already tracks a run for (%s, %s, %s); refusing to resume it against (%s, %s, %s) without --reset",
		e.StorePath, e.StoredA, e.StoredB, e.StoredDest, e.RequestedA, e.RequestedB, e.RequestedD,
	)
}

// HashMismatchOnResumeError is raised when a row already marked applied
// no longer matches its recorded hash at the destination.
type HashMismatchOnResumeError struct {
	RelPath string
}

func (e *HashMismatchOnResumeError) Error() string {
	return fmt.Sprintf("path %q was recorded applied but destination content has changed since", e.RelPath)
}

// ResolverAbortedError signals the operator interrupted an interactive prompt.
type ResolverAbortedError struct {
	RelPath string
}

func (e *ResolverAbortedError) Error() string {
	return fmt.Sprintf("resolver aborted while deciding %q", e.RelPath)
}

// SourceIOError wraps a non-fatal read failure against one of the two sources.
type SourceIOError struct {
	RelPath string
	Side    Side
	Err     error
}

func (e *SourceIOError) Error() string {
	return fmt.Sprintf("source %s read error for %q: %v", e.Side, e.RelPath, e.Err)
}

func (e *SourceIOError) Unwrap() error { return e.Err }

// DestinationIOError wraps a non-fatal write failure against the destination.
type DestinationIOError struct {
	RelPath string
	Err     error
}

func (e *DestinationIOError) Error() string {
	return fmt.Sprintf("destination write error for %q: %v", e.RelPath, e.Err)
}

func (e *DestinationIOError) Unwrap() error { return e.Err }
