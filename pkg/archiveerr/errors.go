// Package archiveerr defines the typed error taxonomy shared by the
// pipelines: codec, container, pathsafety, progress, pack, extract and
// modify construct and classify errors through this package.
// pkg/manifest does not use it; it returns plain errors and its own
// VersionError.
package archiveerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way spec.md §7 enumerates them.
type Kind int

const (
	// Io covers filesystem/stream failures.
	Io Kind = iota
	// Format covers malformed containers: bad magic, truncated header,
	// declared-vs-actual size mismatch.
	Format
	// Unsupported covers an invalid format x operation combination,
	// e.g. writing 7z, or ZIP + Zstd.
	Unsupported
	// InvalidPath covers a path sanitisation rejection.
	InvalidPath
	// SymlinkLoop covers a symlink cycle detected while following links
	// during pack.
	SymlinkLoop
	// CompressionBomb covers a tripped bomb guard.
	CompressionBomb
	// Cancelled covers an observed cooperative cancellation.
	Cancelled
	// PartialFailure is the aggregate kind returned when at least one
	// per-entry error occurred but others succeeded.
	PartialFailure
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "Io"
	case Format:
		return "Format"
	case Unsupported:
		return "Unsupported"
	case InvalidPath:
		return "InvalidPath"
	case SymlinkLoop:
		return "SymlinkLoop"
	case CompressionBomb:
		return "CompressionBomb"
	case Cancelled:
		return "Cancelled"
	case PartialFailure:
		return "PartialFailure"
	default:
		return "Unknown"
	}
}

// Error is a typed error carrying a Kind, a path where applicable, and
// a wrapped cause.
type Error struct {
	Kind Kind
	Path string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: %s %s", e.Kind, e.Op, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error with the given kind and operation label,
// wrapping cause (which may be nil).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// WithPath constructs an *Error like New, additionally annotated with
// path.
func WithPath(kind Kind, op, path string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

// KindOf returns the Kind carried by err if it (or something it wraps)
// is an *Error, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// EntryFailure records a single per-entry failure during extract,
// pack, or modify; these accumulate into a PartialFailure result
// rather than aborting the whole pipeline.
type EntryFailure struct {
	Path string
	Kind Kind
	Err  error
}

func (f EntryFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Path, f.Err)
}

// Aggregate collects per-entry failures from a pipeline run. A nil
// *Aggregate (or one with no failures) means complete success.
type Aggregate struct {
	Succeeded int
	Skipped   int
	Failures  []EntryFailure
}

// Record appends a per-entry failure.
func (a *Aggregate) Record(path string, kind Kind, err error) {
	a.Failures = append(a.Failures, EntryFailure{Path: path, Kind: kind, Err: err})
}

// Err returns a *PartialFailure error describing the aggregate if any
// entries failed, or nil if everything succeeded (skips do not count
// as failures).
func (a *Aggregate) Err() error {
	if a == nil || len(a.Failures) == 0 {
		return nil
	}
	return &Error{
		Kind: PartialFailure,
		Op:   "pipeline",
		Err:  fmt.Errorf("%d of %d entries failed", len(a.Failures), a.Succeeded+a.Skipped+len(a.Failures)),
	}
}
