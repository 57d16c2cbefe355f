package sketchindex

import (
	"errors"
	"fmt"
)

// ErrSearchAbort is returned by Search when the signature generator's
// enumeration budget (SIG_LIMIT) would be exceeded for the given query
// and error budget k.
//
// This is surfaced as a recoverable error rather than a fatal exit so
// that a library caller is never force-exited. Search returns a nil
// result and this error; the caller may retry with a smaller k.
var ErrSearchAbort = errors.New("sketchindex: signature enumeration would exceed SIG_LIMIT")

// ErrInvariant is the sentinel wrapped by every InvariantError. Use
// errors.Is(err, ErrInvariant) to detect a corrupted index or a build
// bug without matching the message.
var ErrInvariant = errors.New("sketchindex: invariant violated")

// ConfigError reports an out-of-range or inconsistent Config field.
type ConfigError struct {
	Field  string
	Value  float64 // widened from int so a float field (SufThr) reports its actual value
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sketchindex: invalid config field %s=%v: %s", e.Field, e.Value, e.Reason)
}

// IoError wraps an underlying I/O failure encountered while reading or
// writing a sketch stream or a serialised index.
//
// The original underlying error can be accessed via errors.Unwrap.
type IoError struct {
	Op    string // e.g. "read record", "open", "write header"
	cause error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("sketchindex: io error during %s: %v", e.Op, e.cause)
}

func (e *IoError) Unwrap() error { return e.cause }

// NewIoError wraps cause as an IoError tagged with the failing
// operation. Returns nil if cause is nil.
func NewIoError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &IoError{Op: op, cause: cause}
}

// ParseError reports a malformed ASCII sketch record or errs_range
// string.
type ParseError struct {
	Line   int // 1-indexed; 0 if not line-oriented
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("sketchindex: parse error at line %d (%q): %s", e.Line, e.Token, e.Reason)
	}
	return fmt.Sprintf("sketchindex: parse error (%q): %s", e.Token, e.Reason)
}

// ValidationError reports a test-mode mismatch between a searched
// answer set and brute-force ground truth.
type ValidationError struct {
	ExpectedCount int
	ActualCount   int
	Detail        string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sketchindex: validation failed: expected %d results, got %d (%s)",
		e.ExpectedCount, e.ActualCount, e.Detail)
}

// InvariantError indicates a corrupted index or a build-time logic bug:
// non-lexicographic entry ordering, or hash-table probing beyond
// capacity. It is always fatal; callers should treat it as
// non-recoverable.
//
// errors.Is(err, ErrInvariant) reports true for any InvariantError.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("sketchindex: invariant violated: %s", e.Msg)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// NewInvariantError constructs an InvariantError with the given message.
func NewInvariantError(msg string) error {
	return &InvariantError{Msg: msg}
}
