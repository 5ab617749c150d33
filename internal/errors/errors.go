package errors

import "fmt"

// Category classifies a failure by how the pipeline should react to it.
type Category int

const (
	// CategoryTransient - network or timeout failure on fetch/LLM calls.
	// Recorded as a failed-filing outcome; the caller may retry.
	CategoryTransient Category = iota
	// CategoryMalformed - unparseable document. Non-fatal: the extractor
	// yields zero candidates and processing continues.
	CategoryMalformed
	// CategoryAmbiguous - entity-resolution tie. Not a real error; routed
	// to review instead of being guessed.
	CategoryAmbiguous
	// CategoryConflict - duplicate/idempotence collision, resolved by
	// upsert semantics.
	CategoryConflict
	// CategoryConfig - invalid or missing configuration. Fatal.
	CategoryConfig
	// CategoryStore - graph store unreachable or write rejected. Fatal
	// for the current run.
	CategoryStore
	// CategoryInternal - unexpected internal state. Fatal.
	CategoryInternal
)

// Error is a categorized error with optional wrapped cause.
type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on category so callers can write errors.Is(err, &Error{Category: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == t.Category
}

// IsFatal reports whether the error should abort the current orchestrator
// run or backfill job rather than be skipped per-filing.
func (e *Error) IsFatal() bool {
	switch e.Category {
	case CategoryConfig, CategoryStore, CategoryInternal:
		return true
	}
	return false
}

// New creates a categorized error.
func New(cat Category, message string) *Error {
	return &Error{Category: cat, Message: message}
}

// Wrap attaches a category to an existing error. Returns nil for nil.
func Wrap(err error, cat Category, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Category: cat, Message: message, Cause: err}
}

// Transientf creates a transient (retryable) error, optionally wrapping
// a cause.
func Transientf(err error, format string, args ...any) *Error {
	return &Error{Category: CategoryTransient, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Malformedf creates a malformed-input error.
func Malformedf(format string, args ...any) *Error {
	return New(CategoryMalformed, fmt.Sprintf(format, args...))
}

// Ambiguousf creates an ambiguous-resolution error.
func Ambiguousf(format string, args ...any) *Error {
	return New(CategoryAmbiguous, fmt.Sprintf(format, args...))
}

// Conflictf creates an idempotence-collision error.
func Conflictf(format string, args ...any) *Error {
	return New(CategoryConflict, fmt.Sprintf(format, args...))
}

// Configf creates a fatal configuration error.
func Configf(format string, args ...any) *Error {
	return New(CategoryConfig, fmt.Sprintf(format, args...))
}

// Storef creates a store error, optionally wrapping a cause.
func Storef(err error, format string, args ...any) *Error {
	return &Error{Category: CategoryStore, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Internalf creates a fatal internal error.
func Internalf(format string, args ...any) *Error {
	return New(CategoryInternal, fmt.Sprintf(format, args...))
}

// IsFatal reports fatality for arbitrary errors; uncategorized errors are
// treated as non-fatal (per-filing isolation is the default).
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.IsFatal()
	}
	return false
}

// CategoryOf returns the category of an error, defaulting to transient
// for uncategorized errors so callers fail safe toward skip-and-continue.
func CategoryOf(err error) Category {
	if e, ok := err.(*Error); ok {
		return e.Category
	}
	return CategoryTransient
}
