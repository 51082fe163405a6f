// Package status defines the outcome envelope returned by actions and services.
// a Status is an immutable value: every mutator returns a new Status and leaves the receiver untouched.
package status

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

// WarningPrefix is prepended to every warning at insertion time.
const WarningPrefix = "Warning: "

// State tells whether a Status was ever set up, and how.
type State int

const (
	// StateUnset is the state of a freshly created Status, neither valid nor failed.
	StateUnset State = iota
	// StateClean means the Status was validated and has no errors.
	StateClean
	// StateErrors means the Status holds at least one error.
	StateErrors
)

// String returns state name for logs.
func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateErrors:
		return "errors"
	default:
		return "unset"
	}
}

var (
	// ErrNotSetup is returned when errors are read before any success or error was set.
	ErrNotSetup = errors.New("status not currently setup")
	// ErrNotStatus is returned by Combine when the argument is not a status-shaped value.
	ErrNotStatus = errors.New("value is not a status")
	// ErrNoErrors is returned when rendering errors of a status without errors.
	ErrNoErrors = errors.New("status has no errors")
)

// ErrorEntry is a single validation error, optionally bound to member names.
type ErrorEntry struct {
	Message string
	Members []string
}

// NewEntry makes an ErrorEntry with a formatted message.
func NewEntry(members []string, format string, args ...any) ErrorEntry {
	return ErrorEntry{Message: sprintf(format, args...), Members: append([]string(nil), members...)}
}

// String renders the entry as "member1,member2: message", or just message without members.
func (e ErrorEntry) String() string {
	if len(e.Members) == 0 {
		return e.Message
	}
	return strings.Join(e.Members, ",") + ": " + e.Message
}

// Outcome is implemented by every status-shaped value.
type Outcome interface {
	Base() Status
}

// Status is the outcome of an operation: errors, warnings and a success message.
// the zero value is unset, i.e. not valid and without errors.
type Status struct {
	state    State
	errs     []ErrorEntry
	warnings []string
	message  string
}

// New returns an unset Status.
func New() Status {
	return Status{}
}

// Success returns a clean Status with the given message.
func Success(format string, args ...any) Status {
	return Status{}.WithSuccess(format, args...)
}

// Fail returns a Status with a single error.
func Fail(format string, args ...any) Status {
	return Status{}.WithError(format, args...)
}

// Base returns the status itself, so Status satisfies Outcome.
func (s Status) Base() Status {
	return s
}

// WithSuccess marks the status clean, clearing any prior errors, and sets the success message.
func (s Status) WithSuccess(format string, args ...any) Status {
	res := s.clone()
	res.state = StateClean
	res.errs = nil
	res.message = sprintf(format, args...)
	return res
}

// WithError appends an error without member names. the success message is reset.
func (s Status) WithError(format string, args ...any) Status {
	return s.withEntries(ErrorEntry{Message: sprintf(format, args...)})
}

// WithNamedError appends an error bound to the named parameter. the success message is reset.
func (s Status) WithNamedError(name, format string, args ...any) Status {
	return s.withEntries(ErrorEntry{Message: sprintf(format, args...), Members: []string{name}})
}

// WithErrors replaces all errors with entries. an empty list leaves the status clean.
func (s Status) WithErrors(entries ...ErrorEntry) Status {
	res := s.clone()
	res.message = ""
	res.errs = copyEntries(entries)
	res.state = StateClean
	if len(res.errs) > 0 {
		res.state = StateErrors
	}
	return res
}

// WithWarning appends a prefixed warning. validity is not affected.
func (s Status) WithWarning(format string, args ...any) Status {
	res := s.clone()
	res.warnings = append(res.warnings, WarningPrefix+sprintf(format, args...))
	return res
}

// Combine merges warnings and errors of other into a copy of s. the success message of other is not copied.
// an unset status stays unset when other has no errors.
func (s Status) Combine(other any) (Status, error) {
	o, ok := other.(Outcome)
	if !ok {
		return s, fmt.Errorf("combine with %T: %w", other, ErrNotStatus)
	}
	ob := o.Base()

	res := s.clone()
	res.warnings = append(res.warnings, ob.warnings...)
	if ob.state == StateErrors {
		res = res.withEntries(ob.errs...)
	}
	return res, nil
}

// State returns the setup state.
func (s Status) State() State {
	return s.state
}

// IsValid is true only for a clean status.
func (s Status) IsValid() bool {
	return s.state == StateClean
}

// HasErrors is true when at least one error is present.
func (s Status) HasErrors() bool {
	return s.state == StateErrors
}

// HasWarnings is true when at least one warning is present.
func (s Status) HasWarnings() bool {
	return len(s.warnings) > 0
}

// Errors returns a copy of the error list. it fails with ErrNotSetup for an unset status.
func (s Status) Errors() ([]ErrorEntry, error) {
	if s.state == StateUnset {
		return nil, ErrNotSetup
	}
	return copyEntries(s.errs), nil
}

// Warnings returns a copy of the warnings, each carrying WarningPrefix.
func (s Status) Warnings() []string {
	if len(s.warnings) == 0 {
		return nil
	}
	return append([]string(nil), s.warnings...)
}

// Message returns the success message, empty when errors were added.
func (s Status) Message() string {
	return s.message
}

// AllErrors renders all errors joined by a newline.
func (s Status) AllErrors() string {
	return s.JoinErrors("\n")
}

// JoinErrors renders all errors joined by sep.
func (s Status) JoinErrors(sep string) string {
	parts := make([]string, 0, len(s.errs))
	for _, e := range s.errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, sep)
}

// ErrorsHTML renders a single error as a paragraph and multiple errors as a list.
func (s Status) ErrorsHTML() (string, error) {
	if s.state != StateErrors {
		return "", ErrNoErrors
	}
	if len(s.errs) == 1 {
		return "<p>" + html.EscapeString(s.errs[0].String()) + "</p>", nil
	}

	var b strings.Builder
	b.WriteString("<ul>")
	for _, e := range s.errs {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(e.String()))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String(), nil
}

// String returns a one-line summary of the status.
func (s Status) String() string {
	switch s.state {
	case StateUnset:
		return "Not currently setup"
	case StateErrors:
		return fmt.Sprintf("Failed with %d %s", len(s.errs), plural(len(s.errs), "error"))
	default:
		if n := len(s.warnings); n > 0 {
			return fmt.Sprintf("%s (has %d %s)", s.message, n, plural(n, "warning"))
		}
		return s.message
	}
}

func (s Status) withEntries(entries ...ErrorEntry) Status {
	res := s.clone()
	res.errs = append(res.errs, copyEntries(entries)...)
	res.message = ""
	if len(res.errs) > 0 {
		res.state = StateErrors
	}
	return res
}

// clone makes a copy that shares no backing arrays with s, so appends never leak into s.
func (s Status) clone() Status {
	res := s
	res.errs = copyEntries(s.errs)
	if len(s.warnings) > 0 {
		res.warnings = append([]string(nil), s.warnings...)
	}
	return res
}

func copyEntries(entries []ErrorEntry) []ErrorEntry {
	if len(entries) == 0 {
		return nil
	}
	res := make([]ErrorEntry, len(entries))
	for i, e := range entries {
		res[i] = ErrorEntry{Message: e.Message, Members: append([]string(nil), e.Members...)}
	}
	return res
}

// sprintf formats only when args are present, so literal '%' in plain messages survives.
func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
