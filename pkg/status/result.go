package status

// Result is a Status that also carries a value on success.
// mutators inherited from Status are shadowed so the outcome stays a Result[T].
type Result[T any] struct {
	Status
	value    T
	hasValue bool
}

// NewResult returns an unset Result.
func NewResult[T any]() Result[T] {
	return Result[T]{}
}

// SuccessResult returns a clean Result holding value.
func SuccessResult[T any](value T, format string, args ...any) Result[T] {
	return Result[T]{}.WithSuccessResult(value, format, args...)
}

// Convert copies warnings and errors of any status-shaped value into a fresh Result without a value.
// the success message is not copied.
func Convert[T any](o Outcome) Result[T] {
	b := o.Base()
	return Result[T]{Status: Status{state: b.state, errs: copyEntries(b.errs), warnings: b.Warnings()}}
}

// WithSuccessResult marks the result clean, stores value and sets the success message.
func (r Result[T]) WithSuccessResult(value T, format string, args ...any) Result[T] {
	return Result[T]{Status: r.Status.WithSuccess(format, args...), value: value, hasValue: true}
}

// WithMessage replaces the success message and keeps the value and state.
func (r Result[T]) WithMessage(format string, args ...any) Result[T] {
	res := r
	res.Status = r.clone()
	res.Status.message = sprintf(format, args...)
	return res
}

// WithSuccess marks the result clean without changing the value.
func (r Result[T]) WithSuccess(format string, args ...any) Result[T] {
	return r.with(r.Status.WithSuccess(format, args...))
}

// WithError appends an error.
func (r Result[T]) WithError(format string, args ...any) Result[T] {
	return r.with(r.Status.WithError(format, args...))
}

// WithNamedError appends an error bound to the named parameter.
func (r Result[T]) WithNamedError(name, format string, args ...any) Result[T] {
	return r.with(r.Status.WithNamedError(name, format, args...))
}

// WithErrors replaces all errors with entries.
func (r Result[T]) WithErrors(entries ...ErrorEntry) Result[T] {
	return r.with(r.Status.WithErrors(entries...))
}

// WithWarning appends a warning.
func (r Result[T]) WithWarning(format string, args ...any) Result[T] {
	return r.with(r.Status.WithWarning(format, args...))
}

// Combine merges warnings and errors of other, see Status.Combine.
func (r Result[T]) Combine(other any) (Result[T], error) {
	s, err := r.Status.Combine(other)
	if err != nil {
		return r, err
	}
	return r.with(s), nil
}

// Value returns the stored value and whether it was set by WithSuccessResult.
// the value is dropped once the result gets errors and does not come back with a later WithSuccess.
func (r Result[T]) Value() (T, bool) {
	if !r.hasValue || r.state == StateErrors {
		var zero T
		return zero, false
	}
	return r.value, true
}

func (r Result[T]) with(s Status) Result[T] {
	res := r
	res.Status = s
	if s.state == StateErrors {
		var zero T
		res.value, res.hasValue = zero, false
	}
	return res
}
