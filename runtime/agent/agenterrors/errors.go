// Package agenterrors defines the typed errors raised by the agent core. Every
// error in this package matches ErrAgents with errors.Is so callers can tell
// agent failures apart from transport or I/O errors, and each type can be
// recovered with errors.As to inspect its fields.
package agenterrors

import (
	"errors"
	"fmt"
)

// ErrAgents is matched by every error defined in this package.
var ErrAgents = errors.New("agents error")

type (
	// UserError reports a configuration defect made by the code using the
	// agent core, such as a guardrail or hook target that cannot be invoked.
	// It is surfaced immediately and never retried.
	UserError struct {
		// Message is the human-readable summary of the defect.
		Message string
		// Cause is the underlying error, if any.
		Cause error
	}

	// ModelBehaviorError reports a model output the run loop cannot act on,
	// for example a call to a tool that does not exist.
	ModelBehaviorError struct {
		Message string
		Cause   error
	}

	// MaxTurnsExceeded reports a run that used up its turn budget.
	MaxTurnsExceeded struct {
		MaxTurns int
	}

	// InputTripwireError is the abort signal raised by the run loop when an
	// input guardrail reports a tripwire.
	InputTripwireError struct {
		// Guardrail is the name of the guardrail that tripped.
		Guardrail string
		// OutputInfo is the guardrail's description of what it found.
		OutputInfo any
	}

	// OutputTripwireError is the abort signal raised by the run loop when an
	// output guardrail reports a tripwire.
	OutputTripwireError struct {
		Guardrail  string
		OutputInfo any
		// AgentOutput is the final output the guardrail rejected.
		AgentOutput any
	}
)

// NewUserError returns a UserError with the given message and optional cause.
func NewUserError(message string, cause error) *UserError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	if message == "" {
		message = "invalid configuration"
	}
	return &UserError{Message: message, Cause: cause}
}

// UserErrorf formats a UserError message.
func UserErrorf(format string, args ...any) *UserError {
	return NewUserError(fmt.Sprintf(format, args...), nil)
}

// NewModelBehaviorError returns a ModelBehaviorError.
func NewModelBehaviorError(message string, cause error) *ModelBehaviorError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ModelBehaviorError{Message: message, Cause: cause}
}

// Error implements error.
func (e *UserError) Error() string { return e.Message }

// Unwrap returns the cause.
func (e *UserError) Unwrap() error { return e.Cause }

// Is matches ErrAgents.
func (e *UserError) Is(target error) bool { return target == ErrAgents }

// Error implements error.
func (e *ModelBehaviorError) Error() string { return e.Message }

// Unwrap returns the cause.
func (e *ModelBehaviorError) Unwrap() error { return e.Cause }

// Is matches ErrAgents.
func (e *ModelBehaviorError) Is(target error) bool { return target == ErrAgents }

// Error implements error.
func (e *MaxTurnsExceeded) Error() string {
	return fmt.Sprintf("max turns (%d) exceeded", e.MaxTurns)
}

// Is matches ErrAgents.
func (e *MaxTurnsExceeded) Is(target error) bool { return target == ErrAgents }

// Error implements error.
func (e *InputTripwireError) Error() string {
	return fmt.Sprintf("Guardrail %s triggered tripwire", e.Guardrail)
}

// Is matches ErrAgents.
func (e *InputTripwireError) Is(target error) bool { return target == ErrAgents }

// Error implements error.
func (e *OutputTripwireError) Error() string {
	return fmt.Sprintf("Guardrail %s triggered tripwire", e.Guardrail)
}

// Is matches ErrAgents.
func (e *OutputTripwireError) Is(target error) bool { return target == ErrAgents }

// IsUserError reports whether err wraps a *UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// IsTripwire reports whether err wraps an input or output tripwire error.
func IsTripwire(err error) bool {
	var in *InputTripwireError
	if errors.As(err, &in) {
		return true
	}
	var out *OutputTripwireError
	return errors.As(err, &out)
}
