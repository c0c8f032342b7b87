package agenterrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorsMatchErrAgents(t *testing.T) {
	errs := []error{
		NewUserError("bad hook", nil),
		NewModelBehaviorError("unknown tool", nil),
		&MaxTurnsExceeded{MaxTurns: 3},
		&InputTripwireError{Guardrail: "pii"},
		&OutputTripwireError{Guardrail: "schema"},
	}
	for _, err := range errs {
		require.ErrorIs(t, err, ErrAgents, "%T", err)
		require.ErrorIs(t, fmt.Errorf("wrapped: %w", err), ErrAgents, "%T", err)
	}
	require.NotErrorIs(t, errors.New("plain"), ErrAgents)
}

func TestUserErrorChain(t *testing.T) {
	cause := errors.New("not a function")
	err := NewUserError("", cause)
	require.Equal(t, "not a function", err.Error())
	require.ErrorIs(t, err, cause)
	require.True(t, IsUserError(fmt.Errorf("configure: %w", err)))
	require.False(t, IsUserError(cause))

	require.Equal(t, "invalid configuration", NewUserError("", nil).Error())
	require.Equal(t, "hook 3 is nil", UserErrorf("hook %d is nil", 3).Error())
}

func TestTripwireMessages(t *testing.T) {
	in := &InputTripwireError{Guardrail: "pii", OutputInfo: "ssn found"}
	require.Equal(t, "Guardrail pii triggered tripwire", in.Error())
	require.True(t, IsTripwire(fmt.Errorf("turn aborted: %w", in)))

	out := &OutputTripwireError{Guardrail: "schema", AgentOutput: 42}
	require.Equal(t, "Guardrail schema triggered tripwire", out.Error())
	require.True(t, IsTripwire(out))

	require.False(t, IsTripwire(NewUserError("x", nil)))
	require.Equal(t, "max turns (5) exceeded", (&MaxTurnsExceeded{MaxTurns: 5}).Error())
}
