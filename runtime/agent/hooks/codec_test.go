package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/agentcore/runtime/agent/model"
)

func TestEncodeDecodeToolEvent(t *testing.T) {
	hc := NewContext("svc.agent", WithMetadata(map[string]any{"run_id": "r1"})).WithTool("search")
	env, err := Encode(EventToolStart, hc, map[string]any{"q": "golang"})
	require.NoError(t, err)
	require.False(t, env.Timestamp.IsZero())

	b, err := json.Marshal(env)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, EventToolStart, got.Type)
	require.Equal(t, hc, got.Context())
	require.JSONEq(t, `{"q":"golang"}`, string(got.Payload().(json.RawMessage)))
}

func TestEncodeErrorEvent(t *testing.T) {
	pe, err := model.NewProviderError(model.ProviderErrorOptions{
		Provider: "anthropic",
		Kind:     model.ProviderErrorKindRateLimited,
		Message:  "slow down",
	})
	require.NoError(t, err)
	env, err := Encode(EventError, NewContext("a"), fmt.Errorf("turn 3: %w", pe))
	require.NoError(t, err)
	require.Empty(t, env.Data)
	require.Contains(t, env.Error, "slow down")
	require.Equal(t, PublicErrorProviderRateLimited, env.PublicError)
	require.Equal(t, "rate_limited", env.ErrorKind)

	var de *DecodedError
	require.ErrorAs(t, env.Payload().(error), &de)
	require.Equal(t, PublicErrorProviderRateLimited, de.PublicError)

	env, err = Encode(EventError, NewContext("a"), "not an error")
	require.NoError(t, err)
	require.Equal(t, "not an error", env.Error)
	require.Equal(t, PublicErrorInternal, env.PublicError)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	_, err := Encode("bogus", NewContext("a"), nil)
	require.Error(t, err)
	_, err = Encode(EventAgentEnd, NewContext("a"), func() {})
	require.Error(t, err)

	env, err := Encode(EventAgentEnd, NewContext("a"), nil)
	require.NoError(t, err)
	require.Nil(t, env.Payload())

	_, err = Decode([]byte(`{"type":"bogus"}`))
	require.Error(t, err)
	_, err = Decode([]byte(`{"type":"error"}`))
	require.Error(t, err)
	_, err = Decode([]byte(`{`))
	require.Error(t, err)
}

func TestPublicMessage(t *testing.T) {
	require.Empty(t, PublicMessage(nil))
	require.Equal(t, PublicErrorTimeout, PublicMessage(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	require.Equal(t, PublicErrorInternal, PublicMessage(errors.New("x")))
	for kind, want := range map[model.ProviderErrorKind]string{
		model.ProviderErrorKindAuth:           PublicErrorProviderAuth,
		model.ProviderErrorKindInvalidRequest: PublicErrorProviderInvalidRequest,
		model.ProviderErrorKindUnavailable:    PublicErrorProviderUnavailable,
		model.ProviderErrorKindStream:         PublicErrorProviderStream,
		model.ProviderErrorKindUnknown:        PublicErrorProviderDefault,
	} {
		pe, err := model.NewProviderError(model.ProviderErrorOptions{Provider: "openai", Kind: kind})
		require.NoError(t, err)
		require.Equal(t, want, PublicMessage(pe), kind)
	}
}
