package bridgeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("canister_id", "must not be empty")
	assert.Equal(t, "canister_id: must not be empty", err.Error())

	bare := &ValidationError{Message: "bad input"}
	assert.Equal(t, "bad input", bare.Error())
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "", errs.Error())

	errs = ValidationErrors{
		NewValidationError("ic_url", "required"),
		NewValidationError("timeout", "must be positive"),
	}
	msg := errs.Error()
	assert.Contains(t, msg, "ic_url: required")
	assert.Contains(t, msg, "timeout: must be positive")
}

func TestUnauthorized_Error(t *testing.T) {
	noReason := &Unauthorized{Principal: "2vxsx-fae"}
	assert.Equal(t, "unauthorized: principal 2vxsx-fae", noReason.Error())

	withReason := &Unauthorized{Principal: "2vxsx-fae", Reason: "not an admin"}
	assert.Equal(t, "unauthorized: principal 2vxsx-fae: not an admin", withReason.Error())
}

func TestNotFound_Error(t *testing.T) {
	err := &NotFound{Kind: "tool", Key: "weather.forecast"}
	assert.Equal(t, "tool not found: weather.forecast", err.Error())
}

func TestProtocolEncode_Unwrap(t *testing.T) {
	cause := errors.New("bad varint")
	err := &ProtocolEncode{Cause: cause}
	assert.ErrorIs(t, err, cause)
}

func TestProtocolDecode_Unwrap(t *testing.T) {
	cause := errors.New("truncated payload")
	err := &ProtocolDecode{Cause: cause}
	assert.ErrorIs(t, err, cause)
}

func TestRpcTransport_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &RpcTransport{Cause: cause}
	assert.ErrorIs(t, err, cause)
}

func TestTimeout_Error(t *testing.T) {
	err := &Timeout{Op: "canister call"}
	assert.Equal(t, "timeout: canister call", err.Error())
}

func TestHttpStatus_Error(t *testing.T) {
	err := &HttpStatus{Code: 503, Body: "service unavailable"}
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "service unavailable")
}

func TestResourceExhausted_Error(t *testing.T) {
	err := &ResourceExhausted{Resource: "timers", Limit: 64}
	assert.Contains(t, err.Error(), "timers")
	assert.Contains(t, err.Error(), "64")
}

func TestState_Error(t *testing.T) {
	err := &State{Want: "Connected", Got: "Idle"}
	assert.Equal(t, "invalid state: want Connected, got Idle", err.Error())
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rpc transport", &RpcTransport{Cause: errors.New("dial tcp: timeout")}, true},
		{"timeout", &Timeout{Op: "call"}, true},
		{"validation", NewValidationError("x", "bad"), false},
		{"not found", &NotFound{Kind: "tool", Key: "x"}, false},
		{"wrapped rpc transport", fmt.Errorf("calling canister: %w", &RpcTransport{Cause: errors.New("eof")}), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestValidationErrors_AsError(t *testing.T) {
	var err error = ValidationErrors{NewValidationError("a", "b")}
	var target ValidationErrors
	require.True(t, errors.As(err, &target))
	require.Len(t, target, 1)
}
