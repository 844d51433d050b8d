package remoteerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PassThrough(t *testing.T) {
	orig := &Normalized{Message: "x", Code: "42"}

	got := Normalize(orig)

	require.NotNil(t, got)
	assert.Equal(t, "x", got.Message)
	assert.Equal(t, "42", got.Code)
	assert.Same(t, orig, got)
}

func TestNormalize_WrappedPassThrough(t *testing.T) {
	orig := New(CodeNotFound, "row missing")
	wrapped := fmt.Errorf("fetching profile: %w", orig)

	got := Normalize(wrapped)

	require.NotNil(t, got)
	assert.Equal(t, CodeNotFound, got.Code)
	assert.Equal(t, "row missing", got.Message)
}

func TestNormalize_PlainError(t *testing.T) {
	got := Normalize(errors.New("y"))

	require.NotNil(t, got)
	assert.Equal(t, "y", got.Message)
	assert.Equal(t, CodeUnknown, got.Code)
}

func TestNormalize_Nil(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}

func TestNormalize_DeadlineExceeded(t *testing.T) {
	got := Normalize(fmt.Errorf("select: %w", context.DeadlineExceeded))

	require.NotNil(t, got)
	assert.Equal(t, CodeTimeout, got.Code)
	assert.True(t, IsTimeout(got))
}

func TestNormalize_NetError(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	got := Normalize(opErr)

	require.NotNil(t, got)
	assert.Equal(t, CodeNetwork, got.Code)
	assert.True(t, IsNetwork(got))
}

func TestFromResponse_StructuredBody(t *testing.T) {
	body := []byte(`{"message":"row not found","code":"PGRST116","details":{"hint":"none"}}`)

	got := FromResponse(406, body)

	assert.Equal(t, "row not found", got.Message)
	assert.Equal(t, CodeRowNotFound, got.Code)
	assert.Equal(t, map[string]any{"hint": "none"}, got.Details)
}

func TestFromResponse_PlainBody(t *testing.T) {
	got := FromResponse(500, []byte("upstream unavailable"))

	assert.Equal(t, "upstream unavailable", got.Message)
	assert.Equal(t, CodeUnknown, got.Code)
}

func TestFromResponse_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{401, CodeUnauthenticated},
		{403, CodeUnauthenticated},
		{404, CodeNotFound},
		{429, CodeRateLimited},
		{500, CodeUnknown},
	}
	for _, tt := range tests {
		got := FromResponse(tt.status, nil)
		assert.Equal(t, tt.code, got.Code, "status %d", tt.status)
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(CodeRowNotFound, "no rows")))
	assert.True(t, IsNotFound(New(CodeNotFound, "gone")))
	assert.False(t, IsNotFound(New(CodeUnknown, "boom")))
	assert.False(t, IsNotFound(nil))
}

func TestIsAuth(t *testing.T) {
	assert.True(t, IsAuth(New(CodeUnauthenticated, "nope")))
	assert.True(t, IsAuth(New(CodeJWTExpired, "expired")))
	assert.True(t, IsAuth(errors.New("JWT expired")))
	assert.True(t, IsAuth(errors.New("authentication required")))
	assert.False(t, IsAuth(errors.New("disk full")))
}
