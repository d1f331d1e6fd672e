package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrTransport", err: ErrTransport, expected: "transport error"},
		{name: "ErrHTTPStatus", err: ErrHTTPStatus, expected: "unexpected page status"},
		{name: "ErrNotFound", err: ErrNotFound, expected: "media url not found"},
		{name: "ErrBlocked", err: ErrBlocked, expected: "blocked by remote service"},
		{name: "ErrUnexpectedStatus", err: ErrUnexpectedStatus, expected: "unexpected redirect status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSentinelUniqueness(t *testing.T) {
	errorList := []error{ErrTransport, ErrHTTPStatus, ErrNotFound, ErrBlocked, ErrUnexpectedStatus}

	for i, err1 := range errorList {
		for j, err2 := range errorList {
			if i != j {
				assert.False(t, errors.Is(err1, err2), "error %d and %d should not be equal", i, j)
			}
		}
	}
}

func TestErrorMatchesOwnSentinelOnly(t *testing.T) {
	tests := []struct {
		err      *Error
		sentinel error
	}{
		{Transport("page", "https://x", errors.New("dial")), ErrTransport},
		{HTTPStatus("page", "https://x", 404, nil), ErrHTTPStatus},
		{NotFound("extract"), ErrNotFound},
		{Blocked("redir", "https://x", nil), ErrBlocked},
		{UnexpectedStatus("redir", "https://x", 500, nil), ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			wrapped := fmt.Errorf("resolve: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			for _, other := range []error{ErrTransport, ErrHTTPStatus, ErrNotFound, ErrBlocked, ErrUnexpectedStatus} {
				if other != tt.sentinel {
					assert.NotErrorIs(t, wrapped, other)
				}
			}
		})
	}
}

func TestTransportUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transport("page", "https://www.smule.com/c/1_2", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBlockedCarries418(t *testing.T) {
	err := Blocked("redir", "https://www.smule.com/redir", []byte("I'm a teapot"))

	assert.True(t, IsBlocked(err))
	assert.True(t, IsStatus(err))
	assert.Equal(t, 418, StatusCode(err))
	assert.Equal(t, "I'm a teapot", err.Snippet)
}

func TestStatusCodeOnForeignError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestSnippetTruncation(t *testing.T) {
	long := strings.Repeat("a", SnippetLimit+50)
	assert.Len(t, Snippet([]byte(long)), SnippetLimit)

	short := "short body"
	assert.Equal(t, short, Snippet([]byte(short)))

	// multi-byte runes are never split
	runes := strings.Repeat("ж", SnippetLimit+1)
	got := Snippet([]byte(runes))
	assert.Equal(t, SnippetLimit, len([]rune(got)))
}

func TestErrorMessageFormat(t *testing.T) {
	err := UnexpectedStatus("redir", "https://x/redir", 500, []byte("oops"))

	assert.Equal(t, `redir: unexpected redirect status (status 500): "oops"`, err.Error())
}

func TestMarshalJSON(t *testing.T) {
	err := Transport("page", "https://x", errors.New("timeout"))

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "TRANSPORT", decoded["code"])
	assert.Equal(t, "timeout", decoded["cause"])
	assert.Equal(t, err.Error(), decoded["error"])
}
