package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type upstreamErr struct{ code int }

func (e *upstreamErr) Error() string { return fmt.Sprintf("upstream %d", e.code) }

func TestProviderError_Unwrap(t *testing.T) {
	cause := &upstreamErr{code: http.StatusTooManyRequests}
	err := fmt.Errorf("edit failed: %w", NewProviderError("openai", cause.code, cause))

	require.ErrorIs(t, err, ErrProvider)

	var got *upstreamErr
	require.ErrorAs(t, err, &got)
	require.Equal(t, http.StatusTooManyRequests, got.code)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	require.True(t, perr.RateLimited())
	require.Contains(t, perr.Error(), "status 429")
}

func TestProviderError_NotRateLimited(t *testing.T) {
	perr := NewProviderError("gemini", 0, errors.New("connection reset"))
	require.False(t, perr.RateLimited())
	require.Equal(t, "gemini request failed: connection reset", perr.Error())
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: boom", ErrConfiguration), "configuration"},
		{fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrCredential), "credential"},
		{NewProviderError("openai", 500, errors.New("boom")), "provider"},
		{fmt.Errorf("%w: empty", ErrData), "data"},
		{errors.New("disk"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}
