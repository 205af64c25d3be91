package kernelerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := Wrap(RateLimit, "too many requests", errors.New("429"))
	assert.True(t, errors.Is(err, ErrRateLimit))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ServerError, "upstream failed", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(NetworkError))
	assert.True(t, Retryable(GuardrailViolation))
	assert.False(t, Retryable(AuthError))
	assert.False(t, Retryable(Cancelled))
	assert.False(t, Retryable(NoAdapter))
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := map[int]Kind{
		401: AuthError,
		403: AuthError,
		429: RateLimit,
		408: Timeout,
		500: ServerError,
		503: ServerError,
		400: ClientError,
		200: Unknown,
	}
	for status, want := range cases {
		assert.Equal(t, want, ClassifyHTTPStatus(status), "status %d", status)
	}
}
