package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxAttempts: n, BackoffBase: time.Millisecond, BackoffMultiplier: 2, MaxBackoff: 5 * time.Millisecond}
}

func TestRetry_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	out, attempts, err := Retry(context.Background(), fastRetry(3), nil, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("busy"))
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnFatal(t *testing.T) {
	calls := 0
	_, attempts, err := Retry(context.Background(), fastRetry(5), nil, func(context.Context) (int, error) {
		calls++
		return 0, NewFatalError(errors.New("bad key"))
	})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	_, attempts, err := Retry(context.Background(), fastRetry(2), nil, func(context.Context) (int, error) {
		return 0, NewTransientError(context.DeadlineExceeded)
	})
	assert.True(t, IsTransient(err))
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 2, attempts)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _, _ = Retry(context.Background(), RetryConfig{}, nil, func(context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("x"))
	})
	assert.Equal(t, 1, calls)
}

func TestClassifyHTTPStatus(t *testing.T) {
	assert.True(t, IsTransient(ClassifyHTTPStatus(http.StatusBadGateway, nil)))
	assert.True(t, IsTransient(ClassifyHTTPStatus(http.StatusTooManyRequests, nil)))
	assert.True(t, IsFatal(ClassifyHTTPStatus(http.StatusBadRequest, []byte("nope"))))
}

func TestClassifyTransportError(t *testing.T) {
	assert.Nil(t, ClassifyTransportError(nil))
	assert.True(t, IsFatal(ClassifyTransportError(context.Canceled)))
	assert.True(t, IsTransient(ClassifyTransportError(errors.New("connection reset"))))

	fatal := NewFatalError(errors.New("x"))
	assert.Same(t, fatal, ClassifyTransportError(fatal))
}
