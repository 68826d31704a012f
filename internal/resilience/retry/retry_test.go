package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:    attempts,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

func TestWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), fastConfig(3), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoff_SuccessAfterRetry(t *testing.T) {
	attempts := 0
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	err := WithBackoff(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return &HTTPError{StatusCode: 503, Message: "loading"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{2, 3}, retried)
}

func TestWithBackoff_MaxAttemptsExceeded(t *testing.T) {
	testErr := &HTTPError{StatusCode: 500, Message: "Server Error"}
	attempts := 0

	err := WithBackoff(context.Background(), fastConfig(3), func() error {
		attempts++
		return testErr
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, testErr)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestWithBackoff_NonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	testErr := &HTTPError{StatusCode: 400, Message: "bad input"}

	err := WithBackoff(context.Background(), fastConfig(5), func() error {
		attempts++
		return testErr
	})

	assert.Equal(t, testErr, err)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	attempts := 0
	err := WithBackoff(ctx, cfg, func() error {
		attempts++
		cancel()
		return &HTTPError{StatusCode: 502, Message: "gateway"}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoff_RetriesClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}

	attempts := 0
	err := WithBackoff(context.Background(), fastConfig(2), func() error {
		attempts++
		resp, err := client.Get(srv.URL)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts)
}

func TestWithBackoff_PerCallTimeoutRetried(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), fastConfig(3), func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		<-callCtx.Done()
		return fmt.Errorf("huggingface: %w", callCtx.Err())
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoff_CallerDeadlineStopsRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	attempts := 0
	err := WithBackoff(ctx, fastConfig(5), func() error {
		attempts++
		return ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"per-call deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"server error", &HTTPError{StatusCode: 500}, true},
		{"rate limited", &HTTPError{StatusCode: 429}, true},
		{"request timeout", &HTTPError{StatusCode: 408}, true},
		{"unauthorized", &HTTPError{StatusCode: 401}, false},
		{"wrapped server error", fmt.Errorf("huggingface: %w", &HTTPError{StatusCode: 503}), true},
		{"plain error", errors.New("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestProviderConfig(t *testing.T) {
	cfg := ProviderConfig(2, 50*time.Millisecond)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.InitialDelay)

	cfg = ProviderConfig(-1, 0)
	assert.Equal(t, 1, cfg.MaxAttempts)
}
