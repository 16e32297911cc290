package http_test

import (
	"context"
	"errors"
	"testing"
	"time"

	llmhttp "github.com/prototypus/git-ai-reviewer/internal/adapter/llm/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := llmhttp.DefaultRetryConfig()

	assert.Equal(t, 3, config.MaxAttempts)
	assert.Equal(t, 30*time.Second, config.InitialDelay)
	assert.Equal(t, 2.0, config.Multiplier)
}

func TestBackoff(t *testing.T) {
	config := llmhttp.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 30 * time.Second,
		Multiplier:   2.0,
	}

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"attempt 0", 0, 30 * time.Second},
		{"attempt 1", 1, 60 * time.Second},
		{"attempt 2", 2, 120 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No jitter: the delay sequence is exact.
			assert.Equal(t, tt.want, llmhttp.Backoff(tt.attempt, config))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "rate limit error should retry",
			err:  llmhttp.NewRateLimitError("gemini", "too many requests"),
			want: true,
		},
		{
			name: "service unavailable should retry",
			err:  llmhttp.NewServiceUnavailableError("gemini", "overloaded"),
			want: true,
		},
		{
			name: "timeout should retry",
			err:  llmhttp.NewTimeoutError("gemini", "timed out"),
			want: true,
		},
		{
			name: "empty response should retry",
			err:  llmhttp.NewEmptyResponseError("gemini", "no candidates"),
			want: true,
		},
		{
			name: "authentication error should not retry",
			err:  llmhttp.NewAuthenticationError("gemini", "invalid key"),
			want: false,
		},
		{
			name: "invalid request should not retry",
			err:  llmhttp.NewInvalidRequestError("gemini", "bad request"),
			want: false,
		},
		{
			name: "model not found should not retry",
			err:  llmhttp.NewModelNotFoundError("gemini", "model not found"),
			want: false,
		},
		{
			name: "content filtered should not retry",
			err:  llmhttp.NewContentFilteredError("gemini", "blocked"),
			want: false,
		},
		{
			name: "generic error should not retry",
			err:  errors.New("generic error"),
			want: false,
		},
		{
			name: "nil error should not retry",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := llmhttp.ShouldRetry(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// newRecordingRetrier returns a Retrier whose sleeps are captured
// instead of executed, so delay sequences can be asserted exactly.
func newRecordingRetrier(config llmhttp.RetryConfig) (*llmhttp.Retrier, *[]time.Duration) {
	retrier := llmhttp.NewRetrier(config)
	slept := []time.Duration{}
	retrier.SetSleep(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})
	return retrier, &slept
}

func TestRetrierDo_SuccessFirstAttempt(t *testing.T) {
	retrier, slept := newRecordingRetrier(llmhttp.DefaultRetryConfig())

	attempts := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *slept, "no sleep when the first attempt succeeds")
}

func TestRetrierDo_TransientThenSuccess(t *testing.T) {
	retrier, slept := newRecordingRetrier(llmhttp.DefaultRetryConfig())

	attempts := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return llmhttp.NewRateLimitError("gemini", "rate limited")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, *slept)
}

func TestRetrierDo_PermanentErrorImmediate(t *testing.T) {
	retrier, slept := newRecordingRetrier(llmhttp.DefaultRetryConfig())

	attempts := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return llmhttp.NewAuthenticationError("gemini", "invalid API key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "permanent errors are not retried")
	assert.Empty(t, *slept)
	assert.ErrorIs(t, err, &llmhttp.Error{Type: llmhttp.ErrTypeAuthentication})
}

func TestRetrierDo_ExhaustsAttempts(t *testing.T) {
	retrier, slept := newRecordingRetrier(llmhttp.DefaultRetryConfig())

	attempts := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return llmhttp.NewServiceUnavailableError("gemini", "overloaded")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	// Two sleeps: between attempts 1-2 and 2-3. The final failure does
	// not sleep; it surfaces MaxRetriesError.
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, *slept)

	var maxErr *llmhttp.MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 3, maxErr.Attempts)
	assert.ErrorIs(t, maxErr.Last, &llmhttp.Error{Type: llmhttp.ErrTypeServiceUnavailable})
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
}

func TestRetrierDo_GenericErrorNotRetried(t *testing.T) {
	retrier, slept := newRecordingRetrier(llmhttp.DefaultRetryConfig())

	attempts := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("generic error")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *slept)
	assert.Equal(t, "generic error", err.Error())
}

func TestRetrierDo_ContextCanceled(t *testing.T) {
	retrier := llmhttp.NewRetrier(llmhttp.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   2.0,
	})

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := retrier.Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return llmhttp.NewRateLimitError("gemini", "rate limited")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestNewRetrierNormalizesConfig(t *testing.T) {
	retrier := llmhttp.NewRetrier(llmhttp.RetryConfig{MaxAttempts: 0, Multiplier: -1})

	config := retrier.Config()
	assert.Equal(t, 1, config.MaxAttempts)
	assert.Equal(t, 2.0, config.Multiplier)
}
