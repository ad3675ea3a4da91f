package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// RetryConfig bounds retries of the completion capability. Transient upstream
// failures are retried with exponential backoff; anything else surfaces
// immediately.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the default bounded retry policy
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryable reports whether the capability error is worth another attempt
func retryable(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit", "quota exceeded", "429",
		"500", "502", "503", "504", "unavailable",
		"connection reset", "temporar",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (u *UseCase) generateWithRetry(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var lastErr error
	delay := u.retry.InitialInterval

	for attempt := 1; attempt <= u.retry.MaxAttempts; attempt++ {
		resp, err := u.gemini.GenerateContent(ctx, contents, config)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			break
		}
		if attempt == u.retry.MaxAttempts {
			break
		}

		logging.From(ctx).Debug("retrying model call",
			"attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(model.ErrUpstreamCapability, "canceled during retry",
				goerr.V("cause", ctx.Err()))
		case <-time.After(delay):
			delay = min(delay*2, u.retry.MaxInterval)
		}
	}

	return nil, goerr.Wrap(model.ErrUpstreamCapability, "model call failed",
		goerr.V("attempts", u.retry.MaxAttempts), goerr.V("cause", lastErr))
}
