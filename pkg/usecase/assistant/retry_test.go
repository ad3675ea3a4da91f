package assistant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/tool"
	"github.com/m-mizutani/burrow/pkg/usecase/assistant"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

// flakyGemini fails a fixed number of times before answering.
type flakyGemini struct {
	failures int
	err      error
	calls    int
}

func (m *flakyGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.calls++
	if m.calls <= m.failures {
		return nil, m.err
	}
	return textResponse("recovered"), nil
}

func (m *flakyGemini) Embedding(ctx context.Context, text string, dims int32) ([]float32, error) {
	return nil, errors.New("not used")
}

func fastRetry() assistant.RetryConfig {
	return assistant.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRetryTransientFailure(t *testing.T) {
	ctx := context.Background()
	gemini := &flakyGemini{failures: 2, err: errors.New("503 service unavailable")}
	uc := assistant.New(gemini, tool.New(), noMemory(),
		assistant.WithRetryConfig(fastRetry()))

	out, err := uc.Query(ctx, assistant.Input{Prompt: "hello"})
	gt.NoError(t, err)
	gt.Equal(t, out.Result, "recovered")
	gt.Equal(t, gemini.calls, 3)
}

func TestRetryExhausted(t *testing.T) {
	ctx := context.Background()
	gemini := &flakyGemini{failures: 10, err: errors.New("rate limit exceeded")}
	uc := assistant.New(gemini, tool.New(), noMemory(),
		assistant.WithRetryConfig(fastRetry()))

	_, err := uc.Query(ctx, assistant.Input{Prompt: "hello"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrUpstreamCapability))
	gt.Equal(t, gemini.calls, 3)
}

func TestRetrySkipsPermanentFailure(t *testing.T) {
	ctx := context.Background()
	gemini := &flakyGemini{failures: 10, err: errors.New("invalid credentials")}
	uc := assistant.New(gemini, tool.New(), noMemory(),
		assistant.WithRetryConfig(fastRetry()))

	_, err := uc.Query(ctx, assistant.Input{Prompt: "hello"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrUpstreamCapability))

	// Non-transient errors surface without another attempt
	gt.Equal(t, gemini.calls, 1)
}
