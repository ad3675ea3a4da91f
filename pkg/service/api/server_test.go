package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/burrow/pkg/memory"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/burrow/pkg/tool"
	"github.com/m-mizutani/burrow/pkg/usecase/assistant"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

type fixedGemini struct {
	text string
	err  error
}

func (m *fixedGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(m.text, genai.RoleModel)},
		},
	}, nil
}

func (m *fixedGemini) Embedding(ctx context.Context, text string, dims int32) ([]float32, error) {
	return nil, errors.New("not used")
}

func newTestServer(gemini *fixedGemini) *Server {
	store := memory.New(repository.NewMemory(), nil)
	uc := assistant.New(gemini, tool.New(), store,
		assistant.WithRetryConfig(assistant.RetryConfig{MaxAttempts: 1}))
	return New(uc, "127.0.0.1:0")
}

func postQuery(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery(t *testing.T) {
	s := newTestServer(&fixedGemini{text: "Refunds take 5 business days."})

	rec := postQuery(t, s, `{"prompt": "How long do refunds take?"}`)
	gt.Equal(t, rec.Code, http.StatusOK)

	var resp queryResponse
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	gt.Equal(t, resp.Result, "Refunds take 5 business days.")
}

func TestHandleQueryEmptyPrompt(t *testing.T) {
	s := newTestServer(&fixedGemini{text: "unused"})

	rec := postQuery(t, s, `{"prompt": ""}`)
	gt.Equal(t, rec.Code, http.StatusBadRequest)

	var resp errorResponse
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	gt.Equal(t, resp.Code, "invalid_argument")
}

func TestHandleQueryUpstreamFailure(t *testing.T) {
	s := newTestServer(&fixedGemini{err: errors.New("invalid credentials")})

	rec := postQuery(t, s, `{"prompt": "anything"}`)
	gt.Equal(t, rec.Code, http.StatusBadGateway)

	var resp errorResponse
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	gt.Equal(t, resp.Code, "upstream_capability")
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fixedGemini{text: "unused"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	gt.Equal(t, rec.Code, http.StatusOK)
	gt.S(t, rec.Body.String()).Contains("ok")
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		err    error
		status int
		code   string
	}{
		{goerr.Wrap(model.ErrMissingSessionKey, "x"), http.StatusBadRequest, "missing_session_key"},
		{goerr.Wrap(model.ErrInvalidArgument, "x"), http.StatusBadRequest, "invalid_argument"},
		{goerr.Wrap(model.ErrTimeout, "x"), http.StatusGatewayTimeout, "timeout"},
		{goerr.Wrap(model.ErrUpstreamCapability, "x"), http.StatusBadGateway, "upstream_capability"},
		{goerr.Wrap(model.ErrInvocationFailed, "x"), http.StatusInternalServerError, "invocation_failed"},
		{errors.New("anything else"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			status, code := classify(tc.err)
			gt.Equal(t, status, tc.status)
			gt.Equal(t, code, tc.code)
		})
	}
}
