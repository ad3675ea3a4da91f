package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/usecase/assistant"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Server is the HTTP invocation boundary of the assistant.
type Server struct {
	echo *echo.Echo
	uc   *assistant.UseCase
	addr string
}

// New creates a new API server listening on addr
func New(uc *assistant.UseCase, addr string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo: e,
		uc:   uc,
		addr: addr,
	}

	e.GET("/health", s.handleHealth)
	e.POST("/v1/query", s.handleQuery)

	return s
}

// Run starts the server and blocks until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "http server failed", goerr.V("addr", s.addr))
		}
	}()

	logging.From(ctx).Info("api server started", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shutdown http server")
		}
		return nil
	}
}

type queryRequest struct {
	Prompt   string `json:"prompt"`
	ActorID  string `json:"actor_id,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

type queryResponse struct {
	Result   string `json:"result"`
	ActorID  string `json:"actor_id,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: "invalid request body",
			Code:  "invalid_argument",
		})
	}

	ctx := c.Request().Context()
	out, err := s.uc.Query(ctx, assistant.Input{
		Prompt:   req.Prompt,
		ActorID:  req.ActorID,
		ThreadID: req.ThreadID,
	})
	if err != nil {
		logging.From(ctx).Error("query failed", "error", err)
		status, code := classify(err)
		return c.JSON(status, errorResponse{Error: err.Error(), Code: code})
	}

	return c.JSON(http.StatusOK, queryResponse{
		Result:   out.Result,
		ActorID:  out.ActorID,
		ThreadID: out.ThreadID,
	})
}

// classify maps the error taxonomy to an HTTP status and a stable code string
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrMissingSessionKey):
		return http.StatusBadRequest, "missing_session_key"
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, model.ErrUpstreamCapability):
		return http.StatusBadGateway, "upstream_capability"
	case errors.Is(err, model.ErrInvocationFailed):
		return http.StatusInternalServerError, "invocation_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
