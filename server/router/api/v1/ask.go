package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/arcanaworks/grimoire/rag"
)

type askRequest struct {
	Question   string `json:"question"`
	SessionUID string `json:"sessionUid"`
}

func (s *APIV1Service) registerAskRoutes(e *echo.Echo) {
	e.POST("/api/v1/ask/stream", s.handleAskStream)
}

// handleAskStream answers one question as a stream of plain UTF-8 text
// chunks. The response starts with the first generated fragment; failures
// before that point surface as regular HTTP errors, failures after it end
// the stream with whatever prefix was already delivered.
func (s *APIV1Service) handleAskStream(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}

	var req askRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}

	requestID := shortuuid.New()
	slog.Info("ask received", "request", requestID, "user", user.Username, "session", req.SessionUID)

	rw := c.Response()
	started := false
	emit := func(fragment string) error {
		if !started {
			rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
			rw.Header().Set("Cache-Control", "no-cache")
			rw.Header().Set("X-Accel-Buffering", "no")
			rw.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := rw.Write([]byte(fragment)); err != nil {
			return err
		}
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
		return nil
	}

	err = s.Pipeline.Answer(c.Request().Context(), rag.AnswerRequest{
		Question:   req.Question,
		SessionUID: req.SessionUID,
		User:       user,
	}, emit)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuestion) {
			return echo.NewHTTPError(http.StatusBadRequest, "question required")
		}
		slog.Error("ask failed", "request", requestID, "err", err)
		if started {
			// Headers are gone; the client gets the prefix and a closed stream.
			return nil
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate an answer")
	}
	slog.Info("ask completed", "request", requestID)
	return nil
}
