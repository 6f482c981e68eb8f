package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/arcanaworks/grimoire/store"
)

type sessionRequest struct {
	Title string `json:"title"`
}

type sessionResponse struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

type messageResponse struct {
	ID        int32  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"createdTs"`
}

func (s *APIV1Service) registerSessionRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/sessions")
	g.GET("", s.listChatSessions)
	g.POST("", s.createChatSession)
	g.GET("/:uid", s.getChatSession)
	g.PATCH("/:uid", s.updateChatSession)
	g.DELETE("/:uid", s.deleteChatSession)
	g.GET("/:uid/messages", s.listChatMessages)
}

func toSessionResponse(sess *store.ChatSession) sessionResponse {
	return sessionResponse{
		UID:       sess.UID,
		Title:     sess.Title,
		CreatedTs: sess.CreatedTs,
		UpdatedTs: sess.UpdatedTs,
	}
}

func (s *APIV1Service) listChatSessions(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	sessions, err := s.Store.ListChatSessions(c.Request().Context(), &store.FindChatSession{
		CreatorID: &user.ID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, toSessionResponse(sess))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) createChatSession(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		req.Title = "New Chat"
	}
	if req.Title == "" {
		req.Title = "New Chat"
	}
	sess, err := s.Store.CreateChatSession(c.Request().Context(), &store.ChatSession{
		UID:       uuid.New().String()[:8],
		CreatorID: user.ID,
		Title:     req.Title,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, toSessionResponse(sess))
}

func (s *APIV1Service) getChatSession(c *echo.Context) error {
	uid := c.Param("uid")
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	sess, err := s.findOwnedSession(c, uid, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (s *APIV1Service) updateChatSession(c *echo.Context) error {
	uid := c.Param("uid")
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	var req sessionRequest
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}
	updated, err := s.Store.UpdateChatSession(c.Request().Context(), &store.UpdateChatSession{
		UID:       uid,
		CreatorID: user.ID,
		Title:     &req.Title,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if updated == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, toSessionResponse(updated))
}

func (s *APIV1Service) deleteChatSession(c *echo.Context) error {
	uid := c.Param("uid")
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	deleted, err := s.Store.DeleteChatSession(c.Request().Context(), uid, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) listChatMessages(c *echo.Context) error {
	uid := c.Param("uid")
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	sess, err := s.findOwnedSession(c, uid, user.ID)
	if err != nil {
		return err
	}
	msgs, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{
		SessionID: sess.ID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedTs: m.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// findOwnedSession loads a session scoped to its owner. Someone else's
// session is indistinguishable from a missing one.
func (s *APIV1Service) findOwnedSession(c *echo.Context, uid, ownerID string) (*store.ChatSession, error) {
	sess, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{
		UID:       &uid,
		CreatorID: &ownerID,
	})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sess == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return sess, nil
}
