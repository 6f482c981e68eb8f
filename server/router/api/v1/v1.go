// Package v1 exposes the HTTP API: the streaming ask endpoint, session
// management, and the admin rebuild operation.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/arcanaworks/grimoire/rag"
	"github.com/arcanaworks/grimoire/server/auth"
	"github.com/arcanaworks/grimoire/server/profile"
	"github.com/arcanaworks/grimoire/server/runner/ingest"
	"github.com/arcanaworks/grimoire/store"
)

type APIV1Service struct {
	Profile       *profile.Profile
	Store         *store.Store
	Authenticator *auth.Authenticator
	Pipeline      *rag.Pipeline
	Ingest        *ingest.Runner
}

func NewAPIV1Service(
	prof *profile.Profile,
	st *store.Store,
	authenticator *auth.Authenticator,
	pipeline *rag.Pipeline,
	ingestRunner *ingest.Runner,
) *APIV1Service {
	return &APIV1Service{
		Profile:       prof,
		Store:         st,
		Authenticator: authenticator,
		Pipeline:      pipeline,
		Ingest:        ingestRunner,
	}
}

// RegisterRoutes mounts all API routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	s.registerAskRoutes(e)
	s.registerSessionRoutes(e)
	s.registerAdminRoutes(e)
}

// requireAuth resolves the caller from the Authorization header. Any
// verification failure maps to a plain 401.
func (s *APIV1Service) requireAuth(c *echo.Context) (*auth.UserContext, error) {
	authHeader := c.Request().Header.Get("Authorization")
	user, err := s.Authenticator.Authenticate(c.Request().Context(), authHeader)
	if err != nil || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return user, nil
}
