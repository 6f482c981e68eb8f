package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
)

type rebuildResponse struct {
	Status        string `json:"status"`
	DocumentCount int    `json:"documentCount"`
}

func (s *APIV1Service) registerAdminRoutes(e *echo.Echo) {
	e.POST("/api/v1/database/rebuild", s.handleRebuildDatabase)
}

// handleRebuildDatabase re-ingests the corpus into the semantic index.
// Restricted to callers holding the admin role; everyone else gets the
// same generic denial.
func (s *APIV1Service) handleRebuildDatabase(c *echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	if !user.HasRole(s.Profile.AdminRole) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	start := time.Now()
	count, err := s.Ingest.Run(c.Request().Context())
	if err != nil {
		slog.Error("database rebuild failed", "user", user.Username, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "database rebuild failed")
	}
	slog.Info("database rebuilt", "user", user.Username, "chunks", count, "took", time.Since(start))
	return c.JSON(http.StatusOK, rebuildResponse{
		Status:        "success",
		DocumentCount: count,
	})
}
