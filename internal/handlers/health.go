package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gita-knowledge-api/internal/models"
)

// IndexCounter reports the number of indexed documents
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}

// ReadinessChecker reports whether the retrieval engine accepts queries
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	index      IndexCounter
	engine     ReadinessChecker
	backend    string
	collection string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(index IndexCounter, engine ReadinessChecker, backend, collection string) *HealthHandler {
	return &HealthHandler{
		index:      index,
		engine:     engine,
		backend:    backend,
		collection: collection,
	}
}

// HealthResponse is the response for basic health check
type HealthResponse struct {
	Status string `json:"status"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// IndexHealth handles GET /health/index
func (h *HealthHandler) IndexHealth(c echo.Context) error {
	resp := models.IndexHealthResponse{
		Backend:    h.backend,
		Collection: h.collection,
		Ready:      h.engine.Ready(),
	}

	count, err := h.index.Count(c.Request().Context())
	if err != nil {
		resp.Status = "error"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.Documents = count

	if !resp.Ready {
		resp.Status = "building"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.Status = "ready"
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/health/index", h.IndexHealth)
}
