package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gita-knowledge-api/internal/models"
)

// VerseSource looks up verses of the loaded chapter
type VerseSource interface {
	Verse(number int) (models.Verse, error)
}

// VerseHandler handles verse lookup
type VerseHandler struct {
	verses VerseSource
}

// NewVerseHandler creates a new verse handler
func NewVerseHandler(verses VerseSource) *VerseHandler {
	return &VerseHandler{verses: verses}
}

// GetVerse handles GET /verses/:id
func (h *VerseHandler) GetVerse(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Verse id must be a number")
	}

	v, err := h.verses.Verse(n)
	if errors.Is(err, models.ErrVerseNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Verse not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

// RegisterRoutes registers verse routes
func (h *VerseHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/verses/:id", h.GetVerse)
}
