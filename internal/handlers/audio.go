package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gita-knowledge-api/internal/audio"
	"github.com/gita-knowledge-api/internal/models"
)

// SessionHeader carries the client's audio session id
const SessionHeader = "X-Session-ID"

// AudioService resolves and synthesizes verse tracks
type AudioService interface {
	Resolve(ctx context.Context, session string, verse int, lang audio.Language) ([]byte, error)
	Synthesize(ctx context.Context, session string, v models.Verse, lang audio.Language) ([]byte, error)
	ClearSession(ctx context.Context, session string) error
}

// AudioHandler handles audio endpoints
type AudioHandler struct {
	audio  AudioService
	verses VerseSource
}

// NewAudioHandler creates a new audio handler
func NewAudioHandler(svc AudioService, verses VerseSource) *AudioHandler {
	return &AudioHandler{audio: svc, verses: verses}
}

// GetAudio handles GET /audio?verse=&lang=
func (h *AudioHandler) GetAudio(c echo.Context) error {
	v, lang, err := h.parseTrack(c)
	if err != nil {
		return err
	}
	session, err := sessionID(c)
	if err != nil {
		return err
	}

	data, err := h.audio.Resolve(c.Request().Context(), session, v.Verse, lang)
	if errors.Is(err, models.ErrAudioNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Pre-generated audio not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "audio/mpeg", data)
}

// Synthesize handles POST /audio/synthesize?verse=&lang=
func (h *AudioHandler) Synthesize(c echo.Context) error {
	v, lang, err := h.parseTrack(c)
	if err != nil {
		return err
	}
	session, err := sessionID(c)
	if err != nil {
		return err
	}

	data, err := h.audio.Synthesize(c.Request().Context(), session, v, lang)
	if errors.Is(err, audio.ErrSynthesisDisabled) {
		return echo.NewHTTPError(http.StatusNotImplemented, "Speech synthesis is not configured")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Speech synthesis failed: "+err.Error())
	}
	return c.Blob(http.StatusOK, "audio/mpeg", data)
}

// ClearSession handles DELETE /session/audio
func (h *AudioHandler) ClearSession(c echo.Context) error {
	session := c.Request().Header.Get(SessionHeader)
	if session == "" {
		return c.NoContent(http.StatusNoContent)
	}
	if err := validSession(session); err != nil {
		return err
	}
	if err := h.audio.ClearSession(c.Request().Context(), session); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterRoutes registers audio routes
func (h *AudioHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/audio", h.GetAudio)
	g.POST("/audio/synthesize", h.Synthesize)
	g.DELETE("/session/audio", h.ClearSession)
}

func (h *AudioHandler) parseTrack(c echo.Context) (models.Verse, audio.Language, error) {
	n, err := strconv.Atoi(c.QueryParam("verse"))
	if err != nil {
		return models.Verse{}, "", echo.NewHTTPError(http.StatusBadRequest, "verse must be a number")
	}
	lang, err := audio.ParseLanguage(c.QueryParam("lang"))
	if err != nil {
		return models.Verse{}, "", echo.NewHTTPError(http.StatusBadRequest, "lang must be one of sa, kn, en")
	}
	v, err := h.verses.Verse(n)
	if err != nil {
		return models.Verse{}, "", echo.NewHTTPError(http.StatusNotFound, "Verse not found")
	}
	return v, lang, nil
}

// sessionID returns the caller's session, minting one when absent. The id is echoed back.
// A supplied id must be a UUID.
func sessionID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	} else if err := validSession(id); err != nil {
		return "", err
	}
	c.Response().Header().Set(SessionHeader, id)
	return id, nil
}

func validSession(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, SessionHeader+" must be a UUID")
	}
	return nil
}
