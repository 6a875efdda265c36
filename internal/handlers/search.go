package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gita-knowledge-api/internal/locale"
	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/retrieval"
)

const maxAskLimit = 20

// Retriever answers questions against the verse index
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (*retrieval.Result, error)
}

// AskHandler handles question endpoints
type AskHandler struct {
	retriever Retriever
	catalog   locale.Catalog
}

// NewAskHandler creates a new ask handler
func NewAskHandler(retriever Retriever, catalog locale.Catalog) *AskHandler {
	return &AskHandler{
		retriever: retriever,
		catalog:   catalog,
	}
}

// Ask handles POST /ask
func (h *AskHandler) Ask(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	lang, strs, err := h.catalog.Lookup(req.Lang)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported language")
	}

	limit := req.Limit
	if limit < 0 || limit > maxAskLimit {
		limit = 0
	}

	res, err := h.retriever.Retrieve(ctx, req.Query, limit)
	switch {
	case errors.Is(err, models.ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, "Query is required")
	case errors.Is(err, models.ErrNotReady):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Index is still being built")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Search failed: "+err.Error())
	}

	resp := models.AskResponse{
		Query:   req.Query,
		Lang:    lang,
		Status:  string(res.Status),
		Answers: []models.Answer{},
	}

	switch res.Status {
	case retrieval.StatusNoMatches:
		resp.Message = strs.NoResults
	case retrieval.StatusLowRelevance:
		top := round(res.TopSimilarity, 4)
		resp.TopSimilarity = &top
		resp.Message = strs.LowRelevance(res.TopSimilarity)
	case retrieval.StatusAnswered:
		top := round(res.TopSimilarity, 4)
		resp.TopSimilarity = &top
		precision := round(res.ContextPrecision, 2)
		for _, cand := range res.Candidates {
			resp.Answers = append(resp.Answers, models.Answer{
				VerseID:            cand.ID,
				Verse:              cand.Verse.Verse,
				Text:               cand.Verse.Text,
				Translation:        cand.Verse.Translation,
				EnglishTranslation: cand.Verse.EnglishTranslation,
				Distance:           cand.Distance,
				RelevanceScore:     round(cand.Relevance, 4),
				ContextPrecision:   precision,
				AudioLang:          lang,
			})
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// SampleQuestions handles GET /questions
func (h *AskHandler) SampleQuestions(c echo.Context) error {
	lang, strs, err := h.catalog.Lookup(c.QueryParam("lang"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported language")
	}
	return c.JSON(http.StatusOK, models.SampleQuestionsResponse{
		Lang:      lang,
		Questions: strs.Questions,
	})
}

// RegisterRoutes registers question routes
func (h *AskHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/ask", h.Ask)
	g.GET("/questions", h.SampleQuestions)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
