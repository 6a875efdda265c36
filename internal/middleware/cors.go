package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gita-knowledge-api/internal/config"
	"github.com/gita-knowledge-api/internal/handlers"
)

// CORSMiddleware returns a configured CORS middleware
func CORSMiddleware() echo.MiddlewareFunc {
	return CORSWithOrigins(config.GetConfig().CORSOrigins)
}

// CORSWithOrigins allows the given origins to call the API and read the session header
func CORSWithOrigins(origins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{handlers.SessionHeader, echo.HeaderXRequestID},
		AllowCredentials: true,
	})
}
