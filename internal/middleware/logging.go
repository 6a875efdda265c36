package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/logger"
)

// RequestLogger emits one canonical log line per request and stores a
// request-scoped logger in the request context. Run it after middleware.RequestID.
func RequestLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			reqLogger := base.With(zap.String("request_id", requestID))
			c.SetRequest(req.WithContext(logger.ContextWithLogger(req.Context(), reqLogger)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.Int64("response_bytes", res.Size),
				zap.String("user_agent", req.UserAgent()),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			if res.Status >= 500 {
				reqLogger.Error("http_request", fields...)
			} else {
				reqLogger.Info("http_request", fields...)
			}
			return nil
		}
	}
}

// Recover turns handler panics into a 500 and logs the stack
func Recover(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					base.Error("panic recovered", zap.Any("panic", r), zap.Stack("stacktrace"))
					err = echo.NewHTTPError(http.StatusInternalServerError, "internal error")
				}
			}()
			return next(c)
		}
	}
}
