package middleware

import (
	"time"

	"pooled-lending/internal/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// PrincipalHeader names the authenticated caller. Authentication itself
	// happens upstream; the ledger only checks roles.
	PrincipalHeader = "Ax-Principal-Id"
	RequestIDHeader = "Ax-Request-Id"
)

// RequestLogger logs one structured line per request and echoes a request id,
// generating one when the client sent none.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			reqID := req.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(RequestIDHeader, reqID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []any{
				"request_id", reqID,
				"method", req.Method,
				"path", req.URL.Path,
				"route", c.Path(),
				"status", c.Response().Status,
				"principal", req.Header.Get(PrincipalHeader),
				"latency_ms", time.Since(start).Milliseconds(),
			}
			if c.Response().Status >= 500 {
				logger.Get().Errorw("http request", append(fields, "error", err)...)
			} else {
				logger.Get().Infow("http request", fields...)
			}
			return nil
		}
	}
}
