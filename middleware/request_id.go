package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"image-pipeline/utils/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates X-Request-ID, generating a UUID when the client sent
// none, and stores it in the request context for logging.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.New().String()
			}

			c.Response().Header().Set(RequestIDHeader, requestID)

			ctx := logger.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
