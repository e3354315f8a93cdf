package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// problemDetails represents an RFC 7807 Problem Details response
type problemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error types
const (
	errorTypeBadRequest   = "https://prestadiario.app/errors/bad-request"
	errorTypeUnauthorized = "https://prestadiario.app/errors/unauthorized"
	errorTypeForbidden    = "https://prestadiario.app/errors/forbidden"
	errorTypeRateLimit    = "https://prestadiario.app/errors/rate-limit"
	errorTypeConflict     = "https://prestadiario.app/errors/conflict"
	errorTypeUnavailable  = "https://prestadiario.app/errors/unavailable"
)

func problem(c echo.Context, status int, errorType, title, detail string) error {
	return c.JSON(status, problemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// unauthorizedError creates an unauthorized error response
func unauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, errorTypeUnauthorized, "Unauthorized", detail)
}

func forbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, errorTypeForbidden, "Forbidden", detail)
}

func unavailableError(c echo.Context, detail string) error {
	return problem(c, http.StatusServiceUnavailable, errorTypeUnavailable, "Service Unavailable", detail)
}
