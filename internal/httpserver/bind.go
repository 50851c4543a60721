package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type normalizer interface {
	Normalize()
}

// bind decodes the request into req, normalizes it and runs the validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if n, ok := req.(normalizer); ok {
		n.Normalize()
	}
	return c.Validate(req)
}
