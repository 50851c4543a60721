package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/transport"
	"github.com/opsmind/auth/pkg/logging"
)

const MsgInternal = "Internal server error"

var kindStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrDuplicateEmail, http.StatusBadRequest},
	{domain.ErrUnknownRole, http.StatusBadRequest},
	{domain.ErrRoleNotSelfAssignable, http.StatusBadRequest},
	{domain.ErrDomainNotAllowed, http.StatusBadRequest},
	{domain.ErrWeakPassword, http.StatusBadRequest},
	{domain.ErrAdminProtected, http.StatusBadRequest},
	{domain.ErrBuildingCodeTaken, http.StatusBadRequest},
	{domain.ErrBuildingNotFound, http.StatusBadRequest},
	{domain.ErrEmployeeIDTaken, http.StatusBadRequest},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrAccountDeactivated, http.StatusUnauthorized},
	{domain.ErrAccountNotFound, http.StatusUnauthorized},
	{domain.ErrNoChallenge, http.StatusUnauthorized},
	{domain.ErrOTPExpired, http.StatusUnauthorized},
	{domain.ErrOTPMismatch, http.StatusUnauthorized},
	{domain.ErrOTPAlreadyUsed, http.StatusUnauthorized},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrRateLimited, http.StatusTooManyRequests},
}

// StatusOf maps a domain failure kind to its HTTP status; unknown kinds are 500.
func StatusOf(err error) int {
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status
		}
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders every failure as the JSON envelope. Internal faults
// only expose their text when development is set.
func ErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(c, err, development)
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logging.FromContext(c.Request().Context()).Error("write_error_response_failed", "error", err)
		}
	}
}

func render(c echo.Context, err error, development bool) (int, transport.Envelope) {
	l := logging.FromContext(c.Request().Context()).With("handler", "error")

	var ve *transport.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, transport.Envelope{Message: transport.MsgValidationFailed, Errors: ve.Fields}
	}

	if de, ok := domain.AsError(err); ok {
		status := StatusOf(de)
		if status != http.StatusInternalServerError {
			return status, transport.Envelope{Message: de.Message, Details: de.Details}
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound && errors.Is(he, echo.ErrNotFound) {
			return he.Code, transport.Failed(fmt.Sprintf("Route %s %s not found", c.Request().Method, c.Request().URL.Path))
		}
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		if he.Code >= http.StatusInternalServerError {
			l.Error("request_failed", "status", he.Code, "error", err)
		}
		return he.Code, transport.Failed(msg)
	}

	l.Error("request_failed", "status", 500, "error", err)
	body := transport.Failed(MsgInternal)
	if development {
		body.Error = err.Error()
	}
	return http.StatusInternalServerError, body
}
