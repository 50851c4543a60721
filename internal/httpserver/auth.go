package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/service"
	"github.com/opsmind/auth/internal/transport"
	"github.com/opsmind/auth/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req transport.SignupRequest
	if err := bind(c, &req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Signup(ctx, service.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, transport.OK(res.Message, transport.SignupData{
		User:        transport.NewUser(*res.User),
		RequiresOTP: res.RequiresOTP,
	}))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := bind(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(res.Message, transport.LoginData{RequiresOTP: res.RequiresOTP}))
}

func (h *AuthHTTP) VerifyOTP(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_verify_otp")

	var req transport.VerifyOTPRequest
	if err := bind(c, &req); err != nil {
		l.Warn("verify_otp_error", "status", 400, "error", err)
		return err
	}
	purpose, err := domain.ParsePurpose(req.Purpose)
	if err != nil {
		return transport.Invalid("purpose", "Purpose must be either VERIFICATION or LOGIN")
	}

	res, err := h.Svc.VerifyOTP(ctx, req.Email, req.OTP, purpose)
	if err != nil {
		return err
	}

	data := transport.VerifyOTPData{Token: res.Token, RequiresOTP: res.RequiresOTP}
	if res.User != nil {
		u := transport.NewUser(*res.User)
		data.User = &u
	}
	return c.JSON(http.StatusOK, transport.OK(res.Message, data))
}

// ResendOTP always answers 200 with the same message once the request is
// well formed.
func (h *AuthHTTP) ResendOTP(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_resend_otp")

	var req transport.ResendOTPRequest
	if err := bind(c, &req); err != nil {
		l.Warn("resend_otp_error", "status", 400, "error", err)
		return err
	}
	purpose, err := domain.ParsePurpose(req.Purpose)
	if err != nil {
		return transport.Invalid("purpose", "Purpose must be either VERIFICATION or LOGIN")
	}

	res, err := h.Svc.ResendOTP(ctx, req.Email, purpose)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(res.Message, nil))
}
