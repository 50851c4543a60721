package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/models"
	"github.com/opsmind/auth/pkg/logging"
	"github.com/opsmind/auth/pkg/tokens"
)

// ClaimsKey is the echo context key holding the caller's *tokens.Claims.
const ClaimsKey = "auth_claims"

const (
	MsgNoToken      = "Access denied. No token provided."
	MsgInvalidToken = "Invalid or expired token."
	MsgUserGone     = "User not found."
	MsgDeactivated  = "Account has been deactivated."
	MsgForbidden    = "Access denied. Insufficient permissions."
)

type TokenVerifier interface {
	Verify(token string) (*tokens.Claims, error)
}

type AccountLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// Guard authorizes requests. Account state is re-read on every call, so a
// deactivation takes effect on tokens that are already out.
type Guard struct {
	Tokens   TokenVerifier
	Accounts AccountLookup
}

func (g *Guard) Authorize(ctx context.Context, token string, required ...domain.Role) (*tokens.Claims, error) {
	token = strings.TrimSpace(token)
	claims, err := g.Tokens.Verify(token)
	if err != nil {
		logRejected(ctx, token, err)
		return nil, domain.Fail(domain.ErrUnauthenticated, MsgInvalidToken)
	}

	user, err := g.Accounts.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Fail(domain.ErrUnauthenticated, MsgUserGone)
	}
	if err != nil {
		return nil, fmt.Errorf("guard: load account: %w", err)
	}
	if !user.IsActive {
		return nil, domain.Fail(domain.ErrUnauthenticated, MsgDeactivated)
	}

	if len(required) > 0 && !domain.HasAnyRole(claims.Roles, required...) {
		return nil, domain.Fail(domain.ErrForbidden, MsgForbidden)
	}
	return claims, nil
}

// logRejected records who a failed token claimed to be. The claims are
// unverified; the token itself is never logged.
func logRejected(ctx context.Context, token string, reason error) {
	attrs := []any{"reason", reason.Error()}
	if c, err := tokens.Decode(token); err == nil {
		attrs = append(attrs, "sub", c.Subject)
		if c.ExpiresAt != nil {
			attrs = append(attrs, "exp", c.ExpiresAt.UTC().Format(time.RFC3339))
		}
	}
	logging.FromContext(ctx).With("handler", "guard").Warn("token_rejected", attrs...)
}

// RequireRoles authenticates the bearer token and, when roles are given,
// requires the caller to hold one of them.
func (g *Guard) RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ClaimsKey,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return g.Authorize(c.Request().Context(), auth, roles...)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			l := logging.FromContext(c.Request().Context()).With("handler", "guard")

			var missing *echojwt.TokenExtractionError
			if errors.As(err, &missing) {
				l.Warn("auth_rejected", "status", 401, "reason", "no token")
				return domain.Fail(domain.ErrUnauthenticated, MsgNoToken)
			}
			if de, ok := domain.AsError(err); ok {
				l.Warn("auth_rejected", "reason", de.Message)
				return de
			}
			l.Error("auth_failed", "status", 500, "error", err)
			return err
		},
	})
}

// ClaimsFrom returns the claims stored by RequireRoles.
func ClaimsFrom(c echo.Context) (*tokens.Claims, bool) {
	claims, ok := c.Get(ClaimsKey).(*tokens.Claims)
	return claims, ok
}
