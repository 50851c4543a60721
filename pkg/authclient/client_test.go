package authclient_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/events"
	"github.com/opsmind/auth/internal/hash"
	"github.com/opsmind/auth/internal/httpserver"
	"github.com/opsmind/auth/internal/mail/mailtest"
	"github.com/opsmind/auth/internal/middleware"
	"github.com/opsmind/auth/internal/otp"
	"github.com/opsmind/auth/internal/repo"
	"github.com/opsmind/auth/internal/service"
	"github.com/opsmind/auth/pkg/authclient"
	"github.com/opsmind/auth/pkg/db"
	"github.com/opsmind/auth/pkg/tokens"
)

func startService(t *testing.T) (*authclient.Client, *mailtest.Outbox, *tokens.Issuer) {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, repo.Migrate(ctx, gdb))
	require.NoError(t, repo.SeedRoles(ctx, gdb))

	hasher := hash.New(bcrypt.MinCost)
	r := repo.New(gdb, hasher, otp.NewGenerator(6, 5*time.Minute))
	issuer := tokens.NewIssuer([]byte("e2e-secret"), time.Hour)
	outbox := &mailtest.Outbox{}

	otpSvc := &service.OTPService{Store: r, Hasher: hasher, Mail: outbox}
	e := httpserver.New(httpserver.Options{
		Log:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		OTPLength: 6,
	}, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: &service.AuthService{
			Store: r, OTP: otpSvc, Hasher: hasher, Tokens: issuer, Events: events.Noop{},
			AllowedDomains: []string{"uni.edu"},
		}},
		AdminHandler:  &httpserver.AdminHTTP{Svc: &service.AdminService{Store: r, Hasher: hasher, Events: events.Noop{}}},
		HealthHandler: &httpserver.HealthHTTP{},
		Guard:         &middleware.Guard{Tokens: issuer, Accounts: r},
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return authclient.NewClientWithHTTP(srv.URL+"/", srv.Client()), outbox, issuer
}

func TestClient_EndToEnd(t *testing.T) {
	t.Parallel()
	client, outbox, issuer := startService(t)
	ctx := context.Background()
	email := "doctor@uni.edu"

	require.NoError(t, client.Health(ctx))

	res, err := client.Signup(ctx, authclient.SignupRequest{
		Email: email, Password: "Abc12345!", FirstName: "Dana", LastName: "Doctor", Role: "DOCTOR",
	})
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.True(t, res.RequiresOTP)
	assert.Equal(t, []string{"DOCTOR"}, res.User.Roles)

	_, err = client.Login(ctx, email, "Abc12345!")
	require.NoError(t, err, "an unverified login resends the verification code")

	code, ok := outbox.Last(email, domain.PurposeVerification)
	require.True(t, ok)
	res, err = client.VerifyOTP(ctx, email, code, authclient.PurposeVerification)
	require.NoError(t, err)
	assert.True(t, res.RequiresOTP)
	assert.Empty(t, res.Token)

	code, ok = outbox.Last(email, domain.PurposeLogin)
	require.True(t, ok)
	res, err = client.VerifyOTP(ctx, email, code, authclient.PurposeLogin)
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	claims, err := issuer.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, email, claims.Email)
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()
	client, _, _ := startService(t)
	ctx := context.Background()

	_, err := client.Login(ctx, "nobody@uni.edu", "Abc12345!")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, authclient.StatusOf(err))

	_, err = client.VerifyOTP(ctx, "nobody@uni.edu", "12", authclient.PurposeLogin)
	var apiErr *authclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Len(t, apiErr.Errors, 1)
	assert.Equal(t, "otp", apiErr.Errors[0].Field)

	msg, err := client.ResendOTP(ctx, "nobody@uni.edu", authclient.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, service.MsgResendGeneric, msg)
}
