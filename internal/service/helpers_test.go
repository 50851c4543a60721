package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/events"
	"github.com/opsmind/auth/internal/hash"
	"github.com/opsmind/auth/internal/mail/mailtest"
	"github.com/opsmind/auth/internal/models"
	"github.com/opsmind/auth/internal/otp"
	"github.com/opsmind/auth/internal/repo"
	"github.com/opsmind/auth/pkg/db"
	"github.com/opsmind/auth/pkg/tokens"
)

const (
	testDomain   = "uni.edu"
	testPassword = "Abc12345!"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repo   *repo.GormRepo
	clock  *clock
	outbox *mailtest.Outbox
	events *events.Recorder
	hasher *hash.Hasher
	issuer *tokens.Issuer
	otp    *OTPService
	auth   *AuthService
	admin  *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, repo.Migrate(ctx, gdb))
	require.NoError(t, repo.SeedRoles(ctx, gdb))

	clk := &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	hasher := hash.New(bcrypt.MinCost)
	r := repo.New(gdb, hasher, otp.NewGenerator(6, 5*time.Minute))
	r.Now = clk.Now

	issuer := tokens.NewIssuer([]byte("test-secret"), time.Hour)
	issuer.Now = clk.Now

	f := &fixture{
		repo:   r,
		clock:  clk,
		outbox: &mailtest.Outbox{},
		events: &events.Recorder{},
		hasher: hasher,
		issuer: issuer,
	}
	f.otp = &OTPService{Store: r, Hasher: hasher, Mail: f.outbox, Now: clk.Now}
	f.auth = &AuthService{
		Store:          r,
		OTP:            f.otp,
		Hasher:         hasher,
		Tokens:         issuer,
		Events:         f.events,
		AllowedDomains: []string{testDomain},
	}
	f.admin = &AdminService{Store: r, Hasher: hasher, Events: f.events}
	return f
}

// lastCode returns the newest code mailed to email for purpose.
func (f *fixture) lastCode(t *testing.T, email string, purpose domain.Purpose) string {
	t.Helper()
	code, ok := f.outbox.Last(email, purpose)
	require.True(t, ok, "no %s code sent to %s", purpose, email)
	return code
}

func (f *fixture) newAccount(t *testing.T, email string, verified, active bool, roles ...domain.Role) *models.User {
	t.Helper()
	digest, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)
	u := &models.User{
		Email: email, PasswordHash: digest, FirstName: "Test", LastName: "User",
		IsVerified: verified, IsActive: active,
	}
	require.NoError(t, f.repo.CreateUser(context.Background(), u, roles...))
	return u
}

func requireKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	require.ErrorIs(t, de, kind)
	if msg != "" {
		require.Equal(t, msg, de.Message)
	}
}
