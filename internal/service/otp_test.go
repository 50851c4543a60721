package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/models"
)

func TestOTPService_IssueAndVerify(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.newAccount(t, "ann@uni.edu", false, true, domain.RoleStudent)

	ok, err := f.otp.IssueAndDeliver(ctx, u.ID, u.Email, domain.PurposeVerification)
	require.NoError(t, err)
	assert.True(t, ok)

	code := f.lastCode(t, u.Email, domain.PurposeVerification)
	assert.Len(t, code, 6)

	id, err := f.otp.Verify(ctx, u.Email, code, domain.PurposeVerification)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	got, err := f.repo.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
}

func TestOTPService_DeliveryFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.newAccount(t, "ann@uni.edu", true, true, domain.RoleStudent)

	f.outbox.SetFail(true)
	ok, err := f.otp.IssueAndDeliver(ctx, u.ID, u.Email, domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.repo.FindLatestValidOTP(ctx, u.ID, domain.PurposeLogin)
	require.NoError(t, err, "the challenge is stored even when mail fails")
}

func TestOTPService_VerifyFailures(t *testing.T) {
	t.Parallel()

	t.Run("unknown account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.otp.Verify(context.Background(), "ghost@uni.edu", "123456", domain.PurposeLogin)
		requireKind(t, err, domain.ErrAccountNotFound, MsgNoChallenge)
	})

	t.Run("no challenge", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u := f.newAccount(t, "ann@uni.edu", true, true)
		_, err := f.otp.Verify(context.Background(), u.Email, "123456", domain.PurposeLogin)
		requireKind(t, err, domain.ErrNoChallenge, MsgNoChallenge)
	})

	t.Run("wrong purpose", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		u := f.newAccount(t, "ann@uni.edu", true, true)
		_, err := f.otp.IssueAndDeliver(ctx, u.ID, u.Email, domain.PurposeVerification)
		require.NoError(t, err)
		code := f.lastCode(t, u.Email, domain.PurposeVerification)

		_, err = f.otp.Verify(ctx, u.Email, code, domain.PurposeLogin)
		requireKind(t, err, domain.ErrNoChallenge, MsgNoChallenge)
	})

	t.Run("mismatch keeps the challenge", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		u := f.newAccount(t, "ann@uni.edu", true, true)
		_, err := f.otp.IssueAndDeliver(ctx, u.ID, u.Email, domain.PurposeLogin)
		require.NoError(t, err)
		code := f.lastCode(t, u.Email, domain.PurposeLogin)

		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		_, err = f.otp.Verify(ctx, u.Email, wrong, domain.PurposeLogin)
		requireKind(t, err, domain.ErrOTPMismatch, MsgOTPMismatch)

		_, err = f.otp.Verify(ctx, u.Email, code, domain.PurposeLogin)
		require.NoError(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		u := f.newAccount(t, "ann@uni.edu", true, true)
		_, err := f.otp.IssueAndDeliver(ctx, u.ID, u.Email, domain.PurposeLogin)
		require.NoError(t, err)
		code := f.lastCode(t, u.Email, domain.PurposeLogin)

		f.clock.Advance(5*time.Minute + time.Second)
		_, err = f.otp.Verify(ctx, u.Email, code, domain.PurposeLogin)
		requireKind(t, err, domain.ErrNoChallenge, MsgNoChallenge)
	})
}

// staleStore hands out a challenge whose expiry already passed, as a store
// read racing the clock would.
type staleStore struct {
	OTPStore
	rec *models.EmailOTP
}

func (s staleStore) FindLatestValidOTP(context.Context, string, domain.Purpose) (*models.EmailOTP, error) {
	return s.rec, nil
}

func TestOTPService_RechecksExpiry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.newAccount(t, "ann@uni.edu", true, true)

	digest, err := f.hasher.Hash("123456")
	require.NoError(t, err)
	rec := &models.EmailOTP{ID: "otp-1", UserID: u.ID, OTPHash: digest, Purpose: "LOGIN", ExpiresAt: f.clock.Now().Add(-time.Millisecond)}

	svc := &OTPService{Store: staleStore{OTPStore: f.repo, rec: rec}, Hasher: f.hasher, Mail: f.outbox, Now: f.clock.Now}
	_, err = svc.Verify(ctx, u.Email, "123456", domain.PurposeLogin)
	requireKind(t, err, domain.ErrOTPExpired, MsgOTPExpired)
}

func TestOTPService_ReissueInvalidatesPrevious(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.newAccount(t, "ann@uni.edu", true, true)

	_, err := f.otp.IssueAndDeliver(ctx, u.ID, u.Email, domain.PurposeLogin)
	require.NoError(t, err)
	first := f.lastCode(t, u.Email, domain.PurposeLogin)

	_, err = f.otp.IssueAndDeliver(ctx, u.ID, u.Email, domain.PurposeLogin)
	require.NoError(t, err)
	second := f.lastCode(t, u.Email, domain.PurposeLogin)

	if first != second {
		_, err = f.otp.Verify(ctx, u.Email, first, domain.PurposeLogin)
		requireKind(t, err, domain.ErrOTPMismatch, MsgOTPMismatch)
	}
	_, err = f.otp.Verify(ctx, u.Email, second, domain.PurposeLogin)
	require.NoError(t, err)
}

func TestOTPService_VerifyIsExactlyOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.newAccount(t, "ann@uni.edu", true, true)

	_, err := f.otp.IssueAndDeliver(ctx, u.ID, u.Email, domain.PurposeLogin)
	require.NoError(t, err)
	code := f.lastCode(t, u.Email, domain.PurposeLogin)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.otp.Verify(ctx, u.Email, code, domain.PurposeLogin); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())

	_, err = f.otp.Verify(ctx, u.Email, code, domain.PurposeLogin)
	requireKind(t, err, domain.ErrNoChallenge, MsgNoChallenge)
}
