package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/events"
)

func signupInput(email, role string) SignupInput {
	return SignupInput{Email: email, Password: testPassword, FirstName: "Ann", LastName: "Lee", Role: role}
}

func TestAuthService_FullFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Signup(ctx, signupInput("A@Uni.edu", "STUDENT"))
	require.NoError(t, err)
	assert.True(t, res.RequiresOTP)
	assert.Equal(t, MsgSignupOK, res.Message)
	require.NotNil(t, res.User)
	assert.Equal(t, "a@uni.edu", res.User.User.Email)
	assert.False(t, res.User.User.IsVerified)
	assert.Equal(t, []string{"STUDENT"}, res.User.Roles)

	code := f.lastCode(t, "a@uni.edu", domain.PurposeVerification)
	res, err = f.auth.VerifyOTP(ctx, "a@uni.edu", code, domain.PurposeVerification)
	require.NoError(t, err)
	assert.True(t, res.RequiresOTP)
	assert.Empty(t, res.Token)
	assert.Equal(t, MsgVerifiedOK, res.Message)
	assert.True(t, res.User.User.IsVerified)

	code = f.lastCode(t, "a@uni.edu", domain.PurposeLogin)
	res, err = f.auth.VerifyOTP(ctx, "a@uni.edu", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, res.RequiresOTP)
	assert.Equal(t, MsgLoginOK, res.Message)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, []string{"STUDENT"}, res.User.Roles)

	claims, err := f.issuer.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.User.ID, claims.UserID)
	assert.Equal(t, "a@uni.edu", claims.Email)
	assert.Equal(t, []string{"STUDENT"}, claims.Roles)

	assert.Equal(t, []string{events.UserRegistered, events.UserVerified, events.UserLoggedIn}, f.events.Types())
}

func TestAuthService_SignupRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   SignupInput
		kind error
		msg  string
	}{
		{"admin role", signupInput("a@uni.edu", "ADMIN"), domain.ErrRoleNotSelfAssignable, MsgRoleNotAllowed},
		{"technician role", signupInput("a@uni.edu", "TECHNICIAN"), domain.ErrRoleNotSelfAssignable, MsgRoleNotAllowed},
		{"unknown role", signupInput("a@uni.edu", "student"), domain.ErrRoleNotSelfAssignable, MsgRoleNotAllowed},
		{"foreign domain", signupInput("a@gmail.com", "DOCTOR"), domain.ErrDomainNotAllowed, "Email must be from the organization domain: @uni.edu"},
		{"weak password", SignupInput{Email: "a@uni.edu", Password: "abc", FirstName: "Ann", LastName: "Lee", Role: "DOCTOR"}, domain.ErrWeakPassword, MsgWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			_, err := f.auth.Signup(context.Background(), tc.in)
			requireKind(t, err, tc.kind, tc.msg)
			assert.Empty(t, f.outbox.All())
		})
	}
}

func TestAuthService_SignupWeakPasswordItemized(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.auth.Signup(context.Background(), SignupInput{Email: "a@uni.edu", Password: "abcdefgh", Role: "DOCTOR"})
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Contains(t, de.Details, "Password must contain at least one uppercase letter")
	assert.Contains(t, de.Details, "Password must contain at least one number")
	assert.Contains(t, de.Details, "Password must contain at least one special character")
}

func TestAuthService_SignupDuplicate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Signup(ctx, signupInput("a@uni.edu", "DOCTOR"))
	require.NoError(t, err)
	_, err = f.auth.Signup(ctx, signupInput(" A@UNI.EDU ", "STUDENT"))
	requireKind(t, err, domain.ErrDuplicateEmail, MsgEmailTaken)
}

func TestAuthService_LoginGenericFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.newAccount(t, "ann@uni.edu", true, true, domain.RoleDoctor)

	_, errWrong := f.auth.Login(ctx, "ann@uni.edu", "Wrong123!")
	_, errMissing := f.auth.Login(ctx, "nobody@uni.edu", testPassword)

	requireKind(t, errWrong, domain.ErrInvalidCredentials, MsgInvalidLogin)
	requireKind(t, errMissing, domain.ErrInvalidCredentials, MsgInvalidLogin)
	assert.Equal(t, errWrong.Error(), errMissing.Error())
	assert.Empty(t, f.outbox.All())
}

func TestAuthService_LoginStates(t *testing.T) {
	t.Parallel()

	t.Run("deactivated", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.newAccount(t, "ann@uni.edu", true, false, domain.RoleDoctor)
		_, err := f.auth.Login(context.Background(), "ann@uni.edu", testPassword)
		requireKind(t, err, domain.ErrAccountDeactivated, MsgDeactivated)
	})

	t.Run("unverified gets a verification code", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.newAccount(t, "ann@uni.edu", false, true, domain.RoleDoctor)
		res, err := f.auth.Login(context.Background(), "ann@uni.edu", testPassword)
		require.NoError(t, err)
		assert.True(t, res.RequiresOTP)
		assert.Equal(t, MsgVerifyFirst, res.Message)
		f.lastCode(t, "ann@uni.edu", domain.PurposeVerification)
		_, sentLogin := f.outbox.Last("ann@uni.edu", domain.PurposeLogin)
		assert.False(t, sentLogin)
	})

	t.Run("verified gets a login code and no token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.newAccount(t, "ann@uni.edu", true, true, domain.RoleDoctor)
		res, err := f.auth.Login(context.Background(), "ANN@uni.edu", testPassword)
		require.NoError(t, err)
		assert.True(t, res.RequiresOTP)
		assert.Empty(t, res.Token)
		assert.Equal(t, MsgLoginOTPSent, res.Message)
		f.lastCode(t, "ann@uni.edu", domain.PurposeLogin)
	})

	t.Run("delivery failure does not block login", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.newAccount(t, "ann@uni.edu", true, true, domain.RoleDoctor)
		f.outbox.SetFail(true)
		res, err := f.auth.Login(context.Background(), "ann@uni.edu", testPassword)
		require.NoError(t, err)
		assert.True(t, res.RequiresOTP)
	})
}

func TestAuthService_VerifyLoginBlockedWhenDeactivated(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.newAccount(t, "ann@uni.edu", true, true, domain.RoleDoctor)

	_, err := f.auth.Login(ctx, u.Email, testPassword)
	require.NoError(t, err)
	code := f.lastCode(t, u.Email, domain.PurposeLogin)

	require.NoError(t, f.repo.SetActive(ctx, u.ID, false))
	_, err = f.auth.VerifyOTP(ctx, u.Email, code, domain.PurposeLogin)
	requireKind(t, err, domain.ErrAccountDeactivated, MsgDeactivated)
}

func TestAuthService_ResendIsGeneric(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.newAccount(t, "ann@uni.edu", false, true, domain.RoleStudent)

	known, err := f.auth.ResendOTP(ctx, "ann@uni.edu", domain.PurposeVerification)
	require.NoError(t, err)
	unknown, err := f.auth.ResendOTP(ctx, "ghost@uni.edu", domain.PurposeVerification)
	require.NoError(t, err)

	assert.Equal(t, MsgResendGeneric, known.Message)
	assert.Equal(t, known, unknown)
	assert.Len(t, f.outbox.All(), 1)

	f.outbox.SetFail(true)
	failed, err := f.auth.ResendOTP(ctx, "ann@uni.edu", domain.PurposeVerification)
	require.NoError(t, err)
	assert.Equal(t, known, failed)
}

func TestAuthService_IndexesSelfSignups(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	dir := newFakeDirectory()
	f.auth.Directory = dir
	ctx := context.Background()

	res, err := f.auth.Signup(ctx, signupInput("c@uni.edu", "DOCTOR"))
	require.NoError(t, err)
	id := res.User.User.ID
	require.Contains(t, dir.docs, id)
	assert.False(t, dir.docs[id].IsVerified)

	code := f.lastCode(t, "c@uni.edu", domain.PurposeVerification)
	_, err = f.auth.VerifyOTP(ctx, "c@uni.edu", code, domain.PurposeVerification)
	require.NoError(t, err)
	assert.True(t, dir.docs[id].IsVerified)
	assert.Equal(t, []string{"DOCTOR"}, dir.docs[id].Roles)
}

func TestAuthService_ResendLoginRequiresPendingLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.newAccount(t, "ann@uni.edu", true, true, domain.RoleDoctor)

	res, err := f.auth.ResendOTP(ctx, u.Email, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, MsgResendGeneric, res.Message)
	assert.Zero(t, f.outbox.Count(), "no password step, no login code")

	_, err = f.auth.Login(ctx, u.Email, testPassword)
	require.NoError(t, err)
	first := f.lastCode(t, u.Email, domain.PurposeLogin)

	_, err = f.auth.ResendOTP(ctx, u.Email, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, 2, f.outbox.Count())
	second := f.lastCode(t, u.Email, domain.PurposeLogin)

	if first != second {
		_, err = f.auth.VerifyOTP(ctx, u.Email, first, domain.PurposeLogin)
		requireKind(t, err, domain.ErrOTPMismatch, MsgOTPMismatch)
	}
	out, err := f.auth.VerifyOTP(ctx, u.Email, second, domain.PurposeLogin)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)

	// the challenge is spent, so there is nothing left to resend
	_, err = f.auth.ResendOTP(ctx, u.Email, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, 2, f.outbox.Count())
}

func TestAuthService_ResendVerificationOnlyWhileUnverified(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.newAccount(t, "done@uni.edu", true, true, domain.RoleStudent)
	f.newAccount(t, "new@uni.edu", false, true, domain.RoleStudent)

	_, err := f.auth.ResendOTP(ctx, "done@uni.edu", domain.PurposeVerification)
	require.NoError(t, err)
	assert.Zero(t, f.outbox.Count())

	_, err = f.auth.ResendOTP(ctx, "new@uni.edu", domain.PurposeVerification)
	require.NoError(t, err)
	assert.Equal(t, 1, f.outbox.Count())
}

func TestAuthService_UnverifiedAccountGetsNoSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.newAccount(t, "eve@uni.edu", false, true, domain.RoleStudent)

	_, err := f.auth.ResendOTP(ctx, u.Email, domain.PurposeLogin)
	require.NoError(t, err)
	_, ok := f.outbox.Last(u.Email, domain.PurposeLogin)
	assert.False(t, ok, "an unverified account is never sent a login code")

	// even a LOGIN challenge that exists cannot yield a token
	code, _, err := f.repo.CreateOTPChallenge(ctx, u.ID, domain.PurposeLogin)
	require.NoError(t, err)
	res, err := f.auth.VerifyOTP(ctx, u.Email, code, domain.PurposeLogin)
	requireKind(t, err, domain.ErrUnauthenticated, MsgNotVerified)
	assert.Nil(t, res)

	stored, err := f.repo.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
}
