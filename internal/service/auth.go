package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/events"
	"github.com/opsmind/auth/internal/metrics"
	"github.com/opsmind/auth/internal/models"
	"github.com/opsmind/auth/internal/repo"
	"github.com/opsmind/auth/pkg/logging"
)

// AuthService drives signup, login and OTP verification. A session token is
// only ever issued after a LOGIN challenge is verified.
type AuthService struct {
	Store          AccountStore
	OTP            *OTPService
	Hasher         PasswordHasher
	Tokens         TokenIssuer
	Events         events.Publisher
	Metrics        *metrics.Metrics
	Directory      Directory
	AllowedDomains []string
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

type AuthResult struct {
	Message     string
	User        *repo.UserWithRoles
	Token       string
	RequiresOTP bool
}

func (s *AuthService) domainMessage() string {
	ds := make([]string, 0, len(s.AllowedDomains))
	for _, d := range s.AllowedDomains {
		ds = append(ds, "@"+strings.TrimPrefix(d, "@"))
	}
	return "Email must be from the organization domain: " + strings.Join(ds, ", ")
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	res, err := s.signup(ctx, in)
	if err != nil {
		if de, ok := domain.AsError(err); ok {
			l.Warn("signup_failed", "status", 400, "reason", de.Kind.Error())
		} else {
			l.Error("signup_failed", "status", 500, "error", err)
		}
		s.Metrics.Signup(false)
		return nil, err
	}
	l.Info("signup_successful", "user_id", res.User.User.ID, "role", in.Role)
	s.Metrics.Signup(true)
	return res, nil
}

func (s *AuthService) signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	role, err := domain.ParseRole(in.Role)
	if err != nil || !role.SelfAssignable() {
		return nil, domain.Fail(domain.ErrRoleNotSelfAssignable, MsgRoleNotAllowed)
	}
	email := domain.NormalizeEmail(in.Email)
	if !domain.DomainAllowed(email, s.AllowedDomains) {
		return nil, domain.Fail(domain.ErrDomainNotAllowed, s.domainMessage())
	}
	if problems := domain.PasswordProblems(in.Password); len(problems) > 0 {
		return nil, domain.Fail(domain.ErrWeakPassword, MsgWeakPassword, problems...)
	}

	_, err = s.Store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.Fail(domain.ErrDuplicateEmail, MsgEmailTaken)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("find account: %w", err)
	}

	digest, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: digest,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsVerified:   false,
		IsActive:     true,
	}
	if err := s.Store.CreateUser(ctx, user, role); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.Fail(domain.ErrDuplicateEmail, MsgEmailTaken)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if _, err := s.OTP.IssueAndDeliver(ctx, user.ID, user.Email, domain.PurposeVerification); err != nil {
		return nil, err
	}

	roles := []string{string(role)}
	index(ctx, s.Directory, user, roles)
	publish(ctx, logging.FromContext(ctx), s.Events, events.Event{
		Type: events.UserRegistered, UserID: user.ID, Email: user.Email, Roles: roles,
	})
	return &AuthResult{
		Message:     MsgSignupOK,
		User:        &repo.UserWithRoles{User: *user, Roles: roles},
		RequiresOTP: true,
	}, nil
}

// Login checks the password and sends a challenge. An unknown email and a
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, _, err := s.Store.FindUserWithRoles(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.Hasher.Burn(password)
		l.Warn("login_failed", "status", 401, "reason", "unknown email")
		s.Metrics.Login(false)
		return nil, domain.Fail(domain.ErrInvalidCredentials, MsgInvalidLogin)
	}
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("find account: %w", err)
	}
	l = l.With("user_id", user.ID)

	if !s.Hasher.Verify(password, user.PasswordHash) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		s.Metrics.Login(false)
		return nil, domain.Fail(domain.ErrInvalidCredentials, MsgInvalidLogin)
	}
	if !user.IsActive {
		l.Warn("login_failed", "status", 401, "reason", "account deactivated")
		s.Metrics.Login(false)
		return nil, domain.Fail(domain.ErrAccountDeactivated, MsgDeactivated)
	}
	s.Metrics.Login(true)

	if !user.IsVerified {
		if _, err := s.OTP.IssueAndDeliver(ctx, user.ID, user.Email, domain.PurposeVerification); err != nil {
			return nil, err
		}
		l.Info("login_requires_verification")
		return &AuthResult{Message: MsgVerifyFirst, RequiresOTP: true}, nil
	}

	if _, err := s.OTP.IssueAndDeliver(ctx, user.ID, user.Email, domain.PurposeLogin); err != nil {
		return nil, err
	}
	l.Info("login_challenge_sent")
	return &AuthResult{Message: MsgLoginOTPSent, RequiresOTP: true}, nil
}

// VerifyOTP completes a challenge. VERIFICATION chains into a LOGIN
// challenge; LOGIN yields the session token.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string, purpose domain.Purpose) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.verify_otp", "purpose", purpose)

	userID, err := s.OTP.Verify(ctx, email, code, purpose)
	if err != nil {
		return nil, err
	}

	user, roles, err := s.Store.FindUserByIDWithRoles(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Fail(domain.ErrNotFound, MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	view := &repo.UserWithRoles{User: *user, Roles: roles}

	if purpose == domain.PurposeVerification {
		index(ctx, s.Directory, user, roles)
		publish(ctx, l, s.Events, events.Event{Type: events.UserVerified, UserID: user.ID, Email: user.Email})
		if _, err := s.OTP.IssueAndDeliver(ctx, user.ID, user.Email, domain.PurposeLogin); err != nil {
			return nil, err
		}
		l.Info("account_verified", "user_id", user.ID)
		return &AuthResult{Message: MsgVerifiedOK, User: view, RequiresOTP: true}, nil
	}

	if !user.IsActive {
		l.Warn("login_failed", "status", 401, "reason", "account deactivated", "user_id", user.ID)
		return nil, domain.Fail(domain.ErrAccountDeactivated, MsgDeactivated)
	}
	if !user.IsVerified {
		l.Warn("login_failed", "status", 401, "reason", "account not verified", "user_id", user.ID)
		return nil, domain.Fail(domain.ErrUnauthenticated, MsgNotVerified)
	}
	token, err := s.Tokens.Issue(user.ID, user.Email, roles)
	if err != nil {
		l.Error("token_issue_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	publish(ctx, l, s.Events, events.Event{Type: events.UserLoggedIn, UserID: user.ID, Email: user.Email, Roles: roles})
	l.Info("login_successful", "user_id", user.ID)
	return &AuthResult{Message: MsgLoginOK, User: view, Token: token}, nil
}

// ResendOTP replaces a pending challenge. It answers the same way whether or
// not the account exists or a code was sent.
func (s *AuthService) ResendOTP(ctx context.Context, email string, purpose domain.Purpose) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.resend_otp", "purpose", purpose)
	generic := &AuthResult{Message: MsgResendGeneric}

	user, err := s.Store.FindUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.Hasher.Burn(email)
		l.Info("resend_skipped", "reason", "unknown email")
		return generic, nil
	}
	if err != nil {
		l.Error("resend_failed", "error", err)
		return generic, nil
	}
	l = l.With("user_id", user.ID)
	if !user.IsActive {
		l.Info("resend_skipped", "reason", "account deactivated")
		return generic, nil
	}

	// A resend never opens a new step: VERIFICATION only while unverified,
	// LOGIN only while a password login is pending.
	switch purpose {
	case domain.PurposeVerification:
		if user.IsVerified {
			l.Info("resend_skipped", "reason", "already verified")
			return generic, nil
		}
	case domain.PurposeLogin:
		if !user.IsVerified {
			l.Info("resend_skipped", "reason", "account not verified")
			return generic, nil
		}
		pending, err := s.OTP.HasLiveChallenge(ctx, user.ID, purpose)
		if err != nil {
			l.Error("resend_failed", "error", err)
			return generic, nil
		}
		if !pending {
			l.Info("resend_skipped", "reason", "no pending login")
			return generic, nil
		}
	}

	if _, err := s.OTP.IssueAndDeliver(ctx, user.ID, user.Email, purpose); err != nil {
		l.Error("resend_failed", "error", err)
	}
	return generic, nil
}
