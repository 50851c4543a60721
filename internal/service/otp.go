package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/mail"
	"github.com/opsmind/auth/internal/metrics"
	"github.com/opsmind/auth/internal/otp"
	"github.com/opsmind/auth/pkg/logging"
)

type OTPService struct {
	Store   OTPStore
	Hasher  PasswordHasher
	Mail    mail.Sender
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// IssueAndDeliver stores a fresh challenge and mails its code. A delivery
// failure is logged and reported as false; only a store failure is an error.
func (s *OTPService) IssueAndDeliver(ctx context.Context, userID, email string, purpose domain.Purpose) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "otp.issue", "user_id", userID, "purpose", purpose)

	code, _, err := s.Store.CreateOTPChallenge(ctx, userID, purpose)
	if err != nil {
		l.Error("otp_issue_failed", "error", err)
		return false, fmt.Errorf("create otp challenge: %w", err)
	}

	if err := s.Mail.SendOTP(ctx, email, code, purpose); err != nil {
		l.Error("otp_delivery_failed", "error", err)
		s.Metrics.OTPIssued(string(purpose), false)
		return false, nil
	}

	l.Info("otp_issued")
	s.Metrics.OTPIssued(string(purpose), true)
	return true, nil
}

// HasLiveChallenge reports whether the account holds an unused, unexpired
// challenge for purpose.
func (s *OTPService) HasLiveChallenge(ctx context.Context, userID string, purpose domain.Purpose) (bool, error) {
	_, err := s.Store.FindLatestValidOTP(ctx, userID, purpose)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	}
	return false, fmt.Errorf("find otp: %w", err)
}

// Verify consumes the latest live challenge of the account for purpose and
// returns the account id. A challenge is accepted at most once.
func (s *OTPService) Verify(ctx context.Context, email, code string, purpose domain.Purpose) (string, error) {
	l := logging.FromContext(ctx).With("svc", "otp.verify", "purpose", purpose)

	userID, err := s.verify(ctx, email, code, purpose)
	if err != nil {
		if de, ok := domain.AsError(err); ok {
			l.Warn("otp_verify_failed", "status", 401, "reason", de.Kind.Error())
		} else {
			l.Error("otp_verify_failed", "status", 500, "error", err)
		}
		s.Metrics.OTPVerified(string(purpose), false)
		return "", err
	}
	l.Info("otp_verified", "user_id", userID)
	s.Metrics.OTPVerified(string(purpose), true)
	return userID, nil
}

func (s *OTPService) verify(ctx context.Context, email, code string, purpose domain.Purpose) (string, error) {
	user, err := s.Store.FindUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.Hasher.Burn(code)
		return "", domain.Fail(domain.ErrAccountNotFound, MsgNoChallenge)
	}
	if err != nil {
		return "", fmt.Errorf("find account: %w", err)
	}

	rec, err := s.Store.FindLatestValidOTP(ctx, user.ID, purpose)
	if errors.Is(err, domain.ErrNotFound) {
		s.Hasher.Burn(code)
		return "", domain.Fail(domain.ErrNoChallenge, MsgNoChallenge)
	}
	if err != nil {
		return "", fmt.Errorf("find otp: %w", err)
	}

	// the store already filters expired rows; the clock may have moved since
	if otp.IsExpired(rec.ExpiresAt, s.now()) {
		return "", domain.Fail(domain.ErrOTPExpired, MsgOTPExpired)
	}
	if !s.Hasher.Verify(code, rec.OTPHash) {
		return "", domain.Fail(domain.ErrOTPMismatch, MsgOTPMismatch)
	}

	if err := s.Store.MarkOTPUsed(ctx, rec.ID); err != nil {
		if errors.Is(err, domain.ErrOTPAlreadyUsed) {
			return "", domain.Fail(domain.ErrNoChallenge, MsgNoChallenge)
		}
		return "", fmt.Errorf("consume otp: %w", err)
	}

	if purpose == domain.PurposeVerification {
		if err := s.Store.SetVerified(ctx, user.ID, true); err != nil {
			return "", fmt.Errorf("set verified: %w", err)
		}
	}
	return user.ID, nil
}
