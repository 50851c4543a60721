package service

import (
	"context"
	"log/slog"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/events"
	"github.com/opsmind/auth/internal/models"
	"github.com/opsmind/auth/internal/repo"
	"github.com/opsmind/auth/internal/search"
	"github.com/opsmind/auth/pkg/logging"
)

// Messages shown to callers.
const (
	MsgNoChallenge       = "No valid OTP found. Please request a new one."
	MsgOTPExpired        = "OTP has expired. Please request a new one."
	MsgOTPMismatch       = "Invalid OTP"
	MsgInvalidLogin      = "Invalid email or password"
	MsgDeactivated       = "Your account has been deactivated. Please contact an administrator."
	MsgEmailTaken        = "User with this email already exists"
	MsgUserNotFound      = "User not found"
	MsgResendGeneric     = "If the email exists, an OTP will be sent."
	MsgSignupOK          = "Registration successful. Please check your email for verification OTP."
	MsgVerifyFirst       = "Please verify your account first. A new verification OTP has been sent."
	MsgNotVerified       = "Please verify your account first."
	MsgLoginOTPSent      = "Please enter the OTP sent to your email to complete login."
	MsgVerifiedOK        = "Account verified successfully. Please check your email for login OTP."
	MsgLoginOK           = "Login successful"
	MsgRoleNotAllowed    = "Only doctors and students can self-register"
	MsgWeakPassword      = "Password does not meet requirements"
	MsgAdminDeactivate   = "Cannot deactivate admin users"
	MsgAdminDelete       = "Cannot delete admin users"
	MsgBuildingCodeTaken = "Building with this code already exists"
	MsgEmployeeIDTaken   = "Employee ID is already assigned to another technician"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
	// Burn spends the time of one Verify without a real digest.
	Burn(plain string)
}

type TokenIssuer interface {
	Issue(userID, email string, roles []string) (string, error)
}

type OTPStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateOTPChallenge(ctx context.Context, userID string, purpose domain.Purpose) (string, *models.EmailOTP, error)
	FindLatestValidOTP(ctx context.Context, userID string, purpose domain.Purpose) (*models.EmailOTP, error)
	MarkOTPUsed(ctx context.Context, id string) error
	SetVerified(ctx context.Context, userID string, verified bool) error
}

type AccountStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserWithRoles(ctx context.Context, email string) (*models.User, []string, error)
	FindUserByIDWithRoles(ctx context.Context, id string) (*models.User, []string, error)
	CreateUser(ctx context.Context, u *models.User, roles ...domain.Role) error
}

type AdminStore interface {
	AccountStore
	SetActive(ctx context.Context, userID string, active bool) error
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context, query string) ([]repo.UserWithRoles, error)
	UsersByIDs(ctx context.Context, ids []string) ([]repo.UserWithRoles, error)
	CreateBuilding(ctx context.Context, b *models.Building) error
	ListBuildings(ctx context.Context) ([]models.Building, error)
	CreateTechnician(ctx context.Context, nt repo.NewTechnician) error
	ListTechnicians(ctx context.Context) ([]repo.TechnicianView, error)
	FindTechnicianByUserID(ctx context.Context, userID string) (*repo.TechnicianView, error)
}

// Directory mirrors accounts into a search index.
type Directory interface {
	IndexAccount(ctx context.Context, a search.Account) error
	DeleteAccount(ctx context.Context, id string) error
	SearchAccounts(ctx context.Context, query string, from, size int) (int64, []string, error)
}

func accountDoc(u *models.User, roles []string) search.Account {
	return search.Account{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Roles:      roles,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// index is best effort like publish; a stale directory entry only affects search.
func index(ctx context.Context, d Directory, u *models.User, roles []string) {
	if d == nil {
		return
	}
	if err := d.IndexAccount(ctx, accountDoc(u, roles)); err != nil {
		logging.FromContext(ctx).Warn("directory_index_failed", "user_id", u.ID, "error", err)
	}
}

// publish is best effort: the account change already happened.
func publish(ctx context.Context, l *slog.Logger, p events.Publisher, ev events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		l.Warn("event_publish_failed", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}
