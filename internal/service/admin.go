package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/events"
	"github.com/opsmind/auth/internal/models"
	"github.com/opsmind/auth/internal/repo"
	"github.com/opsmind/auth/pkg/logging"
)

// searchPageSize bounds directory-backed user listings.
const searchPageSize = 100

// AdminService covers the administrator-only record keeping. Directory is
// optional; without it listings are answered by the store alone.
type AdminService struct {
	Store     AdminStore
	Hasher    PasswordHasher
	Events    events.Publisher
	Directory Directory
}

type CreateUserInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       string
	IsVerified *bool
	IsActive   *bool
}

type CreateTechnicianInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	EmployeeID     *string
	Department     *string
	Specialization *string
	BuildingIDs    []string
}

type CreateBuildingInput struct {
	Name    string
	Code    string
	Address *string
}

func passwordFailure(pw string) error {
	if problems := domain.PasswordProblems(pw); len(problems) > 0 {
		return domain.Fail(domain.ErrWeakPassword, "Password validation failed: "+strings.Join(problems, ", "))
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (s *AdminService) CreateUser(ctx context.Context, in CreateUserInput) (*repo.UserWithRoles, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create_user")

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		l.Warn("create_user_failed", "status", 400, "reason", "unknown role")
		return nil, domain.Fail(domain.ErrUnknownRole, "Role must be one of ADMIN, TECHNICIAN, DOCTOR, STUDENT")
	}
	if err := passwordFailure(in.Password); err != nil {
		l.Warn("create_user_failed", "status", 400, "reason", "weak password")
		return nil, err
	}
	digest, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("create_user_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        domain.NormalizeEmail(in.Email),
		PasswordHash: digest,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsVerified:   boolOr(in.IsVerified, true),
		IsActive:     boolOr(in.IsActive, true),
	}
	if err := s.Store.CreateUser(ctx, user, role); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			l.Warn("create_user_failed", "status", 400, "reason", "duplicate email")
			return nil, domain.Fail(domain.ErrDuplicateEmail, MsgEmailTaken)
		}
		l.Error("create_user_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("create account: %w", err)
	}

	roles := []string{string(role)}
	index(ctx, s.Directory, user, roles)
	publish(ctx, l, s.Events, events.Event{Type: events.UserCreated, UserID: user.ID, Email: user.Email, Roles: roles})
	l.Info("user_created", "user_id", user.ID, "role", role)
	return &repo.UserWithRoles{User: *user, Roles: roles}, nil
}

// ListUsers returns every account, or the matches of query. The directory
// answers queries when configured; the store is the fallback.
func (s *AdminService) ListUsers(ctx context.Context, query string) ([]repo.UserWithRoles, error) {
	l := logging.FromContext(ctx).With("svc", "admin.list_users")
	query = strings.TrimSpace(query)

	if query != "" && s.Directory != nil {
		_, ids, err := s.Directory.SearchAccounts(ctx, query, 0, searchPageSize)
		if err == nil {
			return s.Store.UsersByIDs(ctx, ids)
		}
		l.Warn("directory_search_failed", "error", err)
	}
	users, err := s.Store.ListUsers(ctx, query)
	if err != nil {
		l.Error("list_users_failed", "status", 500, "error", err)
		return nil, err
	}
	return users, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	l := logging.FromContext(ctx).With("svc", "admin.delete_user", "user_id", id)

	user, roles, err := s.Store.FindUserByIDWithRoles(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Fail(domain.ErrNotFound, MsgUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if domain.HasAnyRole(roles, domain.RoleAdmin) {
		l.Warn("delete_user_failed", "status", 400, "reason", "admin protected")
		return domain.Fail(domain.ErrAdminProtected, MsgAdminDelete)
	}

	if err := s.Store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Fail(domain.ErrNotFound, MsgUserNotFound)
		}
		l.Error("delete_user_failed", "status", 500, "error", err)
		return fmt.Errorf("delete account: %w", err)
	}

	if s.Directory != nil {
		if err := s.Directory.DeleteAccount(ctx, id); err != nil {
			l.Warn("directory_delete_failed", "error", err)
		}
	}
	publish(ctx, l, s.Events, events.Event{Type: events.UserDeleted, UserID: id, Email: user.Email})
	l.Info("user_deleted")
	return nil
}

// UpdateUserStatus toggles the active flag. Admin accounts can never be
// deactivated this way.
func (s *AdminService) UpdateUserStatus(ctx context.Context, id string, active bool) (*repo.UserWithRoles, string, error) {
	l := logging.FromContext(ctx).With("svc", "admin.update_status", "user_id", id)

	_, roles, err := s.Store.FindUserByIDWithRoles(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", domain.Fail(domain.ErrNotFound, MsgUserNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("find account: %w", err)
	}
	if !active && domain.HasAnyRole(roles, domain.RoleAdmin) {
		l.Warn("update_status_failed", "status", 400, "reason", "admin protected")
		return nil, "", domain.Fail(domain.ErrAdminProtected, MsgAdminDeactivate)
	}

	if err := s.Store.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.Fail(domain.ErrNotFound, MsgUserNotFound)
		}
		return nil, "", fmt.Errorf("set active: %w", err)
	}
	user, roles, err := s.Store.FindUserByIDWithRoles(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("reload account: %w", err)
	}

	index(ctx, s.Directory, user, roles)
	publish(ctx, l, s.Events, events.Event{
		Type: events.UserStatusChanged, UserID: id, Email: user.Email,
		Data: map[string]any{"isActive": active},
	})

	msg := "User deactivated successfully"
	if active {
		msg = "User activated successfully"
	}
	l.Info("user_status_updated", "is_active", active)
	return &repo.UserWithRoles{User: *user, Roles: roles}, msg, nil
}

func (s *AdminService) CreateTechnician(ctx context.Context, in CreateTechnicianInput) (*repo.TechnicianView, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create_technician")

	if err := passwordFailure(in.Password); err != nil {
		l.Warn("create_technician_failed", "status", 400, "reason", "weak password")
		return nil, err
	}
	digest, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        domain.NormalizeEmail(in.Email),
		PasswordHash: digest,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsVerified:   true,
		IsActive:     true,
	}
	profile := &models.Technician{
		EmployeeID:      in.EmployeeID,
		Department:      in.Department,
		Specialization:  in.Specialization,
		TechnicianLevel: string(domain.LevelJunior),
	}
	err = s.Store.CreateTechnician(ctx, repo.NewTechnician{User: user, Profile: profile, BuildingIDs: in.BuildingIDs})
	if err != nil {
		var missing *repo.BuildingMissingError
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			err = domain.Fail(domain.ErrDuplicateEmail, MsgEmailTaken)
		case errors.Is(err, domain.ErrEmployeeIDTaken):
			err = domain.Fail(domain.ErrEmployeeIDTaken, MsgEmployeeIDTaken)
		case errors.As(err, &missing):
			err = domain.Fail(domain.ErrBuildingNotFound, fmt.Sprintf("Building with ID %s not found", missing.ID))
		default:
			l.Error("create_technician_failed", "status", 500, "error", err)
			return nil, fmt.Errorf("create technician: %w", err)
		}
		l.Warn("create_technician_failed", "status", 400, "reason", err.Error())
		return nil, err
	}

	view, err := s.Store.FindTechnicianByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("reload technician: %w", err)
	}

	roles := []string{string(domain.RoleTechnician)}
	index(ctx, s.Directory, user, roles)
	publish(ctx, l, s.Events, events.Event{
		Type: events.TechnicianCreated, UserID: user.ID, Email: user.Email, Roles: roles,
		Data: map[string]any{"buildings": len(view.Buildings)},
	})
	l.Info("technician_created", "user_id", user.ID)
	return view, nil
}

func (s *AdminService) ListTechnicians(ctx context.Context) ([]repo.TechnicianView, error) {
	return s.Store.ListTechnicians(ctx)
}

func (s *AdminService) CreateBuilding(ctx context.Context, in CreateBuildingInput) (*models.Building, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create_building")

	b := &models.Building{
		Name:    strings.TrimSpace(in.Name),
		Code:    strings.TrimSpace(in.Code),
		Address: in.Address,
	}
	if err := s.Store.CreateBuilding(ctx, b); err != nil {
		if errors.Is(err, domain.ErrBuildingCodeTaken) {
			l.Warn("create_building_failed", "status", 400, "reason", "code taken", "code", b.Code)
			return nil, domain.Fail(domain.ErrBuildingCodeTaken, MsgBuildingCodeTaken)
		}
		l.Error("create_building_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("create building: %w", err)
	}
	l.Info("building_created", "code", b.Code)
	return b, nil
}

func (s *AdminService) ListBuildings(ctx context.Context) ([]models.Building, error) {
	return s.Store.ListBuildings(ctx)
}
