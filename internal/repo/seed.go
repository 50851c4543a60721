package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/models"
)

type SeedAdmin struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

var DefaultBuildings = []models.Building{
	{Name: "Main Building", Code: "MAIN", Address: ptr("Main Campus")},
	{Name: "Engineering Building", Code: "ENG", Address: ptr("Engineering Campus")},
	{Name: "Science Building", Code: "SCI", Address: ptr("Science Campus")},
	{Name: "Library", Code: "LIB", Address: ptr("Central Campus")},
	{Name: "Administration Building", Code: "ADM", Address: ptr("Main Campus")},
}

func ptr(s string) *string { return &s }

// SeedRoles makes sure the four roles exist. Safe to run repeatedly.
func SeedRoles(ctx context.Context, db *gorm.DB) error {
	for _, role := range domain.Roles {
		rec := models.Role{Name: string(role), Description: role.Description()}
		err := db.WithContext(ctx).Where("name = ?", rec.Name).FirstOrCreate(&rec).Error
		if err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
	}
	return nil
}

// Seed creates the roles, the administrator account and the default buildings
// when they are missing.
func (r *GormRepo) Seed(ctx context.Context, admin SeedAdmin, log *slog.Logger) error {
	if err := SeedRoles(ctx, r.DB); err != nil {
		return err
	}

	_, err := r.FindUserByEmail(ctx, admin.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		digest, err := r.Hasher.Hash(admin.Password)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		u := &models.User{
			Email:        admin.Email,
			PasswordHash: digest,
			FirstName:    admin.FirstName,
			LastName:     admin.LastName,
			IsVerified:   true,
			IsActive:     true,
		}
		if err := r.CreateUser(ctx, u, domain.RoleAdmin); err != nil && !errors.Is(err, domain.ErrDuplicateEmail) {
			return fmt.Errorf("seed admin: %w", err)
		}
		log.Info("seed_admin_created", "email", u.Email)
	case err != nil:
		return fmt.Errorf("seed admin lookup: %w", err)
	default:
		log.Info("seed_admin_exists", "email", domain.NormalizeEmail(admin.Email))
	}

	for _, b := range DefaultBuildings {
		b := b
		if err := r.CreateBuilding(ctx, &b); err != nil && !errors.Is(err, domain.ErrBuildingCodeTaken) {
			return fmt.Errorf("seed building %s: %w", b.Code, err)
		}
	}
	return nil
}
