package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/models"
)

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserWithRoles(ctx context.Context, email string) (*models.User, []string, error) {
	user, err := r.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	roles, err := r.UserRoles(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, roles, nil
}

func (r *GormRepo) FindUserByIDWithRoles(ctx context.Context, id string) (*models.User, []string, error) {
	user, err := r.FindUserByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	roles, err := r.UserRoles(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, roles, nil
}

func (r *GormRepo) UserRoles(ctx context.Context, userID string) ([]string, error) {
	return userRoles(r.DB.WithContext(ctx), userID)
}

func userRoles(db *gorm.DB, userID string) ([]string, error) {
	roles := []string{}
	err := db.Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name").
		Pluck("roles.name", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return roles, nil
}

// CreateUser inserts the account and its roles in one transaction. A taken
// email is reported as domain.ErrDuplicateEmail, including under a race.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User, roles ...domain.Role) error {
	u.Email = domain.NormalizeEmail(u.Email)
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicateEmail
		}
		if err := tx.Create(u).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateEmail
			}
			return fmt.Errorf("insert user: %w", err)
		}
		for _, role := range roles {
			if err := assignRole(tx, u.ID, string(role)); err != nil {
				return err
			}
		}
		return nil
	})
}

// AssignRole is idempotent.
func (r *GormRepo) AssignRole(ctx context.Context, userID, role string) error {
	return assignRole(r.DB.WithContext(ctx), userID, role)
}

func assignRole(db *gorm.DB, userID, roleName string) error {
	if _, err := domain.ParseRole(roleName); err != nil {
		return err
	}
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s is not seeded", domain.ErrUnknownRole, roleName)
		}
		return err
	}
	link := models.UserRole{UserID: userID, RoleID: role.ID}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (r *GormRepo) SetVerified(ctx context.Context, userID string, verified bool) error {
	return r.updateUser(ctx, userID, "is_verified", verified)
}

func (r *GormRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.updateUser(ctx, userID, "is_active", active)
}

func (r *GormRepo) updateUser(ctx context.Context, userID, column string, value bool) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UserWithRoles pairs an account with its role names.
type UserWithRoles struct {
	User  models.User
	Roles []string
}

// ListUsers returns accounts newest first. A non-empty query filters by email
// or name substring.
func (r *GormRepo) ListUsers(ctx context.Context, query string) ([]UserWithRoles, error) {
	db := r.DB.WithContext(ctx)

	q := db.Model(&models.User{}).Order("created_at DESC")
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("LOWER(email) LIKE LOWER(?) OR LOWER(first_name) LIKE LOWER(?) OR LOWER(last_name) LIKE LOWER(?)", like, like, like)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return r.attachRoles(ctx, users)
}

// UsersByIDs keeps the order of ids and skips ids that no longer exist.
func (r *GormRepo) UsersByIDs(ctx context.Context, ids []string) ([]UserWithRoles, error) {
	if len(ids) == 0 {
		return []UserWithRoles{}, nil
	}
	var users []models.User
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("users by ids: %w", err)
	}
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	sort.Slice(users, func(i, j int) bool { return pos[users[i].ID] < pos[users[j].ID] })
	return r.attachRoles(ctx, users)
}

func (r *GormRepo) attachRoles(ctx context.Context, users []models.User) ([]UserWithRoles, error) {
	out := make([]UserWithRoles, 0, len(users))
	if len(users) == 0 {
		return out, nil
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	var links []struct {
		UserID string
		Name   string
	}
	err := r.DB.WithContext(ctx).Table("user_roles").
		Select("user_roles.user_id, roles.name").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id IN ?", ids).
		Order("roles.name").
		Scan(&links).Error
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	byUser := make(map[string][]string, len(users))
	for _, l := range links {
		byUser[l.UserID] = append(byUser[l.UserID], l.Name)
	}
	for _, u := range users {
		roles := byUser[u.ID]
		if roles == nil {
			roles = []string{}
		}
		out = append(out, UserWithRoles{User: u, Roles: roles})
	}
	return out, nil
}

// DeleteUser removes the account with its roles, challenges and technician profile.
func (r *GormRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tech models.Technician
		err := tx.Where("user_id = ?", userID).First(&tech).Error
		switch {
		case err == nil:
			if err := tx.Where("technician_id = ?", tech.ID).Delete(&models.TechnicianBuilding{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&tech).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.EmailOTP{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", userID).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
