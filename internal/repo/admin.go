package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/models"
)

func (r *GormRepo) CreateBuilding(ctx context.Context, b *models.Building) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Building{}).Where("code = ?", b.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrBuildingCodeTaken
		}
		if err := tx.Create(b).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrBuildingCodeTaken
			}
			return fmt.Errorf("insert building: %w", err)
		}
		return nil
	})
}

func (r *GormRepo) ListBuildings(ctx context.Context) ([]models.Building, error) {
	buildings := []models.Building{}
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&buildings).Error; err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	return buildings, nil
}

func (r *GormRepo) FindBuildingByCode(ctx context.Context, code string) (*models.Building, error) {
	var b models.Building
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// NewTechnician describes an admin-created technician account.
type NewTechnician struct {
	User        *models.User
	Profile     *models.Technician
	BuildingIDs []string
}

// BuildingMissingError names the first building id that does not exist.
type BuildingMissingError struct{ ID string }

func (e *BuildingMissingError) Error() string {
	return fmt.Sprintf("building %s not found", e.ID)
}

func (e *BuildingMissingError) Unwrap() error { return domain.ErrBuildingNotFound }

// CreateTechnician creates the account, the TECHNICIAN role link, the profile
// and the building links in one transaction. The first building is primary.
func (r *GormRepo) CreateTechnician(ctx context.Context, nt NewTechnician) error {
	nt.User.Email = domain.NormalizeEmail(nt.User.Email)
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", nt.User.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicateEmail
		}
		if nt.Profile.EmployeeID != nil {
			if err := tx.Model(&models.Technician{}).Where("employee_id = ?", *nt.Profile.EmployeeID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return domain.ErrEmployeeIDTaken
			}
		}
		for _, id := range nt.BuildingIDs {
			if err := tx.Model(&models.Building{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return &BuildingMissingError{ID: id}
			}
		}

		if err := tx.Create(nt.User).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateEmail
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if err := assignRole(tx, nt.User.ID, string(domain.RoleTechnician)); err != nil {
			return err
		}
		nt.Profile.UserID = nt.User.ID
		if err := tx.Create(nt.Profile).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrEmployeeIDTaken
			}
			return fmt.Errorf("insert technician: %w", err)
		}

		seen := map[string]bool{}
		for i, id := range nt.BuildingIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			link := models.TechnicianBuilding{TechnicianID: nt.Profile.ID, BuildingID: id, IsPrimary: i == 0}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("assign building: %w", err)
			}
		}
		return nil
	})
}

// TechnicianView is a technician profile joined with its account and buildings.
type TechnicianView struct {
	Technician models.Technician
	User       models.User
	Buildings  []TechnicianBuildingView
}

type TechnicianBuildingView struct {
	models.Building
	IsPrimary bool `json:"isPrimary"`
}

func (r *GormRepo) ListTechnicians(ctx context.Context) ([]TechnicianView, error) {
	db := r.DB.WithContext(ctx)

	var techs []models.Technician
	if err := db.Order("created_at DESC").Find(&techs).Error; err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	out := make([]TechnicianView, 0, len(techs))
	for _, t := range techs {
		v, err := r.technicianView(db, t)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (r *GormRepo) FindTechnicianByUserID(ctx context.Context, userID string) (*TechnicianView, error) {
	db := r.DB.WithContext(ctx)
	var t models.Technician
	if err := db.Where("user_id = ?", userID).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return r.technicianView(db, t)
}

func (r *GormRepo) technicianView(db *gorm.DB, t models.Technician) (*TechnicianView, error) {
	var user models.User
	if err := db.Where("id = ?", t.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("technician %s has no account", t.ID)
		}
		return nil, err
	}
	var rows []struct {
		models.Building
		IsPrimary bool
	}
	err := db.Table("buildings").
		Select("buildings.*, technician_buildings.is_primary").
		Joins("JOIN technician_buildings ON technician_buildings.building_id = buildings.id").
		Where("technician_buildings.technician_id = ?", t.ID).
		Order("technician_buildings.is_primary DESC, buildings.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("technician buildings: %w", err)
	}
	buildings := make([]TechnicianBuildingView, len(rows))
	for i, row := range rows {
		buildings[i] = TechnicianBuildingView{Building: row.Building, IsPrimary: row.IsPrimary}
	}
	return &TechnicianView{Technician: t, User: user, Buildings: buildings}, nil
}
