package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"       json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"     json:"email"`
	PasswordHash string    `gorm:"size:255;not null"                 json:"-"`
	FirstName    string    `gorm:"size:100;not null"                 json:"firstName"`
	LastName     string    `gorm:"size:100;not null"                 json:"lastName"`
	IsVerified   bool      `gorm:"not null"                          json:"isVerified"`
	IsActive     bool      `gorm:"not null;index"                   json:"isActive"`
	CreatedAt    time.Time `                                         json:"createdAt"`
	UpdatedAt    time.Time `                                         json:"updatedAt"`
}

type Role struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"size:20;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255"                    json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UserRole struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_role;index"`
	RoleID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_role;index"`
	CreatedAt time.Time
}

// EmailOTP is one issued challenge. Only the digest of the code is stored.
type EmailOTP struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);not null;index"`
	OTPHash   string    `gorm:"column:otp_hash;size:255;not null"`
	Purpose   string    `gorm:"size:20;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	IsUsed    bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time
}

func (EmailOTP) TableName() string { return "email_otps" }

type Building struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null"           json:"name"`
	Code      string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Address   *string   `gorm:"size:255"                    json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Technician struct {
	ID              string    `gorm:"type:varchar(36);primaryKey"`
	UserID          string    `gorm:"type:varchar(36);not null;uniqueIndex"`
	EmployeeID      *string   `gorm:"size:50;uniqueIndex"`
	Department      *string   `gorm:"size:100"`
	Specialization  *string   `gorm:"size:255"`
	TechnicianLevel string    `gorm:"size:20;not null;default:JUNIOR"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type TechnicianBuilding struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	TechnicianID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_tech_building;index"`
	BuildingID   string `gorm:"type:varchar(36);not null;uniqueIndex:idx_tech_building;index"`
	IsPrimary    bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
}

// All lists every table in creation order.
func All() []any {
	return []any{
		&Role{}, &User{}, &UserRole{}, &EmailOTP{},
		&Building{}, &Technician{}, &TechnicianBuilding{},
	}
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error               { newID(&u.ID); return nil }
func (r *Role) BeforeCreate(*gorm.DB) error               { newID(&r.ID); return nil }
func (ur *UserRole) BeforeCreate(*gorm.DB) error          { newID(&ur.ID); return nil }
func (o *EmailOTP) BeforeCreate(*gorm.DB) error           { newID(&o.ID); return nil }
func (b *Building) BeforeCreate(*gorm.DB) error           { newID(&b.ID); return nil }
func (t *Technician) BeforeCreate(*gorm.DB) error         { newID(&t.ID); return nil }
func (tb *TechnicianBuilding) BeforeCreate(*gorm.DB) error { newID(&tb.ID); return nil }
