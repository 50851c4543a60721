package transport

import (
	"strings"
	"time"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/models"
	"github.com/opsmind/auth/internal/repo"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Details []string     `json:"details,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

func Failed(message string) Envelope {
	return Envelope{Message: message}
}

type SignupRequest struct {
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required"`
	FirstName string `json:"firstName" validate:"min=2,max=100"`
	LastName  string `json:"lastName"  validate:"min=2,max=100"`
	Role      string `json:"role"      validate:"oneof=ADMIN TECHNICIAN DOCTOR STUDENT"`
}

func (r *SignupRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() { r.Email = domain.NormalizeEmail(r.Email) }

type VerifyOTPRequest struct {
	Email   string `json:"email"   validate:"required,email"`
	OTP     string `json:"otp"     validate:"otplen,number"`
	Purpose string `json:"purpose" validate:"oneof=VERIFICATION LOGIN"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

type ResendOTPRequest struct {
	Email   string `json:"email"   validate:"required,email"`
	Purpose string `json:"purpose" validate:"oneof=VERIFICATION LOGIN"`
}

func (r *ResendOTPRequest) Normalize() { r.Email = domain.NormalizeEmail(r.Email) }

type CreateUserRequest struct {
	Email      string `json:"email"      validate:"required,email"`
	Password   string `json:"password"   validate:"required"`
	FirstName  string `json:"firstName"  validate:"min=2,max=100"`
	LastName   string `json:"lastName"   validate:"min=2,max=100"`
	Role       string `json:"role"       validate:"required"`
	IsVerified *bool  `json:"isVerified"`
	IsActive   *bool  `json:"isActive"`
}

func (r *CreateUserRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Role = strings.TrimSpace(r.Role)
}

type CreateTechnicianRequest struct {
	Email          string   `json:"email"          validate:"required,email"`
	Password       string   `json:"password"       validate:"required"`
	FirstName      string   `json:"firstName"      validate:"min=2,max=100"`
	LastName       string   `json:"lastName"       validate:"min=2,max=100"`
	EmployeeID     *string  `json:"employeeId"     validate:"omitempty,max=50"`
	Department     *string  `json:"department"     validate:"omitempty,max=100"`
	Specialization *string  `json:"specialization" validate:"omitempty,max=255"`
	BuildingIDs    []string `json:"buildingIds"    validate:"omitempty,dive,uuid"`
}

func (r *CreateTechnicianRequest) Normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.EmployeeID = trimmedOrNil(r.EmployeeID)
	r.Department = trimmedOrNil(r.Department)
	r.Specialization = trimmedOrNil(r.Specialization)
}

type UserIDRequest struct {
	ID string `param:"id" validate:"uuid"`
}

type UpdateUserStatusRequest struct {
	ID       string `param:"id"      json:"-"        validate:"uuid"`
	IsActive *bool  `json:"isActive" validate:"required"`
}

type CreateBuildingRequest struct {
	Name    string  `json:"name"    validate:"min=2,max=100"`
	Code    string  `json:"code"    validate:"min=2,max=20,alphanum"`
	Address *string `json:"address" validate:"omitempty,max=255"`
}

func (r *CreateBuildingRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Code = strings.TrimSpace(r.Code)
	r.Address = trimmedOrNil(r.Address)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// User is the sanitized account view; it never carries the password hash.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	IsVerified bool      `json:"isVerified"`
	IsActive   bool      `json:"isActive"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewUser(u repo.UserWithRoles) User {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return User{
		ID:         u.User.ID,
		Email:      u.User.Email,
		FirstName:  u.User.FirstName,
		LastName:   u.User.LastName,
		IsVerified: u.User.IsVerified,
		IsActive:   u.User.IsActive,
		Roles:      roles,
		CreatedAt:  u.User.CreatedAt,
	}
}

func NewUsers(us []repo.UserWithRoles) []User {
	out := make([]User, 0, len(us))
	for _, u := range us {
		out = append(out, NewUser(u))
	}
	return out
}

type Building struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   *string   `json:"address"`
	IsPrimary *bool     `json:"isPrimary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewBuilding(b models.Building) Building {
	return Building{ID: b.ID, Name: b.Name, Code: b.Code, Address: b.Address, CreatedAt: b.CreatedAt}
}

func NewBuildings(bs []models.Building) []Building {
	out := make([]Building, 0, len(bs))
	for _, b := range bs {
		out = append(out, NewBuilding(b))
	}
	return out
}

type Technician struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	EmployeeID      *string    `json:"employeeId"`
	Department      *string    `json:"department"`
	Specialization  *string    `json:"specialization"`
	TechnicianLevel string     `json:"technicianLevel"`
	Buildings       []Building `json:"buildings"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func NewTechnician(v repo.TechnicianView) Technician {
	buildings := make([]Building, 0, len(v.Buildings))
	for _, b := range v.Buildings {
		out := NewBuilding(b.Building)
		primary := b.IsPrimary
		out.IsPrimary = &primary
		buildings = append(buildings, out)
	}
	return Technician{
		ID:              v.Technician.ID,
		UserID:          v.User.ID,
		Email:           v.User.Email,
		FirstName:       v.User.FirstName,
		LastName:        v.User.LastName,
		EmployeeID:      v.Technician.EmployeeID,
		Department:      v.Technician.Department,
		Specialization:  v.Technician.Specialization,
		TechnicianLevel: v.Technician.TechnicianLevel,
		Buildings:       buildings,
		IsActive:        v.User.IsActive,
		CreatedAt:       v.Technician.CreatedAt,
	}
}

func NewTechnicians(vs []repo.TechnicianView) []Technician {
	out := make([]Technician, 0, len(vs))
	for _, v := range vs {
		out = append(out, NewTechnician(v))
	}
	return out
}

// SignupData is the payload of a successful signup.
type SignupData struct {
	User        User `json:"user"`
	RequiresOTP bool `json:"requiresOTP"`
}

type LoginData struct {
	RequiresOTP bool `json:"requiresOTP"`
}

type VerifyOTPData struct {
	User        *User  `json:"user,omitempty"`
	Token       string `json:"token,omitempty"`
	RequiresOTP bool   `json:"requiresOTP,omitempty"`
}
