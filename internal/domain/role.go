package domain

import "fmt"

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
	RoleDoctor     Role = "DOCTOR"
	RoleStudent    Role = "STUDENT"
)

// Roles is the closed set of roles, in seed order.
var Roles = []Role{RoleAdmin, RoleTechnician, RoleDoctor, RoleStudent}

var roleDescriptions = map[Role]string{
	RoleAdmin:      "System administrator with full access",
	RoleTechnician: "IT support technician",
	RoleDoctor:     "Faculty member / Doctor",
	RoleStudent:    "Student user",
}

// ParseRole accepts only the exact role names.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleDescriptions[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

func (r Role) Description() string { return roleDescriptions[r] }

// SelfAssignable reports whether the role may be picked at public signup.
func (r Role) SelfAssignable() bool {
	return r == RoleDoctor || r == RoleStudent
}

func HasAnyRole(held []string, required ...Role) bool {
	for _, h := range held {
		for _, r := range required {
			if h == string(r) {
				return true
			}
		}
	}
	return false
}

type TechnicianLevel string

const (
	LevelJunior     TechnicianLevel = "JUNIOR"
	LevelSenior     TechnicianLevel = "SENIOR"
	LevelSupervisor TechnicianLevel = "SUPERVISOR"
	LevelHead       TechnicianLevel = "HEAD"
)

func ParseTechnicianLevel(s string) (TechnicianLevel, error) {
	switch l := TechnicianLevel(s); l {
	case LevelJunior, LevelSenior, LevelSupervisor, LevelHead:
		return l, nil
	case "":
		return LevelJunior, nil
	default:
		return "", fmt.Errorf("unknown technician level %q", s)
	}
}
