package transport

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MsgValidationFailed = "Validation failed"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a single-field ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

var messages = map[string]string{
	"email.required":    "Please provide a valid email",
	"email.email":       "Please provide a valid email",
	"password.required": "Password is required",
	"firstName":         "First name must be between 2 and 100 characters",
	"lastName":          "Last name must be between 2 and 100 characters",
	"role.oneof":        "Role must be either DOCTOR or STUDENT",
	"role.required":     "Role is required",
	"otp.number":        "OTP must contain only numbers",
	"purpose":           "Purpose must be either VERIFICATION or LOGIN",
	"employeeId":        "Employee ID must not exceed 50 characters",
	"department":        "Department must not exceed 100 characters",
	"specialization":    "Specialization must not exceed 255 characters",
	"buildingIds":       "Each building ID must be a valid UUID",
	"id":                "User ID must be a valid UUID",
	"isActive":          "isActive must be a boolean value",
	"name":              "Building name must be between 2 and 100 characters",
	"code.alphanum":     "Building code must contain only letters and numbers",
	"code":              "Building code must be between 2 and 20 characters",
	"address":           "Address must not exceed 255 characters",
}

// Validator checks request structs against their validate tags and renders
// failures with caller-facing messages. It satisfies echo.Validator.
type Validator struct {
	v         *validator.Validate
	otpLength int
}

func NewValidator(otpLength int) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("param"), ",")
		}
		return name
	})
	_ = v.RegisterValidation("otplen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) == otpLength
	})
	return &Validator{v: v, otpLength: otpLength}
}

func (v *Validator) Validate(i any) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate request: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: v.message(fe)})
	}
	return out
}

func (v *Validator) message(fe validator.FieldError) string {
	field, _, _ := strings.Cut(fe.Field(), "[")
	if field == "otp" && fe.Tag() == "otplen" {
		return fmt.Sprintf("OTP must be %d digits", v.otpLength)
	}
	if m, ok := messages[field+"."+fe.Tag()]; ok {
		return m
	}
	if m, ok := messages[field]; ok {
		return m
	}
	return fmt.Sprintf("%s is invalid", field)
}
