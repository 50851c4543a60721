package domain

import (
	"errors"
	"strings"
)

// Expected failure kinds. Anything else returned by the core is an internal fault.
var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateEmail        = errors.New("duplicate email")
	ErrUnknownRole           = errors.New("unknown role")
	ErrRoleNotSelfAssignable = errors.New("role not self assignable")
	ErrDomainNotAllowed      = errors.New("email domain not allowed")
	ErrWeakPassword          = errors.New("weak password")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountDeactivated    = errors.New("account deactivated")
	ErrAccountNotFound       = errors.New("account not found")
	ErrNoChallenge           = errors.New("no valid otp challenge")
	ErrOTPExpired            = errors.New("otp expired")
	ErrOTPMismatch           = errors.New("otp mismatch")
	ErrOTPAlreadyUsed        = errors.New("otp already used")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("forbidden")
	ErrAdminProtected        = errors.New("admin account protected")
	ErrBuildingCodeTaken     = errors.New("building code taken")
	ErrBuildingNotFound      = errors.New("building not found")
	ErrEmployeeIDTaken       = errors.New("employee id taken")
	ErrRateLimited           = errors.New("rate limited")
)

// Error is an expected failure with a message that is safe to show the caller.
type Error struct {
	Kind    error
	Message string
	Details []string
}

func Fail(kind error, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, ", ")
}

func (e *Error) Unwrap() error { return e.Kind }

// AsError extracts the caller-safe failure from err, if there is one.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
