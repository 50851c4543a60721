package domain

import "fmt"

// Purpose scopes an OTP challenge. A code issued for one purpose never
// satisfies the other.
type Purpose string

const (
	PurposeVerification Purpose = "VERIFICATION"
	PurposeLogin        Purpose = "LOGIN"
)

func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(s); p {
	case PurposeVerification, PurposeLogin:
		return p, nil
	default:
		return "", fmt.Errorf("unknown otp purpose %q", s)
	}
}

func (p Purpose) String() string { return string(p) }
