package domain

import (
	"net/mail"
	"strings"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	MaxPasswordBytes = 72
)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail accepts a bare address such as a@b.c, without display names.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func EmailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// DomainAllowed reports whether the email belongs to one of the organization domains.
func DomainAllowed(email string, allowed []string) bool {
	d := EmailDomain(email)
	if d == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(d, strings.TrimPrefix(strings.TrimSpace(a), "@")) {
			return true
		}
	}
	return false
}

// PasswordProblems lists every unmet password requirement; empty means acceptable.
func PasswordProblems(pw string) []string {
	var out []string
	if len([]rune(pw)) < MinPasswordLength {
		out = append(out, "Password must be at least 8 characters long")
	}
	if len(pw) > MaxPasswordBytes {
		out = append(out, "Password must be at most 72 bytes long")
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper {
		out = append(out, "Password must contain at least one uppercase letter")
	}
	if !lower {
		out = append(out, "Password must contain at least one lowercase letter")
	}
	if !digit {
		out = append(out, "Password must contain at least one number")
	}
	if !special {
		out = append(out, "Password must contain at least one special character")
	}
	return out
}
