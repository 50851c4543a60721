// Package otp produces one-time codes and answers expiry questions about them.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
)

const (
	MinLength = 4
	MaxLength = 10
)

var ten = big.NewInt(10)

// Generator draws codes from a cryptographically secure source.
type Generator struct {
	Length int
	Window time.Duration
	Rand   io.Reader
}

func NewGenerator(length int, window time.Duration) *Generator {
	return &Generator{Length: length, Window: window, Rand: rand.Reader}
}

// Generate returns exactly length decimal digits, leading zeros kept, each
// digit drawn uniformly.
func Generate(r io.Reader, length int) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", fmt.Errorf("otp length %d out of range [%d,%d]", length, MinLength, MaxLength)
	}
	if r == nil {
		r = rand.Reader
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("otp random: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func (g *Generator) Generate() (string, error) {
	return Generate(g.Rand, g.Length)
}

func (g *Generator) ExpiryAt(now time.Time) time.Time {
	return ExpiryAt(now, g.Window)
}

func ExpiryAt(now time.Time, window time.Duration) time.Time {
	return now.Add(window)
}

// IsExpired is strict: a code is still valid at the exact expiry instant.
func IsExpired(expiry, now time.Time) bool {
	return now.After(expiry)
}
