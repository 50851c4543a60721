package otp

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_LengthAndDigits(t *testing.T) {
	t.Parallel()

	for _, n := range []int{4, 6, 8, 10} {
		code, err := Generate(nil, n)
		require.NoError(t, err)
		assert.Len(t, code, n)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "non-digit %q in %q", r, code)
		}
	}
}

func TestGenerate_KeepsLeadingZeros(t *testing.T) {
	t.Parallel()

	// an all-zero source makes every digit draw zero
	code, err := Generate(bytes.NewReader(make([]byte, 1024)), 6)
	require.NoError(t, err)
	assert.Equal(t, "000000", code)
}

func TestGenerate_RejectsBadLength(t *testing.T) {
	t.Parallel()

	_, err := Generate(nil, 3)
	assert.Error(t, err)
	_, err = Generate(nil, 11)
	assert.Error(t, err)
}

func TestGenerate_SourceExhausted(t *testing.T) {
	t.Parallel()

	_, err := Generate(bytes.NewReader(nil), 6)
	assert.Error(t, err)
}

func TestGenerate_RoughlyUniform(t *testing.T) {
	t.Parallel()

	var counts [10]int
	const draws = 2000
	for i := 0; i < draws; i++ {
		code, err := Generate(nil, 6)
		require.NoError(t, err)
		for _, r := range code {
			counts[r-'0']++
		}
	}
	expected := draws * 6 / 10
	for d, c := range counts {
		assert.InDelta(t, expected, c, float64(expected)*0.25, "digit %d", d)
	}
}

func TestGenerator_UsesConfig(t *testing.T) {
	t.Parallel()

	g := NewGenerator(8, 5*time.Minute)
	code, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, code, 8)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(5*time.Minute), g.ExpiryAt(now))
}

func TestIsExpired_Boundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	expiry := ExpiryAt(now, 5*time.Minute)

	assert.False(t, IsExpired(expiry, now))
	assert.False(t, IsExpired(expiry, expiry))
	assert.True(t, IsExpired(expiry, expiry.Add(time.Nanosecond)))
}
