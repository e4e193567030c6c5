package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"6.1.0", "6.1.0", 0},
		{"6.0.0", "6.1.0", -1},
		{"6.2.0", "6.1.0", 1},
		{"7.0.0", "6.9.9", 1},
		{"6.1", "6.1.0", -1},
		{"6.1.0", "6.1", 1},
		{"10.0.0", "9.0.0", 1},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Compare(tc.a, tc.b), "Compare(%q, %q)", tc.a, tc.b)
	}
}

func TestEnsureMinimumRejectsOldRuntime(t *testing.T) {
	err := EnsureMinimum("6.0.0", "6.1.0")
	require.Error(t, err)

	var tooOld *EnvironmentTooOldError
	require.True(t, errors.As(err, &tooOld))
	assert.Equal(t, "6.0.0", tooOld.Current)
	assert.Equal(t, "6.1.0", tooOld.Minimum)
	assert.Contains(t, err.Error(), "6.1.0")
}

func TestEnsureMinimumAcceptsEqualAndNewer(t *testing.T) {
	assert.NoError(t, EnsureMinimum("6.1.0", "6.1.0"))
	assert.NoError(t, EnsureMinimum("8.2.1", "6.1.0"))
}
