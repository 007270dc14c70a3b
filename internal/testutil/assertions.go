package testutil

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertBefore checks that first occurs in seq, earlier than then.
func AssertBefore(t *testing.T, seq []string, first, then string) {
	t.Helper()

	i, j := slices.Index(seq, first), slices.Index(seq, then)
	require.NotEqual(t, -1, i, "%q missing from %v", first, seq)
	require.NotEqual(t, -1, j, "%q missing from %v", then, seq)
	require.Less(t, i, j, "expected %q before %q in %v", first, then, seq)
}

// Reversed returns a reversed copy of s.
func Reversed(s []string) []string {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}
