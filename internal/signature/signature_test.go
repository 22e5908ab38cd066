package signature

import (
	"testing"

	"github.com/stretchr/testify/require"

	"termweave/internal/term"
)

func TestUndeclaredSymbolIsUnconstrained(t *testing.T) {
	sig := New(map[string]Entry{
		"A": {MinChildren: 1, HasMax: true, MaxChildren: 1},
	})
	require.NoError(t, sig.Validate("unmentioned", 0, nil))
}

func TestDeclaredSymbolEnforcesArity(t *testing.T) {
	sig := New(map[string]Entry{
		"A": {MinChildren: 1, HasMax: true, MaxChildren: 2},
	})
	require.Error(t, sig.Validate("A", 0, nil))
	require.NoError(t, sig.Validate("A", 0, []term.ID{"x"}))
	require.Error(t, sig.Validate("A", 0, []term.ID{"x", "y", "z"}))
}

func TestDeclaredSymbolEnforcesScale(t *testing.T) {
	sig := New(map[string]Entry{
		"A": {HasScales: true, Scales: []int{0, 1}},
	})
	require.NoError(t, sig.Validate("A", 1, nil))
	require.Error(t, sig.Validate("A", 2, nil))
}

func TestParseMarshalRoundTrip(t *testing.T) {
	const doc = `{"symbols": {"A": {"min_children": 1, "max_children": 2, "scales": [0, 1]}}}`
	sig, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Error(t, sig.Validate("A", 0, nil))

	out, err := sig.Marshal()
	require.NoError(t, err)

	sig2, err := Parse(out)
	require.NoError(t, err)
	require.Error(t, sig2.Validate("A", 0, nil))
}
