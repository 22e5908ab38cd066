package rule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"termweave/internal/term"
)

func TestExpandReduceCoherence(t *testing.T) {
	s := term.New(term.NewMemoryBackend(), nil, 0)

	a, err := s.Add("A", 0, nil)
	require.NoError(t, err)
	recA, err := s.Get(a)
	require.NoError(t, err)

	expanded, err := Expand{Fanout: 1}.Apply(s, a, recA)
	require.NoError(t, err)
	require.Len(t, expanded, 1)

	fa := expanded[0]
	recFA, err := s.Get(fa)
	require.NoError(t, err)
	require.Equal(t, "F(A)", recFA.Sym)
	require.Equal(t, 1, recFA.Scale)
	require.Len(t, recFA.Children, 1)

	reduced, err := Reduce{}.Apply(s, fa, recFA)
	require.NoError(t, err)
	require.Len(t, reduced, 1)
	require.Equal(t, a, reduced[0], "reduce(expand(A)) must hash-cons back to the original A")
}

func TestReduceNotApplicableOnPlainSymbol(t *testing.T) {
	s := term.New(term.NewMemoryBackend(), nil, 0)
	a, _ := s.Add("A", 0, nil)
	recA, _ := s.Get(a)

	_, err := Reduce{}.Apply(s, a, recA)
	require.ErrorIs(t, err, ErrActionNotApplicable)
}

func TestSelectFirstMatchWins(t *testing.T) {
	rules := []Rule{
		{Name: "r1", Pattern: Pattern{Sym: "A", HasSym: true}, Action: Reduce{}},
		{Name: "r2", Pattern: Pattern{Sym: "A", HasSym: true}, Action: Reduce{}},
	}
	rec := term.Record{Sym: "A", Scale: 0}

	got, ok, err := Select(rules, rec, false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r1", got.Name)
}

func TestSelectAmbiguousUnderStrictMatching(t *testing.T) {
	rules := []Rule{
		{Name: "r1", Pattern: Pattern{Sym: "A", HasSym: true}, Action: Reduce{}},
		{Name: "r2", Pattern: Pattern{Sym: "A", HasSym: true}, Action: Reduce{}},
	}
	rec := term.Record{Sym: "A", Scale: 0}

	_, _, err := Select(rules, rec, true)
	var ambErr *AmbiguousMatchError
	require.ErrorAs(t, err, &ambErr)
	require.Equal(t, []string{"r1", "r2"}, ambErr.Matches)
}

func TestCheckConflictsDetectsOverlap(t *testing.T) {
	rules := []Rule{
		{Name: "up", Pattern: Pattern{Sym: "A", HasSym: true}, Action: Expand{Fanout: 1}},
		{Name: "up-again", Pattern: Pattern{Sym: "A", HasSym: true}, Action: Expand{Fanout: 2}},
	}
	err := CheckConflicts(rules)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRuleConflict)
}

func TestCheckConflictsAllowsDisjointScales(t *testing.T) {
	rules := []Rule{
		{Name: "low", Pattern: Pattern{Sym: "A", HasSym: true, Scales: []int{0}, HasScale: true}, Action: Expand{Fanout: 1}},
		{Name: "high", Pattern: Pattern{Sym: "A", HasSym: true, Scales: []int{1}, HasScale: true}, Action: Expand{Fanout: 1}},
	}
	require.NoError(t, CheckConflicts(rules))
}
