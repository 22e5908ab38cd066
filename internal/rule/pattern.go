// Package rule defines the pattern/action/rule model that drives rewriting:
// what a term must look like to fire a rule, what firing produces, and the
// load-time checks that keep a rule set unambiguous by construction.
package rule

import "termweave/internal/term"

// Pattern is a predicate over a term's symbol, scale, and arity. HasSym,
// HasScale or HasKids false means "no constraint on that field".
type Pattern struct {
	Sym      string
	HasSym   bool
	Scales   []int // exact-membership set, used only when HasScale is set
	HasScale bool
	MinKids  int
	MaxKids  int // 0 means no upper bound
	HasKids  bool
}

// Matches reports whether term satisfies every constraint the pattern sets.
func (p Pattern) Matches(sym string, scale int, numChildren int) bool {
	if p.HasSym && sym != p.Sym {
		return false
	}
	if p.HasScale && !containsInt(p.Scales, scale) {
		return false
	}
	if p.HasKids {
		if numChildren < p.MinKids {
			return false
		}
		if p.MaxKids > 0 && numChildren > p.MaxKids {
			return false
		}
	}
	return true
}

// MatchesTerm is a convenience wrapper around Matches for a concrete term.
func (p Pattern) MatchesTerm(t term.Record) bool {
	return p.Matches(t.Sym, t.Scale, len(t.Children))
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// DeterministicallyOverlap reports whether two patterns can match the same
// term when restricted to symbol and scale alone — the coherence check run
// at load time is deliberately coarser than runtime matching, since arity
// bounds are "richer predicates" the spec excludes from this notion of
// overlap.
func DeterministicallyOverlap(a, b Pattern) bool {
	if a.HasSym && b.HasSym && a.Sym != b.Sym {
		return false
	}
	if a.HasScale && b.HasScale && !scalesOverlap(a.Scales, b.Scales) {
		return false
	}
	return true
}

func scalesOverlap(a, b []int) bool {
	set := make(map[int]struct{}, len(a))
	for _, x := range a {
		set[x] = struct{}{}
	}
	for _, y := range b {
		if _, ok := set[y]; ok {
			return true
		}
	}
	return false
}
