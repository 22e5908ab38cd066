package rule

import (
	"fmt"
	"strings"

	"termweave/internal/term"
)

// Rule binds a unique name to a pattern and the action it fires.
type Rule struct {
	Name    string
	Pattern Pattern
	Action  Action
}

// Applies reports whether the rule's pattern matches t, independent of any
// include/exclude filtering or budget state — those are runtime-guard
// concerns layered on top by the caller.
func (r Rule) Applies(t term.Record) bool {
	return r.Pattern.MatchesTerm(t)
}

// AmbiguousMatchError is raised when strict-matching is enabled and more
// than one rule applies to the same term.
type AmbiguousMatchError struct {
	Sym     string
	Scale   int
	Matches []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match for term %s at scale %d: %s",
		e.Sym, e.Scale, strings.Join(e.Matches, ", "))
}

// MatchingRules returns every rule in rules (in program order) whose
// pattern applies to t.
func MatchingRules(rules []Rule, t term.Record) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Applies(t) {
			out = append(out, r)
		}
	}
	return out
}

// FirstMatch returns the first rule (in program order) whose pattern
// applies to t, or false if none do.
func FirstMatch(rules []Rule, t term.Record) (Rule, bool) {
	for _, r := range rules {
		if r.Applies(t) {
			return r, true
		}
	}
	return Rule{}, false
}

// Select resolves the matching set per §4.4 step 7: under strict matching,
// more than one match is an AmbiguousMatchError; otherwise the first match
// in program order wins silently.
func Select(rules []Rule, t term.Record, strictMatching bool) (Rule, bool, error) {
	matches := MatchingRules(rules, t)
	if len(matches) == 0 {
		return Rule{}, false, nil
	}
	if strictMatching && len(matches) > 1 {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return Rule{}, false, &AmbiguousMatchError{Sym: t.Sym, Scale: t.Scale, Matches: names}
	}
	return matches[0], true, nil
}
