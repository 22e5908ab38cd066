package rule

import (
	"errors"
	"fmt"
)

// ErrRuleConflict is the sentinel wrapped by every ConflictError, so callers
// can distinguish a load-time overlap rejection from other load failures
// with errors.Is.
var ErrRuleConflict = errors.New("rule patterns deterministically overlap")

// ConflictError names the two rules whose patterns overlap and is returned
// in program order: the earlier-declared rule of the pair always appears
// first, making the error message a stable, reproducible witness rather
// than a product of map iteration order.
type ConflictError struct {
	RuleA, RuleB string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %q and %q", ErrRuleConflict, e.RuleA, e.RuleB)
}

func (e *ConflictError) Unwrap() error { return ErrRuleConflict }

// CheckConflicts runs the load-time coherence guard from spec §4.2: it
// rejects a rule set containing two rules whose patterns deterministically
// overlap. It reports the first conflicting pair found by scanning rules in
// program order, so the same malformed program always produces the same
// error regardless of any internal iteration details.
func CheckConflicts(rules []Rule) error {
	for i := 0; i < len(rules); i++ {
		for j := i + 1; j < len(rules); j++ {
			if DeterministicallyOverlap(rules[i].Pattern, rules[j].Pattern) {
				return &ConflictError{RuleA: rules[i].Name, RuleB: rules[j].Name}
			}
		}
	}
	return nil
}
