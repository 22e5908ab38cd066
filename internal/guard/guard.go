// Package guard implements the runtime's safety limits from spec §4.5:
// step and term budgets, per-rule fire budgets, and rule/scale filters.
package guard

import (
	"fmt"
	"sort"
)

// Config is the immutable guard configuration a program declares at load
// time. RuleBudgets maps a rule name to its remaining fire count; a rule
// absent from the map has no budget limit.
type Config struct {
	MaxSteps      int
	MaxTerms      int
	RuleBudgets   map[string]int
	IncludeRules  []string
	ExcludeRules  []string
	IncludeScales []int
	ExcludeScales []int
}

// OverlapError reports that an include and an exclude filter both name the
// same rule or scale — a load-time error per spec §4.5, since the pair
// gives no deterministic answer about whether to admit it.
type OverlapError struct {
	Kind  string // "rule" or "scale"
	Value string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("guard: %s %q is both included and excluded", e.Kind, e.Value)
}

// Guards tracks the mutable counters a running program consults and
// updates on every step, plus the immutable filters from Config.
type Guards struct {
	cfg Config

	stepCount        int
	ruleRemaining    map[string]int
	exhaustedBudgets []string
	exhaustedSeen    map[string]struct{}
	termsInserted    int
	termLimitHit     bool

	includeRuleSet  map[string]struct{}
	excludeRuleSet  map[string]struct{}
	includeScaleSet map[int]struct{}
	excludeScaleSet map[int]struct{}
}

// New validates cfg and constructs a fresh Guards with full budgets.
func New(cfg Config) (*Guards, error) {
	includeRuleSet := toStringSet(cfg.IncludeRules)
	excludeRuleSet := toStringSet(cfg.ExcludeRules)
	for name := range includeRuleSet {
		if _, ok := excludeRuleSet[name]; ok {
			return nil, &OverlapError{Kind: "rule", Value: name}
		}
	}

	includeScaleSet := toIntSet(cfg.IncludeScales)
	excludeScaleSet := toIntSet(cfg.ExcludeScales)
	for scale := range includeScaleSet {
		if _, ok := excludeScaleSet[scale]; ok {
			return nil, &OverlapError{Kind: "scale", Value: fmt.Sprintf("%d", scale)}
		}
	}

	ruleRemaining := make(map[string]int, len(cfg.RuleBudgets))
	for name, n := range cfg.RuleBudgets {
		ruleRemaining[name] = n
	}

	return &Guards{
		cfg:             cfg,
		ruleRemaining:   ruleRemaining,
		exhaustedSeen:   make(map[string]struct{}),
		includeRuleSet:  includeRuleSet,
		excludeRuleSet:  excludeRuleSet,
		includeScaleSet: includeScaleSet,
		excludeScaleSet: excludeScaleSet,
	}, nil
}

func toStringSet(xs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		set[x] = struct{}{}
	}
	return set
}

func toIntSet(xs []int) map[int]struct{} {
	set := make(map[int]struct{}, len(xs))
	for _, x := range xs {
		set[x] = struct{}{}
	}
	return set
}

// StepBudgetExhausted reports whether max_steps has been reached.
func (g *Guards) StepBudgetExhausted() bool {
	return g.cfg.MaxSteps > 0 && g.stepCount >= g.cfg.MaxSteps
}

// RecordStep increments the applied-rewrite counter. Call only after a
// step that actually fired a rule — per spec §4.4 step 4, scale-filtered
// continues do not count as a step.
func (g *Guards) RecordStep() {
	g.stepCount++
}

// StepCount returns the number of rewrites applied so far.
func (g *Guards) StepCount() int { return g.stepCount }

// ScaleAllowed reports whether scale passes the include/exclude scale
// filters.
func (g *Guards) ScaleAllowed(scale int) bool {
	if len(g.includeScaleSet) > 0 {
		if _, ok := g.includeScaleSet[scale]; !ok {
			return false
		}
	}
	if _, ok := g.excludeScaleSet[scale]; ok {
		return false
	}
	return true
}

// RuleAllowed reports whether name passes the include/exclude rule
// filters and still has remaining budget (rules with no declared budget
// are always allowed on that count).
func (g *Guards) RuleAllowed(name string) bool {
	if len(g.includeRuleSet) > 0 {
		if _, ok := g.includeRuleSet[name]; !ok {
			return false
		}
	}
	if _, ok := g.excludeRuleSet[name]; ok {
		return false
	}
	if remaining, budgeted := g.ruleRemaining[name]; budgeted && remaining <= 0 {
		return false
	}
	return true
}

// ConsumeRuleBudget decrements name's remaining fire budget, if it has
// one, and records the rule as exhausted the first time it reaches zero.
func (g *Guards) ConsumeRuleBudget(name string) {
	remaining, budgeted := g.ruleRemaining[name]
	if !budgeted {
		return
	}
	remaining--
	g.ruleRemaining[name] = remaining
	if remaining <= 0 {
		if _, seen := g.exhaustedSeen[name]; !seen {
			g.exhaustedSeen[name] = struct{}{}
			g.exhaustedBudgets = append(g.exhaustedBudgets, name)
		}
	}
}

// ExhaustedBudgets returns the names of rules whose budget has reached
// zero, in the order they were exhausted.
func (g *Guards) ExhaustedBudgets() []string {
	return append([]string(nil), g.exhaustedBudgets...)
}

// RuleRemaining returns a copy of the remaining budgets, keyed by rule
// name.
func (g *Guards) RuleRemaining() map[string]int {
	out := make(map[string]int, len(g.ruleRemaining))
	for name, n := range g.ruleRemaining {
		out[name] = n
	}
	return out
}

// RecordTermsInserted adds delta to the cumulative terms-inserted counter.
func (g *Guards) RecordTermsInserted(delta int) {
	g.termsInserted += delta
}

// TermsInserted returns the cumulative count of store insertions this
// guard has observed.
func (g *Guards) TermsInserted() int { return g.termsInserted }

// MarkTermLimitExhausted records that the store has refused an insertion
// because max_terms would be exceeded.
func (g *Guards) MarkTermLimitExhausted() { g.termLimitHit = true }

// TermLimitExhausted reports whether MarkTermLimitExhausted has ever been
// called.
func (g *Guards) TermLimitExhausted() bool { return g.termLimitHit }

// State is the serializable snapshot of a Guards' mutable counters, per
// spec §3's Snapshot definition.
type State struct {
	StepCount          int
	RuleRemaining      map[string]int
	ExhaustedBudgets   []string
	TermsInserted      int
	TermLimitExhausted bool
}

// State returns the current mutable guard state for snapshotting.
func (g *Guards) State() State {
	return State{
		StepCount:          g.stepCount,
		RuleRemaining:      g.RuleRemaining(),
		ExhaustedBudgets:   g.ExhaustedBudgets(),
		TermsInserted:      g.termsInserted,
		TermLimitExhausted: g.termLimitHit,
	}
}

// Restore replaces the guard's mutable counters with a previously
// serialized state, leaving the immutable Config (and therefore the
// filters) untouched.
func (g *Guards) Restore(s State) {
	g.stepCount = s.StepCount
	g.ruleRemaining = make(map[string]int, len(s.RuleRemaining))
	for name, n := range s.RuleRemaining {
		g.ruleRemaining[name] = n
	}
	g.exhaustedBudgets = append([]string(nil), s.ExhaustedBudgets...)
	g.exhaustedSeen = make(map[string]struct{}, len(s.ExhaustedBudgets))
	for _, name := range s.ExhaustedBudgets {
		g.exhaustedSeen[name] = struct{}{}
	}
	g.termsInserted = s.TermsInserted
	g.termLimitHit = s.TermLimitExhausted
}

// SortedRuleNames returns the rule names with a declared budget, sorted,
// for deterministic CLI/log output.
func (g *Guards) SortedRuleNames() []string {
	names := make([]string, 0, len(g.ruleRemaining))
	for name := range g.ruleRemaining {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
