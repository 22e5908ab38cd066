package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"termweave/internal/guard"
	"termweave/internal/rule"
	"termweave/internal/scheduler"
	"termweave/internal/term"
)

func newTestRuntime(t *testing.T, rules []rule.Rule, cfg Config) *Runtime {
	store := term.New(term.NewMemoryBackend(), nil, 0)
	sched := scheduler.NewFIFO()
	g, err := guard.New(guard.Config{MaxSteps: 100})
	require.NoError(t, err)
	cfg.Rules = rules
	return New(store, sched, g, nil, cfg)
}

// TestExpandReduceCoherenceRoundTrip exercises scenario S1 from spec §8:
// an "up" rule expands A, a "down" rule reduces F(A) back to A, and the
// store hash-conses the reduction target to the same ID as the original
// root.
func TestExpandReduceCoherenceRoundTrip(t *testing.T) {
	rules := []rule.Rule{
		{Name: "up", Pattern: rule.Pattern{Sym: "A", HasSym: true}, Action: rule.Expand{Fanout: 1}},
		{Name: "down", Pattern: rule.Pattern{Sym: "F(A)", HasSym: true}, Action: rule.Reduce{}},
	}
	rt := newTestRuntime(t, rules, Config{})

	root, err := rt.Load(&term.TreeNode{Sym: "A", Scale: 0})
	require.NoError(t, err)

	events, err := rt.Run(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "up", events[0].Rule)
	require.Equal(t, "down", events[1].Rule)

	require.Equal(t, root, events[1].After[0], "reduce(expand(A)) must reuse the original root ID")

	stats, err := rt.Stats()
	require.NoError(t, err)
	require.True(t, stats.Idle)
}

func TestIdleWhenNoRuleMatches(t *testing.T) {
	rules := []rule.Rule{
		{Name: "up", Pattern: rule.Pattern{Sym: "B", HasSym: true}, Action: rule.Expand{Fanout: 1}},
	}
	rt := newTestRuntime(t, rules, Config{})
	_, err := rt.Load(&term.TreeNode{Sym: "A", Scale: 0})
	require.NoError(t, err)

	ev, outcome, err := rt.Step()
	require.NoError(t, err)
	require.Nil(t, ev)
	require.Equal(t, OutcomeNoRuleMatched, outcome)

	_, outcome, err = rt.Step()
	require.NoError(t, err)
	require.Equal(t, OutcomeIdle, outcome)
}

// TestStatsEventsCountsOnlyFirings ensures the summary's events figure
// tracks rule firings, not every pop off the frontier — a pop that matches
// no rule consumes no step and must not inflate Stats.Events.
func TestStatsEventsCountsOnlyFirings(t *testing.T) {
	rules := []rule.Rule{
		{Name: "up", Pattern: rule.Pattern{Sym: "B", HasSym: true}, Action: rule.Expand{Fanout: 1}},
	}
	rt := newTestRuntime(t, rules, Config{})
	_, err := rt.Load(&term.TreeNode{Sym: "A", Scale: 0})
	require.NoError(t, err)

	events, err := rt.RunUntilIdle()
	require.NoError(t, err)
	require.Empty(t, events, "no rule matches A, so nothing should fire")

	stats, err := rt.Stats()
	require.NoError(t, err)
	require.Equal(t, 0, stats.Events, "a non-matching pop must not count as an event")
}

func TestStepBudgetHalts(t *testing.T) {
	rules := []rule.Rule{
		{Name: "up", Pattern: rule.Pattern{HasSym: false}, Action: rule.Expand{Fanout: 1}},
	}
	store := term.New(term.NewMemoryBackend(), nil, 0)
	sched := scheduler.NewFIFO()
	g, err := guard.New(guard.Config{MaxSteps: 1})
	require.NoError(t, err)
	rt := New(store, sched, g, nil, Config{Rules: rules, WalkChildren: true})

	_, err = rt.Load(&term.TreeNode{Sym: "A", Scale: 0})
	require.NoError(t, err)

	events, err := rt.RunUntilIdle()
	require.NoError(t, err)
	require.Len(t, events, 1)

	stats, err := rt.Stats()
	require.NoError(t, err)
	require.True(t, stats.BudgetExhausted)
}

// TestTermLimitHaltsCleanly exercises scenario S4 from spec §8: hitting
// max_terms must halt the run without an error, with the guard flag set
// and the store left at exactly the cap.
func TestTermLimitHaltsCleanly(t *testing.T) {
	rules := []rule.Rule{
		{Name: "grow", Pattern: rule.Pattern{Sym: "R", HasSym: true}, Action: rule.Expand{Fanout: 3}},
	}
	store := term.New(term.NewMemoryBackend(), nil, 3)
	sched := scheduler.NewFIFO()
	g, err := guard.New(guard.Config{MaxSteps: 10})
	require.NoError(t, err)
	rt := New(store, sched, g, nil, Config{Rules: rules})

	_, err = rt.Load(&term.TreeNode{Sym: "R", Scale: 0})
	require.NoError(t, err)

	events, err := rt.RunUntilIdle()
	require.NoError(t, err, "term-limit exhaustion must halt cleanly, not as a fatal error")
	require.LessOrEqual(t, len(events), 1)

	stats, err := rt.Stats()
	require.NoError(t, err)
	require.True(t, stats.TermLimitExhausted)
	require.Equal(t, 3, stats.StoreSize)
}

func TestAmbiguousMatchUnderStrictMatching(t *testing.T) {
	rules := []rule.Rule{
		{Name: "r1", Pattern: rule.Pattern{Sym: "A", HasSym: true}, Action: rule.Expand{Fanout: 1}},
		{Name: "r2", Pattern: rule.Pattern{Sym: "A", HasSym: true}, Action: rule.Expand{Fanout: 2}},
	}
	rt := newTestRuntime(t, rules, Config{StrictMatching: true})
	_, err := rt.Load(&term.TreeNode{Sym: "A", Scale: 0})
	require.NoError(t, err)

	_, _, err = rt.Step()
	var ambErr *rule.AmbiguousMatchError
	require.ErrorAs(t, err, &ambErr)
}

func TestRuleBudgetExhaustionStopsFiring(t *testing.T) {
	rules := []rule.Rule{
		{Name: "up", Pattern: rule.Pattern{Sym: "A", HasSym: true}, Action: rule.Expand{Fanout: 1}},
	}
	store := term.New(term.NewMemoryBackend(), nil, 0)
	sched := scheduler.NewFIFO()
	g, err := guard.New(guard.Config{MaxSteps: 10, RuleBudgets: map[string]int{"up": 1}})
	require.NoError(t, err)
	rt := New(store, sched, g, nil, Config{Rules: rules})

	_, err = rt.Load(&term.TreeNode{Sym: "A", Scale: 0})
	require.NoError(t, err)

	events, err := rt.RunUntilIdle()
	require.NoError(t, err)
	require.Len(t, events, 1, "budget of 1 must stop after a single fire")

	stats, err := rt.Stats()
	require.NoError(t, err)
	require.Equal(t, []string{"up"}, stats.RuleBudgetExhausted)
}
