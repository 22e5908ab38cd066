package guard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlapRejectedAtConstruction(t *testing.T) {
	_, err := New(Config{IncludeRules: []string{"a"}, ExcludeRules: []string{"a"}})
	require.Error(t, err)

	_, err = New(Config{IncludeScales: []int{0}, ExcludeScales: []int{0}})
	require.Error(t, err)
}

func TestStepBudgetExhausted(t *testing.T) {
	g, err := New(Config{MaxSteps: 2})
	require.NoError(t, err)

	require.False(t, g.StepBudgetExhausted())
	g.RecordStep()
	require.False(t, g.StepBudgetExhausted())
	g.RecordStep()
	require.True(t, g.StepBudgetExhausted())
}

func TestRuleBudgetExhaustionTracksNames(t *testing.T) {
	g, err := New(Config{RuleBudgets: map[string]int{"up": 2}})
	require.NoError(t, err)

	require.True(t, g.RuleAllowed("up"))
	g.ConsumeRuleBudget("up")
	require.True(t, g.RuleAllowed("up"))
	g.ConsumeRuleBudget("up")
	require.False(t, g.RuleAllowed("up"))
	require.Equal(t, []string{"up"}, g.ExhaustedBudgets())

	// Never double-records the same exhausted rule.
	g.ConsumeRuleBudget("up")
	require.Equal(t, []string{"up"}, g.ExhaustedBudgets())
}

func TestScaleAndRuleFilters(t *testing.T) {
	g, err := New(Config{
		IncludeRules:  []string{"up"},
		ExcludeScales: []int{3},
	})
	require.NoError(t, err)

	require.True(t, g.RuleAllowed("up"))
	require.False(t, g.RuleAllowed("down"))
	require.True(t, g.ScaleAllowed(0))
	require.False(t, g.ScaleAllowed(3))
}

func TestStateRoundTrip(t *testing.T) {
	g, err := New(Config{MaxSteps: 10, RuleBudgets: map[string]int{"up": 1}})
	require.NoError(t, err)
	g.RecordStep()
	g.ConsumeRuleBudget("up")
	g.RecordTermsInserted(3)
	g.MarkTermLimitExhausted()

	s := g.State()

	g2, err := New(Config{MaxSteps: 10, RuleBudgets: map[string]int{"up": 1}})
	require.NoError(t, err)
	g2.Restore(s)

	require.Equal(t, g.StepCount(), g2.StepCount())
	require.Equal(t, g.ExhaustedBudgets(), g2.ExhaustedBudgets())
	require.Equal(t, g.TermsInserted(), g2.TermsInserted())
	require.Equal(t, g.TermLimitExhausted(), g2.TermLimitExhausted())
}
