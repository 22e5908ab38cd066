package cli

import (
	"encoding/json"

	"termweave/internal/program"
	"termweave/internal/runtime"
	"termweave/internal/term"
)

// Summary is the JSON object a successful run prints to stdout, per
// spec §6: enough of the run's configuration and outcome for a caller to
// script against without re-deriving it from the trace file.
type Summary struct {
	ProgramPath string  `json:"program"`
	RunID       string  `json:"run_id"`
	Root        term.ID `json:"root"`
	DryRun      bool    `json:"dry_run"`

	Scheduler      string `json:"scheduler"`
	WalkChildren   bool   `json:"walk_children"`
	StrictMatching bool   `json:"strict_matching"`

	Events              int            `json:"events"`
	RuleCounts          map[string]int `json:"rule_counts,omitempty"`
	ScaleCounts         map[int]int    `json:"scale_counts,omitempty"`
	RuleBudgetExhausted []string       `json:"rule_budget_exhausted"`
	TermLimitExhausted  bool           `json:"term_limit_exhausted"`
	Idle                bool           `json:"idle"`
	BudgetExhausted     bool           `json:"budget_exhausted"`
	Frontier            int            `json:"frontier"`
	StoreSize           int            `json:"store_size"`
}

// BuildSummary assembles the Summary object for a completed (non-dry-run)
// invocation. When inv.StepsOnly is set, the per-rule and per-scale
// breakdowns are omitted, leaving only the aggregate step count.
func BuildSummary(inv Invocation, prog *program.Program, runID string, root term.ID, stats runtime.Stats) *Summary {
	s := &Summary{
		ProgramPath:         inv.ProgramPath,
		RunID:               runID,
		Root:                root,
		Scheduler:           inv.Scheduler,
		WalkChildren:        inv.WalkChildren,
		StrictMatching:      inv.StrictMatching,
		Events:              stats.Events,
		RuleBudgetExhausted: stats.RuleBudgetExhausted,
		TermLimitExhausted:  stats.TermLimitExhausted,
		Idle:                stats.Idle,
		BudgetExhausted:     stats.BudgetExhausted,
		Frontier:            stats.FrontierSize,
		StoreSize:           stats.StoreSize,
	}
	if !inv.StepsOnly {
		s.RuleCounts = stats.RuleCounts
		s.ScaleCounts = stats.ScaleCounts
	}
	return s
}

// Encode returns the summary as a single line of JSON.
func (s *Summary) Encode() ([]byte, error) {
	return json.Marshal(s)
}
