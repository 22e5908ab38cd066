// Package runtime implements the single-threaded, cooperative stepping
// loop from spec §4.4 and §5: one logical thread of control owns the
// store, scheduler, and guard state, stepping through the frontier until
// idle, budget-exhausted, or term-limit-exhausted.
package runtime

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"termweave/internal/guard"
	"termweave/internal/rule"
	"termweave/internal/scheduler"
	"termweave/internal/term"
	"termweave/internal/trace"
)

// Config is the immutable configuration a Runtime is built from — the
// parts of a Program (spec §3) that do not change once a run starts.
type Config struct {
	Rules          []rule.Rule
	WalkChildren   bool
	WalkDepth      int
	HasWalkDepth   bool
	StrictMatching bool
}

// Runtime drives rewriting over a term.Store using a scheduler.Scheduler
// for frontier order and a guard.Guards for budgets and filters.
type Runtime struct {
	store     *term.Store
	scheduler scheduler.Scheduler
	guards    *guard.Guards
	sink      *trace.DetachingSink
	cfg       Config

	root      term.ID
	processed map[term.ID]struct{}

	ruleCounts  map[string]int
	scaleCounts map[int]int
	firedEvents int

	idle           bool
	budgetExceeded bool
}

// New constructs a Runtime over an already-built store and scheduler. The
// store and scheduler are expected to be empty; use Load to seed a root
// term, or seed them directly and call Seed for snapshot restoration.
func New(store *term.Store, sched scheduler.Scheduler, guards *guard.Guards, sink *trace.DetachingSink, cfg Config) *Runtime {
	return &Runtime{
		store:       store,
		scheduler:   sched,
		guards:      guards,
		sink:        sink,
		cfg:         cfg,
		processed:   make(map[term.ID]struct{}),
		ruleCounts:  make(map[string]int),
		scaleCounts: make(map[int]int),
	}
}

// Load interns root and schedules it (and, if walk-children is set, its
// descendants), establishing the run's starting frontier.
func (rt *Runtime) Load(root *term.TreeNode) (term.ID, error) {
	id, err := rt.store.AddTree(root)
	if err != nil {
		return "", fmt.Errorf("runtime: loading root: %w", err)
	}
	rt.guards.RecordTermsInserted(1)
	rt.root = id
	rt.scheduleTree(id, 0)
	return id, nil
}

// Seed restores the frontier and processed set from snapshot data,
// without re-deriving them from the root — used when resuming a run.
func (rt *Runtime) Seed(root term.ID, frontier []term.ID, processed []term.ID) error {
	has, err := rt.store.Has(root)
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("runtime: root %s not found in restored store", root)
	}
	rt.root = root
	rt.processed = make(map[term.ID]struct{}, len(processed))
	for _, id := range processed {
		rt.processed[id] = struct{}{}
	}
	for _, id := range frontier {
		has, err := rt.store.Has(id)
		if err != nil || !has {
			continue
		}
		rt.scheduler.Push(id)
	}
	return nil
}

func (rt *Runtime) scheduleTerm(id term.ID) {
	if _, done := rt.processed[id]; done {
		return
	}
	rt.scheduler.Push(id)
}

func (rt *Runtime) scheduleTree(id term.ID, depth int) {
	rt.scheduleTerm(id)
	if !rt.cfg.WalkChildren {
		return
	}
	if rt.cfg.HasWalkDepth && depth >= rt.cfg.WalkDepth {
		return
	}
	rec, err := rt.store.Get(id)
	if err != nil {
		return
	}
	for _, child := range rec.Children {
		rt.scheduleTree(child, depth+1)
	}
}

// Step performs one iteration of the loop in spec §4.4. It returns the
// Event produced (nil if nothing fired), the Outcome classifying what
// happened, and a non-nil error only for a fatal, non-retryable condition
// (an ambiguous match, a signature violation, or any other store or action
// error).
func (rt *Runtime) Step() (*Event, Outcome, error) {
	if rt.guards.StepBudgetExhausted() {
		rt.budgetExceeded = true
		return nil, OutcomeStepBudgetExceeded, nil
	}

	id, ok := rt.scheduler.Pop()
	if !ok {
		rt.idle = true
		return nil, OutcomeIdle, nil
	}

	rec, err := rt.store.Get(id)
	if err != nil {
		return nil, OutcomeNoRuleMatched, fmt.Errorf("runtime: fetching popped term: %w", err)
	}

	if !rt.guards.ScaleAllowed(rec.Scale) {
		// Per spec §4.4 step 4: scale-filtered terms are dropped without
		// counting a step and without being marked processed, since they
		// were never actually considered for rewriting.
		return nil, OutcomeScaleFiltered, nil
	}

	rt.processed[id] = struct{}{}

	candidates := make([]rule.Rule, 0, len(rt.cfg.Rules))
	for _, r := range rt.cfg.Rules {
		if rt.guards.RuleAllowed(r.Name) {
			candidates = append(candidates, r)
		}
	}

	selected, matched, err := rule.Select(candidates, rec, rt.cfg.StrictMatching)
	if err != nil {
		return nil, OutcomeNoRuleMatched, err
	}
	if !matched {
		return nil, OutcomeNoRuleMatched, nil
	}

	after, err := selected.Action.Apply(rt.store, id, rec)
	if err != nil {
		if err == rule.ErrActionNotApplicable {
			return nil, OutcomeNoRuleMatched, nil
		}
		if errors.Is(err, term.ErrTermLimitExceeded) {
			rt.guards.MarkTermLimitExhausted()
			return nil, OutcomeTermLimitExceeded, nil
		}
		return nil, OutcomeNoRuleMatched, err
	}

	rt.guards.RecordTermsInserted(len(after))
	if rt.store.LimitExhausted() {
		rt.guards.MarkTermLimitExhausted()
	}

	rt.guards.RecordStep()
	rt.guards.ConsumeRuleBudget(selected.Name)
	rt.ruleCounts[selected.Name]++
	rt.scaleCounts[rec.Scale]++
	rt.firedEvents++

	ev := &Event{
		Step:        rt.guards.StepCount(),
		Rule:        selected.Name,
		Before:      id,
		BeforeSym:   rec.Sym,
		BeforeScale: rec.Scale,
		After:       after,
		Scale:       rec.Scale,
		Timestamp:   time.Now(),
	}

	if rt.sink != nil {
		rt.sink.Record(trace.Record{
			Step:        ev.Step,
			Rule:        ev.Rule,
			Before:      ev.Before,
			BeforeSym:   ev.BeforeSym,
			BeforeScale: ev.BeforeScale,
			After:       ev.After,
			Scale:       ev.Scale,
			TimestampNS: ev.Timestamp.UnixNano(),
		})
	}

	if rt.guards.TermLimitExhausted() {
		return ev, OutcomeTermLimitExceeded, nil
	}

	for _, newID := range after {
		if newID == id {
			continue
		}
		rt.scheduleTree(newID, 0)
	}

	return ev, OutcomeApplied, nil
}

// Run drives up to maxSteps iterations of Step, stopping early if a halt
// condition is hit, and returns every Event that fired.
func (rt *Runtime) Run(maxSteps int) ([]Event, error) {
	var events []Event
	for i := 0; i < maxSteps; i++ {
		ev, outcome, err := rt.Step()
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
		if outcome.Halted() {
			break
		}
	}
	return events, nil
}

// RunUntilIdle drives Step until the frontier empties or a hard limit
// (step budget, term limit) is reached.
func (rt *Runtime) RunUntilIdle() ([]Event, error) {
	var events []Event
	for {
		ev, outcome, err := rt.Step()
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
		if outcome.Halted() {
			break
		}
	}
	return events, nil
}

// Root returns the run's root TermID.
func (rt *Runtime) Root() term.ID { return rt.root }

// Store returns the underlying term store.
func (rt *Runtime) Store() *term.Store { return rt.store }

// Scheduler returns the underlying scheduler.
func (rt *Runtime) Scheduler() scheduler.Scheduler { return rt.scheduler }

// Guards returns the underlying guard state.
func (rt *Runtime) Guards() *guard.Guards { return rt.guards }

// Processed returns the set of TermIDs marked processed, as a sorted
// slice for reproducible serialization.
func (rt *Runtime) Processed() []term.ID {
	out := make([]term.ID, 0, len(rt.processed))
	for id := range rt.processed {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats summarizes runtime activity for CLI/log reporting, mirroring the
// reference implementation's stats() dictionary.
type Stats struct {
	Events             int
	RuleCounts         map[string]int
	ScaleCounts        map[int]int
	FrontierSize       int
	StoreSize          int
	Idle               bool
	BudgetExhausted    bool
	RuleBudgetExhausted []string
	TermLimitExhausted bool
}

// Stats returns a point-in-time summary of the run.
func (rt *Runtime) Stats() (Stats, error) {
	storeSize, err := rt.store.Len()
	if err != nil {
		return Stats{}, err
	}
	ruleCounts := make(map[string]int, len(rt.ruleCounts))
	for k, v := range rt.ruleCounts {
		ruleCounts[k] = v
	}
	scaleCounts := make(map[int]int, len(rt.scaleCounts))
	for k, v := range rt.scaleCounts {
		scaleCounts[k] = v
	}
	return Stats{
		Events:              rt.firedEvents,
		RuleCounts:          ruleCounts,
		ScaleCounts:         scaleCounts,
		FrontierSize:        rt.scheduler.Len(),
		StoreSize:           storeSize,
		Idle:                rt.scheduler.Len() == 0,
		BudgetExhausted:     rt.budgetExceeded,
		RuleBudgetExhausted: rt.guards.ExhaustedBudgets(),
		TermLimitExhausted:  rt.guards.TermLimitExhausted(),
	}, nil
}
