// Package snapshot implements the pause/resume format from spec §4.6 and
// §6: a single JSON file holding the full store, frontier, processed set,
// scheduler and guard state, written atomically so a crash mid-write never
// corrupts a prior snapshot.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"termweave/internal/guard"
	"termweave/internal/runtime"
	"termweave/internal/scheduler"
	"termweave/internal/term"
)

// StoreEntry is one interned term, in the store's insertion order.
type StoreEntry struct {
	ID       term.ID   `json:"id"`
	Sym      string    `json:"sym"`
	Scale    int       `json:"scale"`
	Children []term.ID `json:"children"`
}

// Doc is the exact key set spec §6 names for a snapshot file.
type Doc struct {
	Store                []StoreEntry   `json:"store"`
	Root                 term.ID        `json:"root"`
	Frontier             []term.ID      `json:"frontier"`
	Processed            []term.ID      `json:"processed"`
	Scheduler            scheduler.Kind `json:"scheduler"`
	SchedulerSeed        *int64         `json:"scheduler_seed"`
	SchedulerState       *uint64        `json:"scheduler_state"`
	WalkChildren         bool           `json:"walk_children"`
	WalkDepth            *int           `json:"walk_depth"`
	StrictMatching       bool           `json:"strict_matching"`
	DetectConflicts      bool           `json:"detect_conflicts"`
	IncludeRules         []string       `json:"include_rules"`
	ExcludeRules         []string       `json:"exclude_rules"`
	IncludeScales        []int          `json:"include_scales"`
	ExcludeScales        []int          `json:"exclude_scales"`
	RuleBudgets          map[string]int `json:"rule_budgets"`
	RuleBudgetExhausted  []string       `json:"rule_budget_exhausted"`
	MaxTerms             *int           `json:"max_terms"`
	TermLimitExhausted   bool           `json:"term_limit_exhausted"`
}

// Filters mirrors the load-time filter configuration carried alongside a
// snapshot; it is not derivable from the Runtime itself since guard.Guards
// only exposes the parts needed at runtime, not the original Config.
type Filters struct {
	WalkChildren    bool
	WalkDepth       int
	HasWalkDepth    bool
	StrictMatching  bool
	DetectConflicts bool
	IncludeRules    []string
	ExcludeRules    []string
	IncludeScales   []int
	ExcludeScales   []int
	MaxTerms        int
	HasMaxTerms     bool
}

// Build assembles a Doc from a live Runtime plus the load-time filters
// spec §4.6 says must round-trip alongside the mutable state.
func Build(rt *runtime.Runtime, filters Filters) (Doc, error) {
	var entries []StoreEntry
	err := rt.Store().Iterate(func(id term.ID, rec term.Record) error {
		children := append([]term.ID(nil), rec.Children...)
		entries = append(entries, StoreEntry{ID: id, Sym: rec.Sym, Scale: rec.Scale, Children: children})
		return nil
	})
	if err != nil {
		return Doc{}, fmt.Errorf("snapshot: iterating store: %w", err)
	}

	frontier := rt.Scheduler().Pending()
	processed := rt.Processed()
	gstate := rt.Guards().State()

	doc := Doc{
		Store:               entries,
		Root:                rt.Root(),
		Frontier:            frontier,
		Processed:           processed,
		Scheduler:           rt.Scheduler().Kind(),
		WalkChildren:        filters.WalkChildren,
		StrictMatching:      filters.StrictMatching,
		DetectConflicts:     filters.DetectConflicts,
		IncludeRules:        filters.IncludeRules,
		ExcludeRules:        filters.ExcludeRules,
		IncludeScales:       filters.IncludeScales,
		ExcludeScales:       filters.ExcludeScales,
		RuleBudgets:         gstate.RuleRemaining,
		RuleBudgetExhausted: gstate.ExhaustedBudgets,
		TermLimitExhausted:  gstate.TermLimitExhausted,
	}
	if filters.HasWalkDepth {
		wd := filters.WalkDepth
		doc.WalkDepth = &wd
	}
	if filters.HasMaxTerms {
		mt := filters.MaxTerms
		doc.MaxTerms = &mt
	}
	if rq, ok := rt.Scheduler().(*scheduler.RandomQueue); ok {
		seed := rq.Seed()
		state := rq.State()
		doc.SchedulerSeed = &seed
		doc.SchedulerState = &state
	}
	return doc, nil
}

// Restore rebuilds a term.Store, Scheduler, and guard.Guards from a Doc,
// per spec §4.6: the store is reconstructed in insertion order so TermIDs
// remain stable, then the frontier, scheduler state, and guard state are
// replayed on top.
func Restore(doc Doc, backend term.Backend, validator term.Validator) (*term.Store, scheduler.Scheduler, *guard.Guards, error) {
	store := term.New(backend, validator, 0)
	if doc.MaxTerms != nil {
		store = term.New(backend, validator, *doc.MaxTerms)
	}

	order := make([]term.ID, 0, len(doc.Store))
	for _, e := range doc.Store {
		if err := backend.Put(e.ID, term.Record{Sym: e.Sym, Scale: e.Scale, Children: e.Children}); err != nil {
			return nil, nil, nil, fmt.Errorf("snapshot: restoring store entry %s: %w", e.ID, err)
		}
		order = append(order, e.ID)
	}
	store.Seed(order)

	var sched scheduler.Scheduler
	switch doc.Scheduler {
	case scheduler.FIFO, "":
		q := scheduler.NewFIFO()
		q.Restore(doc.Frontier)
		sched = q
	case scheduler.LIFO:
		q := scheduler.NewLIFO()
		q.Restore(doc.Frontier)
		sched = q
	case scheduler.Random:
		var seed int64
		var state uint64
		if doc.SchedulerSeed != nil {
			seed = *doc.SchedulerSeed
		}
		if doc.SchedulerState != nil {
			state = *doc.SchedulerState
		}
		q := scheduler.NewRandom(seed)
		q.Restore(doc.Frontier, state)
		sched = q
	default:
		return nil, nil, nil, &scheduler.UnknownKindError{Kind: doc.Scheduler}
	}

	maxTerms := 0
	if doc.MaxTerms != nil {
		maxTerms = *doc.MaxTerms
	}
	g, err := guard.New(guard.Config{
		RuleBudgets:   doc.RuleBudgets,
		IncludeRules:  doc.IncludeRules,
		ExcludeRules:  doc.ExcludeRules,
		IncludeScales: doc.IncludeScales,
		ExcludeScales: doc.ExcludeScales,
		MaxTerms:      maxTerms,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("snapshot: rebuilding guards: %w", err)
	}
	g.Restore(guard.State{
		RuleRemaining:      doc.RuleBudgets,
		ExhaustedBudgets:   doc.RuleBudgetExhausted,
		TermLimitExhausted: doc.TermLimitExhausted,
	})

	return store, sched, g, nil
}

// Save writes doc to path atomically: write to a temp file in the same
// directory, fsync it, rename over the destination, then fsync the
// directory — the sequence the wider codebase uses for durable state
// writes, adapted here from per-run/per-checkpoint files to one snapshot
// file per invocation.
func Save(path string, doc Doc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshaling: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomicDurable(path, data, 0o644)
}

// Load reads and strictly decodes a snapshot file, rejecting unknown
// fields and trailing content — the same strict-decode discipline the
// wider codebase applies to its own state files.
func Load(path string) (Doc, error) {
	f, err := os.Open(path)
	if err != nil {
		return Doc{}, fmt.Errorf("snapshot: opening %s: %w", path, err)
	}
	defer f.Close()

	var doc Doc
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Doc{}, fmt.Errorf("snapshot: decoding %s: %w", path, err)
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return Doc{}, fmt.Errorf("snapshot: %s has trailing content after the JSON document", path)
	}
	return doc, nil
}

func writeFileAtomicDurable(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
