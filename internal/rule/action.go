package rule

import (
	"fmt"
	"strconv"
	"strings"

	"termweave/internal/term"
)

// ErrActionNotApplicable signals that an action's preconditions were not
// met for the matched term (e.g. reduce on a non-F(...) symbol). The
// runtime treats this exactly like no rule having matched at all.
var ErrActionNotApplicable = fmt.Errorf("action does not apply to matched term")

// Action produces a replacement set of TermIDs for a matched term.
//
// Implementations must be deterministic: given the same store content and
// the same matched term, they must intern the same replacement terms.
type Action interface {
	Apply(s *term.Store, id term.ID, t term.Record) ([]term.ID, error)
}

// Expand is the built-in action from spec §3: one term at scale s+1 named
// F(sym), with Fanout children named sym.0 .. sym.(Fanout-1), also at
// scale s+1.
type Expand struct {
	Fanout int
}

func (e Expand) Apply(s *term.Store, id term.ID, t term.Record) ([]term.ID, error) {
	if e.Fanout < 1 {
		return nil, fmt.Errorf("expand: fanout must be >= 1, got %d", e.Fanout)
	}
	childIDs := make([]term.ID, e.Fanout)
	for i := 0; i < e.Fanout; i++ {
		childID, err := s.Add(motifChildSymbol(t.Sym, i), t.Scale+1, nil)
		if err != nil {
			return nil, fmt.Errorf("expand: synthesizing motif child %d: %w", i, err)
		}
		childIDs[i] = childID
	}
	out, err := s.Add(expandedSymbol(t.Sym), t.Scale+1, childIDs)
	if err != nil {
		return nil, fmt.Errorf("expand: interning result: %w", err)
	}
	return []term.ID{out}, nil
}

// Reduce is the built-in action's inverse: if the matched term's symbol is
// F(x), yields x at scale s-1. Any other symbol shape means the action does
// not apply — the runtime treats that exactly as if no rule had matched.
type Reduce struct{}

func (Reduce) Apply(s *term.Store, id term.ID, t term.Record) ([]term.ID, error) {
	inner, ok := reducedSymbol(t.Sym)
	if !ok {
		return nil, ErrActionNotApplicable
	}
	if t.Scale == 0 {
		return nil, ErrActionNotApplicable
	}
	out, err := s.Add(inner, t.Scale-1, nil)
	if err != nil {
		return nil, fmt.Errorf("reduce: interning result: %w", err)
	}
	return []term.ID{out}, nil
}

// ReduceSummary is a richer, optional reduce variant that folds the
// synthesized motif children's symbols into the reduced term's own name
// instead of discarding them, in the spirit of the original
// motif-summarizing reduction. It is never registered implicitly — the
// coherence invariant in §3 is only guaranteed for the bare Expand/Reduce
// pair — but a program may opt into it under a custom action name.
type ReduceSummary struct{}

func (ReduceSummary) Apply(s *term.Store, id term.ID, t term.Record) ([]term.ID, error) {
	inner, ok := reducedSymbol(t.Sym)
	if !ok {
		return nil, ErrActionNotApplicable
	}
	if t.Scale == 0 {
		return nil, ErrActionNotApplicable
	}
	var motifs []string
	for _, cid := range t.Children {
		rec, err := s.Get(cid)
		if err != nil {
			return nil, fmt.Errorf("reduce-summary: reading motif child: %w", err)
		}
		motifs = append(motifs, rec.Sym)
	}
	sym := inner
	if len(motifs) > 0 {
		sym = inner + "[" + strings.Join(motifs, ",") + "]"
	}
	out, err := s.Add(sym, t.Scale-1, nil)
	if err != nil {
		return nil, fmt.Errorf("reduce-summary: interning result: %w", err)
	}
	return []term.ID{out}, nil
}

// Custom wraps a user-registered action under a serializable name and
// parameter map, per spec §3's requirement that custom actions be nameable
// and serializable.
type Custom struct {
	Name   string
	Params map[string]string
	Fn     func(s *term.Store, id term.ID, t term.Record, params map[string]string) ([]term.ID, error)
}

func (c Custom) Apply(s *term.Store, id term.ID, t term.Record) ([]term.ID, error) {
	if c.Fn == nil {
		return nil, fmt.Errorf("custom action %q: no implementation registered", c.Name)
	}
	return c.Fn(s, id, t, c.Params)
}

func expandedSymbol(sym string) string {
	return "F(" + sym + ")"
}

// reducedSymbol reverses expandedSymbol: "F(x)" -> ("x", true).
func reducedSymbol(sym string) (string, bool) {
	if !strings.HasPrefix(sym, "F(") || !strings.HasSuffix(sym, ")") {
		return "", false
	}
	return sym[len("F(") : len(sym)-len(")")], true
}

func motifChildSymbol(sym string, i int) string {
	return sym + "." + strconv.Itoa(i)
}
