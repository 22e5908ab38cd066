// Package signature implements the optional per-symbol term constraints
// from spec §4.8: declared arity and scale bounds, consulted by the term
// store on every insertion.
package signature

import (
	"encoding/json"
	"fmt"
	"sort"

	"termweave/internal/term"
)

// Entry declares the constraints for one symbol.
type Entry struct {
	MinChildren int
	MaxChildren int  // applied only when HasMax is set
	HasMax      bool
	Scales      []int
	HasScales   bool
}

// ValidationError reports a specific signature violation. It is fatal to
// the step that produced it, per spec §4.4's failure semantics.
type ValidationError struct {
	Sym    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("signature violation for %q: %s", e.Sym, e.Reason)
}

func (e Entry) validate(sym string, scale int, numChildren int) error {
	if numChildren < e.MinChildren {
		return &ValidationError{Sym: sym, Reason: fmt.Sprintf("expected at least %d children, found %d", e.MinChildren, numChildren)}
	}
	if e.HasMax && numChildren > e.MaxChildren {
		return &ValidationError{Sym: sym, Reason: fmt.Sprintf("expected at most %d children, found %d", e.MaxChildren, numChildren)}
	}
	if e.HasScales && !containsInt(e.Scales, scale) {
		return &ValidationError{Sym: sym, Reason: fmt.Sprintf("scale %d not in allowed scales %v", scale, e.Scales)}
	}
	return nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// Signature is a declarative set of per-symbol constraints. It implements
// term.Validator so it can be plugged directly into a term.Store.
//
// A symbol with no declared entry is unconstrained rather than rejected —
// a deliberate departure from the stricter reference behavior, since the
// signature file is documented as optional and partial: requiring every
// synthesized symbol (e.g. a rule's motif children) to be pre-declared
// would make partial signatures unusable in practice.
type Signature struct {
	bySym map[string]Entry
}

// New builds a Signature from entries, keyed by symbol.
func New(entries map[string]Entry) *Signature {
	bySym := make(map[string]Entry, len(entries))
	for sym, e := range entries {
		bySym[sym] = e
	}
	return &Signature{bySym: bySym}
}

// Validate implements term.Validator.
func (s *Signature) Validate(sym string, scale int, children []term.ID) error {
	entry, ok := s.bySym[sym]
	if !ok {
		return nil
	}
	return entry.validate(sym, scale, len(children))
}

// Entries returns the declared symbols in sorted order, for
// deterministic iteration (e.g. when re-serializing).
func (s *Signature) Entries() []string {
	syms := make([]string, 0, len(s.bySym))
	for sym := range s.bySym {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// jsonEntry mirrors the spec §6 signature-file shape:
// {"symbols": {"<sym>": {"min_children": N, "max_children": M, "scales": [...]}}}.
type jsonEntry struct {
	MinChildren int   `json:"min_children,omitempty"`
	MaxChildren *int  `json:"max_children,omitempty"`
	Scales      []int `json:"scales,omitempty"`
}

type jsonDoc struct {
	Symbols map[string]jsonEntry `json:"symbols"`
}

// Parse decodes a signature file per spec §6.
func Parse(data []byte) (*Signature, error) {
	var doc jsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("signature: parsing: %w", err)
	}
	entries := make(map[string]Entry, len(doc.Symbols))
	for sym, je := range doc.Symbols {
		e := Entry{MinChildren: je.MinChildren}
		if je.MaxChildren != nil {
			e.HasMax = true
			e.MaxChildren = *je.MaxChildren
		}
		if je.Scales != nil {
			e.HasScales = true
			e.Scales = append([]int(nil), je.Scales...)
		}
		entries[sym] = e
	}
	return New(entries), nil
}

// Marshal encodes the signature back to the spec §6 JSON shape, with
// symbols in sorted order for reproducible output.
func (s *Signature) Marshal() ([]byte, error) {
	doc := jsonDoc{Symbols: make(map[string]jsonEntry, len(s.bySym))}
	for _, sym := range s.Entries() {
		e := s.bySym[sym]
		je := jsonEntry{MinChildren: e.MinChildren}
		if e.HasMax {
			mc := e.MaxChildren
			je.MaxChildren = &mc
		}
		if e.HasScales {
			je.Scales = append([]int(nil), e.Scales...)
		}
		doc.Symbols[sym] = je
	}
	return json.MarshalIndent(doc, "", "  ")
}
