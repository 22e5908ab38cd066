// Package scheduler implements the rewrite frontier: the ordered queue of
// pending TermIDs a Runtime pops from on each step, under one of three
// strategies (FIFO, LIFO, seeded Random).
package scheduler

import "termweave/internal/term"

// Kind names a scheduler strategy, used both on the CLI and in snapshots.
type Kind string

const (
	FIFO   Kind = "fifo"
	LIFO   Kind = "lifo"
	Random Kind = "random"
)

// Scheduler maintains the ordered frontier of pending TermIDs.
//
// Push is a no-op for an ID already present in the frontier — the "already
// in frontier" half of spec §3's dedup rule; the "already processed" half
// is the runtime's responsibility, since processed-ness outlives any one
// scheduler strategy across a snapshot/restore.
type Scheduler interface {
	Kind() Kind
	Push(id term.ID)
	Pop() (term.ID, bool)
	Len() int
	Contains(id term.ID) bool
	// Pending returns the current frontier in an order suitable for
	// direct snapshot serialization.
	Pending() []term.ID
}

// New constructs a scheduler of the given kind. seed is only meaningful
// for Random.
func New(kind Kind, seed int64) (Scheduler, error) {
	switch kind {
	case FIFO:
		return NewFIFO(), nil
	case LIFO:
		return NewLIFO(), nil
	case Random:
		return NewRandom(seed), nil
	default:
		return nil, &UnknownKindError{Kind: kind}
	}
}

// UnknownKindError is returned by New and Restore for an unrecognized
// scheduler kind string, e.g. one read back from a corrupted snapshot.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return "scheduler: unknown kind " + string(e.Kind)
}
