package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"termweave/internal/term"
)

func TestFIFOOrder(t *testing.T) {
	q := NewFIFO()
	q.Push("a")
	q.Push("b")
	q.Push("c")

	for _, want := range []term.ID{"a", "b", "c"} {
		got, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestLIFOOrder(t *testing.T) {
	q := NewLIFO()
	q.Push("a")
	q.Push("b")
	q.Push("c")

	for _, want := range []term.ID{"c", "b", "a"} {
		got, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestPushDedupsFrontierMembership(t *testing.T) {
	q := NewFIFO()
	q.Push("a")
	q.Push("a")
	require.Equal(t, 1, q.Len())
}

func TestRandomIsDeterministicGivenSeed(t *testing.T) {
	ids := []term.ID{"a", "b", "c", "d", "e"}

	run := func() []term.ID {
		q := NewRandom(42)
		for _, id := range ids {
			q.Push(id)
		}
		var order []term.ID
		for q.Len() > 0 {
			id, _ := q.Pop()
			order = append(order, id)
		}
		return order
	}

	first := run()
	second := run()
	require.Equal(t, first, second, "same seed must produce the same pop sequence")
}

func TestRandomResumeContinuesSameSequence(t *testing.T) {
	ids := []term.ID{"a", "b", "c", "d", "e"}

	q := NewRandom(7)
	for _, id := range ids {
		q.Push(id)
	}
	first, _ := q.Pop()
	second, _ := q.Pop()

	resumed := &RandomQueue{}
	resumed.Restore(q.Pending(), q.State())
	third, _ := resumed.Pop()

	fresh := NewRandom(7)
	for _, id := range ids {
		fresh.Push(id)
	}
	_, _ = fresh.Pop()
	_, _ = fresh.Pop()
	wantThird, _ := fresh.Pop()

	require.Equal(t, wantThird, third)
	require.NotEqual(t, first, second)
}
