package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddIsContentAddressedAndIdempotent(t *testing.T) {
	s := New(NewMemoryBackend(), nil, 0)

	id1, err := s.Add("A", 0, nil)
	require.NoError(t, err)

	id2, err := s.Add("A", 0, nil)
	require.NoError(t, err)

	require.Equal(t, id1, id2, "identical content must yield identical TermID")

	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestAddDistinguishesScaleAndChildren(t *testing.T) {
	s := New(NewMemoryBackend(), nil, 0)

	a0, err := s.Add("A", 0, nil)
	require.NoError(t, err)
	a1, err := s.Add("A", 1, nil)
	require.NoError(t, err)
	require.NotEqual(t, a0, a1)

	wrap, err := s.Add("wrap", 0, []ID{a0})
	require.NoError(t, err)
	wrap2, err := s.Add("wrap", 0, []ID{a1})
	require.NoError(t, err)
	require.NotEqual(t, wrap, wrap2)
}

func TestMaterializeRoundTrips(t *testing.T) {
	s := New(NewMemoryBackend(), nil, 0)
	tree := &TreeNode{Sym: "root", Scale: 0, Children: []*TreeNode{
		{Sym: "leaf0", Scale: 0},
		{Sym: "leaf1", Scale: 0},
	}}

	id, err := s.AddTree(tree)
	require.NoError(t, err)

	got, err := s.Materialize(id)
	require.NoError(t, err)
	require.Equal(t, "root", got.Sym)
	require.Len(t, got.Children, 2)
	require.Equal(t, "leaf0", got.Children[0].Sym)
	require.Equal(t, "leaf1", got.Children[1].Sym)
}

func TestMaxTermsCapsInsertion(t *testing.T) {
	s := New(NewMemoryBackend(), nil, 2)

	_, err := s.Add("A", 0, nil)
	require.NoError(t, err)
	_, err = s.Add("B", 0, nil)
	require.NoError(t, err)

	_, err = s.Add("C", 0, nil)
	require.ErrorIs(t, err, ErrTermLimitExceeded)
	require.True(t, s.LimitExhausted())

	// Re-adding existing content never trips the cap.
	_, err = s.Add("A", 0, nil)
	require.NoError(t, err)
}

type rejectEverything struct{}

func (rejectEverything) Validate(sym string, scale int, children []ID) error {
	return errRejected
}

var errRejected = &validationErr{"rejected"}

type validationErr struct{ msg string }

func (e *validationErr) Error() string { return e.msg }

func TestValidatorRejectsInsertion(t *testing.T) {
	s := New(NewMemoryBackend(), rejectEverything{}, 0)
	_, err := s.Add("A", 0, nil)
	require.Error(t, err)

	n, _ := s.Len()
	require.Equal(t, 0, n)
}

func TestIterateIsInsertionOrder(t *testing.T) {
	s := New(NewMemoryBackend(), nil, 0)
	a, _ := s.Add("A", 0, nil)
	b, _ := s.Add("B", 0, nil)
	c, _ := s.Add("A", 0, []ID{a, b})

	var order []ID
	err := s.Iterate(func(id ID, rec Record) error {
		order = append(order, id)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []ID{a, b, c}, order)
}
