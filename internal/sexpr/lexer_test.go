package sexpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomSwallowsBalancedParens(t *testing.T) {
	forms, err := Parse(`(pattern :sym F(A))`)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	require.True(t, forms[0].List[0].IsSymbol("pattern"))
	require.True(t, forms[0].List[1].IsSymbol(":sym"))
	require.True(t, forms[0].List[2].IsSymbol("F(A)"))
}
