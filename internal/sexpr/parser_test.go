package sexpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFlatForm(t *testing.T) {
	forms, err := Parse(`(max_steps 10)`)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	require.Equal(t, KindList, forms[0].Kind)
	require.Len(t, forms[0].List, 2)
	require.True(t, forms[0].List[0].IsSymbol("max_steps"))
	require.Equal(t, 10, forms[0].List[1].Num)
}

func TestParseNestedFormsAndComments(t *testing.T) {
	src := `
; root term
(root (A :scale 0 B C))

(rules
  (rule up (pattern :sym A) (action expand :fanout 2)))
`
	forms, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, forms, 2)

	root := forms[0]
	require.True(t, root.List[0].IsSymbol("root"))
	termExpr := root.List[1]
	require.Equal(t, KindList, termExpr.Kind)
	require.True(t, termExpr.List[0].IsSymbol("A"))

	rules := forms[1]
	require.True(t, rules.List[0].IsSymbol("rules"))
	rule := rules.List[1]
	require.True(t, rule.List[0].IsSymbol("rule"))
	require.True(t, rule.List[1].IsSymbol("up"))
}

func TestParseUnterminatedListErrors(t *testing.T) {
	_, err := Parse(`(root A`)
	require.Error(t, err)
}
