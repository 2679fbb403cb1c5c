package rowexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/queryir"
	"github.com/cuemby/ruzudb/pkg/types"
)

func rowWith(cols map[string]types.Value) types.Row {
	row := types.NewRow()
	for k, v := range cols {
		row.Set(k, v)
	}
	return row
}

func TestEvaluateLiteral(t *testing.T) {
	v, err := Evaluate(queryir.Lit(types.NewInt64(5)), types.NewRow())
	require.NoError(t, err)
	n, _ := v.AsInt64()
	assert.Equal(t, int64(5), n)
}

func TestEvaluatePropertyAccessMissingIsNull(t *testing.T) {
	v, err := Evaluate(queryir.Prop("n.missing"), types.NewRow())
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestEvaluateComparisonPromotesIntAndFloat(t *testing.T) {
	expr := queryir.Compare(queryir.Lit(types.NewInt64(3)), queryir.Lt, queryir.Lit(types.NewFloat64(3.5)))
	v, err := Evaluate(expr, types.NewRow())
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestEvaluateLogicalNotUsesSingleOperand(t *testing.T) {
	expr := queryir.Logical(queryir.Not, queryir.Lit(types.NewBool(false)))
	v, err := Evaluate(expr, types.NewRow())
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestEvaluateLogicalNotRequiresOperand(t *testing.T) {
	expr := &queryir.Expression{Kind: queryir.KindLogical, LogicalOp: queryir.Not}
	_, err := Evaluate(expr, types.NewRow())
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.KindInvalidExpression))
}

func TestEvaluateLogicalAndShortCircuitsOnFalse(t *testing.T) {
	expr := queryir.Logical(queryir.And, queryir.Lit(types.NewBool(true)), queryir.Lit(types.NewBool(false)))
	v, err := Evaluate(expr, types.NewRow())
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.False(t, b)
}

func TestEvaluateLogicalOrShortCircuitsOnTrue(t *testing.T) {
	expr := queryir.Logical(queryir.Or, queryir.Lit(types.NewBool(false)), queryir.Lit(types.NewBool(true)))
	v, err := Evaluate(expr, types.NewRow())
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestEvaluateArithmeticIntDivision(t *testing.T) {
	expr := queryir.Arithmetic(queryir.Lit(types.NewInt64(7)), queryir.Div, queryir.Lit(types.NewInt64(2)))
	v, err := Evaluate(expr, types.NewRow())
	require.NoError(t, err)
	n, _ := v.AsInt64()
	assert.Equal(t, int64(3), n)
}

func TestEvaluateArithmeticDivisionByZero(t *testing.T) {
	expr := queryir.Arithmetic(queryir.Lit(types.NewInt64(7)), queryir.Div, queryir.Lit(types.NewInt64(0)))
	_, err := Evaluate(expr, types.NewRow())
	require.Error(t, err)
	assert.ErrorIs(t, err, engineerr.ErrDivisionByZero)
}

func TestEvaluateArithmeticFloatPromotion(t *testing.T) {
	expr := queryir.Arithmetic(queryir.Lit(types.NewInt64(2)), queryir.Mul, queryir.Lit(types.NewFloat64(1.5)))
	v, err := Evaluate(expr, types.NewRow())
	require.NoError(t, err)
	f, _ := v.AsFloat64()
	assert.Equal(t, 3.0, f)
}

func TestEvaluateArithmeticNullOperandYieldsNull(t *testing.T) {
	expr := queryir.Arithmetic(queryir.Lit(types.Null), queryir.Add, queryir.Lit(types.NewInt64(1)))
	v, err := Evaluate(expr, types.NewRow())
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestEvaluateIsNullNegated(t *testing.T) {
	row := rowWith(map[string]types.Value{"n.name": types.NewString("Alice")})
	expr := queryir.IsNull(queryir.Prop("n.name"), true)
	v, err := Evaluate(expr, row)
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestEvaluateUnknownExpressionKind(t *testing.T) {
	expr := &queryir.Expression{Kind: queryir.ExprKind(999)}
	_, err := Evaluate(expr, types.NewRow())
	require.Error(t, err)
}
