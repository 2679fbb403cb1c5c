package vecexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/queryir"
	"github.com/cuemby/ruzudb/pkg/types"
)

func numBatch() *Batch {
	return NewBatch(map[string][]types.Value{
		"age": {types.NewInt64(30), types.NewInt64(25), types.NewInt64(40)},
	}, 3)
}

func TestEvaluateLiteralBroadcasts(t *testing.T) {
	out, err := Evaluate(queryir.Lit(types.NewInt64(7)), numBatch())
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, v := range out {
		n, _ := v.AsInt64()
		assert.Equal(t, int64(7), n)
	}
}

func TestEvaluatePropertyAccess(t *testing.T) {
	out, err := Evaluate(queryir.Prop("age"), numBatch())
	require.NoError(t, err)
	n0, _ := out[0].AsInt64()
	assert.Equal(t, int64(30), n0)
}

func TestEvaluatePropertyAccessMissingColumnErrors(t *testing.T) {
	_, err := Evaluate(queryir.Prop("missing"), numBatch())
	assert.Error(t, err)
}

func TestEvaluateComparisonSameType(t *testing.T) {
	expr := queryir.Compare(queryir.Prop("age"), queryir.Gt, queryir.Lit(types.NewInt64(28)))
	out, err := Evaluate(expr, numBatch())
	require.NoError(t, err)
	b0, _ := out[0].AsBool()
	b1, _ := out[1].AsBool()
	b2, _ := out[2].AsBool()
	assert.True(t, b0)
	assert.False(t, b1)
	assert.True(t, b2)
}

func TestEvaluateComparisonCrossTypeErrors(t *testing.T) {
	expr := queryir.Compare(queryir.Prop("age"), queryir.Gt, queryir.Lit(types.NewFloat64(28.0)))
	_, err := Evaluate(expr, numBatch())
	assert.Error(t, err)
}

func TestEvaluateArithmeticInt64(t *testing.T) {
	expr := queryir.Arithmetic(queryir.Prop("age"), queryir.Add, queryir.Lit(types.NewInt64(1)))
	out, err := Evaluate(expr, numBatch())
	require.NoError(t, err)
	n0, _ := out[0].AsInt64()
	assert.Equal(t, int64(31), n0)
}

func TestEvaluateArithmeticDivisionByZero(t *testing.T) {
	expr := queryir.Arithmetic(queryir.Prop("age"), queryir.Div, queryir.Lit(types.NewInt64(0)))
	_, err := Evaluate(expr, numBatch())
	assert.ErrorIs(t, err, engineerr.ErrDivisionByZero)
}

func TestEvaluateLogicalAnd(t *testing.T) {
	expr := queryir.Logical(queryir.And,
		queryir.Compare(queryir.Prop("age"), queryir.Gt, queryir.Lit(types.NewInt64(20))),
		queryir.Compare(queryir.Prop("age"), queryir.Lt, queryir.Lit(types.NewInt64(35))),
	)
	out, err := Evaluate(expr, numBatch())
	require.NoError(t, err)
	b0, _ := out[0].AsBool()
	b2, _ := out[2].AsBool()
	assert.True(t, b0)
	assert.False(t, b2)
}

func TestEvaluateLogicalNot(t *testing.T) {
	expr := queryir.Logical(queryir.Not, queryir.Compare(queryir.Prop("age"), queryir.Gt, queryir.Lit(types.NewInt64(28))))
	out, err := Evaluate(expr, numBatch())
	require.NoError(t, err)
	b0, _ := out[0].AsBool()
	b1, _ := out[1].AsBool()
	assert.False(t, b0)
	assert.True(t, b1)
}

func TestEvaluateIsNull(t *testing.T) {
	batch := NewBatch(map[string][]types.Value{"v": {types.Null, types.NewInt64(1)}}, 2)
	expr := queryir.IsNull(queryir.Prop("v"), false)
	out, err := Evaluate(expr, batch)
	require.NoError(t, err)
	b0, _ := out[0].AsBool()
	b1, _ := out[1].AsBool()
	assert.True(t, b0)
	assert.False(t, b1)
}

func TestEvaluateRespectsSelection(t *testing.T) {
	b := numBatch()
	b.Selection = &SelectionVector{Indices: []uint32{2, 0}}
	out, err := Evaluate(queryir.Prop("age"), b)
	require.NoError(t, err)
	require.Len(t, out, 2)
	n0, _ := out[0].AsInt64()
	n1, _ := out[1].AsInt64()
	assert.Equal(t, int64(40), n0)
	assert.Equal(t, int64(30), n1)
}
