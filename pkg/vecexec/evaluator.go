package vecexec

import (
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/queryir"
	"github.com/cuemby/ruzudb/pkg/types"
)

// Evaluate computes expr over every row batch currently selects,
// returning one value per selected row in selection order. Unlike the
// row-at-a-time evaluator in rowexec, this evaluator does NOT promote
// Int64/Float64 pairs for comparison or arithmetic: every row is
// expected to have already been typed consistently by the column it
// came from, so a type mismatch here indicates a bound-expression bug
// rather than a legitimate literal-vs-column mismatch.
func Evaluate(expr *queryir.Expression, batch *Batch) ([]types.Value, error) {
	rows := selectedIndices(batch)

	switch expr.Kind {
	case queryir.KindLiteral:
		out := make([]types.Value, len(rows))
		for i := range out {
			out[i] = expr.Literal
		}
		return out, nil

	case queryir.KindPropertyAccess:
		col, ok := batch.Column(expr.Variable)
		if !ok {
			return nil, engineerr.New(engineerr.KindExecution, "column %q not present in batch", expr.Variable)
		}
		out := make([]types.Value, len(rows))
		for i, idx := range rows {
			out[i] = col[idx]
		}
		return out, nil

	case queryir.KindComparison:
		left, err := Evaluate(expr.Left, batch)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(expr.Right, batch)
		if err != nil {
			return nil, err
		}
		out := make([]types.Value, len(rows))
		for i := range rows {
			if left[i].IsNull() || right[i].IsNull() {
				out[i] = types.Null
				continue
			}
			lt, _ := left[i].DataType()
			rt, _ := right[i].DataType()
			if lt != rt {
				return nil, engineerr.New(engineerr.KindType, "comparison requires matching types, got %s and %s", lt, rt)
			}
			ord, ok := left[i].Compare(right[i])
			if !ok {
				out[i] = types.Null
				continue
			}
			out[i] = types.NewBool(matchesOp(ord, expr.CompareOp))
		}
		return out, nil

	case queryir.KindLogical:
		return evaluateLogical(expr, batch, rows)

	case queryir.KindArithmetic:
		left, err := Evaluate(expr.Left, batch)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(expr.Right, batch)
		if err != nil {
			return nil, err
		}
		out := make([]types.Value, len(rows))
		for i := range rows {
			v, err := applyArithSameType(left[i], expr.ArithOp, right[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case queryir.KindIsNull:
		v, err := Evaluate(expr.Left, batch)
		if err != nil {
			return nil, err
		}
		out := make([]types.Value, len(rows))
		for i := range rows {
			result := v[i].IsNull()
			if expr.Negated {
				result = !result
			}
			out[i] = types.NewBool(result)
		}
		return out, nil

	default:
		return nil, engineerr.New(engineerr.KindInvalidExpression, "unknown expression kind")
	}
}

func selectedIndices(batch *Batch) []uint32 {
	if batch.Selection != nil {
		return batch.Selection.Indices
	}
	idx := make([]uint32, batch.NumRows)
	for i := range idx {
		idx[i] = uint32(i)
	}
	return idx
}

func matchesOp(ord types.Ordering, op queryir.CompareOp) bool {
	switch op {
	case queryir.Eq:
		return ord == types.Equal
	case queryir.Neq:
		return ord != types.Equal
	case queryir.Lt:
		return ord == types.Less
	case queryir.Lte:
		return ord != types.Greater
	case queryir.Gt:
		return ord == types.Greater
	case queryir.Gte:
		return ord != types.Less
	default:
		return false
	}
}

func evaluateLogical(expr *queryir.Expression, batch *Batch, rows []uint32) ([]types.Value, error) {
	if expr.LogicalOp == queryir.Not {
		if len(expr.Operands) == 0 {
			return nil, engineerr.New(engineerr.KindInvalidExpression, "not expression requires one operand")
		}
		v, err := Evaluate(expr.Operands[0], batch)
		if err != nil {
			return nil, err
		}
		out := make([]types.Value, len(rows))
		for i := range rows {
			b, ok := v[i].AsBool()
			if !ok {
				out[i] = types.Null
				continue
			}
			out[i] = types.NewBool(!b)
		}
		return out, nil
	}

	operandResults := make([][]types.Value, len(expr.Operands))
	for i, operand := range expr.Operands {
		v, err := Evaluate(operand, batch)
		if err != nil {
			return nil, err
		}
		operandResults[i] = v
	}
	out := make([]types.Value, len(rows))
	for row := range rows {
		result := expr.LogicalOp != queryir.Or
		for _, operand := range operandResults {
			b, ok := operand[row].AsBool()
			if !ok {
				result = false
				break
			}
			if expr.LogicalOp == queryir.And {
				result = result && b
			} else {
				result = result || b
			}
		}
		out[row] = types.NewBool(result)
	}
	return out, nil
}

func applyArithSameType(left types.Value, op queryir.ArithmeticOp, right types.Value) (types.Value, error) {
	if left.IsNull() || right.IsNull() {
		return types.Null, nil
	}
	lt, _ := left.DataType()
	rt, _ := right.DataType()
	if lt != rt {
		return types.Null, engineerr.New(engineerr.KindType, "arithmetic requires matching types, got %s and %s", lt, rt)
	}

	switch lt {
	case types.Int64:
		l, _ := left.AsInt64()
		r, _ := right.AsInt64()
		if (op == queryir.Div || op == queryir.Mod) && r == 0 {
			return types.Null, engineerr.ErrDivisionByZero
		}
		switch op {
		case queryir.Add:
			return types.NewInt64(l + r), nil
		case queryir.Sub:
			return types.NewInt64(l - r), nil
		case queryir.Mul:
			return types.NewInt64(l * r), nil
		case queryir.Div:
			return types.NewInt64(l / r), nil
		case queryir.Mod:
			return types.NewInt64(l % r), nil
		}
	case types.Float64:
		l, _ := left.AsFloat64()
		r, _ := right.AsFloat64()
		return applyFloatArith(l, op, r)
	case types.Float32:
		l, _ := left.AsFloat32()
		r, _ := right.AsFloat32()
		v, err := applyFloatArith(float64(l), op, float64(r))
		if err != nil {
			return types.Null, err
		}
		f, _ := v.AsFloat64()
		return types.NewFloat32(float32(f)), nil
	}
	return types.Null, engineerr.New(engineerr.KindUnsupportedOperation, "arithmetic not supported for type %s", lt)
}

func applyFloatArith(l float64, op queryir.ArithmeticOp, r float64) (types.Value, error) {
	switch op {
	case queryir.Add:
		return types.NewFloat64(l + r), nil
	case queryir.Sub:
		return types.NewFloat64(l - r), nil
	case queryir.Mul:
		return types.NewFloat64(l * r), nil
	case queryir.Div:
		if r == 0 {
			return types.Null, engineerr.ErrDivisionByZero
		}
		return types.NewFloat64(l / r), nil
	case queryir.Mod:
		if r == 0 {
			return types.Null, engineerr.ErrDivisionByZero
		}
		return types.NewFloat64(float64(int64(l) % int64(r))), nil
	default:
		return types.Null, engineerr.New(engineerr.KindInvalidExpression, "unknown arithmetic operator")
	}
}
