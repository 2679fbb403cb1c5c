package rowexec

import (
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/queryir"
	"github.com/cuemby/ruzudb/pkg/types"
)

// Evaluate computes expr against row.
func Evaluate(expr *queryir.Expression, row types.Row) (types.Value, error) {
	switch expr.Kind {
	case queryir.KindLiteral:
		return expr.Literal, nil

	case queryir.KindPropertyAccess:
		v, ok := row.Get(expr.Variable)
		if !ok {
			return types.Null, nil
		}
		return v, nil

	case queryir.KindComparison:
		left, err := Evaluate(expr.Left, row)
		if err != nil {
			return types.Null, err
		}
		right, err := Evaluate(expr.Right, row)
		if err != nil {
			return types.Null, err
		}
		left, right = types.PromoteForComparison(left, right)
		ord, ok := left.Compare(right)
		if !ok {
			return types.Null, nil
		}
		var result bool
		switch expr.CompareOp {
		case queryir.Eq:
			result = ord == types.Equal
		case queryir.Neq:
			result = ord != types.Equal
		case queryir.Lt:
			result = ord == types.Less
		case queryir.Lte:
			result = ord != types.Greater
		case queryir.Gt:
			result = ord == types.Greater
		case queryir.Gte:
			result = ord != types.Less
		default:
			return types.Null, engineerr.New(engineerr.KindInvalidExpression, "unknown comparison operator")
		}
		return types.NewBool(result), nil

	case queryir.KindLogical:
		switch expr.LogicalOp {
		case queryir.Not:
			if len(expr.Operands) == 0 {
				return types.Null, engineerr.New(engineerr.KindInvalidExpression, "not expression requires one operand")
			}
			v, err := Evaluate(expr.Operands[0], row)
			if err != nil {
				return types.Null, err
			}
			b, ok := v.AsBool()
			if !ok {
				return types.Null, nil
			}
			return types.NewBool(!b), nil
		case queryir.And, queryir.Or:
			wantShortCircuit := expr.LogicalOp == queryir.Or
			for _, operand := range expr.Operands {
				v, err := Evaluate(operand, row)
				if err != nil {
					return types.Null, err
				}
				b, ok := v.AsBool()
				if !ok {
					return types.Null, nil
				}
				if b == wantShortCircuit {
					return types.NewBool(wantShortCircuit), nil
				}
			}
			return types.NewBool(!wantShortCircuit), nil
		default:
			return types.Null, engineerr.New(engineerr.KindInvalidExpression, "unknown logical operator")
		}

	case queryir.KindArithmetic:
		left, err := Evaluate(expr.Left, row)
		if err != nil {
			return types.Null, err
		}
		right, err := Evaluate(expr.Right, row)
		if err != nil {
			return types.Null, err
		}
		return evaluateArithmetic(left, expr.ArithOp, right)

	case queryir.KindIsNull:
		v, err := Evaluate(expr.Left, row)
		if err != nil {
			return types.Null, err
		}
		result := v.IsNull()
		if expr.Negated {
			result = !result
		}
		return types.NewBool(result), nil

	default:
		return types.Null, engineerr.New(engineerr.KindInvalidExpression, "unknown expression kind")
	}
}

func evaluateArithmetic(left types.Value, op queryir.ArithmeticOp, right types.Value) (types.Value, error) {
	if left.IsNull() || right.IsNull() {
		return types.Null, nil
	}
	left, right = types.PromoteForComparison(left, right)

	if lf, ok := left.AsFloat64(); ok {
		rf, ok := right.AsFloat64()
		if !ok {
			return types.Null, engineerr.New(engineerr.KindType, "arithmetic type mismatch")
		}
		result, err := applyArith(lf, op, rf)
		if err != nil {
			return types.Null, err
		}
		return types.NewFloat64(result), nil
	}

	li, ok := left.AsInt64()
	if !ok {
		return types.Null, engineerr.New(engineerr.KindType, "arithmetic requires numeric operands")
	}
	ri, ok := right.AsInt64()
	if !ok {
		return types.Null, engineerr.New(engineerr.KindType, "arithmetic type mismatch")
	}
	if op == queryir.Div || op == queryir.Mod {
		if ri == 0 {
			return types.Null, engineerr.ErrDivisionByZero
		}
	}
	switch op {
	case queryir.Add:
		return types.NewInt64(li + ri), nil
	case queryir.Sub:
		return types.NewInt64(li - ri), nil
	case queryir.Mul:
		return types.NewInt64(li * ri), nil
	case queryir.Div:
		return types.NewInt64(li / ri), nil
	case queryir.Mod:
		return types.NewInt64(li % ri), nil
	default:
		return types.Null, engineerr.New(engineerr.KindInvalidExpression, "unknown arithmetic operator")
	}
}

func applyArith(l float64, op queryir.ArithmeticOp, r float64) (float64, error) {
	switch op {
	case queryir.Add:
		return l + r, nil
	case queryir.Sub:
		return l - r, nil
	case queryir.Mul:
		return l * r, nil
	case queryir.Div:
		if r == 0 {
			return 0, engineerr.ErrDivisionByZero
		}
		return l / r, nil
	case queryir.Mod:
		if r == 0 {
			return 0, engineerr.ErrDivisionByZero
		}
		return float64(int64(l) % int64(r)), nil
	default:
		return 0, engineerr.New(engineerr.KindInvalidExpression, "unknown arithmetic operator")
	}
}
