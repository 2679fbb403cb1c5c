// Package queryir defines the bound expression tree physical operators
// evaluate against: a minimal, already-resolved intermediate
// representation (no parsing or name binding — that happens upstream
// of this package) shared by both the row-at-a-time and vectorized
// executors.
package queryir

import "github.com/cuemby/ruzudb/pkg/types"

// CompareOp is a relational comparison operator.
type CompareOp int

const (
	Eq CompareOp = iota
	Neq
	Lt
	Lte
	Gt
	Gte
)

// LogicalOp combines boolean operands.
type LogicalOp int

const (
	And LogicalOp = iota
	Or
	Not
)

// ArithmeticOp is a binary numeric operator.
type ArithmeticOp int

const (
	Add ArithmeticOp = iota
	Sub
	Mul
	Div
	Mod
)

// Expression is a bound expression node. Only the fields relevant to
// Kind are populated; this mirrors a tagged union without
// needing a type switch over an interface at every evaluation site.
type Expression struct {
	Kind ExprKind

	Literal  types.Value
	Variable string // for PropertyAccess: fully-qualified "var.prop" or "var"

	Left, Right *Expression
	CompareOp   CompareOp
	LogicalOp   LogicalOp
	ArithOp     ArithmeticOp
	Operands    []*Expression // for Logical: every operand (a single one for Not)

	Negated bool // for IsNull
}

// ExprKind discriminates Expression's variant.
type ExprKind int

const (
	KindLiteral ExprKind = iota
	KindPropertyAccess
	KindComparison
	KindLogical
	KindArithmetic
	KindIsNull
)

func Lit(v types.Value) *Expression {
	return &Expression{Kind: KindLiteral, Literal: v}
}

func Prop(name string) *Expression {
	return &Expression{Kind: KindPropertyAccess, Variable: name}
}

func Compare(left *Expression, op CompareOp, right *Expression) *Expression {
	return &Expression{Kind: KindComparison, Left: left, Right: right, CompareOp: op}
}

func Logical(op LogicalOp, operands ...*Expression) *Expression {
	return &Expression{Kind: KindLogical, LogicalOp: op, Operands: operands}
}

func Arithmetic(left *Expression, op ArithmeticOp, right *Expression) *Expression {
	return &Expression{Kind: KindArithmetic, Left: left, Right: right, ArithOp: op}
}

func IsNull(operand *Expression, negated bool) *Expression {
	return &Expression{Kind: KindIsNull, Left: operand, Negated: negated}
}
