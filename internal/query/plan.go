package query

import "github.com/veccore/coreq/internal/simd"

// PlanNode is the typed predicate tree the evaluator walks. Only the
// fields whose comment names a node's Op are meaningful for that node.
type PlanNode struct {
	Op NodeOp

	// ColumnCompare, Range, UnaryRange, Term
	FieldID string

	// ColumnCompare, UnaryRange
	CompareOp simd.CompareOp
	Literal   Literal

	// Term
	Literals []Literal

	// Range
	Lo, Hi               Literal
	InclusiveLo, InclusiveHi bool

	// LogicalUnary, Conjunct
	Children []PlanNode

	// Conjunct
	IsAnd bool
}

// NodeOp tags which predicate variant a PlanNode carries.
type NodeOp int

const (
	OpColumnCompare NodeOp = iota
	OpTerm
	OpRange
	OpUnaryRange
	OpLogicalNot
	OpConjunct
	OpAlwaysTrue
	OpAlwaysFalse
)

// LiteralKind tags the scalar type carried by a Literal.
type LiteralKind int

const (
	LiteralInt64 LiteralKind = iota
	LiteralFloat32
	LiteralString
)

// Literal is a typed scalar constant appearing in a predicate.
type Literal struct {
	Kind LiteralKind
	I64  int64
	F32  float32
	Str  string
}

func Int64Literal(v int64) Literal   { return Literal{Kind: LiteralInt64, I64: v} }
func Float32Literal(v float32) Literal { return Literal{Kind: LiteralFloat32, F32: v} }
func StringLiteral(v string) Literal { return Literal{Kind: LiteralString, Str: v} }

// ColumnCompare builds a ColumnCompare(field op literal) node.
func ColumnCompare(field string, op simd.CompareOp, lit Literal) PlanNode {
	return PlanNode{Op: OpColumnCompare, FieldID: field, CompareOp: op, Literal: lit}
}

// Term builds a Term(field IN literals) node.
func Term(field string, literals []Literal) PlanNode {
	return PlanNode{Op: OpTerm, FieldID: field, Literals: literals}
}

// Range builds a Range(lo <[=] field <[=] hi) node.
func Range(field string, lo, hi Literal, inclusiveLo, inclusiveHi bool) PlanNode {
	return PlanNode{Op: OpRange, FieldID: field, Lo: lo, Hi: hi, InclusiveLo: inclusiveLo, InclusiveHi: inclusiveHi}
}

// UnaryRange builds a UnaryRange(field op literal) node — identical
// shape to ColumnCompare but kept distinct per the predicate sum type.
func UnaryRange(field string, op simd.CompareOp, lit Literal) PlanNode {
	return PlanNode{Op: OpUnaryRange, FieldID: field, CompareOp: op, Literal: lit}
}

// Not builds a LogicalUnary(NOT, child) node.
func Not(child PlanNode) PlanNode {
	return PlanNode{Op: OpLogicalNot, Children: []PlanNode{child}}
}

// And builds a Conjunct(is_and=true, children) node.
func And(children ...PlanNode) PlanNode {
	return PlanNode{Op: OpConjunct, IsAnd: true, Children: children}
}

// Or builds a Conjunct(is_and=false, children) node.
func Or(children ...PlanNode) PlanNode {
	return PlanNode{Op: OpConjunct, IsAnd: false, Children: children}
}

// AlwaysTrue and AlwaysFalse are the degenerate predicate leaves.
var (
	AlwaysTrue  = PlanNode{Op: OpAlwaysTrue}
	AlwaysFalse = PlanNode{Op: OpAlwaysFalse}
)
