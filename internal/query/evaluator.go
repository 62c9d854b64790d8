package query

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/veccore/coreq/internal/corerr"
	"github.com/veccore/coreq/internal/metrics"
	"github.com/veccore/coreq/internal/simd"
)

// ColumnAccessCounter records how many times each field was read during
// evaluation, the hook S2-style tests use to verify that a short-circuit
// AND/OR genuinely skipped a column rather than merely discarding its
// result.
type ColumnAccessCounter struct {
	counts map[string]int
}

// NewColumnAccessCounter returns an empty counter.
func NewColumnAccessCounter() *ColumnAccessCounter {
	return &ColumnAccessCounter{counts: make(map[string]int)}
}

func (c *ColumnAccessCounter) record(field string) {
	if c == nil {
		return
	}
	c.counts[field]++
}

// Count returns how many times field was accessed.
func (c *ColumnAccessCounter) Count(field string) int {
	if c == nil {
		return 0
	}
	return c.counts[field]
}

// Evaluator walks a PlanNode over a chunk (an arrow RecordBatch) and
// produces a byte-per-bool result, short-circuiting conjuncts per the
// boolean-reduction contract.
type Evaluator struct {
	rec     arrow.Record
	counter *ColumnAccessCounter
}

// NewEvaluator binds an evaluator to one chunk. counter may be nil.
func NewEvaluator(rec arrow.Record, counter *ColumnAccessCounter) *Evaluator {
	return &Evaluator{rec: rec, counter: counter}
}

// Eval type-checks and evaluates node against the bound chunk, returning
// a byte-per-bool slice of length rec.NumRows().
func (e *Evaluator) Eval(node PlanNode) ([]byte, error) {
	if err := typeCheck(node); err != nil {
		return nil, err
	}
	return e.eval(node)
}

func (e *Evaluator) eval(node PlanNode) ([]byte, error) {
	n := int(e.rec.NumRows())
	switch node.Op {
	case OpAlwaysTrue:
		out := make([]byte, n)
		for i := range out {
			out[i] = 1
		}
		return out, nil
	case OpAlwaysFalse:
		return make([]byte, n), nil
	case OpColumnCompare, OpUnaryRange:
		return e.evalCompare(node.FieldID, node.CompareOp, node.Literal)
	case OpRange:
		return e.evalRange(node)
	case OpTerm:
		return e.evalTerm(node)
	case OpLogicalNot:
		child, err := e.eval(node.Children[0])
		if err != nil {
			return nil, err
		}
		simd.InvertBool(child)
		return child, nil
	case OpConjunct:
		return e.evalConjunct(node)
	default:
		return nil, corerr.NewUnexpected("evaluator.eval", "unreachable PlanNode op")
	}
}

// evalConjunct implements the short-circuit AND/OR contract: the running
// result starts at child[0]; if it is already dominated for the
// operator, later children are never read.
func (e *Evaluator) evalConjunct(node PlanNode) ([]byte, error) {
	if len(node.Children) == 0 {
		return nil, corerr.NewInvalidExpression("evaluator.evalConjunct", "conjunct with no children")
	}
	running, err := e.eval(node.Children[0])
	if err != nil {
		return nil, err
	}

	op := "and"
	if !node.IsAnd {
		op = "or"
	}

	if node.IsAnd && simd.AllFalse(running) {
		metrics.FilterShortCircuitTotal.WithLabelValues(op).Add(float64(len(node.Children) - 1))
		return running, nil
	}
	if !node.IsAnd && simd.AllTrue(running) {
		metrics.FilterShortCircuitTotal.WithLabelValues(op).Add(float64(len(node.Children) - 1))
		return running, nil
	}

	for i, child := range node.Children[1:] {
		part, err := e.eval(child)
		if err != nil {
			return nil, err
		}
		if node.IsAnd {
			simd.AndBool(running, part)
			if simd.AllFalse(running) {
				metrics.FilterShortCircuitTotal.WithLabelValues(op).Add(float64(len(node.Children) - 1 - (i + 1)))
				return running, nil
			}
		} else {
			simd.OrBool(running, part)
			if simd.AllTrue(running) {
				metrics.FilterShortCircuitTotal.WithLabelValues(op).Add(float64(len(node.Children) - 1 - (i + 1)))
				return running, nil
			}
		}
	}
	return running, nil
}

func (e *Evaluator) column(field string) (arrow.Array, error) {
	indices := e.rec.Schema().FieldIndices(field)
	if len(indices) == 0 {
		return nil, corerr.NewInvalidExpression("evaluator.column", "unknown field "+field)
	}
	e.counter.record(field)
	return e.rec.Column(indices[0]), nil
}

func (e *Evaluator) evalCompare(field string, op simd.CompareOp, lit Literal) ([]byte, error) {
	col, err := e.column(field)
	if err != nil {
		return nil, err
	}
	out := make([]byte, col.Len())

	switch c := col.(type) {
	case *array.Int64:
		simd.CompareScalar(c.Int64Values(), op, lit.I64, out)
	case *array.Float32:
		simd.CompareScalar(c.Float32Values(), op, lit.F32, out)
	case *array.String:
		compareStrings(c, op, lit.Str, out)
	default:
		return nil, corerr.NewInvalidExpression("evaluator.evalCompare", "unsupported column type for field "+field)
	}
	clearNulls(col, out)
	return out, nil
}

func (e *Evaluator) evalRange(node PlanNode) ([]byte, error) {
	loOp := simd.CompareGE
	if !node.InclusiveLo {
		loOp = simd.CompareGT
	}
	hiOp := simd.CompareLE
	if !node.InclusiveHi {
		hiOp = simd.CompareLT
	}

	lo, err := e.evalCompare(node.FieldID, loOp, node.Lo)
	if err != nil {
		return nil, err
	}
	hi, err := e.evalCompare(node.FieldID, hiOp, node.Hi)
	if err != nil {
		return nil, err
	}
	simd.AndBool(lo, hi)
	return lo, nil
}

// evalTerm implements the dual term-match strategy: a linear scan via
// find_term for small literal sets, a hash set otherwise.
func (e *Evaluator) evalTerm(node PlanNode) ([]byte, error) {
	col, err := e.column(node.FieldID)
	if err != nil {
		return nil, err
	}
	out := make([]byte, col.Len())

	const linearThreshold = 16

	switch c := col.(type) {
	case *array.Int64:
		needles := make([]int64, len(node.Literals))
		for i, l := range node.Literals {
			needles[i] = l.I64
		}
		values := c.Int64Values()
		if len(needles) <= linearThreshold {
			for i, v := range values {
				out[i] = boolByte(simd.FindTerm(needles, v))
			}
		} else {
			set := make(map[int64]struct{}, len(needles))
			for _, v := range needles {
				set[v] = struct{}{}
			}
			for i, v := range values {
				if _, ok := set[v]; ok {
					out[i] = 1
				}
			}
		}
	case *array.Float32:
		needles := make([]float32, len(node.Literals))
		for i, l := range node.Literals {
			needles[i] = l.F32
		}
		values := c.Float32Values()
		if len(needles) <= linearThreshold {
			for i, v := range values {
				out[i] = boolByte(simd.FindTerm(needles, v))
			}
		} else {
			set := make(map[float32]struct{}, len(needles))
			for _, v := range needles {
				set[v] = struct{}{}
			}
			for i, v := range values {
				if _, ok := set[v]; ok {
					out[i] = 1
				}
			}
		}
	case *array.String:
		needles := make([]string, len(node.Literals))
		for i, l := range node.Literals {
			needles[i] = l.Str
		}
		if len(needles) <= linearThreshold {
			for i := 0; i < c.Len(); i++ {
				out[i] = boolByte(simd.FindTerm(needles, c.Value(i)))
			}
		} else {
			set := make(map[string]struct{}, len(needles))
			for _, v := range needles {
				set[v] = struct{}{}
			}
			for i := 0; i < c.Len(); i++ {
				if _, ok := set[c.Value(i)]; ok {
					out[i] = 1
				}
			}
		}
	default:
		return nil, corerr.NewInvalidExpression("evaluator.evalTerm", "unsupported column type for field "+node.FieldID)
	}
	clearNulls(col, out)
	return out, nil
}

func compareStrings(c *array.String, op simd.CompareOp, needle string, out []byte) {
	for i := 0; i < c.Len(); i++ {
		v := c.Value(i)
		var match bool
		switch op {
		case simd.CompareLT:
			match = v < needle
		case simd.CompareLE:
			match = v <= needle
		case simd.CompareEQ:
			match = v == needle
		case simd.CompareNE:
			match = v != needle
		case simd.CompareGE:
			match = v >= needle
		case simd.CompareGT:
			match = v > needle
		}
		out[i] = boolByte(match)
	}
}

// clearNulls forces the result to false for any row with a null value.
// Missing values are treated as false for positive predicates; the
// engine does not implement three-valued logic.
func clearNulls(col arrow.Array, out []byte) {
	if col.NullN() == 0 {
		return
	}
	offset := col.Data().Offset()
	for i := range out {
		if col.IsNull(i + offset) {
			out[i] = 0
		}
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// typeCheck rejects a conjunct whose children are not all boolean
// predicates before evaluation starts. Every node this evaluator can
// build already evaluates to bool, so the only failures it reports
// today are arity violations: a conjunct with no children and a NOT
// without exactly one child. typeCheck exists as the single gate future
// non-bool node kinds must pass through.
func typeCheck(node PlanNode) error {
	switch node.Op {
	case OpConjunct:
		if len(node.Children) == 0 {
			return corerr.NewInvalidExpression("evaluator.typeCheck", "conjunct with no children")
		}
		for _, c := range node.Children {
			if err := typeCheck(c); err != nil {
				return err
			}
		}
	case OpLogicalNot:
		if len(node.Children) != 1 {
			return corerr.NewInvalidExpression("evaluator.typeCheck", "NOT requires exactly one child")
		}
		return typeCheck(node.Children[0])
	}
	return nil
}
