// Package plan composes the filter pipeline with MVCC and deletion
// masking, then dispatches to either the vector index or a retrieve
// path, per segment.
package plan

import (
	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/index"
	"github.com/veccore/coreq/internal/query"
)

// VectorPlanNode is an ANN search request against one segment.
type VectorPlanNode struct {
	VectorFieldID core.FieldID
	SearchInfo    index.SearchInfo
	Placeholders  core.PlaceholderGroup
	Filter        *query.PlanNode
}

// RetrievePlanNode is a scalar retrieve or count request against one
// segment.
type RetrievePlanNode struct {
	Filter  *query.PlanNode
	Limit   int
	IsCount bool
}

// RetrieveResult is the output of the retrieve path: either a single
// count value (IsCount) or a set of row offsets.
type RetrieveResult struct {
	IsCount bool
	Count   int64
	Offsets []uint64
}
