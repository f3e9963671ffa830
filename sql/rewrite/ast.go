// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rewrite

import "github.com/mabel-dev/opteryx-go/sql"

// RawNode is the narrow, generic shape the AST Rewriter needs from
// whatever concrete parse tree the external SQL parser returns (spec.md
// §4.3: "raw AST produced by the external parser"). This package never
// constructs a full parser AST itself — that is explicitly the external
// parser's job (spec.md §1 architecture diagram) — it only needs to walk
// a tree in document order, recognize a handful of node kinds, and splice
// in replacement subtrees, so a minimal tagged tree with a single ordered
// child list is all the contract requires. Every operand, positional or
// not (a BinaryOp's left/right, a Function's arguments, a Placeholder's
// enclosing call), lives in Children so a single left-to-right walk is
// always "document order".
type RawNode struct {
	Kind string

	// Value holds the variant-specific scalar payload: the operator name
	// for BinaryOp/ComparisonOp, the literal value for Literal, the
	// identifier text for Identifier/table_name, the name or 1-based index
	// for a named/positional Placeholder.
	Value interface{}

	// Children holds every ordered child node.
	Children []*RawNode

	// ResolvedType is set on Literal nodes BindParameters constructs, so
	// downstream builders (sql/planbuilder §4.4) know the bound parameter's
	// inferred SQL type without re-inspecting Value.
	ResolvedType sql.Type

	// StartDate/EndDate are populated on Table-like nodes by
	// BindTemporalRanges.
	StartDate, EndDate *string
}

// relationKinds are the node kinds BindTemporalRanges treats as "consumes
// one temporal filter" (spec.md §4.3 pass 1: "the first Table / table_name
// / parent_name / ShowCreate node").
var relationKinds = map[string]bool{
	"Table": true, "table_name": true, "parent_name": true, "ShowCreate": true,
}

// NewLiteralNode builds a Literal RawNode whose shape matches the runtime
// type of a bound parameter value (spec.md §4.3 pass 2: "a newly-constructed
// literal AST node whose shape matches the parameter's ... type").
func NewLiteralNode(v interface{}) *RawNode {
	t := sql.Missing
	switch v.(type) {
	case bool:
		t = sql.Boolean
	case int, int64, int32:
		t = sql.Integer
	case float32, float64:
		t = sql.Double
	case string:
		t = sql.Varchar
	case nil:
		t = sql.Null
	}
	return &RawNode{Kind: "Literal", Value: v, ResolvedType: t}
}

// Walk visits n and every descendant, pre-order, left to right through
// Children — document order.
func Walk(n *RawNode, visit func(*RawNode) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}
