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

// Package expression implements the Expression Node tagged variant
// (spec.md §3.1) used throughout the planner and binder. Per the §9 design
// note, dispatch is by pattern-matching a NodeType tag rather than runtime
// attribute lookup, but the node itself keeps the spec's explicit generic
// shape (value, up to three typed children, a parameter list, alias,
// post-binding schema_column/query_column) rather than a Go sum type per
// variant — that shape is what spec.md §3.1 literally describes, and
// keeping one struct keeps the post-order traversal uniform across every
// variant, which is the property the teacher's own expression.Expression
// tree (sql/expression/*_test.go: BinaryOp, Comparison, Case, In, Between,
// ...) relies on for its Children()/WithChildren() walk.
package expression

import (
	"fmt"
	"strings"

	"github.com/mabel-dev/opteryx-go/sql"
)

// NodeType tags which variant a Node is.
type NodeType int

const (
	Identifier NodeType = iota
	Literal
	Function
	Aggregator
	BinaryOp
	ComparisonOp
	UnaryOp
	And
	Or
	Xor
	Not
	Nested
	Wildcard
	Subquery
	ExpressionList
	// Evaluated marks a node that has already been computed during binding
	// (e.g. PI(), NOW() folded to a literal) — a post-binding-only marker.
	Evaluated
)

func (t NodeType) String() string {
	names := [...]string{
		"Identifier", "Literal", "Function", "Aggregator", "BinaryOp",
		"ComparisonOp", "UnaryOp", "And", "Or", "Xor", "Not", "Nested",
		"Wildcard", "Subquery", "ExpressionList", "Evaluated",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// SubqueryPlan is the narrow interface a bound sub-plan exposes to an
// expression node that embeds it (IN (subquery), correlated EXISTS). The
// real type lives in sql/plan, which imports this package, so the
// dependency here is kept abstract to avoid a cycle.
type SubqueryPlan interface {
	ExitColumns() []sql.Column
}

// Node is a single tagged node in an expression tree. A parent node
// exclusively owns its children (spec.md §3.1); nothing else in the tree
// shares a child pointer.
type Node struct {
	Kind NodeType

	// Value holds the variant-specific scalar payload: the operator name
	// for BinaryOp/ComparisonOp, the literal value for Literal,
	// the identifier name for Identifier, etc.
	Value interface{}

	// Qualifier is the optional source qualifier on an Identifier
	// ("source" in "source.col"), or the function name for Function/
	// Aggregator nodes.
	Qualifier string

	Left, Right, Centre *Node

	// Parameters holds an ordered child list, used for function arguments
	// and for the two ExpressionList children of a CASE node (conditions,
	// results).
	Parameters []*Node

	Alias string

	// Sub is set on a Subquery node.
	Sub SubqueryPlan

	// resolvedType is set by the binder; Missing before binding.
	resolvedType sql.Type

	// SchemaColumn is the post-binding back-reference into the schema the
	// binder resolved this node against (spec.md §3.1, §8 invariant:
	// non-nil on every bound expression node).
	SchemaColumn *sql.Column

	// QueryColumn is the post-binding display name chosen for this
	// expression (the alias, the bare name, or the qualified name — §4.6 Exit).
	QueryColumn string
}

// NewIdentifier builds an unqualified Identifier node.
func NewIdentifier(name string) *Node {
	return &Node{Kind: Identifier, Value: name}
}

// NewQualifiedIdentifier builds a "source.name" Identifier node.
func NewQualifiedIdentifier(source, name string) *Node {
	return &Node{Kind: Identifier, Value: name, Qualifier: source}
}

// NewLiteral builds a Literal node of the given type.
func NewLiteral(value interface{}, t sql.Type) *Node {
	return &Node{Kind: Literal, Value: value, resolvedType: t}
}

// NewFunction builds a Function (or, if isAggregate, Aggregator) node.
func NewFunction(name string, args []*Node, isAggregate bool) *Node {
	kind := Function
	if isAggregate {
		kind = Aggregator
	}
	return &Node{Kind: kind, Qualifier: strings.ToUpper(name), Parameters: args}
}

// NewBinaryOp builds a BinaryOp node (arithmetic: +, -, *, /, %).
func NewBinaryOp(op string, left, right *Node) *Node {
	return &Node{Kind: BinaryOp, Value: op, Left: left, Right: right}
}

// NewComparisonOp builds a ComparisonOp node (Eq, NotEq, Gt, GtEq, Lt, LtEq,
// Like, ILike, InSubQuery, AnyOpEq, ...).
func NewComparisonOp(op string, left, right *Node) *Node {
	return &Node{Kind: ComparisonOp, Value: op, Left: left, Right: right}
}

// NewLogical builds an And/Or/Xor node from two operands.
func NewLogical(kind NodeType, left, right *Node) *Node {
	return &Node{Kind: kind, Left: left, Right: right}
}

// NewNot builds a Not node wrapping a single operand.
func NewNot(operand *Node) *Node {
	return &Node{Kind: Not, Left: operand}
}

// NewUnaryOp builds a UnaryOp node (e.g. IS NULL, IS TRUE, unary minus).
func NewUnaryOp(op string, operand *Node) *Node {
	return &Node{Kind: UnaryOp, Value: op, Left: operand}
}

// NewNested wraps an expression in parentheses, preserving explicit
// operator-precedence grouping through rewrite passes.
func NewNested(inner *Node) *Node {
	return &Node{Kind: Nested, Left: inner}
}

// NewWildcard builds a "*" or, if qualifier is non-empty, a "qualifier.*" node.
func NewWildcard(qualifier string) *Node {
	return &Node{Kind: Wildcard, Qualifier: qualifier}
}

// NewExpressionList builds an ExpressionList node (CASE condition/result
// lists, IN-list literals).
func NewExpressionList(items []*Node) *Node {
	return &Node{Kind: ExpressionList, Parameters: items}
}

// NewSubquery builds a Subquery node wrapping a bound sub-plan.
func NewSubquery(sub SubqueryPlan) *Node {
	return &Node{Kind: Subquery, Sub: sub}
}

// Type implements sql.Expression.
func (n *Node) Type() sql.Type {
	if n == nil {
		return sql.Missing
	}
	return n.resolvedType
}

// SetType is used by the binder to record the operator-return-type
// inference result (§4.6).
func (n *Node) SetType(t sql.Type) { n.resolvedType = t }

// IsBound reports whether the binder has already resolved this node
// (§4.6: "Already-bound nodes ... are returned as-is").
func (n *Node) IsBound() bool { return n.SchemaColumn != nil }

// Children returns every non-nil child pointer, in traversal order
// (left, right, centre, then parameters) — the uniform accessor the §9
// design note asks for instead of per-variant field access.
func (n *Node) Children() []*Node {
	var out []*Node
	if n.Left != nil {
		out = append(out, n.Left)
	}
	if n.Right != nil {
		out = append(out, n.Right)
	}
	if n.Centre != nil {
		out = append(out, n.Centre)
	}
	out = append(out, n.Parameters...)
	return out
}

// WithChildren returns a shallow copy of n with its children replaced, used
// by the binder to produce the "new node" each visit returns (spec.md §3.4:
// mutation happens on copies, never on a peer's node).
func (n *Node) WithChildren(children ...*Node) *Node {
	clone := *n
	i := 0
	if n.Left != nil {
		clone.Left = children[i]
		i++
	}
	if n.Right != nil {
		clone.Right = children[i]
		i++
	}
	if n.Centre != nil {
		clone.Centre = children[i]
		i++
	}
	if len(n.Parameters) > 0 {
		clone.Parameters = append([]*Node(nil), children[i:]...)
	}
	return &clone
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := *n
	clone.Left = n.Left.Clone()
	clone.Right = n.Right.Clone()
	clone.Centre = n.Centre.Clone()
	if n.Parameters != nil {
		clone.Parameters = make([]*Node, len(n.Parameters))
		for i, p := range n.Parameters {
			clone.Parameters[i] = p.Clone()
		}
	}
	return &clone
}
