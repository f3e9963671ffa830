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

// Package plan implements the Logical Plan Node variants and the Logical
// Plan itself — a DAG over plan-node identities built on sql/graph
// (spec.md §3.1, §4.1). As with sql/expression, the teacher's sql/plan
// package kept only its test files in the retrieval pack (filter_test.go,
// project_test.go, join_test.go, ...), which ground constructor naming
// (NewFilter(cond, child), Children(), ...) and node composition even
// though the non-test implementation wasn't retained.
package plan

import (
	"fmt"
	"sync/atomic"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/expression"
	"github.com/mabel-dev/opteryx-go/sql/graph"
)

// NodeType tags which plan-node variant a Node is (spec.md §3.1, "Logical
// Plan Node").
type NodeType int

const (
	Scan NodeType = iota
	Filter
	Project
	Join
	AggregateAndGroup
	Aggregate
	Distinct
	Order
	Limit
	HeapSort
	Union
	Difference
	Exit
	CTE
	Subquery
	FunctionDataset
	Show
	ShowColumns
	Set
	Explain
	MetadataWriter
)

func (t NodeType) String() string {
	names := [...]string{
		"Scan", "Filter", "Project", "Join", "AggregateAndGroup", "Aggregate",
		"Distinct", "Order", "Limit", "HeapSort", "Union", "Difference",
		"Exit", "CTE", "Subquery", "FunctionDataset", "Show", "ShowColumns",
		"Set", "Explain", "MetadataWriter",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// idCounter mints plan-node identities. Per the REDESIGN FLAGS note
// ("Graph identity strings"), identities are monotonically increasing
// integers rendered as strings, not random short strings — deterministic
// and efficient as hash-map keys.
var idCounter uint64

// NextID returns a fresh, process-wide unique plan-node identity.
func NextID() string {
	return fmt.Sprintf("n%d", atomic.AddUint64(&idCounter, 1))
}

// JoinKind enumerates the join variants the planner (§4.5) and binder
// (§4.6) both switch on.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinLeftSemi
	JoinRightSemi
	JoinLeftAnti
	JoinRightAnti
	JoinNatural
)

func (k JoinKind) String() string {
	names := [...]string{
		"inner join", "left outer join", "right outer join", "full outer join",
		"cross join", "left semi join", "right semi join", "left anti join",
		"right anti join", "natural join",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "join"
}

// SourceColumn names one column a plan node references, for the optimizer
// contract in §4.10 ("join/filter/aggregate nodes have their columns
// attribute populated").
type SourceColumn = sql.Column

// Node is a single step of a logical plan. Every variant-specific payload
// lives behind the fields below; which ones are meaningful is determined by
// Kind, matching the way sql.expression.Node carries a Kind tag instead of a
// Go sum type per variant (keeps the binder's dispatch table shape uniform
// across both plan and expression nodes).
type Node struct {
	ID   string
	Kind NodeType

	// Schema is the bound RelationSchema this node exposes downstream,
	// populated by the binder (nil before binding).
	Schema *sql.RelationSchema

	// Columns is the set of identifier expression nodes this node
	// references — populated by the binder for Filter/Join/Aggregate
	// nodes so the external optimizer can push predicates/prune columns
	// (§4.10).
	Columns []*expression.Node

	// --- Scan ---
	DatasetName string
	Alias       string
	StartDate   *string
	EndDate     *string
	NoCache     bool

	// --- Filter / HAVING ---
	Condition *expression.Node

	// --- Project ---
	Projection []*expression.Node
	// OrderOnlyColumns holds columns referenced only by ORDER BY, not in
	// the SELECT list, retained so the executor can still sort by them
	// (§4.5 step 6).
	OrderOnlyColumns []*expression.Node

	// --- Join ---
	JoinKind     JoinKind
	UsingColumns []string

	// --- AggregateAndGroup / Aggregate ---
	Groups     []*expression.Node
	Aggregates []*expression.Node

	// --- Distinct ---
	DistinctOn []*expression.Node

	// --- Order ---
	OrderBy []OrderTerm

	// --- Limit ---
	LimitCount  *int64
	OffsetCount *int64

	// --- Union / Difference ---
	SetAll bool

	// --- CTE / Subquery ---
	SubPlan *Plan

	// --- FunctionDataset (VALUES / UNNEST / GENERATE_SERIES / FAKE) ---
	FunctionName string
	FunctionArgs []*expression.Node

	// --- Show / ShowColumns ---
	ShowTarget string
	Full       bool
	Extended   bool

	// --- Set ---
	SetVariable string
	SetValue    *expression.Node

	// --- Explain ---
	Analyze bool
}

// OrderTerm is one ORDER BY key.
type OrderTerm struct {
	Expr       *expression.Node
	Descending bool
}

func newNode(kind NodeType) *Node {
	return &Node{ID: NextID(), Kind: kind}
}

// NewScan builds a Scan node over a named dataset, optionally aliased.
func NewScan(dataset, alias string) *Node {
	n := newNode(Scan)
	n.DatasetName = dataset
	n.Alias = alias
	return n
}

// NewFilter builds a Filter node (WHERE or HAVING — the planner decides
// which by where in the chain it's inserted, §4.5 steps 3 and 7).
func NewFilter(condition *expression.Node) *Node {
	n := newNode(Filter)
	n.Condition = condition
	return n
}

// NewProject builds a Project node (the SELECT list).
func NewProject(projection []*expression.Node) *Node {
	n := newNode(Project)
	n.Projection = projection
	return n
}

// NewJoin builds a Join node of the given kind.
func NewJoin(kind JoinKind, condition *expression.Node) *Node {
	n := newNode(Join)
	n.JoinKind = kind
	n.Condition = condition
	return n
}

// NewJoinUsing builds a Join node over a USING(col, ...) column list; the
// binder converts this to an ON expression (§4.6 Join).
func NewJoinUsing(kind JoinKind, columns []string) *Node {
	n := newNode(Join)
	n.JoinKind = kind
	n.UsingColumns = columns
	return n
}

// NewAggregateAndGroup builds an AggregateAndGroup node (GROUP BY present).
func NewAggregateAndGroup(groups, aggregates, projection []*expression.Node) *Node {
	n := newNode(AggregateAndGroup)
	n.Groups = groups
	n.Aggregates = aggregates
	n.Projection = projection
	return n
}

// NewAggregate builds a pure-aggregate node (no GROUP BY).
func NewAggregate(aggregates []*expression.Node) *Node {
	n := newNode(Aggregate)
	n.Aggregates = aggregates
	return n
}

// NewDistinct builds a Distinct node, optionally restricted to DISTINCT ON (cols).
func NewDistinct(on []*expression.Node) *Node {
	n := newNode(Distinct)
	n.DistinctOn = on
	return n
}

// NewOrder builds an Order node.
func NewOrder(terms []OrderTerm) *Node {
	n := newNode(Order)
	n.OrderBy = terms
	return n
}

// NewLimit builds a Limit node with optional LIMIT/OFFSET counts.
func NewLimit(limit, offset *int64) *Node {
	n := newNode(Limit)
	n.LimitCount = limit
	n.OffsetCount = offset
	return n
}

// NewHeapSort builds a combined sort+limit node, the form the optimizer
// rewrites an Order immediately followed by a Limit into (spec.md §3.1).
func NewHeapSort(terms []OrderTerm, limit *int64) *Node {
	n := newNode(HeapSort)
	n.OrderBy = terms
	n.LimitCount = limit
	return n
}

// NewUnion builds a Union node; all reports whether UNION ALL was used
// (plain UNION gets an implicit Distinct layered on top by the planner,
// §4.5 "Set operations").
func NewUnion(all bool) *Node {
	n := newNode(Union)
	n.SetAll = all
	return n
}

// NewDifference builds an EXCEPT/MINUS node.
func NewDifference(all bool) *Node {
	n := newNode(Difference)
	n.SetAll = all
	return n
}

// NewExit builds the unique terminal node of a plan.
func NewExit(projection []*expression.Node) *Node {
	n := newNode(Exit)
	n.Projection = projection
	return n
}

// NewSubquery builds a Subquery node wrapping an independent sub-plan.
func NewSubquery(alias string, sub *Plan) *Node {
	n := newNode(Subquery)
	n.Alias = alias
	n.SubPlan = sub
	return n
}

// NewCTE builds a CTE node recording a pre-built plan under an alias, for
// substitution wherever the alias is referenced (§4.5 "CTEs").
func NewCTE(alias string, sub *Plan) *Node {
	n := newNode(CTE)
	n.Alias = alias
	n.SubPlan = sub
	return n
}

// NewFunctionDataset builds a VALUES/UNNEST/GENERATE_SERIES/FAKE node.
func NewFunctionDataset(name, alias string, args []*expression.Node) *Node {
	n := newNode(FunctionDataset)
	n.FunctionName = name
	n.Alias = alias
	n.FunctionArgs = args
	return n
}

// NewShowColumns builds a SHOW COLUMNS [FULL] [EXTENDED] FROM <relation> node.
func NewShowColumns(target string, full, extended bool) *Node {
	n := newNode(ShowColumns)
	n.ShowTarget = target
	n.Full = full
	n.Extended = extended
	return n
}

// NewShow builds a SHOW VARIABLE(S) node.
func NewShow(target string) *Node {
	n := newNode(Show)
	n.ShowTarget = target
	return n
}

// NewSet builds a SET <var> TO <value> node.
func NewSet(variable string, value *expression.Node) *Node {
	n := newNode(Set)
	n.SetVariable = variable
	n.SetValue = value
	return n
}

// NewExplain wraps an inner plan for EXPLAIN [ANALYZE].
func NewExplain(inner *Plan, analyze bool) *Node {
	n := newNode(Explain)
	n.SubPlan = inner
	n.Analyze = analyze
	return n
}

// NewMetadataWriter builds the node the executor uses to persist statistics
// collected during a scan back into the stats cache (sql/stats), the plan
// side of the LRU-K(2) cache described in spec.md §5.
func NewMetadataWriter(dataset string) *Node {
	n := newNode(MetadataWriter)
	n.DatasetName = dataset
	return n
}

// Plan is a Logical Plan: a DAG of plan-node identities (spec.md §3.1).
// Invariant: exactly one exit point (§3.3), enforced by Validate.
type Plan struct {
	Graph *graph.Graph
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{Graph: graph.New()}
}

// AddNode registers a plan Node under its own ID.
func (p *Plan) AddNode(n *Node) {
	p.Graph.AddNode(n.ID, n)
}

// AddEdge connects two plan nodes, optionally with a join role
// ("left"/"right").
func (p *Plan) AddEdge(sourceID, targetID, role string) {
	p.Graph.AddEdge(sourceID, targetID, role)
}

// Node returns the plan Node for an ID, or nil.
func (p *Plan) Node(id string) *Node {
	v, ok := p.Graph.Node(id)
	if !ok {
		return nil
	}
	return v.(*Node)
}

// ExitPoint returns the plan's unique exit node id. Panics (an
// InvalidInternalState condition) if there isn't exactly one — callers
// should call Validate first if the plan might be malformed.
func (p *Plan) ExitPoint() string {
	exits := p.Graph.GetExitPoints()
	if len(exits) != 1 {
		panic(sql.ErrInvalidInternalState.New(fmt.Sprintf("expected exactly one exit point, found %d", len(exits))))
	}
	return exits[0]
}

// Validate checks the structural invariants spec.md §3.3 names: exactly one
// exit point, and the graph is acyclic.
func (p *Plan) Validate() error {
	exits := p.Graph.GetExitPoints()
	if len(exits) != 1 {
		return sql.ErrInvalidInternalState.New(fmt.Sprintf("plan must have exactly one exit point, found %d", len(exits)))
	}
	if !p.Graph.IsAcyclic() {
		return sql.ErrInvalidInternalState.New("plan graph is cyclic")
	}
	return nil
}

// PostOrder returns every plan node from the unique exit point, in
// post-order — the traversal discipline the binder follows (§4.1, §4.6).
func (p *Plan) PostOrder() []*Node {
	ids := p.Graph.PostOrder(p.ExitPoint())
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = p.Node(id)
	}
	return out
}

// Children returns the plan nodes feeding directly into n, ordered so that
// a Join's "left" edge always precedes its "right" edge (both present),
// otherwise in edge-insertion order.
func (p *Plan) Children(n *Node) []*Node {
	edges := append([]graph.Edge(nil), p.Graph.IngoingEdges(n.ID)...)
	orderRole := func(role string) int {
		switch role {
		case "left":
			return 0
		case "right":
			return 1
		default:
			return 2
		}
	}
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && orderRole(edges[j].Role) < orderRole(edges[j-1].Role); j-- {
			edges[j], edges[j-1] = edges[j-1], edges[j]
		}
	}
	out := make([]*Node, len(edges))
	for i, e := range edges {
		out[i] = p.Node(e.Source)
	}
	return out
}
