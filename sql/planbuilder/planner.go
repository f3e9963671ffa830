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

package planbuilder

import (
	"fmt"
	"strings"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/expression"
	"github.com/mabel-dev/opteryx-go/sql/plan"
	"github.com/mabel-dev/opteryx-go/sql/rewrite"
)

// Planner assembles a sql/plan.Plan from a rewritten AST (spec.md §4.5),
// calling back into Builder for every scalar expression it needs along the
// way. Grounded on
// original_source/opteryx/components/logical_planner.py's plan_query: one
// pass per clause (FROM, WHERE, GROUP BY, HAVING, SELECT, DISTINCT, ORDER
// BY, LIMIT), each appending exactly one plan node onto the chain built so
// far, in the same fixed order the original's inner_query function does.
//
// Like builders.go, this operates over a Children-position convention
// rather than a dict-shaped AST branch, since sql/rewrite.RawNode only
// offers Kind/Value/Children. The "Query" RawNode's Children are, in
// order: From, Where, GroupBy, Having, Select, Distinct, OrderBy, Limit,
// Offset — any of which may be nil except Select (a nil From scans the
// synthetic $no_table dataset).
type Planner struct {
	Builder *Builder
}

// NewPlanner returns a Planner using b for every scalar expression it
// builds (select items, WHERE/HAVING predicates, join conditions, GROUP
// BY keys).
func NewPlanner(b *Builder) *Planner {
	p := &Planner{Builder: b}
	b.PlanSubquery = p.planSubqueryPlan
	return p
}

const (
	qFrom = iota
	qWhere
	qGroupBy
	qHaving
	qSelect
	qDistinct
	qOrderBy
	qLimit
	qOffset
	qChildCount
)

// PlanQuery compiles a single "Query" RawNode into a complete, validated
// Plan (spec.md §4.5 steps 1-8, ending at the unique Exit node §3.3).
func (p *Planner) PlanQuery(query *rewrite.RawNode) (*plan.Plan, error) {
	if query == nil || query.Kind != "Query" {
		return nil, sql.ErrInvalidInternalState.New("PlanQuery requires a Query node")
	}
	if len(query.Children) != qChildCount {
		return nil, sql.ErrInvalidInternalState.New(fmt.Sprintf(
			"Query requires %d children, got %d", qChildCount, len(query.Children)))
	}

	pl := plan.NewPlan()

	// Step 1: FROM — build the relation chain (scans, joins, subqueries).
	current, err := p.planFrom(pl, query.Children[qFrom])
	if err != nil {
		return nil, err
	}

	// Step 2: WHERE.
	if where := query.Children[qWhere]; where != nil {
		cond, err := p.Builder.Build(where)
		if err != nil {
			return nil, err
		}
		current = p.chain(pl, current, plan.NewFilter(cond))
	}

	// Step 3: GROUP BY / aggregates in the SELECT list.
	selectList := query.Children[qSelect]
	if selectList == nil {
		return nil, sql.ErrInvalidInternalState.New("Query requires a Select list")
	}
	projection, err := p.buildExpressionList(selectList)
	if err != nil {
		return nil, err
	}
	if len(projection) > 1 && hasWildcard(projection) {
		return nil, sql.ErrSQL.New("SELECT * cannot coexist with additional columns")
	}
	aggregates := aggregatesIn(projection)

	groupBy := query.Children[qGroupBy]
	var groups []*expression.Node
	if groupBy != nil {
		groups, err = p.buildExpressionList(groupBy)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case len(groups) > 0:
		if hasWildcard(projection) {
			return nil, sql.ErrUnsupportedSyntax.New(
				"SELECT * cannot be used with GROUP BY, fields in the SELECT must be aggregates or in the GROUP BY clause")
		}
		current = p.chain(pl, current, plan.NewAggregateAndGroup(groups, aggregates, projection))
	case len(aggregates) > 0:
		if err := checkPureAggregateColumns(projection, aggregates); err != nil {
			return nil, err
		}
		current = p.chain(pl, current, plan.NewAggregate(aggregates))
	}

	// Step 4: HAVING — a Filter evaluated after aggregation, over the
	// aggregated/grouped columns (spec.md §4.5 step 7's ordering requirement:
	// HAVING must follow the aggregate node, never precede it).
	if having := query.Children[qHaving]; having != nil {
		cond, err := p.Builder.Build(having)
		if err != nil {
			return nil, err
		}
		current = p.chain(pl, current, plan.NewFilter(cond))
	}

	// Step 5: SELECT (Project) — skipped when an aggregate node already
	// carries the projection (NewAggregateAndGroup's third argument), since
	// that node IS the projection in that case (spec.md §4.5 step 5).
	if len(groups) == 0 && len(aggregates) == 0 {
		current = p.chain(pl, current, plan.NewProject(projection))
	}

	// Step 6: DISTINCT.
	if distinct := query.Children[qDistinct]; distinct != nil {
		var on []*expression.Node
		if len(distinct.Children) > 0 {
			on, err = p.buildExpressionList(distinct)
			if err != nil {
				return nil, err
			}
		}
		current = p.chain(pl, current, plan.NewDistinct(on))
	}

	// Step 7: ORDER BY / LIMIT — a trailing Order immediately followed by a
	// Limit collapses into one HeapSort node, the combined-sort-and-limit
	// shape spec.md §3.1 calls out as a single variant.
	var terms []plan.OrderTerm
	if orderBy := query.Children[qOrderBy]; orderBy != nil {
		terms, err = p.buildOrderTerms(orderBy)
		if err != nil {
			return nil, err
		}
	}
	limit, err := p.buildLimitValue(query.Children[qLimit])
	if err != nil {
		return nil, err
	}
	offset, err := p.buildLimitValue(query.Children[qOffset])
	if err != nil {
		return nil, err
	}

	switch {
	case len(terms) > 0 && limit != nil && offset == nil:
		current = p.chain(pl, current, plan.NewHeapSort(terms, limit))
	default:
		if len(terms) > 0 {
			current = p.chain(pl, current, plan.NewOrder(terms))
		}
		if limit != nil || offset != nil {
			current = p.chain(pl, current, plan.NewLimit(limit, offset))
		}
	}

	// Step 8: Exit — the unique terminal node (spec.md §3.3).
	exit := plan.NewExit(projection)
	pl.AddNode(exit)
	pl.AddEdge(current.ID, exit.ID, "")

	if err := pl.Validate(); err != nil {
		return nil, err
	}
	return pl, nil
}

// chain adds n to pl and wires it downstream of current (current -> n),
// returning n as the new current node — the single-threaded "append one
// step" operation every clause in PlanQuery performs.
func (p *Planner) chain(pl *plan.Plan, current *plan.Node, n *plan.Node) *plan.Node {
	pl.AddNode(n)
	pl.AddEdge(current.ID, n.ID, "")
	return n
}

// planFrom builds the relation chain for the FROM clause: a bare "Table"
// becomes a Scan; a "Join" node recurses on both sides and adds a Join
// node with left/right edge roles (§4.5 "join trees"); a "Subquery" plans
// its inner Query and wraps the result.
func (p *Planner) planFrom(pl *plan.Plan, from *rewrite.RawNode) (*plan.Node, error) {
	if from == nil {
		// Empty FROM ("SELECT 1" with no relation) scans the synthetic
		// $no_table dataset (spec.md §4.5 step 2), grounded on
		// original_source's plan_query building a $no_table Table node in
		// exactly this situation.
		n := plan.NewScan("$no_table", "")
		pl.AddNode(n)
		return n, nil
	}
	switch from.Kind {
	case "Table":
		name, _ := from.Value.(string)
		n := plan.NewScan(name, aliasOf(from))
		n.StartDate, n.EndDate = from.StartDate, from.EndDate
		pl.AddNode(n)
		return n, nil

	case "FunctionDataset":
		name, _ := from.Value.(string)
		args, err := p.buildArgs(from.Children)
		if err != nil {
			return nil, err
		}
		n := plan.NewFunctionDataset(name, aliasOf(from), args)
		pl.AddNode(n)
		return n, nil

	case "Subquery":
		alias, _ := from.Value.(string)
		if alias == "" {
			return nil, sql.ErrUnnamedSubquery.New()
		}
		if len(from.Children) != 1 {
			return nil, sql.ErrInvalidInternalState.New("Subquery From node requires exactly one Query child")
		}
		sub, err := p.PlanQuery(from.Children[0])
		if err != nil {
			return nil, err
		}
		n := plan.NewSubquery(alias, sub)
		pl.AddNode(n)
		return n, nil

	case "Join":
		kind, _ := from.Value.(string)
		if len(from.Children) < 2 || len(from.Children) > 3 {
			return nil, sql.ErrInvalidInternalState.New("Join requires left, right, and an optional condition")
		}
		left, err := p.planFrom(pl, from.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := p.planFrom(pl, from.Children[1])
		if err != nil {
			return nil, err
		}

		var joinNode *plan.Node
		if len(from.Children) == 3 && from.Children[2] != nil {
			cond, err := p.Builder.Build(from.Children[2])
			if err != nil {
				return nil, err
			}
			joinNode = plan.NewJoin(joinKind(kind), cond)
		} else {
			joinNode = plan.NewJoin(joinKind(kind), nil)
		}
		pl.AddNode(joinNode)
		pl.AddEdge(left.ID, joinNode.ID, "left")
		pl.AddEdge(right.ID, joinNode.ID, "right")
		return joinNode, nil

	default:
		return nil, unsupported(from.Kind)
	}
}

// aliasOf reads the conventional alias child (Kind "Alias", Value the
// alias text) a Table/FunctionDataset/Subquery From-item may carry as its
// own single child, leaving the relation unaliased if absent.
func aliasOf(n *rewrite.RawNode) string {
	for _, c := range n.Children {
		if c != nil && c.Kind == "Alias" {
			alias, _ := c.Value.(string)
			return alias
		}
	}
	return ""
}

var joinKinds = map[string]plan.JoinKind{
	"Inner": plan.JoinInner, "Left": plan.JoinLeft, "Right": plan.JoinRight,
	"Full": plan.JoinFull, "Cross": plan.JoinCross, "LeftSemi": plan.JoinLeftSemi,
	"RightSemi": plan.JoinRightSemi, "LeftAnti": plan.JoinLeftAnti,
	"RightAnti": plan.JoinRightAnti, "Natural": plan.JoinNatural,
}

func joinKind(value string) plan.JoinKind {
	if k, ok := joinKinds[value]; ok {
		return k
	}
	return plan.JoinInner
}

// buildExpressionList builds every child of an "ExpressionList"-shaped
// RawNode (the SELECT list, GROUP BY keys, DISTINCT ON columns).
func (p *Planner) buildExpressionList(list *rewrite.RawNode) ([]*expression.Node, error) {
	out := make([]*expression.Node, 0, len(list.Children))
	for _, c := range list.Children {
		n, err := p.Builder.Build(c)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (p *Planner) buildArgs(children []*rewrite.RawNode) ([]*expression.Node, error) {
	out := make([]*expression.Node, len(children))
	for i, c := range children {
		n, err := p.Builder.Build(c)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// buildOrderTerms builds an "ExpressionList" of "OrderTerm"-shaped RawNodes
// (Value = descending bool, Children[0] = the sort expression) into plan
// OrderTerms.
func (p *Planner) buildOrderTerms(list *rewrite.RawNode) ([]plan.OrderTerm, error) {
	terms := make([]plan.OrderTerm, 0, len(list.Children))
	for _, c := range list.Children {
		desc, _ := c.Value.(bool)
		expr, err := p.Builder.Build(c.Children[0])
		if err != nil {
			return nil, err
		}
		terms = append(terms, plan.OrderTerm{Expr: expr, Descending: desc})
	}
	return terms, nil
}

// buildLimitValue builds an optional literal-integer child (LIMIT/OFFSET)
// into an *int64, nil if the child itself is nil.
func (p *Planner) buildLimitValue(n *rewrite.RawNode) (*int64, error) {
	if n == nil {
		return nil, nil
	}
	lit, err := p.Builder.Build(n)
	if err != nil {
		return nil, err
	}
	switch v := lit.Value.(type) {
	case int64:
		return &v, nil
	case int:
		i := int64(v)
		return &i, nil
	default:
		return nil, sql.ErrUnsupportedSyntax.New("LIMIT/OFFSET requires an integer literal")
	}
}

// aggregatesIn collects every Aggregator node reachable from the given
// projection's expression trees, in encounter order — the set the
// AggregateAndGroup/Aggregate plan node needs to compute before Project
// can reference them by position (spec.md §4.5 step 3).
func aggregatesIn(projection []*expression.Node) []*expression.Node {
	var found []*expression.Node
	var walk func(n *expression.Node)
	walk = func(n *expression.Node) {
		if n == nil {
			return
		}
		if n.Kind == expression.Aggregator {
			found = append(found, n)
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	for _, p := range projection {
		walk(p)
	}
	return found
}

// hasWildcard reports whether any top-level projection item is a Wildcard
// ("*" or "source.*").
func hasWildcard(projection []*expression.Node) bool {
	for _, p := range projection {
		if p.Kind == expression.Wildcard {
			return true
		}
	}
	return false
}

// checkPureAggregateColumns enforces spec.md §4.5 step 5 for a query with
// aggregates but no GROUP BY: every identifier referenced directly in the
// projection must also be referenced inside an aggregate, since there is no
// grouping key to make a bare column well-defined. Grounded on
// original_source's logical_planner.py computing known_columns from the
// aggregates and rejecting any projection identifier outside that set.
func checkPureAggregateColumns(projection, aggregates []*expression.Node) error {
	known := map[string]bool{}
	for _, a := range aggregates {
		for _, id := range expression.Identifiers(a) {
			known[identifierKey(id)] = true
		}
	}
	for _, p := range projection {
		for _, id := range expression.Identifiers(p) {
			if known[identifierKey(id)] {
				continue
			}
			name, _ := id.Value.(string)
			return sql.ErrSQL.New(fmt.Sprintf(
				"column '%s' must appear in the GROUP BY clause or must be part of an aggregate function; "+
					"either add it to the GROUP BY list, or add an aggregation such as MIN(%s)", name, name))
		}
	}
	return nil
}

func identifierKey(id *expression.Node) string {
	name, _ := id.Value.(string)
	return strings.ToLower(id.Qualifier + "." + name)
}

// PlanSetOperation combines two already-built plans with a Union (implicit
// Distinct layered on for a plain UNION per spec.md §4.5 "set operations")
// or Difference node.
func (p *Planner) PlanSetOperation(kind string, all bool, left, right *plan.Plan) (*plan.Plan, error) {
	pl := plan.NewPlan()
	leftFeed := preExitNode(left)
	rightFeed := preExitNode(right)
	absorb(pl, left)
	absorb(pl, right)

	var opNode *plan.Node
	switch kind {
	case "Union":
		opNode = plan.NewUnion(all)
	case "Except", "Minus":
		opNode = plan.NewDifference(all)
	default:
		return nil, sql.ErrUnsupportedSyntax.New(fmt.Sprintf("unsupported set operation `%s`", kind))
	}
	pl.AddNode(opNode)
	pl.AddEdge(leftFeed.ID, opNode.ID, "left")
	pl.AddEdge(rightFeed.ID, opNode.ID, "right")

	current := opNode
	if kind == "Union" && !all {
		current = p.chain(pl, current, plan.NewDistinct(nil))
	}

	exit := plan.NewExit(nil)
	pl.AddNode(exit)
	pl.AddEdge(current.ID, exit.ID, "")

	if err := pl.Validate(); err != nil {
		return nil, err
	}
	return pl, nil
}

// PlanStatement dispatches a single top-level statement AST node to the
// builder matching its kind — the entry point the glue layer (cursor,
// sql/rewrite) calls once per statement returned by the external parser
// (spec.md §6.2: "Each statement is keyed by its top-level kind (`"Query"`,
// `"Explain"`, `"SetVariable"`, etc.)"). Query/Union/Except/Minus delegate
// to the existing multi-clause builders; the simple single-node statement
// kinds (SetVariable, ShowColumns, Show) are wrapped in their own
// trivial one-node plan, which is its own unique entry and exit point.
func (p *Planner) PlanStatement(stmt *rewrite.RawNode) (*plan.Plan, error) {
	if stmt == nil {
		return nil, sql.ErrInvalidInternalState.New("PlanStatement requires a statement node")
	}

	switch stmt.Kind {
	case "Query":
		return p.PlanQuery(stmt)

	case "Union", "Except", "Minus":
		if len(stmt.Children) < 2 || len(stmt.Children) > 3 {
			return nil, sql.ErrInvalidInternalState.New(fmt.Sprintf("%s requires two query arms", stmt.Kind))
		}
		all := false
		if len(stmt.Children) > 2 && stmt.Children[2] != nil {
			all, _ = stmt.Children[2].Value.(bool)
		}
		left, err := p.PlanStatement(stmt.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := p.PlanStatement(stmt.Children[1])
		if err != nil {
			return nil, err
		}
		return p.PlanSetOperation(stmt.Kind, all, left, right)

	case "SetVariable":
		name, _ := stmt.Value.(string)
		var value *expression.Node
		if len(stmt.Children) > 0 && stmt.Children[0] != nil {
			var err error
			value, err = p.Builder.Build(stmt.Children[0])
			if err != nil {
				return nil, err
			}
		}
		return singleNodePlan(plan.NewSet(name, value)), nil

	case "ShowColumns":
		target, _ := stmt.Value.(string)
		full, extended := false, false
		for _, c := range stmt.Children {
			switch {
			case c == nil:
			case c.Kind == "Full":
				full = true
			case c.Kind == "Extended":
				extended = true
			}
		}
		return singleNodePlan(plan.NewShowColumns(target, full, extended)), nil

	case "Show":
		target, _ := stmt.Value.(string)
		return singleNodePlan(plan.NewShow(target)), nil

	case "Explain":
		analyze, _ := stmt.Value.(bool)
		if len(stmt.Children) == 0 || stmt.Children[0] == nil {
			return nil, sql.ErrInvalidInternalState.New("Explain requires an inner statement")
		}
		inner, err := p.PlanStatement(stmt.Children[0])
		if err != nil {
			return nil, err
		}
		return singleNodePlan(plan.NewExplain(inner, analyze)), nil

	default:
		return nil, sql.ErrUnsupportedSyntax.New(fmt.Sprintf("unsupported statement kind `%s`", stmt.Kind))
	}
}

// singleNodePlan wraps a standalone node (one with no FROM clause of its
// own, like SET/SHOW/EXPLAIN) in a one-node Plan — trivially its own
// unique entry and exit point (spec.md §3.3).
func singleNodePlan(n *plan.Node) *plan.Plan {
	pl := plan.NewPlan()
	pl.AddNode(n)
	return pl
}

// preExitNode returns the single node feeding a plan's Exit node — the
// node a set operation or subquery splice reconnects to once the Exit
// itself is dropped (the "remove_node(exit_node, heal=True)" step).
func preExitNode(pl *plan.Plan) *plan.Node {
	exit := pl.Node(pl.ExitPoint())
	children := pl.Children(exit)
	return children[0]
}

// absorb merges every node of src into dst, dropping src's own Exit node
// (the caller rewires src's former exit point directly into the set
// operator instead) — the "remove_node(exit_node, heal=True)" step
// original_source/opteryx/components/logical_planner_builders.py's
// in_subquery performs before splicing a sub-plan into a larger one.
func absorb(dst, src *plan.Plan) {
	for _, n := range src.PostOrder() {
		if n.Kind == plan.Exit {
			continue
		}
		dst.AddNode(n)
	}
	for _, n := range src.PostOrder() {
		if n.Kind == plan.Exit {
			continue
		}
		for i, child := range src.Children(n) {
			role := ""
			if n.Kind == plan.Join {
				if i == 0 {
					role = "left"
				} else {
					role = "right"
				}
			}
			dst.AddEdge(child.ID, n.ID, role)
		}
	}
}

// planSubqueryPlan adapts PlanQuery to the expression.SubqueryPlan
// contract's narrow interface (ExitColumns), for wiring into Builder as
// the IN (subquery) expression hook.
func (p *Planner) planSubqueryPlan(query *rewrite.RawNode) (expression.SubqueryPlan, error) {
	sub, err := p.PlanQuery(query)
	if err != nil {
		return nil, err
	}
	return &subqueryPlanAdapter{plan: sub}, nil
}

type subqueryPlanAdapter struct {
	plan *plan.Plan
}

// ExitColumns implements expression.SubqueryPlan. The binder (§4.6), which
// runs after planning, is responsible for actually populating each Exit
// node's Schema; before that, there are no bound columns to report yet.
func (s *subqueryPlanAdapter) ExitColumns() []sql.Column {
	exit := s.plan.Node(s.plan.ExitPoint())
	if exit.Schema == nil {
		return nil
	}
	return exit.Schema.Columns
}
