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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabel-dev/opteryx-go/sql/expression"
	"github.com/mabel-dev/opteryx-go/sql/functions"
	"github.com/mabel-dev/opteryx-go/sql/plan"
	"github.com/mabel-dev/opteryx-go/sql/rewrite"
)

// query builds a "Query" RawNode with the fixed nine-child clause layout
// planner.go expects, defaulting every unset clause to nil.
func query(from, where, groupBy, having, selectList, distinct, orderBy, limit, offset *rewrite.RawNode) *rewrite.RawNode {
	return &rewrite.RawNode{Kind: "Query", Children: []*rewrite.RawNode{
		from, where, groupBy, having, selectList, distinct, orderBy, limit, offset,
	}}
}

func exprList(items ...*rewrite.RawNode) *rewrite.RawNode {
	return &rewrite.RawNode{Kind: "ExpressionList", Children: items}
}

func newTestPlanner() *Planner {
	return NewPlanner(newTestBuilder())
}

func TestPlanQuerySelectStarFromSingleTable(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})

	pl, err := p.PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)
	require.NoError(pl.Validate())

	nodes := pl.PostOrder()
	require.Equal(plan.Scan, nodes[0].Kind)
	require.Equal("$planets", nodes[0].DatasetName)
	require.Equal(plan.Project, nodes[len(nodes)-2].Kind)
	require.Equal(plan.Exit, nodes[len(nodes)-1].Kind)
}

func TestPlanQueryGroupByBuildsAggregateAndGroupNode(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	nameCol := &rewrite.RawNode{Kind: "Identifier", Value: "name"}
	countCall := &rewrite.RawNode{Kind: "Function", Value: "COUNT", Children: []*rewrite.RawNode{{Kind: "Wildcard"}}}
	selectList := exprList(nameCol, countCall)
	groupBy := exprList(&rewrite.RawNode{Kind: "Identifier", Value: "name"})

	pl, err := p.PlanQuery(query(from, nil, groupBy, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	var sawAggregate bool
	for _, n := range pl.PostOrder() {
		if n.Kind == plan.AggregateAndGroup {
			sawAggregate = true
			require.Len(n.Groups, 1)
			require.Len(n.Aggregates, 1)
		}
	}
	require.True(sawAggregate)
}

func TestPlanQueryWhereInsertsFilterBeforeProject(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	where := &rewrite.RawNode{Kind: "BinaryOp", Value: "Gt", Children: []*rewrite.RawNode{
		{Kind: "Identifier", Value: "density"}, {Kind: "Number", Value: "1"},
	}}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})

	pl, err := p.PlanQuery(query(from, where, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	nodes := pl.PostOrder()
	kinds := make([]plan.NodeType, len(nodes))
	for i, n := range nodes {
		kinds[i] = n.Kind
	}
	require.Equal([]plan.NodeType{plan.Scan, plan.Filter, plan.Project, plan.Exit}, kinds)
}

func TestPlanQueryOrderByFollowedByLimitCollapsesToHeapSort(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})
	orderBy := exprList(&rewrite.RawNode{
		Kind: "OrderTerm", Value: true, Children: []*rewrite.RawNode{{Kind: "Identifier", Value: "density"}},
	})
	limit := &rewrite.RawNode{Kind: "Number", Value: "10"}

	pl, err := p.PlanQuery(query(from, nil, nil, nil, selectList, nil, orderBy, limit, nil))
	require.NoError(err)

	var sawHeapSort bool
	for _, n := range pl.PostOrder() {
		if n.Kind == plan.HeapSort {
			sawHeapSort = true
			require.Len(n.OrderBy, 1)
			require.True(n.OrderBy[0].Descending)
			require.Equal(int64(10), *n.LimitCount)
		}
	}
	require.True(sawHeapSort)
}

func TestPlanQueryJoinOrdersLeftBeforeRight(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	left := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	right := &rewrite.RawNode{Kind: "Table", Value: "$satellites"}
	cond := &rewrite.RawNode{Kind: "BinaryOp", Value: "Eq", Children: []*rewrite.RawNode{
		{Kind: "CompoundIdentifier", Value: "$planets.id"},
		{Kind: "CompoundIdentifier", Value: "$satellites.planet_id"},
	}}
	from := &rewrite.RawNode{Kind: "Join", Value: "Inner", Children: []*rewrite.RawNode{left, right, cond}}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})

	pl, err := p.PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	var joinNode *plan.Node
	for _, n := range pl.PostOrder() {
		if n.Kind == plan.Join {
			joinNode = n
		}
	}
	require.NotNil(joinNode)
	children := pl.Children(joinNode)
	require.Len(children, 2)
	require.Equal("$planets", children[0].DatasetName)
	require.Equal("$satellites", children[1].DatasetName)
}

func TestPlanSetOperationUnionAddsImplicitDistinct(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	mk := func(name string) *plan.Plan {
		from := &rewrite.RawNode{Kind: "Table", Value: name}
		selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})
		pl, err := p.PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
		require.NoError(err)
		return pl
	}

	left := mk("$planets")
	right := mk("$satellites")

	union, err := p.PlanSetOperation("Union", false, left, right)
	require.NoError(err)
	require.NoError(union.Validate())

	var sawUnion, sawDistinct bool
	for _, n := range union.PostOrder() {
		if n.Kind == plan.Union {
			sawUnion = true
		}
		if n.Kind == plan.Distinct {
			sawDistinct = true
		}
	}
	require.True(sawUnion)
	require.True(sawDistinct)
}

func TestPlanQueryRejectsWrongChildCount(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	_, err := p.PlanQuery(&rewrite.RawNode{Kind: "Query", Children: nil})
	require.Error(err)
}

func TestAggregatesInFindsAggregatorNodesInsideExpressions(t *testing.T) {
	require := require.New(t)

	count := expression.NewFunction("COUNT", []*expression.Node{expression.NewWildcard("")}, true)
	wrapped := expression.NewBinaryOp("Plus", count, expression.NewLiteral(int64(1), 0))

	found := aggregatesIn([]*expression.Node{wrapped})
	require.Len(found, 1)
	require.Equal(expression.Aggregator, found[0].Kind)
}

func TestCatalogueBuiltinIsUsableDirectlyByThePlanner(t *testing.T) {
	require := require.New(t)
	c := functions.Builtin()
	require.True(c.IsAggregate("COUNT"))
}

func TestPlanQueryEmptyFromScansNoTable(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	selectList := exprList(&rewrite.RawNode{Kind: "Literal", Value: int64(1)})

	pl, err := p.PlanQuery(query(nil, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)
	require.NoError(pl.Validate())

	nodes := pl.PostOrder()
	require.Equal(plan.Scan, nodes[0].Kind)
	require.Equal("$no_table", nodes[0].DatasetName)
}

func TestPlanQueryRejectsWildcardWithGroupBy(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})
	groupBy := exprList(&rewrite.RawNode{Kind: "Identifier", Value: "name"})

	_, err := p.PlanQuery(query(from, nil, groupBy, nil, selectList, nil, nil, nil, nil))
	require.Error(err)
}

func TestPlanQueryRejectsWildcardAlongsideOtherColumns(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(
		&rewrite.RawNode{Kind: "Wildcard"},
		&rewrite.RawNode{Kind: "Identifier", Value: "name"},
	)

	_, err := p.PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.Error(err)
}

func TestPlanQueryRejectsBareColumnNotInAggregateOrGroupBy(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	nameCol := &rewrite.RawNode{Kind: "Identifier", Value: "name"}
	maxCall := &rewrite.RawNode{Kind: "Function", Value: "MAX", Children: []*rewrite.RawNode{
		{Kind: "Identifier", Value: "mass"},
	}}
	selectList := exprList(nameCol, maxCall)

	_, err := p.PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.Error(err, "name is neither aggregated nor grouped, and there is no GROUP BY clause at all")
}

func TestPlanQueryAllowsAggregateArgumentColumnWithoutGroupBy(t *testing.T) {
	require := require.New(t)
	p := newTestPlanner()

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	maxCall := &rewrite.RawNode{Kind: "Function", Value: "MAX", Children: []*rewrite.RawNode{
		{Kind: "Identifier", Value: "mass"},
	}}
	selectList := exprList(maxCall)

	_, err := p.PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err, "the aggregate's own argument is always known, not a stray bare column")
}
