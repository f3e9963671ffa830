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

package binder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/connector"
	"github.com/mabel-dev/opteryx-go/sql/expression"
	"github.com/mabel-dev/opteryx-go/sql/functions"
	"github.com/mabel-dev/opteryx-go/sql/plan"
	"github.com/mabel-dev/opteryx-go/sql/planbuilder"
	"github.com/mabel-dev/opteryx-go/sql/rewrite"
)

// noTemporalConnector is a bare-minimum Connector with none of the optional
// capabilities — used to exercise the FOR-clause-unsupported negative path
// without reaching into sql/connector's MemoryConnector internals.
type noTemporalConnector struct {
	schema *sql.RelationSchema
}

func (c *noTemporalConnector) GetDatasetSchema(*sql.Context) (*sql.RelationSchema, error) {
	return c.schema.Clone(), nil
}

func (c *noTemporalConnector) ReadDataset(*sql.Context, []string, []*expression.Node, *int64) (connector.RowIterator, error) {
	return nil, sql.ErrInvalidInternalState.New("not implemented")
}

func newTestBindingContext() *BindingContext {
	sqlCtx := sql.NewEmptyContext()
	return NewBindingContext(sqlCtx, functions.Builtin(), connector.DefaultFactory())
}

func exprList(items ...*rewrite.RawNode) *rewrite.RawNode {
	return &rewrite.RawNode{Kind: "ExpressionList", Children: items}
}

func query(from, where, groupBy, having, selectList, distinct, orderBy, limit, offset *rewrite.RawNode) *rewrite.RawNode {
	return &rewrite.RawNode{Kind: "Query", Children: []*rewrite.RawNode{
		from, where, groupBy, having, selectList, distinct, orderBy, limit, offset,
	}}
}

func newTestPlanner() *planbuilder.Planner {
	return planbuilder.NewPlanner(planbuilder.New(functions.Builtin()))
}

func TestBindSelectStarResolvesEveryPlanetColumn(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})
	pl, err := newTestPlanner().PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	result, err := New().Bind(pl, newTestBindingContext())
	require.NoError(err)

	derived := result.Schemas["$derived"]
	require.NotNil(derived)
	require.Len(derived.Columns, 6)
	require.Equal("id", derived.Columns[0].Name)
}

func TestBindColumnNotFoundReportsSuggestion(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Identifier", Value: "nam"})
	pl, err := newTestPlanner().PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	_, err = New().Bind(pl, newTestBindingContext())
	require.Error(err)
	require.Contains(err.Error(), "column not found")
	require.Contains(err.Error(), "maybe you mean name")
}

func TestBindGroupByAggregateBuildsDerivedSchema(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	nameCol := &rewrite.RawNode{Kind: "Identifier", Value: "name"}
	countCall := &rewrite.RawNode{Kind: "Function", Value: "COUNT", Children: []*rewrite.RawNode{{Kind: "Wildcard"}}}
	selectList := exprList(nameCol, countCall)
	groupBy := exprList(&rewrite.RawNode{Kind: "Identifier", Value: "name"})

	pl, err := newTestPlanner().PlanQuery(query(from, nil, groupBy, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	result, err := New().Bind(pl, newTestBindingContext())
	require.NoError(err)
	require.NotNil(result.Schemas["$derived"])

	for _, n := range pl.PostOrder() {
		if n.Kind.String() == "AggregateAndGroup" || n.Kind.String() == "Aggregate" {
			require.NotEmpty(n.Aggregates)
			require.True(expression.ContainsAggregator(n.Aggregates[0]))
		}
	}
}

func TestBindFilterRejectsNonBooleanCondition(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})
	where := &rewrite.RawNode{Kind: "Identifier", Value: "mass"}

	pl, err := newTestPlanner().PlanQuery(query(from, where, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	_, err = New().Bind(pl, newTestBindingContext())
	require.Error(err)
	require.Contains(err.Error(), "incompatible types")
}

func TestBindConstantFunctionFoldsToEvaluatedNode(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	piCall := &rewrite.RawNode{Kind: "Function", Value: "PI"}
	selectList := exprList(piCall)

	pl, err := newTestPlanner().PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	result, err := New().Bind(pl, newTestBindingContext())
	require.NoError(err)

	derived := result.Schemas["$derived"]
	require.Len(derived.Columns, 1)
	require.Equal(sql.Double, derived.Columns[0].Type)
	require.Equal(sql.ColumnConstant, derived.Columns[0].Kind)
}

func TestInferBinaryTypePromotesNumericOperands(t *testing.T) {
	require := require.New(t)

	t1, err := inferBinaryType("Plus", sql.Integer, sql.Integer)
	require.NoError(err)
	require.Equal(sql.Integer, t1)

	t2, err := inferBinaryType("Plus", sql.Integer, sql.Double)
	require.NoError(err)
	require.Equal(sql.Double, t2)

	t3, err := inferBinaryType("StringConcat", sql.Varchar, sql.Varchar)
	require.NoError(err)
	require.Equal(sql.Varchar, t3)

	_, err = inferBinaryType("Plus", sql.Varchar, sql.Integer)
	require.Error(err)
}

func TestMergeSchemasUnionsColumnsAcrossPeers(t *testing.T) {
	require := require.New(t)

	left := sql.NewRelationSchema("$derived")
	left.AddColumn(sql.Column{Name: "a", Type: sql.Integer, Origin: []string{"$derived"}})
	right := sql.NewRelationSchema("$derived")
	right.AddColumn(sql.Column{Name: "b", Type: sql.Integer, Origin: []string{"$derived"}})

	merged := MergeSchemas(
		map[string]*sql.RelationSchema{"$derived": left},
		map[string]*sql.RelationSchema{"$derived": right},
	)
	require.Len(merged["$derived"].Columns, 2)
}

// TestBindTemporalForFilterThreadsDateRangeThroughScan covers the `FOR`
// date-range scenario: binding succeeds and the date range a planner's
// temporal rewrite attaches to the Table node reaches the resolved
// connector via its Diachronic capability. Row-level filtering by date is
// the executor's job, outside what binding observes.
func TestBindTemporalForFilterThreadsDateRangeThroughScan(t *testing.T) {
	require := require.New(t)

	day := "1900-01-01"
	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	from.StartDate, from.EndDate = &day, &day
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})

	pl, err := newTestPlanner().PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	result, err := New().Bind(pl, newTestBindingContext())
	require.NoError(err)
	require.NotNil(result.Schemas["$derived"])

	for _, n := range pl.PostOrder() {
		if n.Kind == plan.Scan {
			require.NotNil(n.StartDate)
			require.Equal(day, *n.StartDate)
			require.NotNil(n.EndDate)
			require.Equal(day, *n.EndDate)
		}
	}
}

// TestBindTemporalForFilterFailsWithoutCapableConnector covers the other
// half of the same scenario: a connector that implements neither Diachronic
// nor Partitionable cannot satisfy a FOR clause at all.
func TestBindTemporalForFilterFailsWithoutCapableConnector(t *testing.T) {
	require := require.New(t)

	day := "1900-01-01"
	from := &rewrite.RawNode{Kind: "Table", Value: "$no_temporal"}
	from.StartDate, from.EndDate = &day, &day
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})

	pl, err := newTestPlanner().PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	factory := connector.NewFactory()
	factory.Register("$no_temporal", func() connector.Connector {
		schema := sql.NewRelationSchema("$no_temporal")
		schema.AddColumn(sql.Column{Name: "id", Type: sql.Integer, Origin: []string{"$no_temporal"}})
		return &noTemporalConnector{schema: schema}
	})

	ctx := NewBindingContext(sql.NewEmptyContext(), functions.Builtin(), factory)
	_, err = New().Bind(pl, ctx)
	require.Error(err)
	require.Contains(err.Error(), "does not support a FOR date range")
}

// TestBindPositionalParameterFiltersSatellites covers the positional-
// parameter scenario against $satellites (its planet_id column is this
// module's narrowed rename of the original dataset's planetId).
func TestBindPositionalParameterFiltersSatellites(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$satellites"}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})
	where := &rewrite.RawNode{Kind: "BinaryOp", Value: "Eq", Children: []*rewrite.RawNode{
		{Kind: "Identifier", Value: "planet_id"},
		{Kind: "Literal", Value: int64(3)},
	}}

	pl, err := newTestPlanner().PlanQuery(query(from, where, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	result, err := New().Bind(pl, newTestBindingContext())
	require.NoError(err)
	derived := result.Schemas["$derived"]
	require.NotNil(derived)
	require.NotNil(derived.FindColumn("name"))

	for _, n := range pl.PostOrder() {
		if n.Kind == plan.Filter {
			require.NotNil(n.Condition)
			require.Equal(sql.Boolean, n.Condition.Type())
		}
	}
}

// TestBindSelfJoinDisambiguatesByQualifier covers the self-join scenario:
// `$planets` joined to itself on `id`, selecting `a.name`/`b.name`, expects
// the exit schema to carry both disambiguated by alias.
func TestBindSelfJoinDisambiguatesByQualifier(t *testing.T) {
	require := require.New(t)

	left := &rewrite.RawNode{Kind: "Table", Value: "$planets", Children: []*rewrite.RawNode{
		{Kind: "Alias", Value: "a"},
	}}
	right := &rewrite.RawNode{Kind: "Table", Value: "$planets", Children: []*rewrite.RawNode{
		{Kind: "Alias", Value: "b"},
	}}
	cond := &rewrite.RawNode{Kind: "BinaryOp", Value: "Eq", Children: []*rewrite.RawNode{
		{Kind: "CompoundIdentifier", Value: "a.id"},
		{Kind: "CompoundIdentifier", Value: "b.id"},
	}}
	join := &rewrite.RawNode{Kind: "Join", Value: "Inner", Children: []*rewrite.RawNode{left, right, cond}}

	selectList := exprList(
		&rewrite.RawNode{Kind: "CompoundIdentifier", Value: "a.name"},
		&rewrite.RawNode{Kind: "CompoundIdentifier", Value: "b.name"},
	)

	pl, err := newTestPlanner().PlanQuery(query(join, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	result, err := New().Bind(pl, newTestBindingContext())
	require.NoError(err)

	derived := result.Schemas["$derived"]
	require.NotNil(derived)
	require.Len(derived.Columns, 2)
	require.Equal([]string{"a"}, derived.Columns[0].Origin)
	require.Equal([]string{"b"}, derived.Columns[1].Origin)
	// Both sides project a column literally named "name" — the exit node
	// must force qualification (spec.md §4.6 Exit) instead of emitting two
	// exit columns that both read "name".
	require.Equal("a.name", derived.Columns[0].Name)
	require.Equal("b.name", derived.Columns[1].Name)
}

// TestBindUnexpectedDatasetReferenceAcrossRelations covers the negative
// scenario: a qualified identifier naming a relation that isn't in scope.
func TestBindUnexpectedDatasetReferenceAcrossRelations(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$satellites"}
	selectList := exprList(&rewrite.RawNode{Kind: "CompoundIdentifier", Value: "$planets.id"})

	pl, err := newTestPlanner().PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	_, err = New().Bind(pl, newTestBindingContext())
	require.Error(err)
	require.Contains(err.Error(), "unexpected dataset reference")
}

// TestBindAmbiguousIdentifierAfterSelfJoin covers the negative scenario: an
// unqualified identifier that resolves in both arms of a self-join.
func TestBindAmbiguousIdentifierAfterSelfJoin(t *testing.T) {
	require := require.New(t)

	left := &rewrite.RawNode{Kind: "Table", Value: "$planets", Children: []*rewrite.RawNode{
		{Kind: "Alias", Value: "a"},
	}}
	right := &rewrite.RawNode{Kind: "Table", Value: "$planets", Children: []*rewrite.RawNode{
		{Kind: "Alias", Value: "b"},
	}}
	cond := &rewrite.RawNode{Kind: "BinaryOp", Value: "Eq", Children: []*rewrite.RawNode{
		{Kind: "CompoundIdentifier", Value: "a.id"},
		{Kind: "CompoundIdentifier", Value: "b.id"},
	}}
	join := &rewrite.RawNode{Kind: "Join", Value: "Inner", Children: []*rewrite.RawNode{left, right, cond}}

	selectList := exprList(&rewrite.RawNode{Kind: "Identifier", Value: "id"})

	pl, err := newTestPlanner().PlanQuery(query(join, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	_, err = New().Bind(pl, newTestBindingContext())
	require.Error(err)
	require.Contains(err.Error(), "ambiguous identifier")
}

// TestBindCastToUnsupportedStructTypeFails covers the negative scenario:
// CAST to a target type the function catalogue has no entry for.
func TestBindCastToUnsupportedStructTypeFails(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	cast := &rewrite.RawNode{Kind: "Cast", Value: "STRUCT", Children: []*rewrite.RawNode{
		{Kind: "Literal", Value: "x"},
	}}
	selectList := exprList(cast)

	_, err := newTestPlanner().PlanQuery(query(from, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.Error(err)
	require.Contains(err.Error(), "unsupported")
}

func TestCheckArrayAggOrderRejectsDifferentColumn(t *testing.T) {
	require := require.New(t)

	expr := expression.NewIdentifier("mass")
	expr.SetType(sql.Double)
	other := expression.NewIdentifier("name")
	other.SetType(sql.Varchar)
	orderTerm := expression.NewUnaryOp("ASC", other)
	order := expression.NewExpressionList([]*expression.Node{orderTerm})

	err := checkArrayAggOrder([]*expression.Node{expr, order})
	require.Error(err)
}

// TestBindSelectWithNoFromBindsAgainstNoTable covers spec.md §4.5 step 2:
// "SELECT 1" with no FROM clause compiles against the synthetic $no_table
// relation rather than failing to plan.
func TestBindSelectWithNoFromBindsAgainstNoTable(t *testing.T) {
	require := require.New(t)

	selectList := exprList(&rewrite.RawNode{Kind: "Number", Value: "1"})
	pl, err := newTestPlanner().PlanQuery(query(nil, nil, nil, nil, selectList, nil, nil, nil, nil))
	require.NoError(err)

	result, err := New().Bind(pl, newTestBindingContext())
	require.NoError(err)

	derived := result.Schemas["$derived"]
	require.NotNil(derived)
	require.Len(derived.Columns, 1)
}
