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
	"fmt"
	"sort"
	"strings"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/connector"
	"github.com/mabel-dev/opteryx-go/sql/expression"
	"github.com/mabel-dev/opteryx-go/sql/functions"
	"github.com/mabel-dev/opteryx-go/sql/plan"
	"github.com/mabel-dev/opteryx-go/sql/suggest"
)

// Binder walks a logical plan post-order from its exit point, resolving
// every expression against the schemas visible at that point and
// populating each node's bound Schema/Columns (spec.md §4.6). Grounded on
// original_source/opteryx/components/binder/{binder.py,binder_visitor.py}:
// BinderVisitor.visit dispatches on node_type the same way dispatch below
// does, one function per plan.NodeType.
//
// Binder carries no state of its own — everything threaded through a Bind
// call lives in the BindingContext, copied per branch (spec.md §3.4).
type Binder struct{}

// New returns a Binder.
func New() *Binder {
	return &Binder{}
}

// Bind binds every node of pl reachable from its exit point, starting from
// root. Returns the context the exit node was bound against (its Schemas
// map holds the final "$derived" output schema).
func (b *Binder) Bind(pl *plan.Plan, root *BindingContext) (*BindingContext, error) {
	if err := pl.Validate(); err != nil {
		return nil, err
	}
	return b.visit(pl, pl.Node(pl.ExitPoint()), root)
}

// visit recurses to every child first, each against its own copy of ctx so
// one peer's derived columns never leak into another's (the property a
// Join's two arms and a set operation's two query arms both depend on),
// then merges the children's resulting schemas before dispatching n.
func (b *Binder) visit(pl *plan.Plan, n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	children := pl.Children(n)
	if len(children) == 0 {
		return b.dispatch(n, ctx, nil)
	}

	childCtxs := make([]*BindingContext, len(children))
	for i, c := range children {
		cc, err := b.visit(pl, c, ctx.Copy())
		if err != nil {
			return nil, err
		}
		childCtxs[i] = cc
	}

	merged := ctx.Copy()
	schemaMaps := make([]map[string]*sql.RelationSchema, 0, len(childCtxs)+1)
	for _, cc := range childCtxs {
		schemaMaps = append(schemaMaps, cc.Schemas)
		for r := range cc.Relations {
			merged.Relations[r] = true
		}
	}
	schemaMaps = append(schemaMaps, ctx.Schemas)
	merged.Schemas = MergeSchemas(schemaMaps...)

	return b.dispatch(n, merged, childCtxs)
}

func (b *Binder) dispatch(n *plan.Node, ctx *BindingContext, childCtxs []*BindingContext) (*BindingContext, error) {
	switch n.Kind {
	case plan.Scan:
		return b.visitScan(n, ctx)
	case plan.FunctionDataset:
		return b.visitFunctionDataset(n, ctx)
	case plan.Filter:
		return b.visitFilter(n, ctx)
	case plan.Project:
		return b.visitProject(n, ctx)
	case plan.Join:
		return b.visitJoin(n, ctx, childCtxs)
	case plan.AggregateAndGroup, plan.Aggregate:
		return b.visitAggregate(n, ctx)
	case plan.Distinct:
		return b.visitDistinct(n, ctx)
	case plan.Order:
		return b.visitOrder(n, ctx)
	case plan.Limit, plan.HeapSort:
		return b.visitLimit(n, ctx)
	case plan.Subquery, plan.CTE:
		return b.visitSubquery(n, ctx)
	case plan.Union, plan.Difference:
		return b.visitSetOp(n, ctx, childCtxs)
	case plan.Exit:
		return b.visitExit(n, ctx)
	default:
		// Show/ShowColumns/Set/Explain/MetadataWriter carry no expressions
		// of their own to resolve here; they take the current $derived
		// schema unchanged.
		n.Schema = ctx.Schemas["$derived"]
		return ctx, nil
	}
}

// --- plan node visitors ---------------------------------------------------

func (b *Binder) visitScan(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	relation := n.Alias
	if relation == "" {
		relation = n.DatasetName
	}
	if ctx.Relations[strings.ToLower(relation)] {
		return nil, sql.ErrAmbiguousDataset.New(relation)
	}

	conn, err := ctx.Connectors.Resolve(n.DatasetName)
	if err != nil {
		return nil, err
	}
	schema, err := conn.GetDatasetSchema(ctx.SQLContext)
	if err != nil {
		return nil, err
	}
	schema.Name = relation
	for i := range schema.Columns {
		schema.Columns[i].Origin = []string{relation}
	}

	if n.StartDate != nil || n.EndDate != nil {
		switch c := conn.(type) {
		case connector.Diachronic:
			c.SetTemporalRange(n.StartDate, n.EndDate)
		case connector.Partitionable:
			c.SetDateRange(n.StartDate, n.EndDate)
		default:
			return nil, sql.ErrInvalidTemporalRangeFilter.New(relation + " does not support a FOR date range")
		}
	}

	next := ctx.Copy()
	next.Relations[strings.ToLower(relation)] = true
	next.Schemas[relation] = schema
	n.Schema = schema
	return next, nil
}

func (b *Binder) visitFunctionDataset(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	relation := n.Alias
	if relation == "" {
		return nil, sql.ErrUnnamedSubquery.New()
	}
	if ctx.Relations[strings.ToLower(relation)] {
		return nil, sql.ErrAmbiguousDataset.New(relation)
	}

	boundArgs := make([]*expression.Node, len(n.FunctionArgs))
	for i, a := range n.FunctionArgs {
		bound, err := b.bindExpression(a, ctx)
		if err != nil {
			return nil, err
		}
		boundArgs[i] = bound
	}
	n.FunctionArgs = boundArgs

	colType := sql.Missing
	switch strings.ToUpper(n.FunctionName) {
	case "GENERATE_SERIES":
		colType = sql.Integer
	case "UNNEST":
		if len(boundArgs) > 0 {
			colType = boundArgs[0].Type()
		}
	}

	schema := sql.NewRelationSchema(relation)
	schema.AddColumn(sql.Column{Name: relation, Type: colType, Origin: []string{relation}})

	next := ctx.Copy()
	next.Relations[strings.ToLower(relation)] = true
	next.Schemas[relation] = schema
	n.Schema = schema
	return next, nil
}

func (b *Binder) visitFilter(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	bound, err := b.bindExpression(n.Condition, ctx)
	if err != nil {
		return nil, err
	}
	if bound.Type() != sql.Boolean && bound.Type() != sql.Missing {
		return nil, sql.ErrIncompatibleTypes.New(bound.Type().String(), sql.Boolean.String())
	}
	n.Condition = bound
	n.Columns = expression.Identifiers(bound)
	n.Schema = ctx.Schemas["$derived"]
	return ctx, nil
}

func (b *Binder) visitProject(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	expanded, err := b.expandProjection(n.Projection, ctx)
	if err != nil {
		return nil, err
	}

	bound := make([]*expression.Node, len(expanded))
	derived := sql.NewRelationSchema("$derived")
	seen := map[string]bool{}
	for i, e := range expanded {
		be, err := b.bindExpression(e, ctx)
		if err != nil {
			return nil, err
		}
		bound[i] = be
		col := columnFor(be)
		if seen[col.Identity()] {
			return nil, sql.ErrAmbiguousIdentifier.New(col.QualifiedName())
		}
		seen[col.Identity()] = true
		derived.AddColumn(col)
	}
	n.Projection = bound
	n.Schema = derived

	next := ctx.Copy()
	next.Schemas = map[string]*sql.RelationSchema{"$derived": derived}
	return next, nil
}

func (b *Binder) visitJoin(n *plan.Node, ctx *BindingContext, childCtxs []*BindingContext) (*BindingContext, error) {
	if len(childCtxs) != 2 {
		return nil, sql.ErrInvalidInternalState.New("Join requires exactly two children")
	}
	leftCtx, rightCtx := childCtxs[0], childCtxs[1]

	if n.JoinKind == plan.JoinNatural {
		shared := sharedColumnNames(leftCtx, rightCtx)
		if len(shared) == 0 {
			return nil, sql.ErrUnsupportedSyntax.New("NATURAL JOIN requires at least one column shared by both sides")
		}
		n.UsingColumns = shared
		n.JoinKind = plan.JoinInner
	}

	if len(n.UsingColumns) > 0 {
		if err := b.bindUsingJoin(n, ctx, leftCtx, rightCtx); err != nil {
			return nil, err
		}
	} else if n.Condition != nil {
		bound, err := b.bindExpression(n.Condition, ctx)
		if err != nil {
			return nil, err
		}
		if bound.Kind != expression.ComparisonOp && bound.Kind != expression.And && bound.Kind != expression.Or {
			return nil, sql.ErrUnsupportedSyntax.New("join condition must be an equality expression")
		}
		n.Condition = bound
	}

	if n.Condition != nil {
		n.Columns = expression.Identifiers(n.Condition)
	}

	switch n.JoinKind {
	case plan.JoinLeftSemi, plan.JoinLeftAnti:
		ctx.Schemas = leftCtx.Schemas
		ctx.Relations = leftCtx.Relations
	case plan.JoinRightSemi, plan.JoinRightAnti:
		ctx.Schemas = rightCtx.Schemas
		ctx.Relations = rightCtx.Relations
	}
	n.Schema = ctx.Schemas["$derived"]
	return ctx, nil
}

// bindUsingJoin converts a USING(col, ...) join into an ON expression,
// relocating each shared column into a synthetic "$shared-<id>" schema
// (sql.SharedSchemaName) so a later unqualified reference to it resolves
// to a single column rather than ambiguously to both sides (spec.md §4.6
// Join).
func (b *Binder) bindUsingJoin(n *plan.Node, ctx *BindingContext, leftCtx, rightCtx *BindingContext) error {
	sharedName := sql.SharedSchemaName(n.ID, relationSetName(leftCtx), relationSetName(rightCtx))
	shared := sql.NewRelationSchema(sharedName)

	var conj *expression.Node
	for _, col := range n.UsingColumns {
		leftCol := findColumnAcross(leftCtx.Schemas, col)
		rightCol := findColumnAcross(rightCtx.Schemas, col)
		if leftCol == nil || rightCol == nil {
			return sql.ErrColumnNotFound.New(col, "")
		}

		leftBound, err := b.bindExpression(expression.NewIdentifier(col), &BindingContext{Schemas: leftCtx.Schemas})
		if err != nil {
			return err
		}
		rightBound, err := b.bindExpression(expression.NewIdentifier(col), &BindingContext{Schemas: rightCtx.Schemas})
		if err != nil {
			return err
		}
		eq := expression.NewComparisonOp("Eq", leftBound, rightBound)
		eq.SetType(sql.Boolean)
		if conj == nil {
			conj = eq
		} else {
			joined := expression.NewLogical(expression.And, conj, eq)
			joined.SetType(sql.Boolean)
			conj = joined
		}

		merged := *leftCol
		merged.Origin = append(append([]string(nil), leftCol.Origin...), rightCol.Origin...)
		shared.AddColumn(merged)

		removeColumn(ctx.Schemas, leftCol.Origin, col)
		removeColumn(ctx.Schemas, rightCol.Origin, col)
	}

	ctx.Schemas[sharedName] = shared
	n.Condition = conj
	return nil
}

func (b *Binder) visitAggregate(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	boundGroups := make([]*expression.Node, len(n.Groups))
	for i, g := range n.Groups {
		bg, err := b.bindExpression(g, ctx)
		if err != nil {
			return nil, err
		}
		boundGroups[i] = bg
	}
	n.Groups = boundGroups

	boundAggs := make([]*expression.Node, len(n.Aggregates))
	for i, a := range n.Aggregates {
		ba, err := b.bindExpression(a, ctx)
		if err != nil {
			return nil, err
		}
		if !expression.ContainsAggregator(ba) {
			return nil, sql.ErrUnsupportedSyntax.New("aggregate list entry is not an aggregate expression")
		}
		boundAggs[i] = ba
	}
	n.Aggregates = boundAggs

	derived := sql.NewRelationSchema("$derived")
	for _, g := range boundGroups {
		derived.AddColumn(columnFor(g))
	}
	for _, a := range boundAggs {
		derived.AddColumn(columnFor(a))
	}

	var cols []*expression.Node
	for _, g := range boundGroups {
		cols = append(cols, expression.Identifiers(g)...)
	}
	for _, a := range boundAggs {
		cols = append(cols, expression.Identifiers(a)...)
	}
	n.Columns = cols

	next := ctx.Copy()
	next.Schemas = map[string]*sql.RelationSchema{"$derived": derived}

	if len(n.Projection) > 0 {
		boundProj := make([]*expression.Node, len(n.Projection))
		for i, p := range n.Projection {
			bp, err := b.bindExpression(p, next)
			if err != nil {
				return nil, err
			}
			boundProj[i] = bp
		}
		n.Projection = boundProj
	}

	n.Schema = derived
	return next, nil
}

func (b *Binder) visitDistinct(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	bound := make([]*expression.Node, len(n.DistinctOn))
	for i, e := range n.DistinctOn {
		be, err := b.bindExpression(e, ctx)
		if err != nil {
			return nil, err
		}
		bound[i] = be
	}
	n.DistinctOn = bound
	n.Schema = ctx.Schemas["$derived"]
	return ctx, nil
}

func (b *Binder) visitOrder(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	terms, err := b.bindOrderTerms(n.OrderBy, ctx)
	if err != nil {
		return nil, err
	}
	n.OrderBy = terms
	n.Schema = ctx.Schemas["$derived"]
	return ctx, nil
}

func (b *Binder) visitLimit(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	if len(n.OrderBy) > 0 {
		terms, err := b.bindOrderTerms(n.OrderBy, ctx)
		if err != nil {
			return nil, err
		}
		n.OrderBy = terms
	}
	n.Schema = ctx.Schemas["$derived"]
	return ctx, nil
}

func (b *Binder) bindOrderTerms(terms []plan.OrderTerm, ctx *BindingContext) ([]plan.OrderTerm, error) {
	out := make([]plan.OrderTerm, len(terms))
	for i, t := range terms {
		be, err := b.bindExpression(t.Expr, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = plan.OrderTerm{Expr: be, Descending: t.Descending}
	}
	return out, nil
}

// visitSubquery binds a CTE's or a FROM-position subquery's sub-plan
// independently (a fresh BindingContext rooted at the same catalogue,
// variables and connector factory), then exposes its Exit schema under the
// subquery's alias, same as a Scan exposes a connector's schema.
func (b *Binder) visitSubquery(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	if n.SubPlan == nil {
		return nil, sql.ErrInvalidInternalState.New("Subquery/CTE node missing its sub-plan")
	}
	relation := n.Alias
	if relation == "" {
		return nil, sql.ErrUnnamedSubquery.New()
	}
	if ctx.Relations[strings.ToLower(relation)] {
		return nil, sql.ErrAmbiguousDataset.New(relation)
	}

	subRoot := NewBindingContext(ctx.SQLContext, ctx.Catalogue, ctx.Connectors)
	if _, err := b.Bind(n.SubPlan, subRoot); err != nil {
		return nil, err
	}
	exitNode := n.SubPlan.Node(n.SubPlan.ExitPoint())
	if exitNode.Schema == nil {
		return nil, sql.ErrInvalidInternalState.New("sub-plan exit node did not bind a schema")
	}

	schema := exitNode.Schema.Clone()
	schema.Name = relation
	for i := range schema.Columns {
		schema.Columns[i].Origin = []string{relation}
	}

	next := ctx.Copy()
	next.Relations[strings.ToLower(relation)] = true
	next.Schemas[relation] = schema
	n.Schema = schema
	return next, nil
}

func (b *Binder) visitSetOp(n *plan.Node, ctx *BindingContext, childCtxs []*BindingContext) (*BindingContext, error) {
	if len(childCtxs) != 2 {
		return nil, sql.ErrInvalidInternalState.New("set operation requires exactly two children")
	}
	leftSchema := childCtxs[0].Schemas["$derived"]
	rightSchema := childCtxs[1].Schemas["$derived"]
	if leftSchema == nil || rightSchema == nil {
		return nil, sql.ErrInvalidInternalState.New("set operation child missing a derived schema")
	}
	if len(leftSchema.Columns) != len(rightSchema.Columns) {
		return nil, sql.ErrUnsupportedSyntax.New("set operation arms must project the same number of columns")
	}

	derived := leftSchema.Clone()
	derived.Name = "$derived"
	n.Schema = derived

	next := ctx.Copy()
	next.Schemas = map[string]*sql.RelationSchema{"$derived": derived}
	return next, nil
}

func (b *Binder) visitExit(n *plan.Node, ctx *BindingContext) (*BindingContext, error) {
	expanded, err := b.expandProjection(n.Projection, ctx)
	if err != nil {
		return nil, err
	}

	bound := make([]*expression.Node, len(expanded))
	cols := make([]sql.Column, len(expanded))
	counts := map[string]int{}
	for i, e := range expanded {
		be, err := b.bindExpression(e, ctx)
		if err != nil {
			return nil, err
		}
		bound[i] = be
		cols[i] = columnFor(be)
		counts[strings.ToLower(cols[i].Name)]++
	}

	// Qualify every exit column whose bare display name collides with
	// another (spec.md §4.6 Exit: "qualification is forced if any column
	// name is duplicated across visible schemas"), the Go equivalent of
	// the original's name_column forcing "relation.column" whenever more
	// than one visible schema could have supplied the name. An explicit
	// alias always wins and is never further qualified.
	derived := sql.NewRelationSchema("$derived")
	seen := map[string]bool{}
	for i, be := range bound {
		col := cols[i]
		if be.Alias == "" && col.Kind == sql.ColumnFlat && len(col.Origin) == 1 && counts[strings.ToLower(col.Name)] > 1 {
			col.Name = col.QualifiedName()
		}
		if seen[col.Identity()] {
			return nil, sql.ErrAmbiguousIdentifier.New(col.QualifiedName())
		}
		seen[col.Identity()] = true
		derived.AddColumn(col)
	}
	n.Projection = bound
	n.Schema = derived

	next := ctx.Copy()
	next.Schemas = map[string]*sql.RelationSchema{"$derived": derived}
	return next, nil
}

// expandProjection replaces every Wildcard node ("*" or "source.*") with
// the Identifier nodes it stands for, in schema-then-column order. The
// $derived schema is skipped when empty so a bare "*" over a fresh scan
// doesn't spuriously contribute zero columns as a visible "relation".
func (b *Binder) expandProjection(exprs []*expression.Node, ctx *BindingContext) ([]*expression.Node, error) {
	var out []*expression.Node
	for _, e := range exprs {
		if e.Kind != expression.Wildcard {
			out = append(out, e)
			continue
		}
		cols, err := wildcardColumns(e.Qualifier, ctx)
		if err != nil {
			return nil, err
		}
		for _, wc := range cols {
			out = append(out, expression.NewQualifiedIdentifier(wc.relation, wc.column))
		}
	}
	return out, nil
}

type wildcardColumn struct {
	relation string
	column   string
}

func wildcardColumns(qualifier string, ctx *BindingContext) ([]wildcardColumn, error) {
	if qualifier != "" {
		schema, ok := ctx.Schemas[qualifier]
		if !ok {
			for name, s := range ctx.Schemas {
				if strings.EqualFold(name, qualifier) {
					schema, ok = s, true
					break
				}
			}
		}
		if !ok {
			return nil, sql.ErrUnexpectedDatasetReference.New(qualifier)
		}
		out := make([]wildcardColumn, len(schema.Columns))
		for i, c := range schema.Columns {
			out[i] = wildcardColumn{relation: qualifier, column: c.Name}
		}
		return out, nil
	}

	names := make([]string, 0, len(ctx.Schemas))
	for name := range ctx.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []wildcardColumn
	for _, name := range names {
		schema := ctx.Schemas[name]
		if name == "$derived" && len(schema.Columns) == 0 {
			continue
		}
		for _, c := range schema.Columns {
			out = append(out, wildcardColumn{relation: name, column: c.Name})
		}
	}
	return out, nil
}

// --- expression binder -----------------------------------------------------

// bindExpression is inner_binder's Go port: a recursive, bottom-up walk
// that resolves every node against ctx, returning a new, bound copy
// (spec.md §4.6). Already-bound nodes (IsBound) pass through untouched —
// the condition the original checks before doing any work.
func (b *Binder) bindExpression(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	if n == nil || n.IsBound() {
		return n, nil
	}
	switch n.Kind {
	case expression.Identifier:
		return b.bindIdentifier(n, ctx)
	case expression.Literal:
		return b.bindLiteral(n, ctx)
	case expression.Function, expression.Aggregator:
		return b.bindFunction(n, ctx)
	case expression.BinaryOp:
		return b.bindBinaryOp(n, ctx)
	case expression.ComparisonOp:
		return b.bindComparisonOp(n, ctx)
	case expression.UnaryOp:
		return b.bindUnaryOp(n, ctx)
	case expression.And, expression.Or, expression.Xor:
		return b.bindLogical(n, ctx)
	case expression.Not:
		return b.bindNot(n, ctx)
	case expression.Nested:
		inner, err := b.bindExpression(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		out := n.WithChildren(inner)
		out.SchemaColumn = inner.SchemaColumn
		out.QueryColumn = inner.QueryColumn
		out.SetType(inner.Type())
		return out, nil
	case expression.ExpressionList:
		items := make([]*expression.Node, len(n.Parameters))
		for i, p := range n.Parameters {
			bp, err := b.bindExpression(p, ctx)
			if err != nil {
				return nil, err
			}
			items[i] = bp
		}
		out := n.WithChildren(items...)
		out.SetType(sql.Array)
		out.SchemaColumn = &sql.Column{Name: out.String(), Type: sql.Array, Kind: sql.ColumnExpression, Origin: []string{"$derived"}}
		return out, nil
	case expression.Subquery:
		out := *n
		out.SchemaColumn = &sql.Column{Name: "subquery", Type: sql.Missing, Kind: sql.ColumnExpression, Origin: []string{"$derived"}}
		return &out, nil
	case expression.Wildcard:
		// A top-level SELECT-list "*" is expanded by expandProjection
		// before binding ever sees it; the only Wildcard a bound
		// expression tree legitimately still carries at this point is
		// COUNT(*)'s argument, which never needs a real column behind it.
		out := *n
		out.SchemaColumn = &sql.Column{Name: "*", Type: sql.Missing, Kind: sql.ColumnExpression, Origin: []string{"$derived"}}
		return &out, nil
	default:
		return nil, sql.ErrInvalidInternalState.New("unhandled expression kind " + n.Kind.String())
	}
}

func (b *Binder) bindIdentifier(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	name, _ := n.Value.(string)
	if strings.HasPrefix(name, "@") {
		return b.bindVariable(n, ctx, name)
	}

	var matches []*sql.Column
	if n.Qualifier != "" {
		schema, ok := ctx.Schemas[n.Qualifier]
		if !ok {
			for relName, s := range ctx.Schemas {
				if strings.EqualFold(relName, n.Qualifier) {
					schema, ok = s, true
					break
				}
			}
		}
		if !ok {
			return nil, sql.ErrUnexpectedDatasetReference.New(n.Qualifier)
		}
		if col := schema.FindColumn(name); col != nil {
			matches = append(matches, col)
		}
	} else {
		for _, schema := range ctx.Schemas {
			if col := schema.FindColumn(name); col != nil {
				matches = append(matches, col)
			}
		}
	}

	if len(matches) == 0 {
		return nil, sql.ErrColumnNotFound.New(name, suggest.Find(allColumnNames(ctx.Schemas), name))
	}
	if len(matches) > 1 && !sameColumn(matches) {
		return nil, sql.ErrAmbiguousIdentifier.New(name)
	}

	out := *n
	out.SchemaColumn = matches[0]
	out.SetType(matches[0].Type)
	out.QueryColumn = matches[0].Name
	return &out, nil
}

// sameColumn reports whether every match is really the same column seen
// through more than one origin — the case a USING join's shared column
// legitimately produces (it lives in both the left and right schema's
// relocated copy) and which must not raise AmbiguousIdentifier.
func sameColumn(matches []*sql.Column) bool {
	id := matches[0].Identity()
	for _, m := range matches[1:] {
		if m.Identity() != id {
			return false
		}
	}
	return true
}

func (b *Binder) bindVariable(n *expression.Node, ctx *BindingContext, name string) (*expression.Node, error) {
	bare := strings.TrimPrefix(name, "@")
	val, ok := ctx.Variables.Get(bare)
	if !ok {
		return nil, sql.ErrColumnNotFound.New(name, suggest.Find(ctx.Variables.Names(), bare))
	}
	t := inferLiteralType(val)
	out := *n
	out.Kind = expression.Literal
	out.Value = val
	out.SetType(t)
	out.SchemaColumn = &sql.Column{Name: name, Type: t, Kind: sql.ColumnConstant, ConstantValue: val, Origin: []string{"$derived"}}
	out.QueryColumn = name
	return &out, nil
}

func (b *Binder) bindLiteral(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	out := *n
	out.SchemaColumn = &sql.Column{Name: n.String(), Type: n.Type(), Kind: sql.ColumnConstant, ConstantValue: n.Value, Origin: []string{"$derived"}}
	out.QueryColumn = n.String()
	return &out, nil
}

// bindFunction resolves a Function/Aggregator call against the catalogue,
// binds its arguments, and bind-time-folds a zero-argument Constant-mode
// entry (PI, NOW, CURRENT_DATE, CURRENT_TIME, VERSION, RANDOM — "evaluated
// once per statement", spec.md §4.7) into an Evaluated node rather than
// leaving it to be recomputed per row downstream.
func (b *Binder) bindFunction(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	name := n.Qualifier
	spec, ok := ctx.Catalogue.Get(name)
	if !ok {
		hint := ""
		if s := ctx.Catalogue.Suggest(name); s != "" {
			hint = fmt.Sprintf(". Did you mean '%s'?", s)
		}
		return nil, sql.ErrFunctionNotFound.New(name, hint)
	}

	boundArgs := make([]*expression.Node, len(n.Parameters))
	for i, p := range n.Parameters {
		bp, err := b.bindExpression(p, ctx)
		if err != nil {
			return nil, err
		}
		boundArgs[i] = bp
	}

	if spec.Mode == functions.Constant && len(boundArgs) == 0 {
		colName := strings.ToLower(name) + "()"
		out := &expression.Node{Kind: expression.Evaluated, Value: name, Alias: n.Alias}
		out.SetType(spec.ReturnType)
		out.SchemaColumn = &sql.Column{Name: colName, Type: spec.ReturnType, Kind: sql.ColumnConstant, Origin: []string{"$derived"}}
		out.QueryColumn = colName
		return out, nil
	}

	out := n.WithChildren(boundArgs...)
	out.SetType(spec.ReturnType)
	colName := strings.ToLower(name) + "(" + joinArgNames(boundArgs) + ")"
	out.SchemaColumn = &sql.Column{
		Name:         colName,
		Type:         spec.ReturnType,
		Kind:         sql.ColumnFunction,
		FunctionName: name,
		FunctionArgs: toExpressionSlice(boundArgs),
		Origin:       []string{"$derived"},
	}
	out.QueryColumn = colName

	if out.Kind == expression.Aggregator && (strings.EqualFold(name, "ARRAY_AGG") || strings.EqualFold(name, "ARRAY_AGG_DISTINCT")) {
		if err := checkArrayAggOrder(boundArgs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkArrayAggOrder enforces that ARRAY_AGG(expr ORDER BY other) is
// restricted to ORDER BY expr — a single column, the same one being
// aggregated (spec.md §4.6) — by comparing the rendered form of the
// aggregated expression against each order term's inner expression.
func checkArrayAggOrder(args []*expression.Node) error {
	if len(args) < 2 || args[1] == nil || args[1].Kind != expression.ExpressionList {
		return nil
	}
	target := args[0].String()
	for _, term := range args[1].Parameters {
		if term.Left == nil || term.Left.String() != target {
			return sql.ErrUnsupportedSyntax.New("ARRAY_AGG ORDER BY is restricted to the aggregated expression")
		}
	}
	return nil
}

func (b *Binder) bindBinaryOp(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	left, err := b.bindExpression(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := b.bindExpression(n.Right, ctx)
	if err != nil {
		return nil, err
	}
	op, _ := n.Value.(string)
	t, err := inferBinaryType(op, left.Type(), right.Type())
	if err != nil {
		return nil, err
	}
	out := n.WithChildren(left, right)
	out.SetType(t)
	name := left.String() + " " + op + " " + right.String()
	out.SchemaColumn = &sql.Column{Name: name, Type: t, Kind: sql.ColumnExpression, Expr: out, Origin: []string{"$derived"}}
	out.QueryColumn = name
	return out, nil
}

func (b *Binder) bindComparisonOp(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	left, err := b.bindExpression(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := b.bindExpression(n.Right, ctx)
	if err != nil {
		return nil, err
	}

	// InList/NotInList/InSubQuery/Contains compare a scalar against a list
	// or subquery, not two like-typed scalars — skip the relaxed-category
	// check those right-hand shapes would otherwise fail.
	skip := right.Kind == expression.ExpressionList || right.Kind == expression.Subquery || left.Kind == expression.ExpressionList
	if !skip && !sql.Comparable(left.Type(), right.Type()) {
		return nil, sql.ErrIncompatibleTypes.New(left.Type().String(), right.Type().String())
	}

	out := n.WithChildren(left, right)
	out.SetType(sql.Boolean)
	name := left.String() + " " + fmt.Sprint(n.Value) + " " + right.String()
	out.SchemaColumn = &sql.Column{Name: name, Type: sql.Boolean, Kind: sql.ColumnExpression, Expr: out, Origin: []string{"$derived"}}
	out.QueryColumn = name
	return out, nil
}

func (b *Binder) bindUnaryOp(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	inner, err := b.bindExpression(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	op, _ := n.Value.(string)
	t := inner.Type()
	switch op {
	case "IsNull", "IsNotNull", "IsTrue", "IsFalse", "IsNotTrue", "IsNotFalse":
		t = sql.Boolean
	}
	out := n.WithChildren(inner)
	out.SetType(t)
	name := op + "(" + inner.String() + ")"
	out.SchemaColumn = &sql.Column{Name: name, Type: t, Kind: sql.ColumnExpression, Expr: out, Origin: []string{"$derived"}}
	out.QueryColumn = name
	return out, nil
}

func (b *Binder) bindLogical(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	left, err := b.bindExpression(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := b.bindExpression(n.Right, ctx)
	if err != nil {
		return nil, err
	}
	out := n.WithChildren(left, right)
	out.SetType(sql.Boolean)
	name := left.String() + " " + n.Kind.String() + " " + right.String()
	out.SchemaColumn = &sql.Column{Name: name, Type: sql.Boolean, Kind: sql.ColumnExpression, Expr: out, Origin: []string{"$derived"}}
	out.QueryColumn = name
	return out, nil
}

func (b *Binder) bindNot(n *expression.Node, ctx *BindingContext) (*expression.Node, error) {
	inner, err := b.bindExpression(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	out := n.WithChildren(inner)
	out.SetType(sql.Boolean)
	name := "NOT " + inner.String()
	out.SchemaColumn = &sql.Column{Name: name, Type: sql.Boolean, Kind: sql.ColumnExpression, Expr: out, Origin: []string{"$derived"}}
	out.QueryColumn = name
	return out, nil
}

// inferBinaryType is the operator-return-type table spec.md §4.6 asks the
// binder to consult for arithmetic/bitwise operators. No such table exists
// anywhere in the retrieval pack — original_source's
// managers/expression/binary_operators.py is an evaluation-kernel map
// (op name -> a callable that does the arithmetic), not a type table — so
// this is authored directly against the closed type system in sql/types.go:
// a numeric promotion ladder (Integer < Double < Decimal), a dedicated
// Interval result for temporal subtraction and temporal +/- Interval, a
// Varchar result for StringConcat, and Integer for every bitwise operator.
func inferBinaryType(op string, left, right sql.Type) (sql.Type, error) {
	if op == "StringConcat" {
		return sql.Varchar, nil
	}
	if isBitwiseOp(op) {
		if !numericOrMissing(left) || !numericOrMissing(right) {
			return sql.Missing, sql.ErrIncompatibleTypes.New(left.String(), right.String())
		}
		return sql.Integer, nil
	}
	if op == "Minus" && sql.IsTemporal(left) && sql.IsTemporal(right) {
		return sql.Interval, nil
	}
	if sql.IsTemporal(left) && right == sql.Interval {
		return left, nil
	}
	if left == sql.Interval && sql.IsTemporal(right) {
		return right, nil
	}
	if !compatibleNumeric(left, right) {
		return sql.Missing, sql.ErrIncompatibleTypes.New(left.String(), right.String())
	}
	return promoteNumeric(left, right), nil
}

func isBitwiseOp(op string) bool {
	switch op {
	case "BitwiseAnd", "BitwiseOr", "BitwiseXor", "PGBitwiseShiftLeft", "PGBitwiseShiftRight":
		return true
	}
	return false
}

func numericOrMissing(t sql.Type) bool {
	return t == sql.Missing || sql.IsNumeric(t)
}

func compatibleNumeric(a, b sql.Type) bool {
	if a == sql.Missing || b == sql.Missing {
		return true
	}
	return sql.IsNumeric(a) && sql.IsNumeric(b)
}

func promoteNumeric(a, b sql.Type) sql.Type {
	if a == sql.Missing {
		return b
	}
	if b == sql.Missing {
		return a
	}
	if a == sql.Decimal || b == sql.Decimal {
		return sql.Decimal
	}
	if a == sql.Double || b == sql.Double {
		return sql.Double
	}
	return sql.Integer
}

// --- shared helpers --------------------------------------------------------

// columnFor derives the RelationSchema column a bound expression
// contributes to a Project/Exit/Aggregate output schema: an Identifier
// reuses its resolved SchemaColumn verbatim (renamed if aliased); every
// other kind gets a fresh $derived column describing how it's computed.
func columnFor(n *expression.Node) sql.Column {
	if n.Kind == expression.Identifier && n.SchemaColumn != nil {
		c := *n.SchemaColumn
		if n.Alias != "" {
			c.Name = n.Alias
		}
		return c
	}

	name := n.Alias
	if name == "" {
		name = n.QueryColumn
	}
	if name == "" {
		name = n.String()
	}

	kind := sql.ColumnExpression
	switch n.Kind {
	case expression.Literal, expression.Evaluated:
		kind = sql.ColumnConstant
	case expression.Function, expression.Aggregator:
		kind = sql.ColumnFunction
	}

	col := sql.Column{Name: name, Type: n.Type(), Origin: []string{"$derived"}, Kind: kind, Expr: n}
	if kind == sql.ColumnConstant {
		col.ConstantValue = n.Value
	}
	if kind == sql.ColumnFunction {
		col.FunctionName = n.Qualifier
		col.FunctionArgs = toExpressionSlice(n.Parameters)
	}
	return col
}

func joinArgNames(args []*expression.Node) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func toExpressionSlice(args []*expression.Node) []sql.Expression {
	out := make([]sql.Expression, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func inferLiteralType(v interface{}) sql.Type {
	switch v.(type) {
	case bool:
		return sql.Boolean
	case int, int64:
		return sql.Integer
	case float64:
		return sql.Double
	case string:
		return sql.Varchar
	case nil:
		return sql.Null
	default:
		return sql.Missing
	}
}

func allColumnNames(schemas map[string]*sql.RelationSchema) []string {
	var names []string
	for _, s := range schemas {
		names = append(names, s.ColumnNames()...)
	}
	return names
}

func relationSetName(ctx *BindingContext) string {
	names := make([]string, 0, len(ctx.Relations))
	for r := range ctx.Relations {
		names = append(names, r)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func findColumnAcross(schemas map[string]*sql.RelationSchema, name string) *sql.Column {
	for _, s := range schemas {
		if c := s.FindColumn(name); c != nil {
			return c
		}
	}
	return nil
}

// removeColumn drops a column by name from every schema named in origins —
// used after a USING join relocates a shared column into the synthetic
// "$shared-<id>" schema, so the column no longer resolves ambiguously
// through its original per-side schema too.
func removeColumn(schemas map[string]*sql.RelationSchema, origins []string, name string) {
	for _, origin := range origins {
		s, ok := schemas[origin]
		if !ok {
			continue
		}
		kept := s.Columns[:0]
		for _, c := range s.Columns {
			if !strings.EqualFold(c.Name, name) {
				kept = append(kept, c)
			}
		}
		s.Columns = kept
	}
}

// sharedColumnNames computes the column names NATURAL JOIN implicitly
// joins on: every name present in both sides' schemas, sorted for a
// deterministic USING-column order.
func sharedColumnNames(leftCtx, rightCtx *BindingContext) []string {
	leftNames := map[string]bool{}
	for _, s := range leftCtx.Schemas {
		for _, c := range s.Columns {
			leftNames[strings.ToLower(c.Name)] = true
		}
	}
	seen := map[string]bool{}
	var shared []string
	for _, s := range rightCtx.Schemas {
		for _, c := range s.Columns {
			lower := strings.ToLower(c.Name)
			if leftNames[lower] && !seen[lower] {
				shared = append(shared, c.Name)
				seen[lower] = true
			}
		}
	}
	sort.Strings(shared)
	return shared
}
