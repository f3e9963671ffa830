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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mabel-dev/opteryx-go/sql"
)

func TestBindTemporalRangesAttachesToFirstRelationNode(t *testing.T) {
	require := require.New(t)

	table := &RawNode{Kind: "Table", Value: "$planets"}
	root := &RawNode{Kind: "Query", Children: []*RawNode{table}}

	day := time.Date(2022, 3, 4, 0, 0, 0, 0, time.UTC)
	err := BindTemporalRanges(root, []TemporalFilter{{Relation: "$planets", StartDate: day, EndDate: day}})
	require.NoError(err)
	require.NotNil(table.StartDate)
	require.Equal("2022-03-04", *table.StartDate)
	require.Equal("2022-03-04", *table.EndDate)
}

func TestBindTemporalRangesConsumesInDocumentOrder(t *testing.T) {
	require := require.New(t)

	t1 := &RawNode{Kind: "Table", Value: "a"}
	t2 := &RawNode{Kind: "Table", Value: "b"}
	root := &RawNode{Kind: "Join", Children: []*RawNode{t1, t2}}

	d1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2022, 2, 2, 0, 0, 0, 0, time.UTC)
	err := BindTemporalRanges(root, []TemporalFilter{
		{Relation: "a", StartDate: d1, EndDate: d1},
		{Relation: "b", StartDate: d2, EndDate: d2},
	})
	require.NoError(err)
	require.Equal("2022-01-01", *t1.StartDate)
	require.Equal("2022-02-02", *t2.StartDate)
}

func TestBindParametersPositional(t *testing.T) {
	require := require.New(t)

	ph := &RawNode{Kind: "Placeholder", Value: 1}
	cmp := &RawNode{Kind: "ComparisonOp", Value: "Eq", Children: []*RawNode{
		{Kind: "Identifier", Value: "id"}, ph,
	}}

	err := BindParameters(cmp, Params{Positional: []interface{}{42}})
	require.NoError(err)
	require.Equal("Literal", cmp.Children[1].Kind)
	require.Equal(42, cmp.Children[1].Value)
	require.Equal(sql.Integer, cmp.Children[1].ResolvedType)
}

func TestBindParametersNamed(t *testing.T) {
	require := require.New(t)

	ph := &RawNode{Kind: "Placeholder", Value: "name"}
	cmp := &RawNode{Kind: "ComparisonOp", Value: "Eq", Children: []*RawNode{
		{Kind: "Identifier", Value: "name"}, ph,
	}}

	err := BindParameters(cmp, Params{Named: map[string]interface{}{"name": "Earth"}})
	require.NoError(err)
	require.Equal("Earth", cmp.Children[1].Value)
	require.Equal(sql.Varchar, cmp.Children[1].ResolvedType)
}

func TestBindParametersFailsOnCountMismatch(t *testing.T) {
	require := require.New(t)

	ph1 := &RawNode{Kind: "Placeholder", Value: 1}
	ph2 := &RawNode{Kind: "Placeholder", Value: 2}
	root := &RawNode{Kind: "And", Children: []*RawNode{ph1, ph2}}

	err := BindParameters(root, Params{Positional: []interface{}{1}})
	require.Error(err)
}

func TestBindParametersFailsOnMissingNamedKey(t *testing.T) {
	require := require.New(t)

	ph := &RawNode{Kind: "Placeholder", Value: "missing"}
	root := &RawNode{Kind: "And", Children: []*RawNode{ph}}

	err := BindParameters(root, Params{Named: map[string]interface{}{"other": 1}})
	require.Error(err)
}

func TestFixJSONAccessorPrecedenceReshapesComparison(t *testing.T) {
	require := require.New(t)

	// document -> ('element' = 'value')
	document := &RawNode{Kind: "Identifier", Value: "document"}
	element := &RawNode{Kind: "Literal", Value: "element"}
	value := &RawNode{Kind: "Literal", Value: "value"}
	comparison := &RawNode{Kind: "ComparisonOp", Value: "Eq", Children: []*RawNode{element, value}}
	accessor := &RawNode{Kind: "JSONAccessor", Value: "->", Children: []*RawNode{document, comparison}}

	FixJSONAccessorPrecedence(accessor)

	require.Equal("ComparisonOp", accessor.Kind)
	require.Equal("Eq", accessor.Value)
	require.Len(accessor.Children, 2)
	require.Equal("JSONAccessor", accessor.Children[0].Kind)
	require.Equal(document, accessor.Children[0].Children[0])
	require.Equal(element, accessor.Children[0].Children[1])
	require.Equal(value, accessor.Children[1])
}

func TestFixJSONAccessorPrecedenceLeavesOrdinaryTreesAlone(t *testing.T) {
	require := require.New(t)

	tree := &RawNode{Kind: "ComparisonOp", Value: "Eq", Children: []*RawNode{
		{Kind: "Identifier", Value: "a"}, {Kind: "Literal", Value: 1},
	}}
	FixJSONAccessorPrecedence(tree)
	require.Equal("ComparisonOp", tree.Kind)
	require.Equal("a", tree.Children[0].Value)
}
