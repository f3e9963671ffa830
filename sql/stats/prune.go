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

package stats

import (
	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/connector"
	"github.com/mabel-dev/opteryx-go/sql/expression"
)

// pruneHandlers is the operator → "is this predicate provably false for
// every row in the blob" table (spec.md §4.8), ported directly from
// original_source/opteryx/connectors/capabilities/statistics.py's
// `handlers` dict of lambdas.
var pruneHandlers = map[string]func(literal, lower, upper int64) bool{
	"Eq":    func(v, lo, hi int64) bool { return v < lo || v > hi },
	"NotEq": func(v, lo, hi int64) bool { return lo == hi && hi == v },
	"Gt":    func(v, lo, hi int64) bool { return hi < v },
	"GtEq":  func(v, lo, hi int64) bool { return hi <= v },
	"Lt":    func(v, lo, hi int64) bool { return lo > v },
	"LtEq":  func(v, lo, hi int64) bool { return lo >= v },
}

// ConjunctiveTerms flattens a bound WHERE-condition tree into its top-level
// AND'd conjuncts — the "for each conjunctive predicate" spec.md §4.8
// iterates over. Only And decomposes; an Or, a bare comparison, or
// anything else is returned as a single opaque term, since pruning one
// conjunct can never be justified by the disjuncts of an unrelated Or.
func ConjunctiveTerms(n *expression.Node) []*expression.Node {
	if n == nil {
		return nil
	}
	if n.Kind == expression.And {
		return append(ConjunctiveTerms(n.Left), ConjunctiveTerms(n.Right)...)
	}
	return []*expression.Node{n}
}

// PruneBlobs discards, from blobs, every blob whose cached column
// statistics prove predicate can match none of its rows (spec.md §4.8). A
// blob with no cached statistics is always kept — absent stats means no
// decision can be made, never an implicit prune. Every pruned blob
// increments queryStats.BlobsPruned.
func PruneBlobs(cache *Cache, blobs []string, predicate *expression.Node, queryStats *sql.QueryStatistics) []string {
	terms := ConjunctiveTerms(predicate)
	kept := make([]string, 0, len(blobs))
	for _, blob := range blobs {
		bs, ok := cache.Get(blob)
		if ok && provablyEmpty(bs, terms) {
			queryStats.BlobsPruned++
			continue
		}
		kept = append(kept, blob)
	}
	return kept
}

func provablyEmpty(bs connector.BlobStatistics, terms []*expression.Node) bool {
	for _, term := range terms {
		if termPrunes(bs, term) {
			return true
		}
	}
	return false
}

// termPrunes evaluates one conjunct against a blob's cached bounds. It
// recognizes two shapes: `identifier OP literal` directly, and the
// `literal AnyOpEq identifier` shape ANY(column) = literal compiles to,
// which is handled with the same Eq rule applied to the column's
// element-level min/max (spec.md §4.8: "AnyOpEq ... uses the same rule as
// Eq against element min/max").
func termPrunes(bs connector.BlobStatistics, term *expression.Node) bool {
	if term.Kind != expression.ComparisonOp {
		return false
	}
	op, _ := term.Value.(string)

	var colNode, litNode *expression.Node
	handlerOp := op
	switch {
	case term.Left != nil && term.Left.Kind == expression.Identifier &&
		term.Right != nil && term.Right.Kind == expression.Literal:
		colNode, litNode = term.Left, term.Right
	case op == "AnyOpEq" && term.Left != nil && term.Left.Kind == expression.Literal &&
		term.Right != nil && term.Right.Kind == expression.Identifier:
		colNode, litNode = term.Right, term.Left
		handlerOp = "Eq"
	default:
		// Every other AnyOp* comparison (AnyOpGt, AnyOpNotEq, ...) has no
		// element-level bound to check against and is deliberately left
		// unpruned, matching the original's restriction to AnyOpEq only.
		return false
	}

	handler, ok := pruneHandlers[handlerOp]
	if !ok {
		return false
	}

	if sql.IsTemporal(colNode.Type()) || sql.IsTemporal(litNode.Type()) {
		return false
	}

	if litNode.Value == nil {
		return false
	}
	literal := ToInt(litNode.Value)
	if literal == NullFlag {
		return false
	}

	columnName := colNode.Value
	if colNode.SchemaColumn != nil {
		columnName = colNode.SchemaColumn.Name
	}
	name, ok := columnName.(string)
	if !ok {
		return false
	}

	colStats, ok := bs.Columns[name]
	if !ok || !colStats.HasBounds {
		return false
	}
	return handler(literal, colStats.LowerBound, colStats.UpperBound)
}
