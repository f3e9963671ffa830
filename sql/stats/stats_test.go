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
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/connector"
	"github.com/mabel-dev/opteryx-go/sql/expression"
)

func TestToIntPassesThroughIntegersAndBooleans(t *testing.T) {
	require := require.New(t)
	require.Equal(int64(5), ToInt(5))
	require.Equal(int64(-200), ToInt(-200))
	require.Equal(int64(1), ToInt(true))
	require.Equal(int64(0), ToInt(false))
}

func TestToIntSaturatesInfinityAndFlagsNaN(t *testing.T) {
	require := require.New(t)
	require.Equal(int64(math.MaxInt64), ToInt(math.Inf(1)))
	require.Equal(int64(math.MinInt64), ToInt(math.Inf(-1)))
	require.Equal(NullFlag, ToInt(math.NaN()))
}

func TestToIntNullAndUnconvertibleReturnNullFlag(t *testing.T) {
	require := require.New(t)
	require.Equal(NullFlag, ToInt(nil))
	require.Equal(NullFlag, ToInt(struct{}{}))
}

func TestToIntDecimalRoundsToNearestInteger(t *testing.T) {
	require := require.New(t)
	require.Equal(int64(100), ToInt(99.9))
	require.Equal(int64(100), ToInt(100.4))
}

func TestToIntStringTruncationOrdersLikeBytes(t *testing.T) {
	require := require.New(t)
	lower := ToInt("alpha")
	upper := ToInt("omega")
	below := ToInt("aardvark")
	above := ToInt("zzzzzzz")
	require.Less(below, lower)
	require.Greater(above, upper)
}

func TestToIntLongStringTruncatesToSevenBytes(t *testing.T) {
	require := require.New(t)
	// "abcdefg" is exactly 7 bytes; "abcdefgh" truncates to the same 7
	// bytes, so the two must encode identically.
	require.Equal(ToInt("abcdefg"), ToInt("abcdefgh"))
}

func TestLRUKEvictsEntryNeverSeenTwiceBeforeAnyOther(t *testing.T) {
	require := require.New(t)
	c := NewLRUK(2, 2)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Get("a") // "a" now has two accesses; "b" still has only one
	c.Set("c", []byte("3"))

	_, bOK := c.Get("b")
	_, aOK := c.Get("a")
	require.False(bOK, "b should have been evicted, never having been accessed twice")
	require.True(aOK)
}

func TestLRUKStatsCountHitsMissesAndEvictions(t *testing.T) {
	require := require.New(t)
	c := NewLRUK(2, 1)
	c.Set("a", []byte("1"))
	c.Get("a")
	c.Get("missing")
	c.Set("b", []byte("2")) // evicts "b", which has been accessed only once

	hits, misses, evictions, inserts := c.Stats()
	require.Equal(int64(1), hits)
	require.Equal(int64(1), misses)
	require.Equal(int64(1), evictions)
	require.Equal(int64(2), inserts)
}

func TestBlobStatisticsRoundTripsThroughEncodeDecode(t *testing.T) {
	require := require.New(t)
	bs := connector.BlobStatistics{
		RowCount: 42,
		Columns: map[string]sql.ColumnStatistics{
			"id":   {LowerBound: 1, UpperBound: 100, NullCount: 0, Cardinality: 100, HasBounds: true},
			"name": {LowerBound: ToInt("alpha"), UpperBound: ToInt("zulu"), NullCount: 3, Cardinality: 50, HasBounds: true},
		},
	}
	encoded := EncodeBlobStatistics(bs)
	decoded, err := DecodeBlobStatistics(encoded)
	require.NoError(err)
	require.Equal(bs.RowCount, decoded.RowCount)
	require.Equal(bs.Columns["id"], decoded.Columns["id"])
	require.Equal(bs.Columns["name"], decoded.Columns["name"])
}

func TestDecodeBlobStatisticsRejectsForeignHeader(t *testing.T) {
	require := require.New(t)
	_, err := DecodeBlobStatistics([]byte("not a stats blob at all"))
	require.Error(err)
}

func TestCacheSetGetDeleteRoundTrip(t *testing.T) {
	require := require.New(t)
	c := NewCache(10)
	bs := connector.BlobStatistics{RowCount: 7, Columns: map[string]sql.ColumnStatistics{
		"x": {LowerBound: 0, UpperBound: 10, HasBounds: true},
	}}
	c.Set("blob.parquet", bs)

	got, ok := c.Get("blob.parquet")
	require.True(ok)
	require.Equal(bs.RowCount, got.RowCount)

	c.Delete("blob.parquet")
	_, ok = c.Get("blob.parquet")
	require.False(ok)
}

func TestStorePersistsAndWarmsCacheAcrossReopen(t *testing.T) {
	require := require.New(t)
	path := t.TempDir() + "/stats.db"

	store, err := OpenStore(path)
	require.NoError(err)
	bs := connector.BlobStatistics{RowCount: 3, Columns: map[string]sql.ColumnStatistics{
		"a": {LowerBound: 1, UpperBound: 9, HasBounds: true},
	}}
	require.NoError(store.Save("blob1.parquet", bs))
	require.NoError(store.Close())

	reopened, err := OpenStore(path)
	require.NoError(err)
	defer reopened.Close()

	loaded, found, err := reopened.Load("blob1.parquet")
	require.NoError(err)
	require.True(found)
	require.Equal(bs.RowCount, loaded.RowCount)

	cache := NewCache(10)
	require.NoError(reopened.WarmCache(cache))
	got, ok := cache.Get("blob1.parquet")
	require.True(ok)
	require.Equal(bs.RowCount, got.RowCount)

	require.NoError(os.Remove(path))
}

func intCondition(op, column string, literal interface{}) *expression.Node {
	col := expression.NewIdentifier(column)
	col.SetType(sql.Integer)
	lit := expression.NewLiteral(literal, sql.Integer)
	return expression.NewComparisonOp(op, col, lit)
}

func anyOpEqCondition(literal interface{}, column string) *expression.Node {
	col := expression.NewIdentifier(column)
	col.SetType(sql.Integer)
	lit := expression.NewLiteral(literal, sql.Integer)
	return expression.NewComparisonOp("AnyOpEq", lit, col)
}

func TestPruneBlobsEqOutsideBoundsIsPruned(t *testing.T) {
	require := require.New(t)
	cache := NewCache(10)
	cache.Set("blob1", connector.BlobStatistics{Columns: map[string]sql.ColumnStatistics{
		"n": {LowerBound: 10, UpperBound: 20, HasBounds: true},
	}})
	qs := &sql.QueryStatistics{}

	cond := intCondition("Eq", "n", int64(5))
	kept := PruneBlobs(cache, []string{"blob1"}, cond, qs)
	require.Empty(kept)
	require.Equal(int64(1), qs.BlobsPruned)
}

func TestPruneBlobsEqInsideBoundsIsKept(t *testing.T) {
	require := require.New(t)
	cache := NewCache(10)
	cache.Set("blob1", connector.BlobStatistics{Columns: map[string]sql.ColumnStatistics{
		"n": {LowerBound: 10, UpperBound: 20, HasBounds: true},
	}})
	qs := &sql.QueryStatistics{}

	cond := intCondition("Eq", "n", int64(15))
	kept := PruneBlobs(cache, []string{"blob1"}, cond, qs)
	require.Equal([]string{"blob1"}, kept)
	require.Equal(int64(0), qs.BlobsPruned)
}

func TestPruneBlobsAnyOpEqUsesElementBounds(t *testing.T) {
	require := require.New(t)
	cache := NewCache(10)
	cache.Set("blob1", connector.BlobStatistics{Columns: map[string]sql.ColumnStatistics{
		"arr": {LowerBound: 10, UpperBound: 20, HasBounds: true},
	}})
	qs := &sql.QueryStatistics{}

	cond := anyOpEqCondition(int64(25), "arr")
	kept := PruneBlobs(cache, []string{"blob1"}, cond, qs)
	require.Empty(kept)
	require.Equal(int64(1), qs.BlobsPruned)
}

func TestPruneBlobsAnyOpGtIsNeverPruned(t *testing.T) {
	require := require.New(t)
	cache := NewCache(10)
	cache.Set("blob1", connector.BlobStatistics{Columns: map[string]sql.ColumnStatistics{
		"arr": {LowerBound: 10, UpperBound: 20, HasBounds: true},
	}})
	qs := &sql.QueryStatistics{}

	col := expression.NewIdentifier("arr")
	col.SetType(sql.Integer)
	lit := expression.NewLiteral(int64(25), sql.Integer)
	cond := expression.NewComparisonOp("AnyOpGt", lit, col)

	kept := PruneBlobs(cache, []string{"blob1"}, cond, qs)
	require.Equal([]string{"blob1"}, kept)
	require.Equal(int64(0), qs.BlobsPruned)
}

func TestPruneBlobsNullLiteralNeverPrunes(t *testing.T) {
	require := require.New(t)
	cache := NewCache(10)
	cache.Set("blob1", connector.BlobStatistics{Columns: map[string]sql.ColumnStatistics{
		"n": {LowerBound: 10, UpperBound: 20, HasBounds: true},
	}})
	qs := &sql.QueryStatistics{}

	cond := anyOpEqCondition(nil, "n")
	kept := PruneBlobs(cache, []string{"blob1"}, cond, qs)
	require.Equal([]string{"blob1"}, kept)
	require.Equal(int64(0), qs.BlobsPruned)
}

func TestPruneBlobsExcludesTemporalColumns(t *testing.T) {
	require := require.New(t)
	cache := NewCache(10)
	cache.Set("blob1", connector.BlobStatistics{Columns: map[string]sql.ColumnStatistics{
		"ts": {LowerBound: 1609459200000, UpperBound: 1612137600000, HasBounds: true},
	}})
	qs := &sql.QueryStatistics{}

	col := expression.NewIdentifier("ts")
	col.SetType(sql.Timestamp)
	lit := expression.NewLiteral(int64(1609372800000), sql.Timestamp)
	cond := expression.NewComparisonOp("Eq", col, lit)

	kept := PruneBlobs(cache, []string{"blob1"}, cond, qs)
	require.Equal([]string{"blob1"}, kept)
	require.Equal(int64(0), qs.BlobsPruned)
}

func TestPruneBlobsWithNoCachedStatisticsIsAlwaysKept(t *testing.T) {
	require := require.New(t)
	cache := NewCache(10)
	qs := &sql.QueryStatistics{}

	cond := intCondition("Eq", "n", int64(5))
	kept := PruneBlobs(cache, []string{"unknown-blob"}, cond, qs)
	require.Equal([]string{"unknown-blob"}, kept)
	require.Equal(int64(0), qs.BlobsPruned)
}

func TestPruneBlobsLongStringTruncationDoesNotFalselyPrune(t *testing.T) {
	require := require.New(t)
	cache := NewCache(10)
	cache.Set("blob1", connector.BlobStatistics{Columns: map[string]sql.ColumnStatistics{
		"s": {LowerBound: ToInt("abcdefg"), UpperBound: ToInt("abcdefg"), HasBounds: true},
	}})
	qs := &sql.QueryStatistics{}

	col := expression.NewIdentifier("s")
	col.SetType(sql.Varchar)
	lit := expression.NewLiteral("abcdefgh", sql.Varchar)
	cond := expression.NewComparisonOp("Eq", col, lit)

	kept := PruneBlobs(cache, []string{"blob1"}, cond, qs)
	require.Equal([]string{"blob1"}, kept)
	require.Equal(int64(0), qs.BlobsPruned)
}

func TestConjunctiveTermsFlattensAndChainButNotOr(t *testing.T) {
	require := require.New(t)
	a := intCondition("Eq", "x", int64(1))
	b := intCondition("Eq", "y", int64(2))
	and := expression.NewLogical(expression.And, a, b)
	require.Len(ConjunctiveTerms(and), 2)

	or := expression.NewLogical(expression.Or, a, b)
	require.Len(ConjunctiveTerms(or), 1)
}
