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

// Package stats implements the statistics cache and blob-pruning machinery
// a connector's Statistics capability (sql/connector.Statistics) relies on:
// the 64-bit key encoding (spec.md §4.9), an LRU-K(2) cache of per-blob
// column bounds (§5), the prune-rule table (§4.8), and the on-disk binary
// layout for persisting cached entries across restarts (§6.5). Grounded on
// original_source/opteryx/connectors/capabilities/statistics.py and
// opteryx/shared/stats_cache.py.
package stats

import (
	"math"
	"time"

	"github.com/spf13/cast"
)

// NullFlag is the sentinel to_int returns for a Null value, a NaN double,
// or anything that can't be coerced into the encoded key space (spec.md
// §4.9). It is the minimum representable int64 so it never accidentally
// sits inside a real [lower, upper] bound.
const NullFlag int64 = math.MinInt64

// ToInt is to_int (spec.md §4.9): it maps a domain value into a monotonic
// 64-bit integer space so arithmetic comparison matches semantic ordering,
// regardless of whether the underlying column is numeric, textual, or
// temporal. Both a predicate's literal and a cached column bound are run
// through this same function before the prune rules ever compare them —
// that shared encoding is what makes the 7-byte string truncation rule
// (see truncateToInt) safe: if the two sides disagree only in bytes past
// the truncation point, both sides lose that disagreement identically, so
// the comparison can still only produce a false positive, never a false
// prune.
func ToInt(value interface{}) int64 {
	switch v := value.(type) {
	case nil:
		return NullFlag
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return truncateToInt([]byte(v))
	case []byte:
		return truncateToInt(v)
	case time.Time:
		return v.UnixMilli()
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	default:
		// Integers, decimals, and any other numeric-ish wrapper (the
		// teacher's own sql/variables.go reaches for spf13/cast the same
		// way for a narrower string coercion) all go through the same
		// float64 round-trip, since spec.md §4.9 specifies "integer
		// rounding after scaling" for Decimal and plain pass-through for
		// Integer — both collapse to "round a float64 to the nearest
		// int64" once cast has normalized the input.
		if f, err := cast.ToFloat64E(value); err == nil {
			return floatToInt(f)
		}
		return NullFlag
	}
}

func floatToInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return NullFlag
	case math.IsInf(f, 1), f > math.MaxInt64:
		return math.MaxInt64
	case math.IsInf(f, -1), f < math.MinInt64:
		return math.MinInt64
	default:
		return int64(math.RoundToEven(f))
	}
}

// truncateToInt implements the string/bytes rule: truncate to 7 bytes
// (right-pad with zero bytes when shorter) and big-endian-interpret the
// result as a 64-bit integer. Right-padding, not left-padding, is what
// actually delivers the "correct lexicographic prefix comparator" property
// spec.md §4.9 claims for this encoding — left-padding would shift every
// value by the same amount regardless of its own length and destroy
// ordering between strings of different lengths sharing a prefix.
func truncateToInt(b []byte) int64 {
	var window [7]byte
	copy(window[:], b)
	var out int64
	for _, c := range window {
		out = out<<8 | int64(c)
	}
	return out
}
