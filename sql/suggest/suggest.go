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

// Package suggest finds near-matches for an unresolved identifier or function
// name, used by ColumnNotFoundError and FunctionNotFoundError to carry a
// "maybe you mean ...?" hint (spec.md §7). Grounded on the teacher's
// internal/similartext and internal/text_distance packages: a
// Levenshtein-distance fuzzy match across a name list or registry.
package suggest

import "sort"

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func threshold(name string) int {
	t := len(name) / 2
	if t < 1 {
		t = 1
	}
	return t
}

// closest returns every name within the fuzzy-match threshold of name, tied
// at the minimum observed distance, in sorted order.
func closest(names []string, name string) []string {
	if len(names) == 0 || name == "" {
		return nil
	}

	best := -1
	var matches []string
	for _, candidate := range names {
		d := Levenshtein(candidate, name)
		if best == -1 || d < best {
			best = d
			matches = []string{candidate}
		} else if d == best {
			matches = append(matches, candidate)
		}
	}
	if best > threshold(name) {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func joinSuggestions(matches []string) string {
	if len(matches) == 0 {
		return ""
	}
	msg := ", maybe you mean "
	for i, m := range matches {
		if i > 0 {
			if i == len(matches)-1 {
				msg += " or "
			} else {
				msg += ", "
			}
		}
		msg += m
	}
	return msg + "?"
}

// Find returns a "maybe you mean X?" suggestion message, or "" if nothing is
// close enough to suggest.
func Find(names []string, name string) string {
	return joinSuggestions(closest(names, name))
}

// FindFromMap is Find over the keys of a registry-shaped map.
func FindFromMap(names map[string]int, name string) string {
	return Find(mapKeys(names), name)
}

// FindSimilarName returns the single closest name to name, or names[0] if
// name is empty (nothing to compare against) and names is non-empty.
func FindSimilarName(names []string, name string) string {
	if len(names) == 0 {
		return ""
	}
	if name == "" {
		return names[0]
	}
	best := names[0]
	bestDist := Levenshtein(names[0], name)
	for _, candidate := range names[1:] {
		if d := Levenshtein(candidate, name); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// FindSimilarNameFromMap is FindSimilarName over the keys of a registry-shaped map.
func FindSimilarNameFromMap(names map[string]int, name string) string {
	return FindSimilarName(mapKeys(names), name)
}

func mapKeys(m map[string]int) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
