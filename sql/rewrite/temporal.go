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
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mabel-dev/opteryx-go/sql"
)

// TemporalFilter is one (relation, start, end) triple extracted from a `FOR`
// extension, consumed by the planner in document order (spec.md §3.4) and
// attached to the matching Scan node by the AST Rewriter's first pass
// (§4.3).
type TemporalFilter struct {
	Relation  string
	StartDate time.Time
	EndDate   time.Time
}

// temporal collection state machine (spec.md §4.2): four states over
// whitespace-delimited tokens.
type tfState int

const (
	tfWaiting tfState = iota
	tfRelation
	tfTemporal
	tfAlias
)

var relationKeywords = map[string]bool{
	"FROM": true, "INNER JOIN": true, "CROSS JOIN": true, "LEFT JOIN": true,
	"LEFT OUTER JOIN": true, "RIGHT JOIN": true, "RIGHT OUTER JOIN": true,
	"FULL JOIN": true, "FULL OUTER JOIN": true, "JOIN": true,
	"CREATE TABLE": true, "ANALYZE TABLE": true,
}

var stopKeywords = map[string]bool{
	"GROUP BY": true, "HAVING": true, "LIKE": true, "LIMIT": true,
	"OFFSET": true, "ON": true, "ORDER BY": true, "SHOW": true,
	"SELECT": true, "WHERE": true, "WITH": true, "USING": true, ";": true,
	"(": true, ")": true,
}

const aliasKeyword = "AS"
const temporalKeyword = "FOR"

// tokenPattern splits a statement into the same vocabulary the state
// machine switches on, treating quoted strings as opaque tokens.
var tokenPattern = regexp.MustCompile(
	`(?i)("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|` + "`(?:[^`\\\\]|\\\\.)*`" + `)` +
		`|(\(|\)|,|;)` +
		`|(\bFROM\b|\bINNER\s+JOIN\b|\bCROSS\s+JOIN\b|\bLEFT\s+OUTER\s+JOIN\b|\bLEFT\s+JOIN\b` +
		`|\bRIGHT\s+OUTER\s+JOIN\b|\bRIGHT\s+JOIN\b|\bFULL\s+OUTER\s+JOIN\b|\bFULL\s+JOIN\b|\bJOIN\b` +
		`|\bCREATE\s+TABLE\b|\bANALYZE\s+TABLE\b|\bFOR\b|\bAS\b` +
		`|\bGROUP\s+BY\b|\bHAVING\b|\bLIKE\b|\bLIMIT\b|\bOFFSET\b|\bON\b|\bORDER\s+BY\b` +
		`|\bSHOW\b|\bSELECT\b|\bWHERE\b|\bWITH\b|\bUSING\b)`,
)

func sqlParts(s string) []string {
	var parts []string
	pos := 0
	for _, m := range tokenPattern.FindAllStringIndex(s, -1) {
		if before := strings.TrimSpace(s[pos:m[0]]); before != "" {
			parts = append(parts, splitWords(before)...)
		}
		parts = append(parts, strings.TrimSpace(s[m[0]:m[1]]))
		pos = m[1]
	}
	if rest := strings.TrimSpace(s[pos:]); rest != "" {
		parts = append(parts, splitWords(rest)...)
	}
	return parts
}

func splitWords(s string) []string {
	return strings.Fields(s)
}

func classify(part string) (keyword string, isKeyword bool) {
	upper := strings.ToUpper(strings.Join(strings.Fields(part), " "))
	if upper == temporalKeyword {
		return upper, true
	}
	if upper == aliasKeyword {
		return upper, true
	}
	if relationKeywords[upper] {
		return upper, true
	}
	if stopKeywords[upper] {
		return upper, true
	}
	if part == "(" || part == ")" {
		return part, true
	}
	return "", false
}

type rawTemporal struct {
	relation string
	text     string
}

// runStateMachine extracts (relation, raw temporal text) pairs and the
// rebuilt SQL with temporal tokens removed (spec.md §4.2 algorithm).
func runStateMachine(parts []string) ([]rawTemporal, string, error) {
	state := tfWaiting
	relation := ""
	temporal := ""
	var collected []rawTemporal
	var out []string

	emit := func() {
		if relation != "" {
			collected = append(collected, rawTemporal{relation: relation, text: strings.TrimSpace(temporal)})
			relation = ""
			temporal = ""
		}
	}

	for _, part := range parts {
		prev := state
		kw, isKeyword := classify(part)

		switch {
		case kw == "(" || kw == ")":
			state = tfWaiting
		case isKeyword && stopKeywords[kw]:
			state = tfWaiting
		case isKeyword && relationKeywords[kw]:
			state = tfRelation
		case isKeyword && kw == temporalKeyword:
			state = tfTemporal
		case isKeyword && kw == aliasKeyword:
			state = tfAlias
		}

		sameRelationState := prev == tfRelation && state == tfRelation

		switch {
		case prev == tfTemporal && state == tfTemporal:
			temporal = strings.TrimSpace(temporal + " " + part)
		case ((prev == tfWaiting && state == tfWaiting) ||
			(prev == tfTemporal && state == tfRelation) ||
			(sameRelationState && relation != "") ||
			(prev == tfRelation && state == tfWaiting) ||
			(prev == tfAlias && state == tfRelation) ||
			(prev == tfAlias && state == tfWaiting)):
			emit()
		case sameRelationState:
			relation = part
		case prev == tfWaiting && state == tfTemporal:
			return nil, "", sql.ErrSQL.New("temporal `FOR` statements must directly follow the dataset they apply to")
		}

		if state != tfTemporal {
			out = append(out, part)
		}
	}
	emit()

	return collected, strings.Join(out, " "), nil
}

// namedRange resolves the named DATES IN ranges spec.md §4.2 and SPEC_FULL.md
// §C (original_source/opteryx/managers/planner/temporal.py) both define.
// THIS_CYCLE/PREVIOUS_CYCLE run the 22nd-to-21st billing cycle the spec
// calls out explicitly.
func namedRange(name string, today time.Time) (time.Time, time.Time, error) {
	switch strings.ToUpper(name) {
	case "THIS_MONTH":
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, today, nil
	case "LAST_MONTH", "PREVIOUS_MONTH":
		firstOfThis := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := firstOfThis.AddDate(0, 0, -1)
		start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, end, nil
	case "THIS_YEAR":
		start := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start, today, nil
	case "LAST_YEAR":
		start := time.Date(today.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(today.Year()-1, 12, 31, 0, 0, 0, 0, time.UTC)
		return start, end, nil
	case "THIS_CYCLE":
		return billingCycle(today, 0)
	case "PREVIOUS_CYCLE":
		return billingCycle(today, -1)
	default:
		return time.Time{}, time.Time{}, sql.ErrInvalidTemporalRangeFilter.New(fmt.Sprintf("unknown temporal range `%s`", name))
	}
}

// billingCycle computes the [start,end] of the cycle-offset-th 22nd-to-21st
// billing period containing today (offset 0 = current, -1 = previous).
func billingCycle(today time.Time, offset int) (time.Time, time.Time, error) {
	// Anchor on the 1st so that month arithmetic never overflows into the
	// following month (e.g. March 31 minus one month).
	anchor := time.Date(today.Year(), today.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	var start time.Time
	if today.Day() >= 22 {
		start = time.Date(anchor.Year(), anchor.Month(), 22, 0, 0, 0, 0, time.UTC)
	} else {
		start = time.Date(anchor.Year(), anchor.Month(), 22, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	}
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return start, end, nil
}

func parseDate(raw string, today time.Time) (time.Time, bool) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ";")
	raw = strings.Trim(raw, "'\"`")
	switch strings.ToUpper(raw) {
	case "TODAY":
		return today, true
	case "YESTERDAY":
		return today.AddDate(0, 0, -1), true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractTemporalFilters runs the SQL Rewriter's temporal pass end to end:
// tokenize, run the state machine, then interpret each collected relation's
// raw `FOR` text as either a single date, a DATES BETWEEN range, or a named
// DATES IN range (spec.md §4.2).
func ExtractTemporalFilters(sqlText string) (string, []TemporalFilter, error) {
	parts := sqlParts(sqlText)
	raw, rebuilt, err := runStateMachine(parts)
	if err != nil {
		return "", nil, err
	}

	today := time.Now().UTC()
	var out []TemporalFilter
	for _, r := range raw {
		start, end := today, today
		text := strings.ToUpper(strings.TrimSpace(r.text))

		switch {
		case text == "":
			// relation had no FOR extension; no filter to record
			continue
		case strings.HasPrefix(text, "DATES BETWEEN"):
			fields := strings.Fields(text)
			if len(fields) != 5 || fields[3] != "AND" {
				return "", nil, sql.ErrInvalidTemporalRangeFilter.New(
					"expected format `FOR DATES BETWEEN <start> AND <end>`")
			}
			s, ok := parseDate(fields[2], today)
			if !ok {
				return "", nil, sql.ErrInvalidTemporalRangeFilter.New(
					fmt.Sprintf("expected a date for start of range, found `%s`", fields[2]))
			}
			e, ok := parseDate(fields[4], today)
			if !ok {
				return "", nil, sql.ErrInvalidTemporalRangeFilter.New(
					fmt.Sprintf("expected a date for end of range, found `%s`", fields[4]))
			}
			if s.After(e) {
				return "", nil, sql.ErrInvalidTemporalRangeFilter.New(
					"start of range is after end of range")
			}
			start, end = s, e
		case strings.HasPrefix(text, "DATES IN"):
			fields := strings.Fields(text)
			if len(fields) != 3 {
				return "", nil, sql.ErrInvalidTemporalRangeFilter.New(
					"expected format `FOR DATES IN <range>`")
			}
			s, e, rerr := namedRange(fields[2], today)
			if rerr != nil {
				return "", nil, rerr
			}
			start, end = s, e
		default:
			d, ok := parseDate(text, today)
			if !ok {
				return "", nil, sql.ErrInvalidTemporalRangeFilter.New(
					fmt.Sprintf("unable to interpret temporal filter `%s`", r.text))
			}
			start, end = d, d
		}

		out = append(out, TemporalFilter{Relation: r.relation, StartDate: start, EndDate: end})
	}

	return rebuilt, out, nil
}
