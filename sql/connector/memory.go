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

package connector

import (
	"strings"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/expression"
)

// MemoryConnector serves a fixed, in-process dataset — the Go analogue of
// original_source/opteryx/virtual_datasets' built-in $planets/$satellites
// tables ("This is a sample dataset build into the engine ... We can write
// test scripts using this data, knowing that it will always be
// available."). It implements the required Connector methods plus
// Diachronic (a FOR clause is accepted but has no effect — see
// SetTemporalRange); none of the other optional capabilities apply to a
// dataset that's already fully resident in memory.
type MemoryConnector struct {
	schema *sql.RelationSchema
	rows   []sql.Row

	startDate *string
	endDate   *string
}

// NewMemoryConnector builds a connector over a fixed schema and row set.
func NewMemoryConnector(schema *sql.RelationSchema, rows []sql.Row) *MemoryConnector {
	return &MemoryConnector{schema: schema, rows: rows}
}

// SetTemporalRange implements connector.Diachronic. A dataset that is
// "always available" (original_source's virtual_datasets docstring) has no
// versions to select between, so a FOR clause is accepted but has no effect
// on the rows returned — it's recorded only so callers can see it was
// threaded through.
func (c *MemoryConnector) SetTemporalRange(start, end *string) {
	c.startDate = start
	c.endDate = end
}

func (c *MemoryConnector) GetDatasetSchema(ctx *sql.Context) (*sql.RelationSchema, error) {
	return c.schema.Clone(), nil
}

func (c *MemoryConnector) ReadDataset(ctx *sql.Context, columns []string, predicates []*expression.Node, limit *int64) (RowIterator, error) {
	return &memoryIterator{rows: c.rows}, nil
}

type memoryIterator struct {
	rows []sql.Row
	done bool
}

func (it *memoryIterator) Next() (*Batch, bool) {
	if it.done || len(it.rows) == 0 {
		return nil, false
	}
	it.done = true
	return &Batch{Rows: it.rows}, true
}

func (it *memoryIterator) Err() error { return nil }

// Planets returns the $planets connector, grounded on
// original_source/opteryx/virtual_datasets/planet_data.py's column set
// (narrowed to the columns the seed test scenarios in spec.md §8 exercise).
func Planets() *MemoryConnector {
	schema := sql.NewRelationSchema("$planets")
	for _, c := range []sql.Column{
		{Name: "id", Type: sql.Integer, Origin: []string{"$planets"}},
		{Name: "name", Type: sql.Varchar, Origin: []string{"$planets"}},
		{Name: "mass", Type: sql.Double, Origin: []string{"$planets"}},
		{Name: "diameter", Type: sql.Integer, Origin: []string{"$planets"}},
		{Name: "density", Type: sql.Double, Origin: []string{"$planets"}},
		{Name: "numberOfMoons", Type: sql.Integer, Origin: []string{"$planets"}},
	} {
		schema.AddColumn(c)
	}

	names := []string{"Mercury", "Venus", "Earth", "Mars", "Jupiter", "Saturn", "Uranus", "Neptune", "Pluto"}
	mass := []float64{0.33, 4.87, 5.97, 0.642, 1898, 568, 86.8, 102, 0.0146}
	diameter := []int64{4879, 12104, 12756, 6792, 142984, 120536, 51118, 49528, 2370}
	density := []float64{5427, 5243, 5514, 3933, 1326, 687, 1271, 1638, 2095}
	moons := []int64{0, 0, 1, 2, 79, 82, 27, 14, 5}

	rows := make([]sql.Row, len(names))
	for i, name := range names {
		rows[i] = sql.NewRow(int64(i+1), name, mass[i], diameter[i], density[i], moons[i])
	}
	return NewMemoryConnector(schema, rows)
}

// Satellites returns the $satellites connector, the companion dataset
// original_source keeps "to help test joins" — here against $planets.id
// via planet_id.
func Satellites() *MemoryConnector {
	schema := sql.NewRelationSchema("$satellites")
	for _, c := range []sql.Column{
		{Name: "id", Type: sql.Integer, Origin: []string{"$satellites"}},
		{Name: "planet_id", Type: sql.Integer, Origin: []string{"$satellites"}},
		{Name: "name", Type: sql.Varchar, Origin: []string{"$satellites"}},
	} {
		schema.AddColumn(c)
	}

	type moon struct {
		planetID int64
		name     string
	}
	moons := []moon{
		{3, "Moon"},
		{4, "Phobos"},
		{4, "Deimos"},
		{5, "Io"},
		{5, "Europa"},
		{5, "Ganymede"},
		{5, "Callisto"},
	}
	rows := make([]sql.Row, len(moons))
	for i, m := range moons {
		rows[i] = sql.NewRow(int64(i+1), m.planetID, m.name)
	}
	return NewMemoryConnector(schema, rows)
}

// NoTable returns the $no_table connector: a single row with no columns,
// the synthetic relation an empty FROM clause scans against (spec.md §4.5
// step 2, "Empty FROM → a Scan on the synthetic $no_table dataset"),
// grounded on original_source's connectors/virtual_data.py comment "$no_table
// is used in queries where there is no relation specified 'SELECT 1'".
func NoTable() *MemoryConnector {
	return NewMemoryConnector(sql.NewRelationSchema("$no_table"), []sql.Row{sql.NewRow()})
}

// DefaultFactory returns a Factory pre-registered with the built-in virtual
// datasets, the set a fresh cursor (package cursor) wires in by default so
// the seed test scenarios in spec.md §8 have something to query against.
func DefaultFactory() *Factory {
	f := NewFactory()
	f.Register("$planets", func() Connector { return Planets() })
	f.Register("$satellites", func() Connector { return Satellites() })
	f.Register("$no_table", func() Connector { return NoTable() })
	return f
}

// IsVirtualDataset reports whether a dataset name is one of the built-in
// "$"-prefixed virtual datasets rather than something callers must have
// registered.
func IsVirtualDataset(name string) bool {
	return strings.HasPrefix(name, "$")
}
