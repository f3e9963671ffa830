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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFactoryResolvesExactRegistration(t *testing.T) {
	require := require.New(t)
	f := NewFactory()
	f.Register("$planets", func() Connector { return Planets() })

	c, err := f.Resolve("$planets")
	require.NoError(err)
	require.NotNil(c)
}

func TestFactoryResolvesLongestPrefixMatch(t *testing.T) {
	require := require.New(t)
	f := NewFactory()
	f.RegisterPrefix("s3.", func() Connector { return Planets() })
	f.RegisterPrefix("s3.archive.", func() Connector { return Satellites() })

	c, err := f.Resolve("s3.archive.2024.log")
	require.NoError(err)
	schema, err := c.GetDatasetSchema(nil)
	require.NoError(err)
	require.Equal("$satellites", schema.Name)
}

func TestFactoryReturnsDatasetNotFoundWithSuggestion(t *testing.T) {
	require := require.New(t)
	f := DefaultFactory()

	_, err := f.Resolve("$planet")
	require.Error(err)
	require.Contains(err.Error(), "maybe you mean $planets")
}

func TestPlanetsSchemaMatchesRowWidth(t *testing.T) {
	require := require.New(t)
	p := Planets()
	schema, err := p.GetDatasetSchema(nil)
	require.NoError(err)

	it, err := p.ReadDataset(nil, nil, nil, nil)
	require.NoError(err)
	batch, ok := it.Next()
	require.True(ok)
	require.NoError(it.Err())
	for _, row := range batch.Rows {
		require.Len(row, len(schema.Columns))
	}

	_, ok = it.Next()
	require.False(ok)
}

func TestSatellitesJoinKeyMatchesPlanetIDs(t *testing.T) {
	require := require.New(t)
	s := Satellites()
	it, err := s.ReadDataset(nil, nil, nil, nil)
	require.NoError(err)
	batch, _ := it.Next()
	for _, row := range batch.Rows {
		planetID := row[1].(int64)
		require.True(planetID >= 1 && planetID <= 9)
	}
}

func TestIsVirtualDataset(t *testing.T) {
	require := require.New(t)
	require.True(IsVirtualDataset("$planets"))
	require.False(IsVirtualDataset("customers"))
}

func TestLoadRegistrationTableAppliesExactAndPrefixEntries(t *testing.T) {
	require := require.New(t)

	data := []byte(`
connectors:
  - pattern: "$planets"
    kind: memory
  - pattern: "s3."
    kind: memory
    prefix: true
`)
	table, err := LoadRegistrationTable(data)
	require.NoError(err)
	require.Len(table.Connectors, 2)

	f := NewFactory()
	constructors := map[string]func() Connector{
		"memory": func() Connector { return Planets() },
	}
	require.NoError(table.Apply(f, constructors))

	_, err = f.Resolve("$planets")
	require.NoError(err)
	_, err = f.Resolve("s3.archive.log")
	require.NoError(err)
}

func TestRegistrationTableApplyRejectsUnknownKind(t *testing.T) {
	require := require.New(t)

	table := &RegistrationTable{Connectors: []RegistrationEntry{{Pattern: "$x", Kind: "mongodb"}}}
	err := table.Apply(NewFactory(), map[string]func() Connector{})
	require.Error(err)
}

func TestLoadRegistrationTableRejectsMalformedYAML(t *testing.T) {
	require := require.New(t)
	_, err := LoadRegistrationTable([]byte("connectors: [unterminated"))
	require.Error(err)
}
