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

// Package connector implements the storage connector contract (spec.md
// §6.3): the required Connector interface every dataset reader must
// satisfy, and the optional capability interfaces an individual connector
// may additionally implement (Partitionable, Cacheable, PredicatePushable,
// LimitPushable, Statistics, Asynchronous, Diachronic). The binder
// (sql/binder) checks these via type assertion — the Go analogue of the
// original's mixin classes and `isinstance(connector, Cacheable)` checks —
// grounded on original_source/opteryx/connectors/base/base_connector.py and
// the capabilities/ package sitting beside it.
package connector

import (
	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/expression"
)

// Batch is one morsel of rows read from a dataset, the unit read_dataset
// yields (original_source's DatasetReader.__next__ returning a pyarrow
// Table chunk-at-a-time).
type Batch struct {
	Schema *sql.RelationSchema
	Rows   []sql.Row
}

// RowIterator is returned by ReadDataset; callers pull batches until Next
// reports false, then check Err.
type RowIterator interface {
	Next() (*Batch, bool)
	Err() error
}

// Connector is the contract every storage connector must satisfy
// (spec.md §6.3 "Required").
type Connector interface {
	GetDatasetSchema(ctx *sql.Context) (*sql.RelationSchema, error)
	ReadDataset(ctx *sql.Context, columns []string, predicates []*expression.Node, limit *int64) (RowIterator, error)
}

// Partitionable is an optional capability: the connector accepts a
// start/end date range and can enumerate the blobs living in it
// (spec.md §6.3).
type Partitionable interface {
	SetDateRange(start, end *string)
	GetBlobsInPartition(ctx *sql.Context) ([]string, error)
}

// Cacheable is an optional capability: ReadBlob can be wrapped by a
// read-through cache, unless the NO_CACHE hint is present on the scan.
type Cacheable interface {
	ReadBlob(ctx *sql.Context, blobName string) ([]byte, error)
	SetReadBlob(fn func(ctx *sql.Context, blobName string) ([]byte, error))
}

// PredicatePushable is an optional capability: the connector accepts a
// subset of predicates to evaluate itself, advertising which operators and
// types it can push.
type PredicatePushable interface {
	PushableOps() map[string]bool
	PushableTypes() map[sql.Type]bool
	PushPredicate(p *expression.Node) bool
}

// LimitPushable is an optional capability: the connector accepts a row
// limit to stop reading early.
type LimitPushable interface {
	PushLimit(n int64)
}

// BlobStatistics is the per-blob column statistics a Statistics-capable
// connector reports (spec.md §4.8, §6.5's on-disk layout).
type BlobStatistics struct {
	RowCount int64
	Columns  map[string]sql.ColumnStatistics
}

// Statistics is an optional capability: the connector can report per-blob
// column bounds and prune a blob list against a predicate tree
// (spec.md §4.8).
type Statistics interface {
	ReadBlobStatistics(ctx *sql.Context, blobName string) (BlobStatistics, error)
	PruneBlobs(ctx *sql.Context, blobs []string, predicate *expression.Node) ([]string, error)
}

// Asynchronous is an optional capability: the connector offers a
// non-blocking blob read alongside the synchronous one.
type Asynchronous interface {
	AsyncReadBlob(ctx *sql.Context, blobName string, out chan<- []byte, errs chan<- error)
}

// Diachronic is an optional capability: the connector accepts temporal
// start/end dates forwarded by the planner's FOR clause handling
// (spec.md §6.3; distinct from Partitionable in the original's mixin set,
// which additionally expects blob enumeration — a connector backed by a
// single versioned store can be Diachronic without being Partitionable).
type Diachronic interface {
	SetTemporalRange(start, end *string)
}
