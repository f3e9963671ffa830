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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/connector"
)

// blobStatsMagic identifies the persisted-entry layout (spec.md §6.5): an
// 8-byte header, the low byte of which is a format version so a future
// layout change can reject an old cache file outright instead of
// misinterpreting it.
var blobStatsMagic = [8]byte{'O', 'X', 'S', 'T', 'A', 'T', 0, 1}

// EncodeBlobStatistics serializes a connector.BlobStatistics using the
// fixed binary layout spec.md §6.5 specifies: magic header, row count,
// column count, then per column a length-prefixed name followed by its
// four int64 bound fields. Columns are written in sorted-name order so the
// encoding is deterministic (two equal BlobStatistics values always
// produce byte-identical output, which matters once this is used as a
// boltdb value).
func EncodeBlobStatistics(bs connector.BlobStatistics) []byte {
	buf := &bytes.Buffer{}
	buf.Write(blobStatsMagic[:])
	binary.Write(buf, binary.BigEndian, uint64(bs.RowCount))
	binary.Write(buf, binary.BigEndian, uint32(len(bs.Columns)))

	names := make([]string, 0, len(bs.Columns))
	for name := range bs.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		col := bs.Columns[name]
		binary.Write(buf, binary.BigEndian, uint16(len(name)))
		buf.WriteString(name)
		binary.Write(buf, binary.BigEndian, col.LowerBound)
		binary.Write(buf, binary.BigEndian, col.UpperBound)
		binary.Write(buf, binary.BigEndian, col.NullCount)
		binary.Write(buf, binary.BigEndian, col.Cardinality)
	}
	return buf.Bytes()
}

// DecodeBlobStatistics is the inverse of EncodeBlobStatistics.
func DecodeBlobStatistics(data []byte) (connector.BlobStatistics, error) {
	r := bytes.NewReader(data)

	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return connector.BlobStatistics{}, fmt.Errorf("stats: truncated blob statistics header: %w", err)
	}
	if header != blobStatsMagic {
		return connector.BlobStatistics{}, fmt.Errorf("stats: unrecognised blob statistics header")
	}

	var rowCount uint64
	var colCount uint32
	if err := binary.Read(r, binary.BigEndian, &rowCount); err != nil {
		return connector.BlobStatistics{}, fmt.Errorf("stats: truncated row count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &colCount); err != nil {
		return connector.BlobStatistics{}, fmt.Errorf("stats: truncated column count: %w", err)
	}

	cols := make(map[string]sql.ColumnStatistics, colCount)
	for i := uint32(0); i < colCount; i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
			return connector.BlobStatistics{}, fmt.Errorf("stats: truncated column name length: %w", err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return connector.BlobStatistics{}, fmt.Errorf("stats: truncated column name: %w", err)
		}

		var lower, upper, nullCount, cardinality int64
		if err := binary.Read(r, binary.BigEndian, &lower); err != nil {
			return connector.BlobStatistics{}, fmt.Errorf("stats: truncated lower bound: %w", err)
		}
		if err := binary.Read(r, binary.BigEndian, &upper); err != nil {
			return connector.BlobStatistics{}, fmt.Errorf("stats: truncated upper bound: %w", err)
		}
		if err := binary.Read(r, binary.BigEndian, &nullCount); err != nil {
			return connector.BlobStatistics{}, fmt.Errorf("stats: truncated null count: %w", err)
		}
		if err := binary.Read(r, binary.BigEndian, &cardinality); err != nil {
			return connector.BlobStatistics{}, fmt.Errorf("stats: truncated cardinality: %w", err)
		}

		cols[string(nameBytes)] = sql.ColumnStatistics{
			LowerBound:  lower,
			UpperBound:  upper,
			NullCount:   nullCount,
			Cardinality: cardinality,
			HasBounds:   true,
		}
	}

	return connector.BlobStatistics{RowCount: int64(rowCount), Columns: cols}, nil
}
