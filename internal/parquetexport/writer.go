// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package parquetexport writes optimized chunks to a single Parquet file.
package parquetexport

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

const (
	DefaultSchemaName         = "chunkprofile"
	DefaultMaxRowsPerRowGroup = 80_000
)

// Options controls the Parquet layout.
type Options struct {
	// SchemaName is the name of the root group. Empty selects DefaultSchemaName.
	SchemaName string
	// MaxRowsPerRowGroup bounds row group size. Zero selects DefaultMaxRowsPerRowGroup.
	MaxRowsPerRowGroup int64
	// ColumnTypes are the types pinned by the transform. Only columns pinned
	// to int64 are stored as INT64, other integer columns are stored as DOUBLE
	// since later chunks may infer them as float64.
	ColumnTypes map[string]pipeline.DataType
}

// Writer streams chunks into one Parquet file. The file schema is fixed by the
// first chunk written. Text and categorical columns are dictionary encoded,
// dates are stored as Unix milliseconds, unpinned numbers as DOUBLE, and every
// column is optional.
type Writer struct {
	out    io.Writer
	opts   Options
	schema pipeline.Schema
	pw     *parquet.GenericWriter[map[string]any]
	rows   int64
	closed bool
}

// NewWriter returns a Writer to out. Nothing is written until the first chunk.
func NewWriter(out io.Writer, opts Options) *Writer {
	if opts.SchemaName == "" {
		opts.SchemaName = DefaultSchemaName
	}
	if opts.MaxRowsPerRowGroup <= 0 {
		opts.MaxRowsPerRowGroup = DefaultMaxRowsPerRowGroup
	}
	return &Writer{out: out, opts: opts}
}

// NodeForType returns the Parquet node used for a column type.
func NodeForType(dt pipeline.DataType) parquet.Node {
	dict := func(n parquet.Node) parquet.Node {
		return parquet.Encoded(n, &parquet.RLEDictionary)
	}
	switch dt {
	case pipeline.DataTypeInt64, pipeline.DataTypeDate:
		return parquet.Optional(parquet.Int(64))
	case pipeline.DataTypeFloat64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	default:
		return parquet.Optional(dict(parquet.String()))
	}
}

// SchemaFor builds the Parquet schema of a chunk schema.
func SchemaFor(name string, schema pipeline.Schema) *parquet.Schema {
	nodes := make(map[string]parquet.Node, len(schema))
	for _, col := range schema {
		nodes[col.Name] = NodeForType(col.Type)
	}
	return parquet.NewSchema(name, parquet.Group(nodes))
}

// fileSchema widens inferred integer columns of the first chunk to float64.
func (w *Writer) fileSchema(schema pipeline.Schema) pipeline.Schema {
	out := schema.Clone()
	for i, col := range out {
		if col.Type == pipeline.DataTypeInt64 && w.opts.ColumnTypes[col.Name] != pipeline.DataTypeInt64 {
			out[i].Type = pipeline.DataTypeFloat64
		}
	}
	return out
}

func (w *Writer) open(schema pipeline.Schema) error {
	schema = w.fileSchema(schema)
	ps := SchemaFor(w.opts.SchemaName, schema)
	wc, err := parquet.NewWriterConfig(
		ps,
		parquet.Compression(&parquet.Zstd),
		parquet.PageBufferSize(32*1024),
		parquet.MaxRowsPerRowGroup(w.opts.MaxRowsPerRowGroup),
	)
	if err != nil {
		return fmt.Errorf("parquet writer config: %w", err)
	}
	w.schema = schema
	w.pw = parquet.NewGenericWriter[map[string]any](w.out, wc)
	return nil
}

// Schema returns the column schema of the file, nil before the first chunk.
func (w *Writer) Schema() pipeline.Schema {
	return w.schema
}

// Rows returns the number of rows written.
func (w *Writer) Rows() int64 {
	return w.rows
}

// WriteChunk appends the rows of chunk. Columns the file schema does not have
// are ignored and columns the chunk lacks are written as null.
func (w *Writer) WriteChunk(ctx context.Context, chunk *pipeline.Chunk) error {
	if w.closed {
		return fmt.Errorf("parquet writer is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.pw == nil {
		if err := w.open(chunk.Schema); err != nil {
			return err
		}
	}
	if chunk.Len() == 0 {
		return nil
	}

	rows := make([]map[string]any, len(chunk.Rows))
	for i, row := range chunk.Rows {
		rec := make(map[string]any, len(w.schema))
		for _, col := range w.schema {
			v, err := coerce(row[col.Key()], col.Type)
			if err != nil {
				return fmt.Errorf("chunk %d row %d column %s: %w", chunk.Index, chunk.Offset+int64(i), col.Name, err)
			}
			rec[col.Name] = v
		}
		rows[i] = rec
	}

	n, err := w.pw.Write(rows)
	w.rows += int64(n)
	if err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return nil
}

// coerce converts a value to the physical type of a column declared as dt.
func coerce(v any, dt pipeline.DataType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch dt {
	case pipeline.DataTypeInt64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
				return nil, fmt.Errorf("value %v does not fit the int64 column, pin the column to float64", x)
			}
			return int64(x), nil
		}
	case pipeline.DataTypeFloat64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
	case pipeline.DataTypeDate:
		if t, ok := v.(time.Time); ok {
			return t.UnixMilli(), nil
		}
	default:
		return pipeline.FormatValue(v), nil
	}
	return nil, fmt.Errorf("value %q of type %T does not match column type %s", pipeline.FormatValue(v), v, dt)
}

// Close flushes buffered rows and writes the file footer. A writer that
// received no chunk writes nothing.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.pw == nil {
		return nil
	}
	if err := w.pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
