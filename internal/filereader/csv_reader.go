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

package filereader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/chunkprofile/pipeline"
	"github.com/cardinalhq/chunkprofile/pipeline/wkk"
)

const DefaultChunkSize = 3000

// DefaultNullValues are the field values read as missing when Options.NullValues is nil.
var DefaultNullValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options controls how a CSV source is split into chunks.
type Options struct {
	// ChunkSize is the maximum number of rows per chunk. Zero selects DefaultChunkSize.
	ChunkSize int
	// Delimiter separates fields. Zero selects ','.
	Delimiter rune
	// NullValues are field values, after trimming, that are read as missing.
	// A nil slice selects DefaultNullValues.
	NullValues []string
	// Strict turns malformed rows into errors instead of skipping them.
	Strict bool
	// SkipRows skips this many data rows before the first chunk.
	SkipRows int64
	// Limit stops reading after this many rows have been emitted. Zero means no limit.
	Limit int64
	// Path is used for error messages only.
	Path string
}

// CSVChunkReader reads a delimited source with a header row and emits chunks of raw values.
type CSVChunkReader struct {
	reader   *csv.Reader
	closer   io.Closer
	opts     Options
	headers  []string
	rowKeys  []wkk.RowKey
	schema   pipeline.Schema
	nulls    mapset.Set[string]
	consumed int64
	emitted  int64
	index    int
	done     bool
	closed   bool
}

var _ ChunkReader = (*CSVChunkReader)(nil)

// NewCSVChunkReader reads the header row and prepares the reader for chunking.
// The reader takes ownership of rc and closes it on Close, or on error.
func NewCSVChunkReader(rc io.ReadCloser, opts Options) (*CSVChunkReader, error) {
	if opts.ChunkSize < 0 {
		_ = rc.Close()
		return nil, &SourceError{Path: opts.Path, Reason: fmt.Sprintf("invalid chunk size %d", opts.ChunkSize)}
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.NullValues == nil {
		opts.NullValues = DefaultNullValues
	}

	br := bufio.NewReader(rc)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	csvReader := csv.NewReader(br)
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	csvReader.ReuseRecord = true
	if opts.Delimiter != 0 {
		csvReader.Comma = opts.Delimiter
	}

	record, err := csvReader.Read()
	if err != nil {
		_ = rc.Close()
		if errors.Is(err, io.EOF) {
			return nil, &SourceError{Path: opts.Path, Reason: "source has no header row"}
		}
		return nil, &SourceError{Path: opts.Path, Reason: "failed to read header row", Err: err}
	}

	headers, err := parseHeader(record)
	if err != nil {
		_ = rc.Close()
		return nil, &SourceError{Path: opts.Path, Reason: "invalid header row", Err: err}
	}

	rowKeys := wkk.NewRowKeys(headers)
	schema := make(pipeline.Schema, len(headers))
	for i, h := range headers {
		schema[i] = pipeline.Column{Name: h, Type: pipeline.DataTypeString}
	}

	return &CSVChunkReader{
		reader:  csvReader,
		closer:  rc,
		opts:    opts,
		headers: headers,
		rowKeys: rowKeys,
		schema:  schema,
		nulls:   mapset.NewSet(opts.NullValues...),
	}, nil
}

func parseHeader(record []string) ([]string, error) {
	if len(record) == 0 {
		return nil, errors.New("no columns")
	}
	seen := mapset.NewSetWithSize[string](len(record))
	headers := make([]string, len(record))
	for i, raw := range record {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if !seen.Add(name) {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		headers[i] = name
	}
	return headers, nil
}

// Headers returns the column names in header order.
func (r *CSVChunkReader) Headers() []string {
	return r.headers
}

// Next returns the next chunk of at most ChunkSize rows, or io.EOF.
func (r *CSVChunkReader) Next(ctx context.Context) (*pipeline.Chunk, error) {
	if r.closed || r.done {
		return nil, io.EOF
	}

	for r.consumed < r.opts.SkipRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := r.reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				r.done = true
				return nil, io.EOF
			}
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, &SourceError{Path: r.opts.Path, Reason: "read failed", Err: err}
			}
		}
		r.consumed++
	}

	chunk := &pipeline.Chunk{
		Index:  r.index,
		Offset: r.consumed,
		Schema: r.schema.Clone(),
		Rows:   make([]pipeline.Row, 0, r.opts.ChunkSize),
	}

	for len(chunk.Rows) < r.opts.ChunkSize {
		if r.opts.Limit > 0 && r.emitted >= r.opts.Limit {
			r.done = true
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.reader.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		rowOffset := r.consumed
		r.consumed++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, &SourceError{Path: r.opts.Path, Reason: "read failed", Err: err}
			}
			rerr := &RowParseError{Line: perr.Line, Row: rowOffset, Reason: "malformed record", Err: perr.Err}
			if err := r.reject(ctx, chunk, rerr, "parse_error"); err != nil {
				return nil, err
			}
			continue
		}

		rowsInCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("reader", "CSVChunkReader"),
		))

		if len(record) != len(r.headers) {
			line, _ := r.reader.FieldPos(0)
			rerr := &RowParseError{
				Line:   line,
				Row:    rowOffset,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(r.headers), len(record)),
			}
			if err := r.reject(ctx, chunk, rerr, "column_count_mismatch"); err != nil {
				return nil, err
			}
			continue
		}

		row := make(pipeline.Row, len(record))
		for i, value := range record {
			if r.nulls.Contains(strings.TrimSpace(value)) {
				row[r.rowKeys[i]] = nil
				continue
			}
			row[r.rowKeys[i]] = value
		}
		chunk.Rows = append(chunk.Rows, row)
		r.emitted++
	}

	if len(chunk.Rows) == 0 && chunk.DroppedRows == 0 {
		return nil, io.EOF
	}

	r.index++
	chunksOutCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("reader", "CSVChunkReader"),
	))
	return chunk, nil
}

// reject records a malformed row. It returns the error in strict mode.
func (r *CSVChunkReader) reject(ctx context.Context, chunk *pipeline.Chunk, rerr *RowParseError, reason string) error {
	if r.opts.Strict {
		return rerr
	}
	chunk.DroppedRows++
	rowsDroppedCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("reader", "CSVChunkReader"),
		attribute.String("reason", reason),
	))
	slog.Debug("Skipping malformed row",
		slog.Int("line", rerr.Line),
		slog.Int64("row", rerr.Row),
		slog.String("reason", rerr.Reason))
	return nil
}

// Close closes the reader and the underlying source.
func (r *CSVChunkReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	r.reader = nil
	return err
}
