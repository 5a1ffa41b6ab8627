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

// Package transform applies the per-chunk cleaning and dtype optimization pass.
//
// Columns without configuration are typed the way a default CSV loader types
// them: as integers, floats, or text, decided per chunk. A configured column
// is instead stripped of a unit suffix and parsed as a number, parsed as a
// date, dictionary encoded, or pinned to a fixed type.
package transform

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/pipeline"
)

// Transformer turns a raw chunk into an optimized chunk. It holds no per-chunk
// state and is safe for concurrent use.
type Transformer struct {
	cfg        Config
	categorize map[string]bool
	dates      map[string]bool
}

// New validates cfg and returns a Transformer.
func New(cfg Config) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transform config: %w", err)
	}
	if cfg.MaxCategories == 0 {
		cfg.MaxCategories = DefaultMaxCategories
	}
	if cfg.DateLayouts == nil {
		cfg.DateLayouts = slices.Clone(DefaultDateLayouts)
	}

	t := &Transformer{
		cfg:        cfg,
		categorize: make(map[string]bool, len(cfg.Categorize)),
		dates:      make(map[string]bool, len(cfg.DateColumns)),
	}
	for _, c := range cfg.Categorize {
		t.categorize[c] = true
	}
	for _, c := range cfg.DateColumns {
		t.dates[c] = true
	}
	for c, dt := range cfg.ColumnTypes {
		switch dt {
		case pipeline.DataTypeCategory:
			t.categorize[c] = true
		case pipeline.DataTypeDate:
			t.dates[c] = true
		}
	}
	return t, nil
}

// Config returns the effective configuration.
func (t *Transformer) Config() Config {
	return t.cfg
}

// columnPass carries the per-column state of one Apply call.
type columnPass struct {
	chunk  *pipeline.Chunk
	name   string
	strict bool
	errors int
}

func (p *columnPass) fail(row int, value any, reason string) error {
	if p.strict {
		return &filereader.RowParseError{
			Row:    p.chunk.Offset + int64(row),
			Column: p.name,
			Value:  pipeline.FormatValue(value),
			Reason: reason,
		}
	}
	p.errors++
	slog.Debug("Coercion failed, value set to missing",
		slog.Int("chunk", p.chunk.Index),
		slog.String("column", p.name),
		slog.String("reason", reason))
	return nil
}

// Apply returns a new chunk with typed and optimized values. The input chunk
// is not modified. Applying the transform to its own output yields an
// equivalent chunk.
func (t *Transformer) Apply(chunk *pipeline.Chunk) (*pipeline.Chunk, error) {
	n := chunk.Len()
	rows := make([]pipeline.Row, n)
	for i := range rows {
		rows[i] = make(pipeline.Row, len(chunk.Schema))
	}

	schema := make(pipeline.Schema, len(chunk.Schema))
	var rawBytes int64
	parseErrors := 0

	for ci, col := range chunk.Schema {
		values := chunk.Values(col.Name)

		inferred := inferType(values)
		defaults := make([]any, n)
		for i, v := range values {
			defaults[i] = convert(v, inferred)
		}
		rawBytes += pipeline.EstimateColumnMemory(inferred, defaults)

		pass := &columnPass{chunk: chunk, name: col.Name, strict: t.cfg.Strict}
		out, dt, err := t.optimize(pass, values, defaults, inferred)
		if err != nil {
			return nil, err
		}
		parseErrors += pass.errors

		schema[ci] = pipeline.Column{Name: col.Name, Type: dt}
		key := col.Key()
		for i, v := range out {
			rows[i][key] = v
		}
	}

	result := chunk.Derive(schema, rows)
	result.RawBytes = rawBytes
	result.ParseErrors += parseErrors

	if t.cfg.DropEmptyRows {
		kept := make([]pipeline.Row, 0, len(rows))
		for _, row := range rows {
			if row.IsEmpty() {
				result.EmptyRows++
				continue
			}
			kept = append(kept, row)
		}
		result.Rows = kept
	}
	return result, nil
}

// optimize produces the final values and type of one column.
func (t *Transformer) optimize(p *columnPass, values, defaults []any, inferred pipeline.DataType) ([]any, pipeline.DataType, error) {
	if suffix, ok := t.cfg.SuffixStrip[p.name]; ok {
		return stripSuffix(p, values, suffix)
	}
	if t.dates[p.name] {
		return parseDates(p, values, t.cfg.DateLayouts)
	}
	if t.categorize[p.name] {
		out, dt := encode(p, values, t.cfg.MaxCategories)
		return out, dt, nil
	}
	if pinned, ok := t.cfg.ColumnTypes[p.name]; ok {
		return pin(p, values, pinned)
	}
	return defaults, inferred, nil
}

// stripSuffix removes a literal unit suffix and parses what remains as a number.
// Values that are already numeric pass through.
func stripSuffix(p *columnPass, values []any, suffix string) ([]any, pipeline.DataType, error) {
	out := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
		case int64, float64:
			out[i] = x
		case int:
			out[i] = int64(x)
		default:
			s := strings.TrimSpace(pipeline.FormatValue(x))
			s = strings.TrimSpace(strings.TrimSuffix(s, strings.TrimSpace(suffix)))
			num, err := parseNumber(s)
			if err != nil {
				if ferr := p.fail(i, v, "not a number after removing suffix "+suffix); ferr != nil {
					return nil, 0, ferr
				}
				continue
			}
			out[i] = num
		}
	}

	dt := inferNumeric(out)
	if dt == pipeline.DataTypeFloat64 {
		for i, v := range out {
			if n, ok := v.(int64); ok {
				out[i] = float64(n)
			}
		}
	}
	return out, dt, nil
}

func parseDates(p *columnPass, values []any, layouts []string) ([]any, pipeline.DataType, error) {
	out := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
		case time.Time:
			out[i] = x
		default:
			ts, ok := parseDate(pipeline.FormatValue(x), layouts)
			if !ok {
				if err := p.fail(i, v, "unrecognized date"); err != nil {
					return nil, 0, err
				}
				continue
			}
			out[i] = ts
		}
	}
	return out, pipeline.DataTypeDate, nil
}

// encode dictionary encodes a column. A column whose vocabulary exceeds limit
// is kept as text.
func encode(p *columnPass, values []any, limit int) ([]any, pipeline.DataType) {
	dict := pipeline.NewDictionary()
	out := make([]any, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		out[i] = dict.Encode(pipeline.FormatValue(v))
		if dict.Len() > limit {
			slog.Warn("Too many distinct values to encode as category, keeping column as text",
				slog.Int("chunk", p.chunk.Index),
				slog.String("column", p.name),
				slog.Int("limit", limit))
			text := make([]any, len(values))
			for j, v := range values {
				text[j] = convert(v, pipeline.DataTypeString)
			}
			return text, pipeline.DataTypeString
		}
	}
	return out, pipeline.DataTypeCategory
}

// pin coerces a column to a configured numeric or text type.
func pin(p *columnPass, values []any, dt pipeline.DataType) ([]any, pipeline.DataType, error) {
	out := make([]any, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if dt == pipeline.DataTypeString {
			out[i] = convert(v, dt)
			continue
		}
		c := classify(v)
		if c == classString || (dt == pipeline.DataTypeInt64 && c == classFloat) {
			if err := p.fail(i, v, "cannot convert to "+dt.String()); err != nil {
				return nil, 0, err
			}
			continue
		}
		out[i] = convert(v, dt)
	}
	return out, dt, nil
}
