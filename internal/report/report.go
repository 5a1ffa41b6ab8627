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

// Package report renders the aggregate of a profiling pass.
package report

import (
	"maps"
	"slices"

	"github.com/cardinalhq/chunkprofile/internal/aggregate"
	"github.com/cardinalhq/chunkprofile/pipeline"
)

const DefaultUniqueThreshold = 50

// DefaultQuantiles are reported for every numeric column.
var DefaultQuantiles = []float64{0.5, 0.9, 0.99}

// Options controls which sections are built and how much they show.
type Options struct {
	// UniqueThreshold lists text columns with fewer distinct values than this.
	UniqueThreshold int
	// TopValues caps the values printed per column in text output. Zero prints all.
	TopValues int
	// Quantiles are read from the quantile sketches.
	Quantiles []float64
}

// ChunkMemory is the memory footprint of one chunk before and after optimization.
type ChunkMemory struct {
	Index    int   `json:"index"`
	Rows     int   `json:"rows"`
	RawBytes int64 `json:"raw_bytes"`
	Bytes    int64 `json:"bytes"`
}

// ColumnValues is the value count table of one column.
type ColumnValues struct {
	Column   string                 `json:"column"`
	Distinct int                    `json:"distinct"`
	Nulls    int64                  `json:"nulls"`
	Values   []aggregate.ValueCount `json:"values"`
}

// ColumnSketch holds the sketch estimates of one column.
type ColumnSketch struct {
	Column    string    `json:"column"`
	Distinct  uint64    `json:"distinct_estimate"`
	Quantiles []float64 `json:"quantiles,omitempty"`
}

// Report is the rendered form of a profiling pass.
type Report struct {
	RunID       string `json:"run_id,omitempty"`
	Source      string `json:"source,omitempty"`
	TotalRows   int64  `json:"total_rows"`
	Chunks      int    `json:"chunks"`
	DroppedRows int64  `json:"dropped_rows"`
	EmptyRows   int64  `json:"empty_rows"`
	ParseErrors int64  `json:"parse_errors"`
	Incomplete  bool   `json:"incomplete"`

	Skipped []aggregate.SkippedChunk `json:"skipped,omitempty"`

	RawBytes    int64         `json:"raw_bytes"`
	Bytes       int64         `json:"bytes"`
	ChunkMemory []ChunkMemory `json:"chunk_memory"`

	ColumnKinds []aggregate.ChunkKinds `json:"column_kinds"`

	StringColumns           []string `json:"string_columns"`
	StringColumnsConsistent bool     `json:"string_columns_consistent"`

	UniqueThreshold int            `json:"unique_threshold"`
	LowCardinality  []ColumnValues `json:"low_cardinality"`
	UsefulColumns   []ColumnValues `json:"useful_columns,omitempty"`

	MissingValues []aggregate.ValueCount `json:"missing_values"`

	Dtypes pipeline.Schema `json:"dtypes"`

	QuantileLevels []float64      `json:"quantile_levels"`
	Sketches       []ColumnSketch `json:"sketches"`
}

// Build assembles a Report from the result of a pass and its profile.
func Build(res *aggregate.Result, p *aggregate.Profile, opts Options) *Report {
	if opts.UniqueThreshold <= 0 {
		opts.UniqueThreshold = DefaultUniqueThreshold
	}
	if len(opts.Quantiles) == 0 {
		opts.Quantiles = DefaultQuantiles
	}

	r := &Report{
		TotalRows:       p.Rows.Value(),
		Chunks:          res.Chunks,
		DroppedRows:     res.DroppedRows,
		EmptyRows:       res.EmptyRows,
		ParseErrors:     res.ParseErrors,
		Incomplete:      res.Incomplete(),
		Skipped:         res.Skipped,
		RawBytes:        p.RawMemory.Value(),
		Bytes:           p.Memory.Value(),
		ColumnKinds:     p.Kinds.Value(),
		UniqueThreshold: opts.UniqueThreshold,
		Dtypes:          res.Reference,
		QuantileLevels:  opts.Quantiles,
	}

	for _, s := range res.Summaries {
		r.ChunkMemory = append(r.ChunkMemory, ChunkMemory{Index: s.Index, Rows: s.Rows, RawBytes: s.RawBytes, Bytes: s.Bytes})
	}

	text := res.Reference.OfKind(pipeline.KindText, pipeline.KindCategorical)
	r.StringColumns = text.Names()
	r.StringColumnsConsistent = len(res.Skipped) == 0

	counts := p.ValueCounts.Value()
	for _, col := range text {
		f, ok := counts[col.Name]
		if !ok || f.Distinct() >= opts.UniqueThreshold {
			continue
		}
		r.LowCardinality = append(r.LowCardinality, columnValues(col.Name, f))
	}

	if p.Useful != nil {
		useful := p.Useful.Value()
		for _, name := range slices.Sorted(maps.Keys(useful)) {
			r.UsefulColumns = append(r.UsefulColumns, columnValues(name, useful[name]))
		}
	}

	nulls := p.NullCounts.Value()
	numeric := map[string]int64{}
	for _, col := range res.Reference.OfKind(pipeline.KindNumeric, pipeline.KindNull) {
		if n, ok := nulls[col.Name]; ok {
			numeric[col.Name] = n
		}
	}
	r.MissingValues = aggregate.SortedNullCounts(numeric)

	distinct := p.Distinct.Value()
	quantiles := p.Quantiles.Value()
	for _, col := range res.Reference {
		sk := ColumnSketch{Column: col.Name}
		if hll, ok := distinct[col.Name]; ok {
			sk.Distinct = hll.Estimate()
		}
		if col.Type.Kind() == pipeline.KindNumeric {
			sk.Quantiles = aggregate.QuantileValues(quantiles[col.Name], opts.Quantiles...)
		}
		r.Sketches = append(r.Sketches, sk)
	}
	return r
}

func columnValues(name string, f aggregate.Frequencies) ColumnValues {
	return ColumnValues{
		Column:   name,
		Distinct: f.Distinct(),
		Nulls:    f.Nulls,
		Values:   f.Sorted(),
	}
}
