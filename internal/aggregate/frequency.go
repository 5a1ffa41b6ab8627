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

package aggregate

import (
	"cmp"
	"maps"
	"slices"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// Frequencies is the value count table of one column.
type Frequencies struct {
	Counts map[string]int64 `json:"counts"`
	Nulls  int64            `json:"nulls"`
}

func newFrequencies() Frequencies {
	return Frequencies{Counts: make(map[string]int64)}
}

// Total returns the number of rows counted, missing values included.
func (f Frequencies) Total() int64 {
	n := f.Nulls
	for _, c := range f.Counts {
		n += c
	}
	return n
}

// Distinct returns the number of distinct non-missing values.
func (f Frequencies) Distinct() int {
	return len(f.Counts)
}

// ValueCount is one entry of a sorted frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Sorted returns the entries by descending count, ties broken by value.
func (f Frequencies) Sorted() []ValueCount {
	out := make([]ValueCount, 0, len(f.Counts))
	for v, c := range f.Counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	slices.SortFunc(out, func(a, b ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

func (f Frequencies) merge(p Frequencies) Frequencies {
	if f.Counts == nil {
		f.Counts = make(map[string]int64, len(p.Counts))
	}
	for v, c := range p.Counts {
		f.Counts[v] += c
	}
	f.Nulls += p.Nulls
	return f
}

// ColumnFrequencies maps a column name to its value counts.
type ColumnFrequencies map[string]Frequencies

type valueCounts struct {
	columns []string
	present bool
}

// ValueCounts tabulates the distinct values of each declared column. With no
// declared columns it counts every text, categorical and all-missing column
// of each chunk. For every counted column the counts plus the nulls equal the
// number of rows.
func ValueCounts(columns ...string) Statistic[ColumnFrequencies] {
	return valueCounts{columns: columns}
}

// PresentValueCounts tabulates the declared columns each chunk has. A chunk
// lacking some of them is not an error, and a column no merged chunk had is
// absent from the aggregate.
func PresentValueCounts(columns ...string) Statistic[ColumnFrequencies] {
	return valueCounts{columns: columns, present: true}
}

func (s valueCounts) Name() string {
	if s.present {
		return "present_value_counts"
	}
	return "value_counts"
}

func (s valueCounts) Zero() ColumnFrequencies {
	out := make(ColumnFrequencies, len(s.columns))
	if s.present {
		return out
	}
	for _, c := range s.columns {
		out[c] = newFrequencies()
	}
	return out
}

func (s valueCounts) Partial(chunk *pipeline.Chunk) (ColumnFrequencies, error) {
	var cols pipeline.Schema
	if s.present {
		cols = presentColumns(chunk, s.columns)
	} else {
		var err error
		cols, err = selectColumns(chunk, s.columns, pipeline.KindText, pipeline.KindCategorical, pipeline.KindNull)
		if err != nil {
			return nil, err
		}
	}
	out := make(ColumnFrequencies, len(cols))
	for _, col := range cols {
		key := col.Key()
		f := newFrequencies()
		for _, row := range chunk.Rows {
			if row.IsNull(key) {
				f.Nulls++
				continue
			}
			f.Counts[pipeline.FormatValue(row[key])]++
		}
		out[col.Name] = f
	}
	return out, nil
}

func (s valueCounts) Merge(acc, p ColumnFrequencies) ColumnFrequencies {
	if acc == nil {
		acc = make(ColumnFrequencies, len(p))
	}
	for name, f := range p {
		acc[name] = acc[name].merge(f)
	}
	return acc
}

type nullCounts struct {
	columns []string
}

// NullCounts counts the missing values of each declared column. With no
// declared columns it counts every numeric and all-missing column of each chunk.
func NullCounts(columns ...string) Statistic[map[string]int64] {
	return nullCounts{columns: columns}
}

func (s nullCounts) Name() string { return "null_counts" }

func (s nullCounts) Zero() map[string]int64 {
	out := make(map[string]int64, len(s.columns))
	for _, c := range s.columns {
		out[c] = 0
	}
	return out
}

func (s nullCounts) Partial(chunk *pipeline.Chunk) (map[string]int64, error) {
	cols, err := selectColumns(chunk, s.columns, pipeline.KindNumeric, pipeline.KindNull)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(cols))
	for _, col := range cols {
		key := col.Key()
		var n int64
		for _, row := range chunk.Rows {
			if row.IsNull(key) {
				n++
			}
		}
		out[col.Name] = n
	}
	return out, nil
}

func (s nullCounts) Merge(acc, p map[string]int64) map[string]int64 {
	if acc == nil {
		acc = make(map[string]int64, len(p))
	}
	for name, n := range p {
		acc[name] += n
	}
	return acc
}

// SortedNullCounts returns the columns by ascending missing count, ties broken by name.
func SortedNullCounts(counts map[string]int64) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, ValueCount{Value: name, Count: counts[name]})
	}
	slices.SortStableFunc(out, func(a, b ValueCount) int {
		return cmp.Compare(a.Count, b.Count)
	})
	return out
}
