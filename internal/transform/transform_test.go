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

package transform

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/pipeline"
	"github.com/cardinalhq/chunkprofile/pipeline/wkk"
)

// rawChunk builds a chunk of raw string values the way the CSV reader does.
func rawChunk(names []string, records ...[]any) *pipeline.Chunk {
	schema := make(pipeline.Schema, len(names))
	for i, n := range names {
		schema[i] = pipeline.Column{Name: n, Type: pipeline.DataTypeString}
	}
	keys := wkk.NewRowKeys(names)
	rows := make([]pipeline.Row, len(records))
	for i, rec := range records {
		row := make(pipeline.Row, len(names))
		for j, v := range rec {
			row[keys[j]] = v
		}
		rows[i] = row
	}
	return &pipeline.Chunk{Schema: schema, Rows: rows}
}

func mustNew(t *testing.T, cfg Config) *Transformer {
	t.Helper()
	tr, err := New(cfg)
	require.NoError(t, err)
	return tr
}

func columnType(t *testing.T, c *pipeline.Chunk, name string) pipeline.DataType {
	t.Helper()
	col, ok := c.Schema.Lookup(name)
	require.True(t, ok, "column %s", name)
	return col.Type
}

func TestApply_DefaultInference(t *testing.T) {
	chunk := rawChunk([]string{"id", "int_rate", "emp_title", "desc"},
		[]any{"1", "10.65", "Nurse", nil},
		[]any{"2", "15", "Teacher", nil},
		[]any{" 3", "7.9", "42", nil},
	)

	out, err := mustNew(t, DefaultConfig()).Apply(chunk)
	require.NoError(t, err)

	assert.Equal(t, pipeline.DataTypeInt64, columnType(t, out, "id"))
	assert.Equal(t, pipeline.DataTypeFloat64, columnType(t, out, "int_rate"))
	assert.Equal(t, pipeline.DataTypeString, columnType(t, out, "emp_title"))
	assert.Equal(t, pipeline.DataTypeNull, columnType(t, out, "desc"))

	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, out.Values("id"))
	assert.Equal(t, []any{10.65, 15.0, 7.9}, out.Values("int_rate"))
	assert.Equal(t, []any{"Nurse", "Teacher", "42"}, out.Values("emp_title"))
	assert.Equal(t, 0, out.ParseErrors)
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	chunk := rawChunk([]string{"term"}, []any{"36 months"})
	tr := mustNew(t, Config{SuffixStrip: map[string]string{"term": " months"}})

	_, err := tr.Apply(chunk)
	require.NoError(t, err)
	assert.Equal(t, "36 months", chunk.Rows[0][wkk.NewRowKey("term")])
	assert.Equal(t, pipeline.DataTypeString, chunk.Schema[0].Type)
}

func TestApply_SuffixStrip(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
		values []any
		want   []any
		dt     pipeline.DataType
	}{
		{
			name:   "term months",
			suffix: " months",
			values: []any{" 36 months", "60 months", nil},
			want:   []any{int64(36), int64(60), nil},
			dt:     pipeline.DataTypeInt64,
		},
		{
			name:   "revol_util percent",
			suffix: "%",
			values: []any{"83.7%", "9%", "0%"},
			want:   []any{83.7, 9.0, 0.0},
			dt:     pipeline.DataTypeFloat64,
		},
		{
			name:   "all missing",
			suffix: "%",
			values: []any{nil, nil},
			want:   []any{nil, nil},
			dt:     pipeline.DataTypeNull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([][]any, len(tt.values))
			for i, v := range tt.values {
				records[i] = []any{v, "x"}
			}
			chunk := rawChunk([]string{"col", "keep"}, records...)
			tr := mustNew(t, Config{SuffixStrip: map[string]string{"col": tt.suffix}})

			out, err := tr.Apply(chunk)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Values("col"))
			assert.Equal(t, tt.dt, columnType(t, out, "col"))
		})
	}
}

func TestApply_SuffixStripIsIdempotent(t *testing.T) {
	chunk := rawChunk([]string{"term", "revol_util"},
		[]any{"36 months", "83.7%"},
		[]any{"60 months", "9.4%"},
	)
	tr := mustNew(t, Config{SuffixStrip: map[string]string{"term": " months", "revol_util": "%"}})

	once, err := tr.Apply(chunk)
	require.NoError(t, err)
	twice, err := tr.Apply(once)
	require.NoError(t, err)

	assert.Equal(t, once.Schema, twice.Schema)
	assert.Equal(t, once.Rows, twice.Rows)
	assert.Equal(t, 0, twice.ParseErrors)
}

func TestApply_SuffixStripFailure(t *testing.T) {
	chunk := rawChunk([]string{"term"}, []any{"36 months"}, []any{"soon"})

	t.Run("lenient", func(t *testing.T) {
		out, err := mustNew(t, Config{SuffixStrip: map[string]string{"term": " months"}}).Apply(chunk)
		require.NoError(t, err)
		assert.Equal(t, []any{int64(36), nil}, out.Values("term"))
		assert.Equal(t, 1, out.ParseErrors)
	})

	t.Run("strict", func(t *testing.T) {
		chunk.Offset = 100
		_, err := mustNew(t, Config{SuffixStrip: map[string]string{"term": " months"}, Strict: true}).Apply(chunk)
		require.Error(t, err)
		assert.True(t, errors.Is(err, filereader.ErrRowParse))

		var rerr *filereader.RowParseError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "term", rerr.Column)
		assert.Equal(t, "soon", rerr.Value)
		assert.Equal(t, int64(101), rerr.Row)
	})
}

func TestApply_Dates(t *testing.T) {
	chunk := rawChunk([]string{"issue_d"}, []any{"Dec-2011"}, []any{"2012-03-15"}, []any{nil})
	tr := mustNew(t, Config{DateColumns: []string{"issue_d"}})

	out, err := tr.Apply(chunk)
	require.NoError(t, err)
	assert.Equal(t, pipeline.DataTypeDate, columnType(t, out, "issue_d"))
	assert.Equal(t, []any{
		time.Date(2011, time.December, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2012, time.March, 15, 0, 0, 0, 0, time.UTC),
		nil,
	}, out.Values("issue_d"))

	again, err := tr.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, out.Rows, again.Rows)
}

func TestApply_BadDate(t *testing.T) {
	chunk := rawChunk([]string{"issue_d"}, []any{"someday"})
	out, err := mustNew(t, Config{DateColumns: []string{"issue_d"}, DropEmptyRows: true}).Apply(chunk)
	require.NoError(t, err)
	assert.Equal(t, 1, out.ParseErrors)
	assert.Equal(t, 1, out.EmptyRows)
	assert.Equal(t, 0, out.Len())
}

func TestApply_Categorize(t *testing.T) {
	chunk := rawChunk([]string{"home_ownership"},
		[]any{"RENT"}, []any{"OWN"}, []any{"RENT"}, []any{nil}, []any{"MORTGAGE"},
	)
	tr := mustNew(t, Config{Categorize: []string{"home_ownership"}, DropEmptyRows: false})

	out, err := tr.Apply(chunk)
	require.NoError(t, err)
	assert.Equal(t, pipeline.DataTypeCategory, columnType(t, out, "home_ownership"))

	labels := make([]string, 0, out.Len())
	for _, v := range out.Values("home_ownership") {
		labels = append(labels, pipeline.FormatValue(v))
	}
	assert.Equal(t, []string{"RENT", "OWN", "RENT", "", "MORTGAGE"}, labels)

	c := out.Rows[0][wkk.NewRowKey("home_ownership")].(pipeline.Category)
	assert.Equal(t, 3, c.Dictionary().Len())
	assert.Less(t, out.MemoryUsage(), out.RawBytes)

	again, err := tr.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, pipeline.DataTypeCategory, columnType(t, again, "home_ownership"))
	assert.Equal(t, out.RawBytes, again.RawBytes)
}

func TestApply_CategorizeOverLimitFallsBackToText(t *testing.T) {
	records := make([][]any, 5)
	for i := range records {
		records[i] = []any{fmt.Sprintf("title-%d", i)}
	}
	chunk := rawChunk([]string{"emp_title"}, records...)
	tr := mustNew(t, Config{Categorize: []string{"emp_title"}, MaxCategories: 3})

	out, err := tr.Apply(chunk)
	require.NoError(t, err)
	assert.Equal(t, pipeline.DataTypeString, columnType(t, out, "emp_title"))
	assert.Equal(t, "title-4", out.Values("emp_title")[4])
}

func TestApply_PinnedTypes(t *testing.T) {
	chunk := rawChunk([]string{"id", "zip", "grade"},
		[]any{"1", "02134", "A"},
		[]any{"2.5", "10001", "B"},
	)
	tr := mustNew(t, Config{ColumnTypes: map[string]pipeline.DataType{
		"id":    pipeline.DataTypeInt64,
		"zip":   pipeline.DataTypeString,
		"grade": pipeline.DataTypeCategory,
	}})

	out, err := tr.Apply(chunk)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), nil}, out.Values("id"))
	assert.Equal(t, 1, out.ParseErrors)
	assert.Equal(t, []any{"02134", "10001"}, out.Values("zip"))
	assert.Equal(t, pipeline.DataTypeCategory, columnType(t, out, "grade"))
}

func TestApply_DropEmptyRows(t *testing.T) {
	chunk := rawChunk([]string{"a", "b"},
		[]any{"1", "x"},
		[]any{nil, nil},
		[]any{"2", nil},
	)

	out, err := mustNew(t, DefaultConfig()).Apply(chunk)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 1, out.EmptyRows)

	keep := DefaultConfig()
	keep.DropEmptyRows = false
	out, err = mustNew(t, keep).Apply(chunk)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 0, out.EmptyRows)
}

func TestApply_RawBytesMeasuredBeforeOptimization(t *testing.T) {
	chunk := rawChunk([]string{"term"}, []any{"36 months"}, []any{"60 months"})
	out, err := mustNew(t, Config{SuffixStrip: map[string]string{"term": " months"}}).Apply(chunk)
	require.NoError(t, err)

	assert.Equal(t, int64(2*(16+9)), out.RawBytes)
	assert.Equal(t, int64(2*8), out.MemoryUsage())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{name: "empty", cfg: Config{}},
		{name: "defaults", cfg: DefaultConfig()},
		{
			name:   "categorize and date overlap",
			cfg:    Config{Categorize: []string{"issue_d"}, DateColumns: []string{"issue_d"}},
			errMsg: "issue_d appear in both categorize and date_columns",
		},
		{
			name:   "suffix and pinned overlap",
			cfg:    Config{SuffixStrip: map[string]string{"term": " months"}, ColumnTypes: map[string]pipeline.DataType{"term": pipeline.DataTypeInt64}},
			errMsg: "both suffix_strip and column_types",
		},
		{
			name:   "empty suffix",
			cfg:    Config{SuffixStrip: map[string]string{"term": ""}},
			errMsg: "suffix for column term is empty",
		},
		{
			name:   "null pin",
			cfg:    Config{ColumnTypes: map[string]pipeline.DataType{"term": pipeline.DataTypeNull}},
			errMsg: "cannot be pinned",
		},
		{
			name:   "negative max categories",
			cfg:    Config{MaxCategories: -1},
			errMsg: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
