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

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/chunkprofile/internal/aggregate"
	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/internal/transform"
)

const loanCSV = `id,term,grade,home_ownership,emp_title,revol_util
1,36 months,A,RENT,Nurse,83.7%
2,60 months,B,OWN,,9.4%
3,36 months,A,RENT,Teacher,
4,36 months,C,MORTGAGE,Nurse,50%
5,60 months,B,RENT,Driver,12.1%
`

func buildReport(t *testing.T) *Report {
	t.Helper()
	reader, err := filereader.NewCSVChunkReader(io.NopCloser(strings.NewReader(loanCSV)), filereader.Options{ChunkSize: 2})
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	cfg := transform.DefaultConfig()
	cfg.Categorize = []string{"home_ownership"}
	cfg.SuffixStrip = map[string]string{"term": " months", "revol_util": "%"}
	tr, err := transform.New(cfg)
	require.NoError(t, err)

	profile, err := aggregate.NewProfile(aggregate.ProfileConfig{UsefulColumns: []string{"term"}})
	require.NoError(t, err)

	res, err := aggregate.Run(context.Background(), reader, tr, aggregate.Options{}, profile.Accumulators()...)
	require.NoError(t, err)

	return Build(res, profile, Options{})
}

func TestBuild(t *testing.T) {
	r := buildReport(t)

	assert.Equal(t, int64(5), r.TotalRows)
	assert.Equal(t, 3, r.Chunks)
	assert.False(t, r.Incomplete)
	assert.Len(t, r.ChunkMemory, 3)
	assert.Len(t, r.ColumnKinds, 3)
	assert.Less(t, r.Bytes, r.RawBytes)

	assert.Equal(t, []string{"grade", "home_ownership", "emp_title"}, r.StringColumns)
	assert.True(t, r.StringColumnsConsistent)

	require.Len(t, r.LowCardinality, 3)
	assert.Equal(t, "grade", r.LowCardinality[0].Column)
	assert.Equal(t, 3, r.LowCardinality[0].Distinct)
	assert.Equal(t, aggregate.ValueCount{Value: "A", Count: 2}, r.LowCardinality[0].Values[0])
	assert.Equal(t, int64(1), r.LowCardinality[2].Nulls)

	require.Len(t, r.UsefulColumns, 1)
	assert.Equal(t, []aggregate.ValueCount{{Value: "36", Count: 3}, {Value: "60", Count: 2}}, r.UsefulColumns[0].Values)

	assert.Equal(t, []aggregate.ValueCount{{Value: "id", Count: 0}, {Value: "term", Count: 0}, {Value: "revol_util", Count: 1}}, r.MissingValues)

	require.Len(t, r.Sketches, 6)
	assert.Equal(t, "id", r.Sketches[0].Column)
	assert.Equal(t, uint64(5), r.Sketches[0].Distinct)
	assert.Len(t, r.Sketches[0].Quantiles, 3)
	assert.Empty(t, r.Sketches[2].Quantiles)
}

func TestBuild_AllMissingColumnInMissingValues(t *testing.T) {
	input := "id,desc,revol_util\n1,,5%\n2,,\n3,,7%\n"
	reader, err := filereader.NewCSVChunkReader(io.NopCloser(strings.NewReader(input)), filereader.Options{ChunkSize: 2})
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	cfg := transform.DefaultConfig()
	cfg.SuffixStrip = map[string]string{"revol_util": "%"}
	tr, err := transform.New(cfg)
	require.NoError(t, err)

	profile, err := aggregate.NewProfile(aggregate.ProfileConfig{})
	require.NoError(t, err)
	res, err := aggregate.Run(context.Background(), reader, tr, aggregate.Options{}, profile.Accumulators()...)
	require.NoError(t, err)

	r := Build(res, profile, Options{})
	assert.Equal(t, []aggregate.ValueCount{
		{Value: "id", Count: 0},
		{Value: "revol_util", Count: 1},
		{Value: "desc", Count: 3},
	}, r.MissingValues)
}

func TestBuild_UniqueThreshold(t *testing.T) {
	r := buildReport(t)
	assert.Equal(t, DefaultUniqueThreshold, r.UniqueThreshold)

	res := &aggregate.Result{Reference: r.Dtypes}
	profile, err := aggregate.NewProfile(aggregate.ProfileConfig{})
	require.NoError(t, err)
	empty := Build(res, profile, Options{UniqueThreshold: 1})
	assert.Empty(t, empty.LowCardinality)
}

func TestWriteText(t *testing.T) {
	r := buildReport(t)
	r.RunID = "01J0000000000000000000TEST"

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r, Options{TopValues: 1}))
	out := buf.String()

	for _, want := range []string{
		"run 01J0000000000000000000TEST",
		"== Rows ==",
		"total rows: 5 in 3 chunks",
		"== Memory usage ==",
		"== Column types per chunk ==",
		"consistent across chunks",
		"== Columns with fewer than 50 unique values ==",
		"home_ownership (3 distinct, 0 missing)",
		"== Value counts ==",
		"== Missing values ==",
		"revol_util",
		"== Optimized dtypes ==",
		"category",
		"p99",
		"... 2 more",
	} {
		assert.Contains(t, out, want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteText_PropagatesWriteErrors(t *testing.T) {
	err := WriteText(failingWriter{}, buildReport(t), Options{})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestWriteJSON(t *testing.T) {
	r := buildReport(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(5), decoded["total_rows"])
	assert.Equal(t, false, decoded["incomplete"])

	dtypes, ok := decoded["dtypes"].([]any)
	require.True(t, ok)
	first := dtypes[0].(map[string]any)
	assert.Equal(t, "id", first["name"])
	assert.Equal(t, "int64", first["type"])
}
