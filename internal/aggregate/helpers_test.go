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
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/internal/transform"
	"github.com/cardinalhq/chunkprofile/pipeline"
)

var loanHeader = []string{"id", "term", "grade", "home_ownership", "loan_amnt", "revol_util"}

// loanRecords returns n synthetic loan rows. Every fifth revol_util is missing.
func loanRecords(n int) [][]any {
	grades := []string{"A", "B", "C", "D"}
	owners := []string{"RENT", "OWN", "MORTGAGE"}
	out := make([][]any, n)
	for i := range n {
		term := "36 months"
		if i%3 == 0 {
			term = "60 months"
		}
		var util any = fmt.Sprintf("%d.%d%%", 10+i, i%10)
		if i%5 == 4 {
			util = nil
		}
		out[i] = []any{
			fmt.Sprint(i + 1),
			term,
			grades[i%len(grades)],
			owners[i%len(owners)],
			fmt.Sprint(1000 * (i + 1)),
			util,
		}
	}
	return out
}

func loanTransformer(t *testing.T) *transform.Transformer {
	t.Helper()
	cfg := transform.DefaultConfig()
	cfg.Categorize = []string{"home_ownership"}
	cfg.SuffixStrip = map[string]string{"term": " months", "revol_util": "%"}
	tr, err := transform.New(cfg)
	require.NoError(t, err)
	return tr
}

// rawChunk builds a chunk of raw values the way the CSV reader emits them.
func rawChunk(index int, offset int64, names []string, records [][]any) *pipeline.Chunk {
	schema := make(pipeline.Schema, len(names))
	for i, n := range names {
		schema[i] = pipeline.Column{Name: n, Type: pipeline.DataTypeString}
	}
	rows := make([]pipeline.Row, len(records))
	for i, rec := range records {
		row := make(pipeline.Row, len(names))
		for j, v := range rec {
			row[schema[j].Key()] = v
		}
		rows[i] = row
	}
	return &pipeline.Chunk{Index: index, Offset: offset, Schema: schema, Rows: rows}
}

// partition splits records into consecutive transformed chunks of the given sizes.
func partition(t *testing.T, records [][]any, sizes ...int) []*pipeline.Chunk {
	t.Helper()
	tr := loanTransformer(t)
	var out []*pipeline.Chunk
	offset := 0
	for i, size := range sizes {
		raw := rawChunk(i, int64(offset), loanHeader, records[offset:offset+size])
		chunk, err := tr.Apply(raw)
		require.NoError(t, err)
		out = append(out, chunk)
		offset += size
	}
	require.Equal(t, len(records), offset)
	return out
}

func partials[P any](t *testing.T, stat Statistic[P], chunks []*pipeline.Chunk) []P {
	t.Helper()
	out := make([]P, len(chunks))
	for i, c := range chunks {
		p, err := ComputePartial(c, stat)
		require.NoError(t, err)
		out[i] = p
	}
	return out
}

func csvSource(t *testing.T, records [][]any, chunkSize int) filereader.ChunkReader {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(strings.Join(loanHeader, ","))
	sb.WriteString("\n")
	for _, rec := range records {
		fields := make([]string, len(rec))
		for i, v := range rec {
			if v != nil {
				fields[i] = v.(string)
			}
		}
		sb.WriteString(strings.Join(fields, ","))
		sb.WriteString("\n")
	}
	r, err := filereader.NewCSVChunkReader(io.NopCloser(strings.NewReader(sb.String())), filereader.Options{ChunkSize: chunkSize})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func runProfile(t *testing.T, source filereader.ChunkReader, opts Options, cfg ProfileConfig) (*Result, *Profile) {
	t.Helper()
	profile, err := NewProfile(cfg)
	require.NoError(t, err)
	res, err := Run(context.Background(), source, loanTransformer(t), opts, profile.Accumulators()...)
	require.NoError(t, err)
	return res, profile
}
