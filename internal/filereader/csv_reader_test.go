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
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/chunkprofile/pipeline"
	"github.com/cardinalhq/chunkprofile/pipeline/wkk"
)

func newTestReader(t *testing.T, input string, opts Options) *CSVChunkReader {
	t.Helper()
	r, err := NewCSVChunkReader(io.NopCloser(strings.NewReader(input)), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func readAll(t *testing.T, r ChunkReader) []*pipeline.Chunk {
	t.Helper()
	var out []*pipeline.Chunk
	for chunk, err := range Chunks(context.Background(), r) {
		require.NoError(t, err)
		out = append(out, chunk)
	}
	return out
}

func TestNewCSVChunkReader(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    Options
		headers []string
		errMsg  string
	}{
		{
			name:    "valid header",
			input:   "id,term,purpose\n1,36 months,car\n",
			headers: []string{"id", "term", "purpose"},
		},
		{
			name:    "only header",
			input:   "id,term",
			headers: []string{"id", "term"},
		},
		{
			name:    "byte order mark is stripped",
			input:   "\xEF\xBB\xBFid,term\n1,2\n",
			headers: []string{"id", "term"},
		},
		{
			name:    "header names are trimmed",
			input:   " id , term \n",
			headers: []string{"id", "term"},
		},
		{
			name:    "semicolon delimiter",
			input:   "id;term\n1;2\n",
			opts:    Options{Delimiter: ';'},
			headers: []string{"id", "term"},
		},
		{
			name:   "empty source",
			input:  "",
			errMsg: "no header row",
		},
		{
			name:   "duplicate column",
			input:  "id,term,id\n",
			errMsg: "duplicate column name",
		},
		{
			name:   "empty column name",
			input:  "id,,term\n",
			errMsg: "empty name",
		},
		{
			name:   "negative chunk size",
			input:  "id\n",
			opts:   Options{ChunkSize: -1},
			errMsg: "invalid chunk size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewCSVChunkReader(io.NopCloser(strings.NewReader(tt.input)), tt.opts)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSource))
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			defer func() { _ = r.Close() }()
			assert.Equal(t, tt.headers, r.Headers())
		})
	}
}

func TestCSVChunkReader_ChunkBoundaries(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,grade\n")
	for i := range 10 {
		fmt.Fprintf(&sb, "%d,A\n", i)
	}

	r := newTestReader(t, sb.String(), Options{ChunkSize: 4})
	chunks := readAll(t, r)
	require.Len(t, chunks, 3)

	sizes := []int{4, 4, 2}
	offsets := []int64{0, 4, 8}
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, sizes[i], c.Len())
		assert.Equal(t, offsets[i], c.Offset)
		assert.Equal(t, []string{"id", "grade"}, c.Schema.Names())
	}
	assert.Equal(t, "8", chunks[2].Rows[0][wkk.NewRowKey("id")])

	_, err := r.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestCSVChunkReader_ExactMultiple(t *testing.T) {
	r := newTestReader(t, "id\n1\n2\n3\n4\n", Options{ChunkSize: 2})
	chunks := readAll(t, r)
	assert.Len(t, chunks, 2)
}

func TestCSVChunkReader_HeaderOnlyYieldsNoChunks(t *testing.T) {
	r := newTestReader(t, "id,term\n", Options{ChunkSize: 2})
	assert.Empty(t, readAll(t, r))
}

func TestCSVChunkReader_NullTokens(t *testing.T) {
	r := newTestReader(t, "a,b,c\nNA,,x\nNULL, nan ,y\n", Options{})
	chunks := readAll(t, r)
	require.Len(t, chunks, 1)

	a, b, c := wkk.NewRowKey("a"), wkk.NewRowKey("b"), wkk.NewRowKey("c")
	rows := chunks[0].Rows
	assert.Nil(t, rows[0][a])
	assert.Nil(t, rows[0][b])
	assert.Equal(t, "x", rows[0][c])
	assert.Nil(t, rows[1][a])
	assert.Nil(t, rows[1][b])
	assert.Equal(t, "y", rows[1][c])
}

func TestCSVChunkReader_CustomNullValues(t *testing.T) {
	r := newTestReader(t, "a\nNA\n-\n", Options{NullValues: []string{"-"}})
	chunks := readAll(t, r)
	require.Len(t, chunks, 1)
	a := wkk.NewRowKey("a")
	assert.Equal(t, "NA", chunks[0].Rows[0][a])
	assert.Nil(t, chunks[0].Rows[1][a])
}

func TestCSVChunkReader_MalformedRows(t *testing.T) {
	input := "a,b\n1,2\n3\n4,5\n6,7,8\n"

	t.Run("lenient skips and counts", func(t *testing.T) {
		r := newTestReader(t, input, Options{ChunkSize: 10})
		chunks := readAll(t, r)
		require.Len(t, chunks, 1)
		assert.Equal(t, 2, chunks[0].Len())
		assert.Equal(t, 2, chunks[0].DroppedRows)
	})

	t.Run("strict returns the error", func(t *testing.T) {
		r := newTestReader(t, input, Options{ChunkSize: 10, Strict: true})
		_, err := r.Next(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRowParse))

		var rerr *RowParseError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, 3, rerr.Line)
		assert.Equal(t, int64(1), rerr.Row)
		assert.Contains(t, rerr.Error(), "expected 2 fields, got 1")
	})
}

func TestCSVChunkReader_SkipAndLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id\n")
	for i := range 10 {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	r := newTestReader(t, sb.String(), Options{ChunkSize: 3, SkipRows: 2, Limit: 5})
	chunks := readAll(t, r)
	require.Len(t, chunks, 2)
	assert.Equal(t, int64(2), chunks[0].Offset)
	assert.Equal(t, 3, chunks[0].Len())
	assert.Equal(t, int64(5), chunks[1].Offset)
	assert.Equal(t, 2, chunks[1].Len())
	assert.Equal(t, "6", chunks[1].Rows[1][wkk.NewRowKey("id")])
}

func TestCSVChunkReader_ContextCanceled(t *testing.T) {
	r := newTestReader(t, "id\n1\n2\n", Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVChunkReader_CloseIsIdempotent(t *testing.T) {
	r, err := NewCSVChunkReader(io.NopCloser(strings.NewReader("id\n1\n")), Options{})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestHead(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id\n")
	for i := range 10 {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	r := newTestReader(t, sb.String(), Options{ChunkSize: 2})
	head, err := Head(context.Background(), r, 5)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, 5, head.Len())
	assert.Equal(t, "4", head.Rows[4][wkk.NewRowKey("id")])

	empty := newTestReader(t, "id\n", Options{})
	head, err = Head(context.Background(), empty, 5)
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestHead_NonPositiveCountReadsNothing(t *testing.T) {
	for _, n := range []int{0, -3} {
		r := newTestReader(t, "id\n1\n2\n", Options{})
		head, err := Head(context.Background(), r, n)
		require.NoError(t, err)
		assert.Nil(t, head)

		chunk, err := r.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, chunk.Len())
	}
}
