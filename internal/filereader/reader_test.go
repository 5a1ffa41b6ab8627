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
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

type failingReader struct {
	calls int
	err   error
}

func (f *failingReader) Next(ctx context.Context) (*pipeline.Chunk, error) {
	f.calls++
	if f.calls == 1 {
		return &pipeline.Chunk{Index: 0}, nil
	}
	return nil, f.err
}

func (f *failingReader) Close() error { return nil }

func TestChunks_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	r := &failingReader{err: boom}

	var got []error
	n := 0
	for chunk, err := range Chunks(context.Background(), r) {
		if err != nil {
			got = append(got, err)
			continue
		}
		n++
		assert.Equal(t, 0, chunk.Index)
	}
	assert.Equal(t, 1, n)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], boom)
	assert.Equal(t, 2, r.calls)
}

func TestChunks_EarlyBreak(t *testing.T) {
	r := NewSliceReader(&pipeline.Chunk{Index: 0}, &pipeline.Chunk{Index: 1}, &pipeline.Chunk{Index: 2})
	for chunk, err := range Chunks(context.Background(), r) {
		require.NoError(t, err)
		if chunk.Index == 1 {
			break
		}
	}
	c, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Index)
}

func TestSliceReader(t *testing.T) {
	r := NewSliceReader(&pipeline.Chunk{Index: 0})
	c, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Index)

	_, err = r.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
