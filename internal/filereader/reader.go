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
	"iter"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// ChunkReader is a single-pass producer of chunks.
type ChunkReader interface {
	// Next returns the next chunk, or io.EOF when the source is exhausted.
	Next(ctx context.Context) (*pipeline.Chunk, error)

	// Close releases the underlying source. It is safe to call more than once.
	Close() error
}

// Chunks adapts a ChunkReader to a range-over-func sequence. Iteration stops
// after the first error is yielded.
func Chunks(ctx context.Context, r ChunkReader) iter.Seq2[*pipeline.Chunk, error] {
	return func(yield func(*pipeline.Chunk, error) bool) {
		for {
			chunk, err := r.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// SliceReader replays a fixed list of chunks. It is useful to drive the
// aggregator from chunks already in memory.
type SliceReader struct {
	chunks []*pipeline.Chunk
	pos    int
}

var _ ChunkReader = (*SliceReader)(nil)

func NewSliceReader(chunks ...*pipeline.Chunk) *SliceReader {
	return &SliceReader{chunks: chunks}
}

func (r *SliceReader) Next(ctx context.Context) (*pipeline.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.chunks) {
		return nil, io.EOF
	}
	c := r.chunks[r.pos]
	r.pos++
	return c, nil
}

func (r *SliceReader) Close() error {
	r.pos = len(r.chunks)
	return nil
}
