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

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// SequentialReader reads from multiple chunk readers sequentially in the order provided.
// Chunk indexes and row offsets are renumbered so the sources read as one dataset.
type SequentialReader struct {
	readers      []ChunkReader
	currentIndex int
	closed       bool
	nextIndex    int
	baseOffset   int64
	endOffset    int64
}

var _ ChunkReader = (*SequentialReader)(nil)

// NewSequentialReader creates a new SequentialReader that reads from the provided readers sequentially.
// Readers will be closed when the SequentialReader is closed.
func NewSequentialReader(readers ...ChunkReader) (*SequentialReader, error) {
	if len(readers) == 0 {
		return nil, errors.New("at least one reader is required")
	}
	for i, reader := range readers {
		if reader == nil {
			return nil, fmt.Errorf("reader at index %d is nil", i)
		}
	}
	return &SequentialReader{readers: readers}, nil
}

// Next returns the next chunk of the current reader, advancing to the next
// reader when the current one is exhausted.
func (sr *SequentialReader) Next(ctx context.Context) (*pipeline.Chunk, error) {
	if sr.closed {
		return nil, errors.New("reader is closed")
	}
	for sr.currentIndex < len(sr.readers) {
		chunk, err := sr.readers[sr.currentIndex].Next(ctx)
		if errors.Is(err, io.EOF) {
			sr.currentIndex++
			sr.baseOffset = sr.endOffset
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error reading from reader %d: %w", sr.currentIndex, err)
		}

		chunk.Index = sr.nextIndex
		chunk.Offset += sr.baseOffset
		sr.nextIndex++
		if end := chunk.Offset + int64(chunk.Len()+chunk.DroppedRows); end > sr.endOffset {
			sr.endOffset = end
		}
		return chunk, nil
	}
	return nil, io.EOF
}

// Close closes all underlying readers and releases resources.
func (sr *SequentialReader) Close() error {
	if sr.closed {
		return nil
	}
	sr.closed = true

	var errs *multierror.Error
	for i, reader := range sr.readers {
		if err := reader.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to close reader %d: %w", i, err))
		}
	}
	return errs.ErrorOrNil()
}
