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

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// Head collects the first n rows of r into a single chunk. The returned chunk
// is nil if the source has no data rows or n is not positive, in which case
// r is not read.
func Head(ctx context.Context, r ChunkReader, n int) (*pipeline.Chunk, error) {
	if n <= 0 {
		return nil, nil
	}
	var out *pipeline.Chunk
	for out == nil || out.Len() < n {
		chunk, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = chunk.Derive(chunk.Schema, make([]pipeline.Row, 0, n))
		} else {
			out.DroppedRows += chunk.DroppedRows
		}
		need := n - out.Len()
		if need > chunk.Len() {
			need = chunk.Len()
		}
		out.Rows = append(out.Rows, chunk.Rows[:need]...)
	}
	return out, nil
}
