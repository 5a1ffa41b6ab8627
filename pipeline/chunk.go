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

package pipeline

// Chunk is a bounded, contiguous slice of rows read from a tabular source.
// Chunks are produced lazily and are not retained once their partial
// statistics have been computed.
type Chunk struct {
	// Index is the 0-based arrival order of the chunk.
	Index int
	// Offset is the 0-based data row offset of the first row in the source.
	Offset int64
	// Schema lists the columns in header order.
	Schema Schema
	Rows   []Row

	// RawBytes is the deep memory estimate of the chunk before optimization.
	RawBytes int64
	// DroppedRows counts malformed source rows skipped while filling the chunk.
	DroppedRows int
	// EmptyRows counts rows removed because every value was missing.
	EmptyRows int
	// ParseErrors counts fields that failed coercion and were set to missing.
	ParseErrors int
}

// Len returns the number of rows in the chunk.
func (c *Chunk) Len() int {
	return len(c.Rows)
}

// Values returns the values of one column in row order.
func (c *Chunk) Values(name string) []any {
	key := Column{Name: name}.Key()
	out := make([]any, len(c.Rows))
	for i, row := range c.Rows {
		out[i] = row[key]
	}
	return out
}

// MemoryUsage returns the deep memory estimate of the chunk in its current form.
func (c *Chunk) MemoryUsage() int64 {
	return EstimateMemory(c.Schema, c.Rows)
}

// Derive returns a chunk with the same position and counters but new rows and schema.
func (c *Chunk) Derive(schema Schema, rows []Row) *Chunk {
	out := *c
	out.Schema = schema
	out.Rows = rows
	return &out
}
