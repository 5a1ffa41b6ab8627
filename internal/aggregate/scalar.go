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
	"github.com/cardinalhq/chunkprofile/pipeline"
)

// sum is an int64 statistic with an additive merge.
type sum struct {
	name    string
	extract func(*pipeline.Chunk) int64
}

func (s sum) Name() string { return s.name }

func (s sum) Zero() int64 { return 0 }

func (s sum) Partial(chunk *pipeline.Chunk) (int64, error) {
	return s.extract(chunk), nil
}

func (s sum) Merge(acc, p int64) int64 { return acc + p }

// RowCount counts the rows of each chunk.
func RowCount() Statistic[int64] {
	return sum{name: "row_count", extract: func(c *pipeline.Chunk) int64 { return int64(c.Len()) }}
}

// MemoryUsage sums the deep memory estimate of the optimized chunks.
func MemoryUsage() Statistic[int64] {
	return sum{name: "memory_usage", extract: (*pipeline.Chunk).MemoryUsage}
}

// RawMemoryUsage sums the deep memory estimate of the chunks before optimization.
func RawMemoryUsage() Statistic[int64] {
	return sum{name: "raw_memory_usage", extract: func(c *pipeline.Chunk) int64 { return c.RawBytes }}
}
