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
	"cmp"
	"slices"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// KindCounts is the number of columns of each kind in one chunk.
type KindCounts struct {
	Numeric     int `json:"numeric"`
	Text        int `json:"text"`
	Categorical int `json:"categorical"`
	Date        int `json:"date"`
	Null        int `json:"null"`
}

// CountKinds tallies the column kinds of a schema.
func CountKinds(schema pipeline.Schema) KindCounts {
	var k KindCounts
	for _, col := range schema {
		switch col.Type.Kind() {
		case pipeline.KindNumeric:
			k.Numeric++
		case pipeline.KindText:
			k.Text++
		case pipeline.KindCategorical:
			k.Categorical++
		case pipeline.KindDate:
			k.Date++
		default:
			k.Null++
		}
	}
	return k
}

// ChunkKinds is the column kind tally of one chunk.
type ChunkKinds struct {
	Chunk int `json:"chunk"`
	KindCounts
}

type columnKinds struct{}

// ColumnKinds records the column kind tally of every chunk as a series ordered
// by chunk index.
func ColumnKinds() Statistic[[]ChunkKinds] {
	return columnKinds{}
}

func (columnKinds) Name() string { return "column_kinds" }

func (columnKinds) Zero() []ChunkKinds { return nil }

func (columnKinds) Partial(chunk *pipeline.Chunk) ([]ChunkKinds, error) {
	return []ChunkKinds{{Chunk: chunk.Index, KindCounts: CountKinds(chunk.Schema)}}, nil
}

func (columnKinds) Merge(acc, p []ChunkKinds) []ChunkKinds {
	acc = append(acc, p...)
	slices.SortStableFunc(acc, func(a, b ChunkKinds) int {
		return cmp.Compare(a.Chunk, b.Chunk)
	})
	return acc
}
