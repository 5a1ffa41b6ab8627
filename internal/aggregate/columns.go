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

// selectColumns resolves the columns a keyed statistic runs over. Declared
// columns must all be present in the chunk. With no declared columns, every
// chunk column of the given kinds is used.
func selectColumns(chunk *pipeline.Chunk, declared []string, kinds ...pipeline.Kind) (pipeline.Schema, error) {
	if len(declared) == 0 {
		return chunk.Schema.OfKind(kinds...), nil
	}

	out := make(pipeline.Schema, 0, len(declared))
	var missing []string
	for _, name := range declared {
		col, ok := chunk.Schema.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, col)
	}
	if len(missing) > 0 {
		return nil, &ConsistencyError{
			Chunk:    chunk.Index,
			Kind:     "declared",
			Expected: declared,
			Actual:   chunk.Schema.Names(),
			Removed:  missing,
		}
	}
	return out, nil
}

// presentColumns returns the declared columns the chunk has, in declared order.
func presentColumns(chunk *pipeline.Chunk, declared []string) pipeline.Schema {
	out := make(pipeline.Schema, 0, len(declared))
	for _, name := range declared {
		if col, ok := chunk.Schema.Lookup(name); ok {
			out = append(out, col)
		}
	}
	return out
}
