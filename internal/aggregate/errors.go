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
	"errors"
	"fmt"
	"strings"
)

// ErrConsistency matches any ConsistencyError.
var ErrConsistency = errors.New("consistency error")

// ConsistencyError reports a chunk whose column set has diverged from the
// reference, or that lacks a column a statistic was declared over.
type ConsistencyError struct {
	// Chunk is the index of the offending chunk.
	Chunk int
	// Kind names the compared column kinds, or "declared" for a statistic's columns.
	Kind string
	// Expected are the reference column names in order.
	Expected []string
	// Actual are the chunk's column names in order.
	Actual []string
	// Added are columns present in the chunk but not the reference.
	Added []string
	// Removed are columns present in the reference but not the chunk.
	Removed []string
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: chunk %d: %s columns differ from reference", ErrConsistency, e.Chunk, e.Kind)
	if len(e.Added) > 0 {
		fmt.Fprintf(&b, ", added [%s]", strings.Join(e.Added, ", "))
	}
	if len(e.Removed) > 0 {
		fmt.Fprintf(&b, ", removed [%s]", strings.Join(e.Removed, ", "))
	}
	if len(e.Added) == 0 && len(e.Removed) == 0 {
		b.WriteString(", order changed")
	}
	return b.String()
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}
