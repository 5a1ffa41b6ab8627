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
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// SchemaChecker verifies that successive chunks agree on their column sets for
// the checked kinds. The first observed schema becomes the reference unless one
// was set with Expect.
//
// A column that is all missing in a chunk has no kind and is compatible with
// any kind. A reference column without a kind takes the first kind observed
// for it later.
type SchemaChecker struct {
	kinds     []pipeline.Kind
	reference pipeline.Schema
}

// NewSchemaChecker returns a checker over the given kinds, text by default.
func NewSchemaChecker(kinds ...pipeline.Kind) *SchemaChecker {
	if len(kinds) == 0 {
		kinds = []pipeline.Kind{pipeline.KindText}
	}
	return &SchemaChecker{kinds: kinds}
}

// Expect sets the reference schema before any chunk is observed.
func (c *SchemaChecker) Expect(schema pipeline.Schema) {
	c.reference = schema.Clone()
}

// Reference returns the current reference schema, nil before the first chunk.
func (c *SchemaChecker) Reference() pipeline.Schema {
	return c.reference
}

func (c *SchemaChecker) kindLabel() string {
	labels := make([]string, len(c.kinds))
	for i, k := range c.kinds {
		labels[i] = k.String()
	}
	return strings.Join(labels, "+")
}

func (c *SchemaChecker) checked(k pipeline.Kind) bool {
	return slices.Contains(c.kinds, k)
}

// Observe compares a chunk against the reference and returns a
// *ConsistencyError when they diverge. The reference is only updated when the
// chunk is consistent.
func (c *SchemaChecker) Observe(chunk *pipeline.Chunk) error {
	if c.reference == nil {
		c.reference = chunk.Schema.Clone()
		return nil
	}

	refKinds := make(map[string]pipeline.Kind, len(c.reference))
	for _, col := range c.reference {
		refKinds[col.Name] = col.Type.Kind()
	}
	chunkKinds := make(map[string]pipeline.Kind, len(chunk.Schema))
	for _, col := range chunk.Schema {
		chunkKinds[col.Name] = col.Type.Kind()
	}

	// A kindless column on either side takes the kind of the other side.
	var expected []string
	for _, col := range c.reference {
		k := col.Type.Kind()
		if k == pipeline.KindNull {
			k = chunkKinds[col.Name]
		}
		if c.checked(k) {
			expected = append(expected, col.Name)
		}
	}
	var actual []string
	for _, col := range chunk.Schema {
		k := col.Type.Kind()
		if k == pipeline.KindNull {
			k = refKinds[col.Name]
		}
		if c.checked(k) {
			actual = append(actual, col.Name)
		}
	}

	if !slices.Equal(expected, actual) {
		exp := mapset.NewSet(expected...)
		act := mapset.NewSet(actual...)
		added := act.Difference(exp).ToSlice()
		removed := exp.Difference(act).ToSlice()
		slices.Sort(added)
		slices.Sort(removed)
		return &ConsistencyError{
			Chunk:    chunk.Index,
			Kind:     c.kindLabel(),
			Expected: expected,
			Actual:   actual,
			Added:    added,
			Removed:  removed,
		}
	}

	for i, col := range c.reference {
		if col.Type.Kind() != pipeline.KindNull {
			continue
		}
		if obs, ok := chunk.Schema.Lookup(col.Name); ok && obs.Type.Kind() != pipeline.KindNull {
			c.reference[i].Type = obs.Type
		}
	}
	return nil
}

// CheckSchemaConsistency runs a SchemaChecker over chunks and returns the
// reference schema, or the first divergence found.
func CheckSchemaConsistency(chunks []*pipeline.Chunk, kinds ...pipeline.Kind) (pipeline.Schema, error) {
	checker := NewSchemaChecker(kinds...)
	for _, chunk := range chunks {
		if err := checker.Observe(chunk); err != nil {
			return checker.Reference(), err
		}
	}
	return checker.Reference(), nil
}
