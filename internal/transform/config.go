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

package transform

import (
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// DefaultMaxCategories bounds the per-chunk dictionary of a categorical column.
const DefaultMaxCategories = 65535

// DefaultDateLayouts are tried in order when parsing date columns.
var DefaultDateLayouts = []string{
	"Jan-2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"Jan 2, 2006",
	"02-Jan-2006",
	"January 2006",
}

// Config describes the per-chunk optimization pass.
type Config struct {
	// Categorize lists text columns to encode against a per-chunk dictionary.
	Categorize []string
	// MaxCategories caps the dictionary size. Zero selects DefaultMaxCategories.
	MaxCategories int
	// SuffixStrip maps a column to a literal suffix removed before numeric parsing.
	SuffixStrip map[string]string
	// DateColumns are parsed with DateLayouts.
	DateColumns []string
	// DateLayouts are Go time layouts. Nil selects DefaultDateLayouts.
	DateLayouts []string
	// ColumnTypes pins a column to a type and skips inference for it.
	ColumnTypes map[string]pipeline.DataType
	// DropEmptyRows removes rows whose values are all missing after cleaning.
	DropEmptyRows bool
	// Strict returns coercion failures instead of nulling the field.
	Strict bool
}

// DefaultConfig returns a Config with no optimized columns.
func DefaultConfig() Config {
	return Config{
		MaxCategories: DefaultMaxCategories,
		DateLayouts:   slices.Clone(DefaultDateLayouts),
		DropEmptyRows: true,
	}
}

// Validate checks that every column is claimed by at most one optimization.
func (c Config) Validate() error {
	if c.MaxCategories < 0 {
		return fmt.Errorf("max categories must not be negative, got %d", c.MaxCategories)
	}

	claims := map[string]mapset.Set[string]{
		"categorize":   mapset.NewSet(c.Categorize...),
		"date_columns": mapset.NewSet(c.DateColumns...),
		"suffix_strip": mapset.NewSetFromMapKeys(c.SuffixStrip),
		"column_types": mapset.NewSetFromMapKeys(c.ColumnTypes),
	}
	names := []string{"categorize", "date_columns", "suffix_strip", "column_types"}
	for i, a := range names {
		for _, b := range names[i+1:] {
			if both := claims[a].Intersect(claims[b]); both.Cardinality() > 0 {
				overlap := both.ToSlice()
				slices.Sort(overlap)
				return fmt.Errorf("columns %s appear in both %s and %s", strings.Join(overlap, ", "), a, b)
			}
		}
	}

	for col, suffix := range c.SuffixStrip {
		if suffix == "" {
			return fmt.Errorf("suffix for column %s is empty", col)
		}
	}
	for col, dt := range c.ColumnTypes {
		if dt == pipeline.DataTypeUnknown || dt == pipeline.DataTypeNull {
			return fmt.Errorf("column %s cannot be pinned to type %s", col, dt)
		}
	}
	return nil
}
