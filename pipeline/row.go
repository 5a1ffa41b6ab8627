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

import (
	"strconv"
	"time"

	"github.com/cardinalhq/chunkprofile/pipeline/wkk"
)

// DateLayout is the canonical rendering of date values.
const DateLayout = "2006-01-02"

// Row represents a single data row as a map of RowKey to any value.
// A nil value is a missing value.
type Row map[wkk.RowKey]any

// GetFloat64 retrieves a numeric value from the Row as float64.
// Returns the value and true if found and numeric, or 0 and false otherwise.
func (r Row) GetFloat64(key wkk.RowKey) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// IsNull reports whether the value for key is missing.
func (r Row) IsNull(key wkk.RowKey) bool {
	return r[key] == nil
}

// IsEmpty reports whether every value in the row is missing.
func (r Row) IsEmpty() bool {
	for _, v := range r {
		if v != nil {
			return false
		}
	}
	return true
}

// FormatValue renders a value as the key used for frequency tables and display.
// Missing values render as the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case Category:
		return x.String()
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(DateLayout)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
