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

import "time"

const (
	numericSlotBytes = 8  // int64 / float64, also the null slot of a numeric column
	stringHeadBytes  = 16 // pointer + length
	dateSlotBytes    = 24 // time.Time
)

// EstimateMemory computes a deep size estimate of rows laid out as columns of
// the given schema. Numeric columns cost a fixed slot per row, text columns
// a string header plus the bytes of the value, categorical columns one code per
// row plus their dictionary, and date columns one time.Time per row. Values
// that do not match the declared column type are sized by their own type.
func EstimateMemory(schema Schema, rows []Row) int64 {
	var total int64
	values := make([]any, len(rows))
	for _, col := range schema {
		key := col.Key()
		for i, row := range rows {
			values[i] = row[key]
		}
		total += EstimateColumnMemory(col.Type, values)
	}
	return total
}

// EstimateColumnMemory is EstimateMemory for a single column of values.
func EstimateColumnMemory(declared DataType, values []any) int64 {
	var total int64
	var dict *Dictionary
	for _, v := range values {
		if c, ok := v.(Category); ok && dict == nil {
			dict = c.Dictionary()
		}
		total += valueBytes(declared, v)
	}
	if dict != nil {
		total += dictionaryBytes(dict)
	}
	return total
}

func valueBytes(declared DataType, v any) int64 {
	switch x := v.(type) {
	case nil:
		return nullBytes(declared)
	case string:
		return stringHeadBytes + int64(len(x))
	case Category:
		if x.dict == nil {
			return 1
		}
		return int64(x.dict.CodeWidth())
	case int64, float64, int:
		return numericSlotBytes
	case time.Time:
		return dateSlotBytes
	case bool:
		return 1
	default:
		return stringHeadBytes
	}
}

func nullBytes(declared DataType) int64 {
	switch declared {
	case DataTypeString:
		return stringHeadBytes
	case DataTypeCategory:
		return 1
	case DataTypeDate:
		return dateSlotBytes
	default:
		return numericSlotBytes
	}
}

func dictionaryBytes(d *Dictionary) int64 {
	var n int64
	for _, label := range d.labels {
		n += stringHeadBytes + int64(len(label))
	}
	return n
}
