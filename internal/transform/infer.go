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
	"strconv"
	"strings"
	"time"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// valueClass is the narrowest type a single value can be read as.
type valueClass int

const (
	classNull valueClass = iota
	classInt
	classFloat
	classString
)

func classify(v any) valueClass {
	switch x := v.(type) {
	case nil:
		return classNull
	case int64, int:
		return classInt
	case float64:
		return classFloat
	case string:
		s := strings.TrimSpace(x)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return classInt
		}
		if _, err := parseDecimal(s); err == nil {
			return classFloat
		}
		return classString
	default:
		return classString
	}
}

// inferType picks the type a default loader would assign to a column.
// Any text makes the column String, any fractional number Float64, and a
// column with no values at all is Null.
func inferType(values []any) pipeline.DataType {
	widest := classNull
	for _, v := range values {
		if c := classify(v); c > widest {
			widest = c
			if widest == classString {
				break
			}
		}
	}
	switch widest {
	case classInt:
		return pipeline.DataTypeInt64
	case classFloat:
		return pipeline.DataTypeFloat64
	case classString:
		return pipeline.DataTypeString
	default:
		return pipeline.DataTypeNull
	}
}

// inferNumeric is inferType restricted to numbers, used after suffix stripping.
func inferNumeric(values []any) pipeline.DataType {
	dt := pipeline.DataTypeNull
	for _, v := range values {
		switch v.(type) {
		case int64:
			if dt == pipeline.DataTypeNull {
				dt = pipeline.DataTypeInt64
			}
		case float64:
			return pipeline.DataTypeFloat64
		}
	}
	return dt
}

// convert coerces an inferred value to dt. The value is known to classify as
// dt or narrower, so conversion cannot fail.
func convert(v any, dt pipeline.DataType) any {
	if v == nil {
		return nil
	}
	switch dt {
	case pipeline.DataTypeInt64:
		switch x := v.(type) {
		case int64:
			return x
		case int:
			return int64(x)
		case string:
			n, _ := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			return n
		}
	case pipeline.DataTypeFloat64:
		switch x := v.(type) {
		case float64:
			return x
		case int64:
			return float64(x)
		case int:
			return float64(x)
		case string:
			f, _ := parseDecimal(strings.TrimSpace(x))
			return f
		}
	case pipeline.DataTypeString:
		if s, ok := v.(string); ok {
			return s
		}
		return pipeline.FormatValue(v)
	}
	return nil
}

// parseNumber reads s as int64 when integral, else as float64.
func parseNumber(s string) (any, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := parseDecimal(s)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// parseDecimal is strconv.ParseFloat limited to plain decimal and exponent
// forms. Words such as "Inf" or "nan" and hex floats are not numbers here.
func parseDecimal(s string) (float64, error) {
	digits := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits = true
		case c == '+', c == '-', c == '.', c == 'e', c == 'E':
		default:
			return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
		}
	}
	if !digits {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
