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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cardinalhq/chunkprofile/pipeline/wkk"
)

type DataType int

const (
	DataTypeUnknown DataType = iota // Unknown/uninitialized type - should not be used
	DataTypeNull                    // No non-null value seen in the chunk
	DataTypeString
	DataTypeInt64
	DataTypeFloat64
	DataTypeCategory
	DataTypeDate
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeNull:
		return "null"
	case DataTypeString:
		return "string"
	case DataTypeInt64:
		return "int64"
	case DataTypeFloat64:
		return "float64"
	case DataTypeCategory:
		return "category"
	case DataTypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// ParseDataType maps a configuration name to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "object":
		return DataTypeString, nil
	case "int", "int64", "integer":
		return DataTypeInt64, nil
	case "float", "float64", "number", "numeric":
		return DataTypeFloat64, nil
	case "category", "categorical":
		return DataTypeCategory, nil
	case "date", "datetime":
		return DataTypeDate, nil
	}
	return DataTypeUnknown, fmt.Errorf("unknown data type %q", s)
}

func (dt DataType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// Kind groups data types the way column sets are compared across chunks.
type Kind int

const (
	KindNull Kind = iota
	KindNumeric
	KindText
	KindCategorical
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindCategorical:
		return "categorical"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number":
		return KindNumeric, nil
	case "text", "string":
		return KindText, nil
	case "categorical", "category":
		return KindCategorical, nil
	case "date":
		return KindDate, nil
	}
	return KindNull, fmt.Errorf("unknown column kind %q", s)
}

func (dt DataType) Kind() Kind {
	switch dt {
	case DataTypeInt64, DataTypeFloat64:
		return KindNumeric
	case DataTypeString:
		return KindText
	case DataTypeCategory:
		return KindCategorical
	case DataTypeDate:
		return KindDate
	default:
		return KindNull
	}
}

// Column is a named, typed column of a chunk.
type Column struct {
	Name string   `json:"name"`
	Type DataType `json:"type"`
}

func (c Column) Key() wkk.RowKey {
	return wkk.NewRowKey(c.Name)
}

// Schema is the ordered column list of a chunk, in header order.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the column with the given name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// OfKind returns the columns whose type belongs to any of the given kinds.
func (s Schema) OfKind(kinds ...Kind) Schema {
	var out Schema
	for _, c := range s {
		k := c.Type.Kind()
		for _, want := range kinds {
			if k == want {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Clone returns a copy that can be modified independently.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

// Dictionary is the per-chunk vocabulary of a categorical column.
type Dictionary struct {
	labels []string
	index  map[string]uint32
}

func NewDictionary() *Dictionary {
	return &Dictionary{index: make(map[string]uint32)}
}

// Encode returns the code for label, adding it if unseen.
func (d *Dictionary) Encode(label string) Category {
	code, ok := d.index[label]
	if !ok {
		code = uint32(len(d.labels))
		d.labels = append(d.labels, label)
		d.index[label] = code
	}
	return Category{Code: code, dict: d}
}

func (d *Dictionary) Len() int {
	return len(d.labels)
}

func (d *Dictionary) Labels() []string {
	return d.labels
}

// CodeWidth is the number of bytes needed to store one code.
func (d *Dictionary) CodeWidth() int {
	switch n := len(d.labels); {
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}

// Category is a dictionary-encoded text value.
type Category struct {
	Code uint32
	dict *Dictionary
}

func (c Category) String() string {
	if c.dict == nil || int(c.Code) >= len(c.dict.labels) {
		return ""
	}
	return c.dict.labels[c.Code]
}

func (c Category) Dictionary() *Dictionary {
	return c.dict
}

func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}
