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
	"slices"
	"time"

	"github.com/cardinalhq/chunkprofile/pipeline/wkk"
)

// MarshalJSON implements json.Marshaler for Row.
// Keys are emitted in sorted order so output is stable, missing values are
// emitted as null and dates use DateLayout.
func (r Row) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r))
	values := make(map[string]any, len(r))
	for k, v := range r {
		name := wkk.RowKeyValue(k)
		keys = append(keys, name)
		values[name] = v
	}
	slices.Sort(keys)

	buf := make([]byte, 0, 512)
	buf = append(buf, '{')
	for i, name := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '"')
		buf = appendEscapedString(buf, name)
		buf = append(buf, '"', ':')

		switch v := values[name].(type) {
		case string:
			buf = append(buf, '"')
			buf = appendEscapedString(buf, v)
			buf = append(buf, '"')
		case time.Time:
			buf = append(buf, '"')
			buf = append(buf, v.Format(DateLayout)...)
			buf = append(buf, '"')
		default:
			valueBytes, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf = append(buf, valueBytes...)
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

// appendEscapedString appends s to buf with JSON string escaping
func appendEscapedString(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			buf = append(buf, '\\', c)
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if c < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', hexDigit(c>>4), hexDigit(c&0xF))
			} else {
				buf = append(buf, c)
			}
		}
	}
	return buf
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + (n - 10)
}
