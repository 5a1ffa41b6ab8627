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

package filereader

import (
	"errors"
	"fmt"
)

var (
	// ErrSource matches any SourceError.
	ErrSource = errors.New("source error")
	// ErrRowParse matches any RowParseError.
	ErrRowParse = errors.New("row parse error")
)

// SourceError reports a source that cannot be opened, or one that is malformed
// at the framing level. It is always fatal to the pass.
type SourceError struct {
	// Path of the source, empty for stdin or in-memory readers.
	Path string
	// Reason describes what went wrong
	Reason string
	// Err is the underlying error if any
	Err error
}

func (e *SourceError) Error() string {
	where := e.Path
	if where == "" {
		where = "<stream>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrSource, where, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", ErrSource, where, e.Reason)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func (e *SourceError) Is(target error) bool {
	return target == ErrSource
}

// RowParseError reports a single row or field that could not be read or coerced.
// It is recovered locally unless strict mode is configured.
type RowParseError struct {
	// Line is the 1-based line in the source, 0 when unknown.
	Line int
	// Row is the 0-based data row offset in the source, -1 when unknown.
	Row int64
	// Column is set when a single field failed.
	Column string
	// Value is the offending raw value, if any.
	Value string
	// Reason describes what went wrong
	Reason string
	// Err is the underlying error if any
	Err error
}

func (e *RowParseError) Error() string {
	msg := fmt.Sprintf("%s: line %d", ErrRowParse, e.Line)
	if e.Line == 0 && e.Row >= 0 {
		msg = fmt.Sprintf("%s: row %d", ErrRowParse, e.Row)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(": column %q value %q", e.Column, e.Value)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *RowParseError) Unwrap() error {
	return e.Err
}

func (e *RowParseError) Is(target error) bool {
	return target == ErrRowParse
}
