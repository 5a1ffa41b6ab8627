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

// Package filereader streams a delimited text source as bounded chunks of rows.
//
// # Overview
//
// A ChunkReader yields *pipeline.Chunk values of at most ChunkSize rows, in
// source order, until it returns io.EOF. Values are raw strings, or nil when
// the field matched one of the configured null tokens. Typing and
// optimization happen downstream in the transform package.
//
//	rc, err := filereader.Open("loan.csv.gz", "auto")
//	if err != nil {
//	    return err
//	}
//	reader, err := filereader.NewCSVChunkReader(rc, filereader.Options{ChunkSize: 3000})
//	if err != nil {
//	    return err
//	}
//	defer reader.Close()
//
//	for chunk, err := range filereader.Chunks(ctx, reader) {
//	    if err != nil {
//	        return err
//	    }
//	    // process chunk
//	}
//
// # Errors
//
// A source that cannot be opened, an unusable header, or an I/O failure while
// reading is a *SourceError and ends the pass. A single malformed row is a
// *RowParseError. By default such rows are skipped and counted in
// Chunk.DroppedRows; with Options.Strict the error is returned instead.
//
// A reader is single pass. Re-open the source to read it again.
package filereader
