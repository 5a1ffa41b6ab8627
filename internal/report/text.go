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

package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// textWriter keeps the first write error so sections can be written without
// checking every call.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	n, err := t.w.Write(p)
	t.err = err
	return n, err
}

func (t *textWriter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t, format, args...)
}

func (t *textWriter) section(title string) {
	t.printf("\n== %s ==\n", title)
}

func (t *textWriter) table(header []string, rows [][]string) {
	tw := tablewriter.NewWriter(t)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
}

func bytesLabel(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func megabytes(n int64) string {
	return strconv.FormatFloat(float64(n)/(1024*1024), 'f', 2, 64) + " MB"
}

// WriteText renders the report as console tables.
func WriteText(w io.Writer, r *Report, opts Options) error {
	t := &textWriter{w: w}

	if r.RunID != "" {
		t.printf("run %s", r.RunID)
		if r.Source != "" {
			t.printf(" source %s", r.Source)
		}
		t.printf("\n")
	}

	t.section("Rows")
	t.printf("total rows: %s in %d chunks\n", humanize.Comma(r.TotalRows), r.Chunks)
	if r.DroppedRows > 0 || r.EmptyRows > 0 || r.ParseErrors > 0 {
		t.printf("dropped malformed rows: %s, empty rows: %s, coercion failures: %s\n",
			humanize.Comma(r.DroppedRows), humanize.Comma(r.EmptyRows), humanize.Comma(r.ParseErrors))
	}
	if r.Incomplete {
		t.printf("WARNING: result is incomplete, %d chunks skipped and %d rows dropped\n", len(r.Skipped), r.DroppedRows)
	}
	for _, s := range r.Skipped {
		t.printf("  skipped chunk %d (rows %d-%d): %s\n", s.Index, s.Offset, s.Offset+int64(s.Rows), s.Reason)
	}

	t.section("Memory usage")
	rows := make([][]string, 0, len(r.ChunkMemory))
	for _, c := range r.ChunkMemory {
		rows = append(rows, []string{strconv.Itoa(c.Index), humanize.Comma(int64(c.Rows)), bytesLabel(c.RawBytes), bytesLabel(c.Bytes)})
	}
	t.table([]string{"chunk", "rows", "raw", "optimized"}, rows)
	t.printf("total memory: raw %s (%s), optimized %s (%s)\n",
		bytesLabel(r.RawBytes), megabytes(r.RawBytes), bytesLabel(r.Bytes), megabytes(r.Bytes))

	t.section("Column types per chunk")
	rows = rows[:0]
	for _, k := range r.ColumnKinds {
		rows = append(rows, []string{
			strconv.Itoa(k.Chunk), strconv.Itoa(k.Numeric), strconv.Itoa(k.Text),
			strconv.Itoa(k.Categorical), strconv.Itoa(k.Date), strconv.Itoa(k.Null),
		})
	}
	t.table([]string{"chunk", "numeric", "text", "categorical", "date", "empty"}, rows)

	t.section("String columns")
	if r.StringColumnsConsistent {
		t.printf("consistent across chunks: %v\n", r.StringColumns)
	} else {
		t.printf("NOT consistent across chunks, reference: %v\n", r.StringColumns)
	}

	t.section(fmt.Sprintf("Columns with fewer than %d unique values", r.UniqueThreshold))
	for _, cv := range r.LowCardinality {
		writeValues(t, cv, opts.TopValues)
	}

	if len(r.UsefulColumns) > 0 {
		t.section("Value counts")
		for _, cv := range r.UsefulColumns {
			writeValues(t, cv, opts.TopValues)
		}
	}

	t.section("Missing values")
	rows = rows[:0]
	for _, m := range r.MissingValues {
		rows = append(rows, []string{m.Value, humanize.Comma(m.Count)})
	}
	t.table([]string{"column", "missing"}, rows)

	t.section("Optimized dtypes")
	rows = rows[:0]
	for _, c := range r.Dtypes {
		rows = append(rows, []string{c.Name, c.Type.String()})
	}
	t.table([]string{"column", "dtype"}, rows)

	t.section("Sketches")
	header := []string{"column", "distinct (est)"}
	for _, q := range r.QuantileLevels {
		header = append(header, "p"+strconv.FormatFloat(q*100, 'g', 4, 64))
	}
	rows = rows[:0]
	for _, s := range r.Sketches {
		row := []string{s.Column, humanize.Comma(int64(s.Distinct))}
		for i := range r.QuantileLevels {
			if i < len(s.Quantiles) {
				row = append(row, pipeline.FormatValue(s.Quantiles[i]))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	t.table(header, rows)

	return t.err
}

func writeValues(t *textWriter, cv ColumnValues, top int) {
	t.printf("%s (%d distinct, %s missing)\n", cv.Column, cv.Distinct, humanize.Comma(cv.Nulls))
	values := cv.Values
	if top > 0 && len(values) > top {
		values = values[:top]
	}
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		rows = append(rows, []string{v.Value, humanize.Comma(v.Count)})
	}
	t.table([]string{"value", "count"}, rows)
	if len(values) < len(cv.Values) {
		t.printf("... %d more\n", len(cv.Values)-len(values))
	}
}
