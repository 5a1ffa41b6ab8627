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

package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "parquet-schema",
		Short: "Print out the schema of a Parquet file written by convert",
		RunE: func(c *cobra.Command, _ []string) error {
			filename, err := c.Flags().GetString("file")
			if err != nil {
				return fmt.Errorf("failed to get file flag: %w", err)
			}

			return runParquetSchema(c, filename)
		},
	}

	rootCmd.AddCommand(cmd)

	cmd.Flags().String("file", "", "Parquet file to read")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Errorf("failed to mark file flag as required: %w", err))
	}
}

func runParquetSchema(c *cobra.Command, filename string) error {
	fh, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		_ = fh.Close()
	}()

	st, err := fh.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	pf, err := parquet.OpenFile(fh, st.Size())
	if err != nil {
		return fmt.Errorf("failed to load schema for file %s: %w", filename, err)
	}

	out := c.OutOrStdout()
	_, _ = fmt.Fprintln(out, pf.Schema().String())
	_, _ = fmt.Fprintf(out, "rows: %s, row groups: %d, size: %s\n",
		humanize.Comma(pf.NumRows()), len(pf.RowGroups()), humanize.IBytes(uint64(st.Size())))

	return nil
}
