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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/chunkprofile/config"
	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/internal/logctx"
	"github.com/cardinalhq/chunkprofile/internal/transform"
	"github.com/cardinalhq/chunkprofile/pipeline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "head [file...]",
		Short: "Print the first rows of a CSV file",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			rows, err := c.Flags().GetInt("rows")
			if err != nil {
				return fmt.Errorf("failed to get rows flag: %w", err)
			}
			if rows <= 0 {
				return fmt.Errorf("rows must be positive, got %d", rows)
			}
			optimize, err := c.Flags().GetBool("optimize")
			if err != nil {
				return fmt.Errorf("failed to get optimize flag: %w", err)
			}
			asJSON, err := c.Flags().GetBool("json")
			if err != nil {
				return fmt.Errorf("failed to get json flag: %w", err)
			}
			return runHead(c, cfg, args, rows, optimize, asJSON)
		},
	}

	addInputFlags(cmd)
	cmd.Flags().IntP("rows", "n", 5, "Number of rows to print")
	cmd.Flags().Bool("optimize", false, "Apply the configured type optimization before printing")
	cmd.Flags().Bool("json", false, "Print one JSON object per row")
	rootCmd.AddCommand(cmd)
}

func runHead(c *cobra.Command, cfg *config.Config, paths []string, n int, optimize, asJSON bool) error {
	ctx, shutdown, err := setupTelemetry(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() { _ = shutdown() }()

	source, err := openSources(ctx, paths, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	chunk, err := filereader.Head(ctx, source, n)
	if err != nil {
		return err
	}
	if chunk == nil {
		logctx.FromContext(ctx).Info("Source has no data rows")
		return nil
	}

	if optimize {
		tc, err := cfg.TransformConfig()
		if err != nil {
			return err
		}
		tr, err := transform.New(tc)
		if err != nil {
			return err
		}
		if chunk, err = tr.Apply(chunk); err != nil {
			return err
		}
	}
	if chunk.DroppedRows > 0 {
		logctx.FromContext(ctx).Warn("Skipped malformed rows", slog.Int("droppedRows", chunk.DroppedRows))
	}

	if asJSON {
		return writeRowsJSON(c.OutOrStdout(), chunk)
	}
	writeRowsTable(c.OutOrStdout(), chunk, optimize)
	return nil
}

func writeRowsJSON(w io.Writer, chunk *pipeline.Chunk) error {
	enc := json.NewEncoder(w)
	for _, row := range chunk.Rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

// writeRowsTable prints rows in header order. Typed headers show the column type.
func writeRowsTable(w io.Writer, chunk *pipeline.Chunk, typed bool) {
	header := make([]string, len(chunk.Schema))
	for i, col := range chunk.Schema {
		header[i] = col.Name
		if typed {
			header[i] = col.Name + " (" + col.Type.String() + ")"
		}
	}

	rows := make([][]string, len(chunk.Rows))
	for i, row := range chunk.Rows {
		rec := make([]string, len(chunk.Schema))
		for j, col := range chunk.Schema {
			if v := row[col.Key()]; v == nil {
				rec[j] = "NaN"
			} else {
				rec[j] = pipeline.FormatValue(v)
			}
		}
		rows[i] = rec
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}
