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
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/chunkprofile/config"
	"github.com/cardinalhq/chunkprofile/internal/logctx"
	"github.com/cardinalhq/chunkprofile/internal/parquetexport"
)

func init() {
	cmd := &cobra.Command{
		Use:   "convert [file...]",
		Short: "Write the optimized dataset to a Parquet file",
		Long: `Read the files in chunks, optimize each chunk and stream the merged chunks
into one Parquet file. The file schema is fixed by the first chunk. Chunks
skipped for inconsistent columns are not written. The profile report can be
printed as well.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			output, err := c.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("failed to get output flag: %w", err)
			}
			withReport, err := c.Flags().GetBool("report")
			if err != nil {
				return fmt.Errorf("failed to get report flag: %w", err)
			}
			return runConvert(c, cfg, args, output, withReport)
		},
	}

	addInputFlags(cmd)
	addPassFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Parquet file to write")
	cmd.Flags().Bool("report", false, "Also print the profile report")
	if err := cmd.MarkFlagRequired("output"); err != nil {
		panic(fmt.Errorf("failed to mark output flag as required: %w", err))
	}
	rootCmd.AddCommand(cmd)
}

func runConvert(c *cobra.Command, cfg *config.Config, paths []string, output string, withReport bool) (err error) {
	ctx, shutdown, err := setupTelemetry(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() { _ = shutdown() }()

	exportOpts, err := cfg.ExportOptions()
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(output)
		}
	}()

	buf := bufio.NewWriterSize(f, 1<<20)
	pw := parquetexport.NewWriter(buf, exportOpts)

	res, profile, err := runPass(ctx, cfg, paths, pw.WriteChunk)
	if err != nil {
		return err
	}
	if err = pw.Close(); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", output, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", output, err)
	}

	var size int64
	if st, serr := os.Stat(output); serr == nil {
		size = st.Size()
	}
	logctx.FromContext(ctx).Info("Wrote parquet file",
		slog.String("path", output),
		slog.Int64("rows", pw.Rows()),
		slog.String("size", humanize.IBytes(uint64(size))))

	if withReport {
		return writeReport(c.OutOrStdout(), cfg, buildReport(ctx, cfg, paths, res, profile))
	}
	return nil
}
