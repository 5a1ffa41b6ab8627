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
	"io"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/chunkprofile/config"
	"github.com/cardinalhq/chunkprofile/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "profile [file...]",
		Short: "Profile a CSV file and print the dataset-wide report",
		Long: `Read the files in chunks and print total rows, memory before and after type
optimization, per-chunk column kinds, low-cardinality text columns, value counts
of the useful columns, missing values of numeric columns, the optimized dtypes
and sketch estimates. Several files are profiled as one dataset. With no file,
stdin is read.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return runProfile(c, cfg, args)
		},
	}

	addInputFlags(cmd)
	addPassFlags(cmd)
	addReportFlags(cmd)
	rootCmd.AddCommand(cmd)
}

func runProfile(c *cobra.Command, cfg *config.Config, paths []string) error {
	ctx, shutdown, err := setupTelemetry(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() { _ = shutdown() }()

	res, profile, err := runPass(ctx, cfg, paths, nil)
	if err != nil {
		return err
	}
	return writeReport(c.OutOrStdout(), cfg, buildReport(ctx, cfg, paths, res, profile))
}

func writeReport(w io.Writer, cfg *config.Config, r *report.Report) error {
	if cfg.Report.Format == "json" {
		return report.WriteJSON(w, r)
	}
	return report.WriteText(w, r, cfg.ReportOptions())
}
