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

	"github.com/spf13/cobra"

	"github.com/cardinalhq/chunkprofile/config"
)

func addInputFlags(c *cobra.Command) {
	f := c.Flags()
	f.Int("chunk-size", 0, "Rows per chunk (default from config, 3000)")
	f.String("delimiter", "", "Field delimiter")
	f.String("compression", "", "Input compression: auto, none, gzip, bzip2 or zstd")
	f.Bool("strict", false, "Fail on malformed rows and unparsable values instead of skipping them")
	f.Int64("skip-rows", 0, "Data rows to skip before the first chunk")
	f.Int64("limit", 0, "Stop after this many rows")
}

func addPassFlags(c *cobra.Command) {
	f := c.Flags()
	f.String("on-mismatch", "", "What to do with a chunk whose columns differ: abort or skip")
	f.Int("workers", 0, "Chunks transformed concurrently")
}

func addReportFlags(c *cobra.Command) {
	f := c.Flags()
	f.String("format", "", "Report format: text or json")
	f.Int("top", -1, "Values printed per column in text reports, 0 prints all")
	f.Int("unique-threshold", 0, "List text columns with fewer distinct values than this")
}

// setFlag copies a flag into dst when it was given on the command line.
func setFlag[T any](c *cobra.Command, name string, get func(string) (T, error), dst *T) error {
	if !c.Flags().Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	*dst = v
	return nil
}

// loadConfig reads the config named by --config, applies command line
// overrides and validates the result.
func loadConfig(c *cobra.Command) (*config.Config, error) {
	f := c.Flags()
	path, err := f.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	for _, err := range []error{
		setFlag(c, "log-file", f.GetString, &cfg.Log.File),
		setFlag(c, "debug", f.GetBool, &cfg.Log.Debug),
		setFlag(c, "chunk-size", f.GetInt, &cfg.Input.ChunkSize),
		setFlag(c, "delimiter", f.GetString, &cfg.Input.Delimiter),
		setFlag(c, "compression", f.GetString, &cfg.Input.Compression),
		setFlag(c, "strict", f.GetBool, &cfg.Input.Strict),
		setFlag(c, "skip-rows", f.GetInt64, &cfg.Input.SkipRows),
		setFlag(c, "limit", f.GetInt64, &cfg.Input.Limit),
		setFlag(c, "on-mismatch", f.GetString, &cfg.Aggregate.OnMismatch),
		setFlag(c, "workers", f.GetInt, &cfg.Aggregate.Workers),
		setFlag(c, "format", f.GetString, &cfg.Report.Format),
		setFlag(c, "top", f.GetInt, &cfg.Report.TopValues),
		setFlag(c, "unique-threshold", f.GetInt, &cfg.Report.UniqueThreshold),
	} {
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
