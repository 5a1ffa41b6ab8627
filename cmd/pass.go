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
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cardinalhq/chunkprofile/config"
	"github.com/cardinalhq/chunkprofile/internal/aggregate"
	"github.com/cardinalhq/chunkprofile/internal/logctx"
	"github.com/cardinalhq/chunkprofile/internal/report"
	"github.com/cardinalhq/chunkprofile/internal/transform"
	"github.com/cardinalhq/chunkprofile/pipeline"
)

type sinkFunc = func(ctx context.Context, chunk *pipeline.Chunk) error

// runPass reads every path once, folding the standard profile. sink, when set,
// receives each merged chunk in order.
func runPass(ctx context.Context, cfg *config.Config, paths []string, sink sinkFunc) (*aggregate.Result, *aggregate.Profile, error) {
	tc, err := cfg.TransformConfig()
	if err != nil {
		return nil, nil, err
	}
	tr, err := transform.New(tc)
	if err != nil {
		return nil, nil, err
	}
	profile, err := aggregate.NewProfile(cfg.ProfileConfig())
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.AggregateOptions()
	if err != nil {
		return nil, nil, err
	}
	opts.Sink = sink

	source, err := openSources(ctx, paths, cfg)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			logctx.FromContext(ctx).Warn("Failed to close source", slog.Any("error", cerr))
		}
	}()

	logctx.FromContext(ctx).Info("Starting pass",
		slog.Any("sources", paths),
		slog.Int("chunkSize", cfg.Input.ChunkSize),
		slog.Int("workers", cfg.Aggregate.Workers),
		slog.String("onMismatch", cfg.Aggregate.OnMismatch))

	res, err := aggregate.Run(ctx, source, tr, opts, profile.Accumulators()...)
	if err != nil {
		return nil, nil, fmt.Errorf("profiling pass failed: %w", err)
	}

	logger := logctx.FromContext(ctx)
	logger.Info("Pass complete",
		slog.Int("chunks", res.Chunks),
		slog.Int64("rows", res.Rows),
		slog.Int64("droppedRows", res.DroppedRows),
		slog.Int("skippedChunks", len(res.Skipped)))
	if res.Incomplete() {
		logger.Warn("Aggregate is incomplete",
			slog.Int64("droppedRows", res.DroppedRows),
			slog.Any("skipErrors", res.SkipErrors()))
	}
	return res, profile, nil
}

// buildReport renders a pass into a report tagged with the run and its sources.
func buildReport(ctx context.Context, cfg *config.Config, paths []string, res *aggregate.Result, profile *aggregate.Profile) *report.Report {
	r := report.Build(res, profile, cfg.ReportOptions())
	r.RunID = logctx.RunID(ctx)
	if len(paths) == 0 {
		r.Source = "-"
	} else {
		r.Source = strings.Join(paths, ",")
	}
	return r
}
