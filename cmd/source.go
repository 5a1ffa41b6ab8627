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

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/chunkprofile/config"
	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/internal/logctx"
)

// openSources opens every path as a chunk reader. Several paths are read in
// order as one dataset. No path reads stdin.
func openSources(ctx context.Context, paths []string, cfg *config.Config) (filereader.ChunkReader, error) {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	readers := make([]filereader.ChunkReader, 0, len(paths))
	closeAll := func(err error) error {
		errs := multierror.Append(nil, err)
		for _, r := range readers {
			if cerr := r.Close(); cerr != nil {
				errs = multierror.Append(errs, cerr)
			}
		}
		return errs.ErrorOrNil()
	}

	for _, path := range paths {
		rc, err := filereader.Open(path, cfg.Input.Compression)
		if err != nil {
			return nil, closeAll(err)
		}
		r, err := filereader.NewCSVChunkReader(rc, cfg.ReaderOptions(path))
		if err != nil {
			return nil, closeAll(err)
		}
		logctx.FromContext(ctx).Debug("Opened source",
			slog.String("path", path),
			slog.Int("columns", len(r.Headers())))
		readers = append(readers, r)
	}

	if len(readers) == 1 {
		return readers[0], nil
	}
	sr, err := filereader.NewSequentialReader(readers...)
	if err != nil {
		return nil, closeAll(fmt.Errorf("failed to combine sources: %w", err))
	}
	return sr, nil
}
