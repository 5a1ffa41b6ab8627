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
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	rowsInCounter      otelmetric.Int64Counter
	rowsDroppedCounter otelmetric.Int64Counter
	chunksOutCounter   otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/chunkprofile/internal/filereader")

	var err error
	rowsInCounter, err = meter.Int64Counter(
		"chunkprofile.reader.rows.in",
		otelmetric.WithDescription("Number of data rows read from the source"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.in counter: %w", err))
	}

	rowsDroppedCounter, err = meter.Int64Counter(
		"chunkprofile.reader.rows.dropped",
		otelmetric.WithDescription("Number of malformed rows skipped by the reader"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.dropped counter: %w", err))
	}

	chunksOutCounter, err = meter.Int64Counter(
		"chunkprofile.reader.chunks.out",
		otelmetric.WithDescription("Number of chunks emitted to downstream processing"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create chunks.out counter: %w", err))
	}
}
