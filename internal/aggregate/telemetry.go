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

package aggregate

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	chunksProcessedCounter otelmetric.Int64Counter
	chunksSkippedCounter   otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/chunkprofile/internal/aggregate")

	var err error
	chunksProcessedCounter, err = meter.Int64Counter(
		"chunkprofile.aggregate.chunks.processed",
		otelmetric.WithDescription("Number of chunks merged into the aggregate"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create chunks.processed counter: %w", err))
	}

	chunksSkippedCounter, err = meter.Int64Counter(
		"chunkprofile.aggregate.chunks.skipped",
		otelmetric.WithDescription("Number of chunks skipped because of a schema mismatch"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create chunks.skipped counter: %w", err))
	}
}
