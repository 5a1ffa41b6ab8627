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

package config

import (
	"slices"

	"github.com/cardinalhq/chunkprofile/internal/aggregate"
	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/internal/parquetexport"
	"github.com/cardinalhq/chunkprofile/internal/report"
	"github.com/cardinalhq/chunkprofile/internal/transform"
)

// DefaultTopValues caps the value tables printed per column.
const DefaultTopValues = 20

// DefaultConfig returns the settings for the Lending Club loan export.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			ChunkSize:   filereader.DefaultChunkSize,
			Delimiter:   ",",
			Compression: "auto",
		},
		Transform: TransformConfig{
			Categorize:    []string{"sub_grade", "home_ownership", "verification_status", "purpose"},
			MaxCategories: transform.DefaultMaxCategories,
			SuffixStrip: map[string]string{
				"term":       " months",
				"revol_util": "%",
			},
			DateColumns:   []string{"issue_d", "earliest_cr_line", "last_pymnt_d", "last_credit_pull_d"},
			DateLayouts:   slices.Clone(transform.DefaultDateLayouts),
			DropEmptyRows: true,
		},
		Aggregate: AggregateConfig{
			OnMismatch:       string(aggregate.MismatchAbort),
			Workers:          1,
			ConsistencyKinds: []string{"text"},
			UsefulColumns: []string{
				"term", "sub_grade", "emp_title", "home_ownership", "verification_status",
				"issue_d", "purpose", "earliest_cr_line", "revol_util", "last_pymnt_d",
				"last_credit_pull_d",
			},
			QuantileAccuracy: aggregate.DefaultQuantileAccuracy,
		},
		Report: ReportConfig{
			Format:          "text",
			UniqueThreshold: report.DefaultUniqueThreshold,
			TopValues:       DefaultTopValues,
			Quantiles:       slices.Clone(report.DefaultQuantiles),
		},
		Export: ExportConfig{
			SchemaName:         parquetexport.DefaultSchemaName,
			MaxRowsPerRowGroup: parquetexport.DefaultMaxRowsPerRowGroup,
		},
	}
}
