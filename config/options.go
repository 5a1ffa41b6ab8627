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
	"fmt"
	"maps"

	"github.com/cardinalhq/chunkprofile/internal/aggregate"
	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/internal/parquetexport"
	"github.com/cardinalhq/chunkprofile/internal/report"
	"github.com/cardinalhq/chunkprofile/internal/transform"
	"github.com/cardinalhq/chunkprofile/pipeline"
)

// ReaderOptions returns the chunk reader options for the source at path.
func (c *Config) ReaderOptions(path string) filereader.Options {
	var delim rune
	if d := []rune(c.Input.Delimiter); len(d) == 1 {
		delim = d[0]
	}
	return filereader.Options{
		ChunkSize:  c.Input.ChunkSize,
		Delimiter:  delim,
		NullValues: c.Input.NullValues,
		Strict:     c.Input.Strict,
		SkipRows:   c.Input.SkipRows,
		Limit:      c.Input.Limit,
		Path:       path,
	}
}

// TransformConfig converts the transform section, parsing pinned column types.
func (c *Config) TransformConfig() (transform.Config, error) {
	tc := transform.Config{
		Categorize:    c.Transform.Categorize,
		MaxCategories: c.Transform.MaxCategories,
		SuffixStrip:   maps.Clone(c.Transform.SuffixStrip),
		DateColumns:   c.Transform.DateColumns,
		DateLayouts:   c.Transform.DateLayouts,
		DropEmptyRows: c.Transform.DropEmptyRows,
		Strict:        c.Input.Strict,
	}
	if len(c.Transform.ColumnTypes) > 0 {
		tc.ColumnTypes = make(map[string]pipeline.DataType, len(c.Transform.ColumnTypes))
		for name, s := range c.Transform.ColumnTypes {
			dt, err := pipeline.ParseDataType(s)
			if err != nil {
				return transform.Config{}, fmt.Errorf("transform.column_types.%s: %w", name, err)
			}
			tc.ColumnTypes[name] = dt
		}
	}
	if err := tc.Validate(); err != nil {
		return transform.Config{}, fmt.Errorf("transform: %w", err)
	}
	return tc, nil
}

// ConsistencyKinds parses the column kinds compared across chunks.
func (c *Config) ConsistencyKinds() ([]pipeline.Kind, error) {
	kinds := make([]pipeline.Kind, 0, len(c.Aggregate.ConsistencyKinds))
	for _, s := range c.Aggregate.ConsistencyKinds {
		k, err := pipeline.ParseKind(s)
		if err != nil {
			return nil, fmt.Errorf("aggregate.consistency_kinds: %w", err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// AggregateOptions returns the options of the running fold. Sink is left unset.
func (c *Config) AggregateOptions() (aggregate.Options, error) {
	policy, err := aggregate.ParseMismatchPolicy(c.Aggregate.OnMismatch)
	if err != nil {
		return aggregate.Options{}, err
	}
	kinds, err := c.ConsistencyKinds()
	if err != nil {
		return aggregate.Options{}, err
	}
	return aggregate.Options{
		OnMismatch: policy,
		Workers:    c.Aggregate.Workers,
		Kinds:      kinds,
	}, nil
}

func (c *Config) ProfileConfig() aggregate.ProfileConfig {
	return aggregate.ProfileConfig{
		UsefulColumns:    c.Aggregate.UsefulColumns,
		NullCountColumns: c.Aggregate.NullCountColumns,
		DistinctColumns:  c.Aggregate.DistinctColumns,
		QuantileColumns:  c.Aggregate.QuantileColumns,
		QuantileAccuracy: c.Aggregate.QuantileAccuracy,
	}
}

func (c *Config) ReportOptions() report.Options {
	return report.Options{
		UniqueThreshold: c.Report.UniqueThreshold,
		TopValues:       c.Report.TopValues,
		Quantiles:       c.Report.Quantiles,
	}
}

// ExportOptions returns the Parquet layout, carrying the pinned column types.
func (c *Config) ExportOptions() (parquetexport.Options, error) {
	tc, err := c.TransformConfig()
	if err != nil {
		return parquetexport.Options{}, err
	}
	return parquetexport.Options{
		SchemaName:         c.Export.SchemaName,
		MaxRowsPerRowGroup: c.Export.MaxRowsPerRowGroup,
		ColumnTypes:        tc.ColumnTypes,
	}, nil
}
