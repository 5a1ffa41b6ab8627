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

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/axiomhq/hyperloglog"
	"github.com/cespare/xxhash/v2"

	"github.com/cardinalhq/chunkprofile/pipeline"
)

// DefaultQuantileAccuracy is the relative accuracy of quantile sketches.
const DefaultQuantileAccuracy = 0.01

type distinctEstimate struct {
	columns []string
}

// DistinctEstimate estimates the number of distinct non-missing values of each
// declared column with a HyperLogLog sketch. With no declared columns every
// column of each chunk is sketched.
func DistinctEstimate(columns ...string) Statistic[map[string]*hyperloglog.Sketch] {
	return distinctEstimate{columns: columns}
}

func (s distinctEstimate) Name() string { return "distinct_estimate" }

func (s distinctEstimate) Zero() map[string]*hyperloglog.Sketch {
	out := make(map[string]*hyperloglog.Sketch, len(s.columns))
	for _, c := range s.columns {
		out[c] = hyperloglog.New14()
	}
	return out
}

func (s distinctEstimate) Partial(chunk *pipeline.Chunk) (map[string]*hyperloglog.Sketch, error) {
	cols := chunk.Schema
	if len(s.columns) > 0 {
		var err error
		if cols, err = selectColumns(chunk, s.columns); err != nil {
			return nil, err
		}
	}
	out := make(map[string]*hyperloglog.Sketch, len(cols))
	for _, col := range cols {
		key := col.Key()
		sk := hyperloglog.New14()
		for _, row := range chunk.Rows {
			v := row[key]
			if v == nil {
				continue
			}
			sk.InsertHash(xxhash.Sum64String(pipeline.FormatValue(v)))
		}
		out[col.Name] = sk
	}
	return out, nil
}

func (s distinctEstimate) Merge(acc, p map[string]*hyperloglog.Sketch) map[string]*hyperloglog.Sketch {
	if acc == nil {
		acc = make(map[string]*hyperloglog.Sketch, len(p))
	}
	for name, sk := range p {
		cur, ok := acc[name]
		if !ok {
			acc[name] = sk.Clone()
			continue
		}
		_ = cur.Merge(sk)
	}
	return acc
}

type quantiles struct {
	columns  []string
	accuracy float64
}

// Quantiles sketches the distribution of each declared numeric column with a
// DDSketch of the given relative accuracy. With no declared columns every
// numeric and all-missing column of each chunk is sketched.
func Quantiles(accuracy float64, columns ...string) (Statistic[map[string]*ddsketch.DDSketch], error) {
	if accuracy <= 0 || accuracy >= 1 {
		return nil, fmt.Errorf("quantile accuracy must be in (0, 1), got %g", accuracy)
	}
	return quantiles{columns: columns, accuracy: accuracy}, nil
}

func (s quantiles) Name() string { return "quantiles" }

func (s quantiles) newSketch() *ddsketch.DDSketch {
	sk, err := ddsketch.NewDefaultDDSketch(s.accuracy)
	if err != nil {
		panic(fmt.Errorf("failed to create ddsketch: %w", err))
	}
	return sk
}

func (s quantiles) Zero() map[string]*ddsketch.DDSketch {
	out := make(map[string]*ddsketch.DDSketch, len(s.columns))
	for _, c := range s.columns {
		out[c] = s.newSketch()
	}
	return out
}

func (s quantiles) Partial(chunk *pipeline.Chunk) (map[string]*ddsketch.DDSketch, error) {
	cols, err := selectColumns(chunk, s.columns, pipeline.KindNumeric, pipeline.KindNull)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*ddsketch.DDSketch, len(cols))
	for _, col := range cols {
		key := col.Key()
		sk := s.newSketch()
		for _, row := range chunk.Rows {
			if f, ok := row.GetFloat64(key); ok {
				// NaN and infinities fall outside the sketch range and are skipped.
				_ = sk.Add(f)
			}
		}
		out[col.Name] = sk
	}
	return out, nil
}

func (s quantiles) Merge(acc, p map[string]*ddsketch.DDSketch) map[string]*ddsketch.DDSketch {
	if acc == nil {
		acc = make(map[string]*ddsketch.DDSketch, len(p))
	}
	for name, sk := range p {
		cur, ok := acc[name]
		if !ok {
			acc[name] = sk.Copy()
			continue
		}
		_ = cur.MergeWith(sk)
	}
	return acc
}

// QuantileValues reads the given quantiles from a sketch. It returns nil for
// an empty sketch.
func QuantileValues(sk *ddsketch.DDSketch, qs ...float64) []float64 {
	if sk == nil || sk.IsEmpty() {
		return nil
	}
	out, err := sk.GetValuesAtQuantiles(qs)
	if err != nil {
		return nil
	}
	return out
}
