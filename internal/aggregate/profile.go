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
	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/axiomhq/hyperloglog"
)

// ProfileConfig selects the columns of the keyed statistics of a Profile.
// Empty column lists select columns by kind in every chunk.
type ProfileConfig struct {
	// UsefulColumns, when set, get value counts of their own whatever their
	// kind. They are counted where present and never fail a chunk.
	UsefulColumns    []string
	NullCountColumns []string
	DistinctColumns  []string
	QuantileColumns  []string
	QuantileAccuracy float64
}

// Profile is the standard set of running aggregates of an exploratory pass.
type Profile struct {
	Rows        *Accumulation[int64]
	Memory      *Accumulation[int64]
	RawMemory   *Accumulation[int64]
	ValueCounts *Accumulation[ColumnFrequencies]
	Useful      *Accumulation[ColumnFrequencies]
	NullCounts  *Accumulation[map[string]int64]
	Distinct    *Accumulation[map[string]*hyperloglog.Sketch]
	Quantiles   *Accumulation[map[string]*ddsketch.DDSketch]
	Kinds       *Accumulation[[]ChunkKinds]
}

// NewProfile builds the accumulators of a Profile.
func NewProfile(cfg ProfileConfig) (*Profile, error) {
	accuracy := cfg.QuantileAccuracy
	if accuracy == 0 {
		accuracy = DefaultQuantileAccuracy
	}
	q, err := Quantiles(accuracy, cfg.QuantileColumns...)
	if err != nil {
		return nil, err
	}
	p := &Profile{
		Rows:        Accumulate(RowCount()),
		Memory:      Accumulate(MemoryUsage()),
		RawMemory:   Accumulate(RawMemoryUsage()),
		ValueCounts: Accumulate(ValueCounts()),
		NullCounts:  Accumulate(NullCounts(cfg.NullCountColumns...)),
		Distinct:    Accumulate(DistinctEstimate(cfg.DistinctColumns...)),
		Quantiles:   Accumulate(q),
		Kinds:       Accumulate(ColumnKinds()),
	}
	if len(cfg.UsefulColumns) > 0 {
		p.Useful = Accumulate(PresentValueCounts(cfg.UsefulColumns...))
	}
	return p, nil
}

// Accumulators returns the accumulators in a fixed order for Run.
func (p *Profile) Accumulators() []Accumulator {
	accs := []Accumulator{
		p.Rows,
		p.Memory,
		p.RawMemory,
		p.ValueCounts,
		p.NullCounts,
		p.Distinct,
		p.Quantiles,
		p.Kinds,
	}
	if p.Useful != nil {
		accs = append(accs, p.Useful)
	}
	return accs
}
