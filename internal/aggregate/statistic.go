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

// Package aggregate reduces chunk-local partial statistics into dataset-wide
// aggregates.
//
// A Statistic extracts a partial from one chunk and merges partials
// together. Every statistic in this package has an associative and
// commutative merge, so the aggregate does not depend on how the source was
// split into chunks or on the order in which partials are merged. Run drives
// a pass over a ChunkReader and keeps at most a bounded number of chunks in
// memory at once.
package aggregate

import (
	"github.com/cardinalhq/chunkprofile/pipeline"
)

// Statistic describes one chunk-local extractor and its merge.
type Statistic[P any] interface {
	// Name identifies the statistic in logs and reports.
	Name() string
	// Zero returns the identity element of Merge.
	Zero() P
	// Partial computes the statistic over a single chunk.
	Partial(chunk *pipeline.Chunk) (P, error)
	// Merge folds p into acc and returns the result. acc may be modified and
	// must not be used afterwards. p is not modified.
	Merge(acc, p P) P
}

// ComputePartial applies a statistic to one chunk.
func ComputePartial[P any](chunk *pipeline.Chunk, stat Statistic[P]) (P, error) {
	return stat.Partial(chunk)
}

// Combine folds any number of partials starting from the zero value.
// Combining nothing returns the zero aggregate.
func Combine[P any](stat Statistic[P], partials ...P) P {
	acc := stat.Zero()
	for _, p := range partials {
		acc = stat.Merge(acc, p)
	}
	return acc
}

// Accumulator is a type-erased running aggregate used by Run.
type Accumulator interface {
	Name() string
	// Partial computes a partial that can later be passed to Merge.
	Partial(chunk *pipeline.Chunk) (any, error)
	// Merge folds a partial returned by Partial into the running aggregate.
	Merge(partial any)
}

// Accumulation holds the running aggregate of one statistic.
type Accumulation[P any] struct {
	stat  Statistic[P]
	value P
}

var _ Accumulator = (*Accumulation[int64])(nil)

// Accumulate starts a running aggregate at the statistic's zero value.
func Accumulate[P any](stat Statistic[P]) *Accumulation[P] {
	return &Accumulation[P]{stat: stat, value: stat.Zero()}
}

func (a *Accumulation[P]) Name() string {
	return a.stat.Name()
}

func (a *Accumulation[P]) Partial(chunk *pipeline.Chunk) (any, error) {
	return a.stat.Partial(chunk)
}

func (a *Accumulation[P]) Merge(partial any) {
	a.value = a.stat.Merge(a.value, partial.(P))
}

// Value returns the current aggregate.
func (a *Accumulation[P]) Value() P {
	return a.value
}
