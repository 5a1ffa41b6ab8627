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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/chunkprofile/internal/filereader"
	"github.com/cardinalhq/chunkprofile/internal/logctx"
	"github.com/cardinalhq/chunkprofile/pipeline"
)

// MismatchPolicy selects what Run does with a chunk whose schema diverges.
type MismatchPolicy string

const (
	MismatchAbort MismatchPolicy = "abort"
	MismatchSkip  MismatchPolicy = "skip"
)

// ParseMismatchPolicy maps a configuration value to a MismatchPolicy.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch p := MismatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", MismatchAbort:
		return MismatchAbort, nil
	case MismatchSkip:
		return MismatchSkip, nil
	}
	return "", fmt.Errorf("unknown mismatch policy %q", s)
}

// Transformer converts a raw chunk into the chunk statistics are computed on.
type Transformer interface {
	Apply(chunk *pipeline.Chunk) (*pipeline.Chunk, error)
}

// Options controls a Run.
type Options struct {
	// OnMismatch is MismatchAbort when empty.
	OnMismatch MismatchPolicy
	// Workers is the number of chunks transformed concurrently. Values below 2
	// run the pass on the calling goroutine. At most Workers chunks are read
	// and not yet merged, plus the one the reader is waiting to dispatch.
	Workers int
	// Kinds are the column kinds checked for consistency, text when empty.
	Kinds []pipeline.Kind
	// Expected, when set, is the reference schema instead of the first chunk's.
	Expected pipeline.Schema
	// Sink, when set, receives every merged chunk in source order from a single
	// goroutine. Chunks are retained until they reach the sink.
	Sink func(ctx context.Context, chunk *pipeline.Chunk) error
}

// ChunkSummary describes one merged chunk.
type ChunkSummary struct {
	Index    int        `json:"index"`
	Offset   int64      `json:"offset"`
	Rows     int        `json:"rows"`
	RawBytes int64      `json:"raw_bytes"`
	Bytes    int64      `json:"bytes"`
	Kinds    KindCounts `json:"kinds"`
}

// SkippedChunk describes a chunk left out of the aggregate.
type SkippedChunk struct {
	Index  int    `json:"index"`
	Offset int64  `json:"offset"`
	Rows   int    `json:"rows"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result is the outcome of a pass. Rows, Chunks and Summaries cover merged
// chunks only. The row counters cover every chunk read.
type Result struct {
	Chunks      int             `json:"chunks"`
	Rows        int64           `json:"rows"`
	DroppedRows int64           `json:"dropped_rows"`
	EmptyRows   int64           `json:"empty_rows"`
	ParseErrors int64           `json:"parse_errors"`
	Skipped     []SkippedChunk  `json:"skipped,omitempty"`
	Reference   pipeline.Schema `json:"reference"`
	Summaries   []ChunkSummary  `json:"summaries"`
}

// Incomplete reports whether any source data is missing from the aggregate,
// either because a chunk was skipped or a malformed row was dropped.
func (r *Result) Incomplete() bool {
	return len(r.Skipped) > 0 || r.DroppedRows > 0
}

// SkipErrors returns the errors of all skipped chunks, or nil.
func (r *Result) SkipErrors() error {
	var errs *multierror.Error
	for _, s := range r.Skipped {
		errs = multierror.Append(errs, s.Err)
	}
	return errs.ErrorOrNil()
}

// prepared is a chunk reduced to its partials. The chunk itself is only
// retained when a sink needs it.
type prepared struct {
	seq         int
	chunk       *pipeline.Chunk
	schema      pipeline.Schema
	summary     ChunkSummary
	droppedRows int
	emptyRows   int
	parseErrors int
	partials    []any
	mismatch    error
}

type runner struct {
	opts    Options
	tr      Transformer
	accs    []Accumulator
	checker *SchemaChecker
	result  *Result
}

// Run pulls every chunk from source, transforms it, checks it for schema
// consistency and merges the partials of every accumulator.
//
// With Workers > 1, transformation and partial computation run concurrently
// on up to Workers chunks while a single goroutine checks and merges in
// source order. A nil transformer computes statistics on the raw chunks.
func Run(ctx context.Context, source filereader.ChunkReader, tr Transformer, opts Options, accs ...Accumulator) (*Result, error) {
	if opts.OnMismatch == "" {
		opts.OnMismatch = MismatchAbort
	}
	if opts.OnMismatch != MismatchAbort && opts.OnMismatch != MismatchSkip {
		return nil, fmt.Errorf("unknown mismatch policy %q", opts.OnMismatch)
	}

	r := &runner{
		opts:    opts,
		tr:      tr,
		accs:    accs,
		checker: NewSchemaChecker(opts.Kinds...),
		result:  &Result{},
	}
	if opts.Expected != nil {
		r.checker.Expect(opts.Expected)
	}

	var err error
	if opts.Workers > 1 {
		err = r.runParallel(ctx, source)
	} else {
		err = r.runSequential(ctx, source)
	}
	if err != nil {
		return nil, err
	}

	r.result.Reference = r.checker.Reference()
	return r.result, nil
}

func (r *runner) runSequential(ctx context.Context, source filereader.ChunkReader) error {
	for seq := 0; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		p, err := r.prepare(seq, raw)
		if err != nil {
			return err
		}
		if err := r.commit(ctx, p); err != nil {
			return err
		}
	}
}

type job struct {
	seq   int
	chunk *pipeline.Chunk
}

func (r *runner) runParallel(ctx context.Context, source filereader.ChunkReader) error {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job)
	results := make(chan *prepared)
	// window holds one token per chunk dispatched and not yet committed.
	window := make(chan struct{}, r.opts.Workers)

	g.Go(func() error {
		defer close(jobs)
		for seq := 0; ; seq++ {
			raw, err := source.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case jobs <- job{seq: seq, chunk: raw}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var workers sync.WaitGroup
	for range r.opts.Workers {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for j := range jobs {
				p, err := r.prepare(j.seq, j.chunk)
				if err != nil {
					return err
				}
				select {
				case results <- p:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := make(map[int]*prepared)
		next := 0
		for p := range results {
			pending[p.seq] = p
			for {
				q, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if err := r.commit(gctx, q); err != nil {
					return err
				}
				<-window
			}
		}
		return nil
	})

	return g.Wait()
}

// prepare transforms a chunk and computes every partial. It must be safe to
// call concurrently.
func (r *runner) prepare(seq int, raw *pipeline.Chunk) (*prepared, error) {
	chunk := raw
	if r.tr != nil {
		var err error
		if chunk, err = r.tr.Apply(raw); err != nil {
			return nil, fmt.Errorf("transform chunk %d: %w", raw.Index, err)
		}
	}

	p := &prepared{
		seq:    seq,
		schema: chunk.Schema,
		summary: ChunkSummary{
			Index:    chunk.Index,
			Offset:   chunk.Offset,
			Rows:     chunk.Len(),
			RawBytes: chunk.RawBytes,
			Bytes:    chunk.MemoryUsage(),
			Kinds:    CountKinds(chunk.Schema),
		},
		droppedRows: chunk.DroppedRows,
		emptyRows:   chunk.EmptyRows,
		parseErrors: chunk.ParseErrors,
		partials:    make([]any, len(r.accs)),
	}
	if r.opts.Sink != nil {
		p.chunk = chunk
	}

	for i, acc := range r.accs {
		part, err := acc.Partial(chunk)
		if err != nil {
			if errors.Is(err, ErrConsistency) {
				p.mismatch = err
				break
			}
			return nil, fmt.Errorf("%s of chunk %d: %w", acc.Name(), chunk.Index, err)
		}
		p.partials[i] = part
	}
	return p, nil
}

// commit checks a prepared chunk against the reference schema and merges its
// partials. It must only be called from one goroutine.
func (r *runner) commit(ctx context.Context, p *prepared) error {
	res := r.result
	res.DroppedRows += int64(p.droppedRows)
	res.EmptyRows += int64(p.emptyRows)
	res.ParseErrors += int64(p.parseErrors)

	err := p.mismatch
	if err == nil {
		err = r.checker.Observe(&pipeline.Chunk{Index: p.summary.Index, Schema: p.schema})
	}
	if err != nil {
		if r.opts.OnMismatch != MismatchSkip {
			return err
		}
		res.Skipped = append(res.Skipped, SkippedChunk{
			Index:  p.summary.Index,
			Offset: p.summary.Offset,
			Rows:   p.summary.Rows,
			Reason: err.Error(),
			Err:    err,
		})
		chunksSkippedCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("policy", string(r.opts.OnMismatch)),
		))
		logctx.FromContext(ctx).Warn("Skipping chunk with inconsistent schema",
			slog.Int("chunk", p.summary.Index),
			slog.Int64("offset", p.summary.Offset),
			slog.Any("error", err))
		return nil
	}

	for i, acc := range r.accs {
		acc.Merge(p.partials[i])
	}
	if r.opts.Sink != nil {
		if err := r.opts.Sink(ctx, p.chunk); err != nil {
			return fmt.Errorf("sink chunk %d: %w", p.summary.Index, err)
		}
	}
	res.Chunks++
	res.Rows += int64(p.summary.Rows)
	res.Summaries = append(res.Summaries, p.summary)

	chunksProcessedCounter.Add(ctx, 1)
	logctx.FromContext(ctx).Debug("Merged chunk",
		slog.Int("chunk", p.summary.Index),
		slog.Int("rows", p.summary.Rows),
		slog.Int64("rawBytes", p.summary.RawBytes),
		slog.Int64("bytes", p.summary.Bytes),
		slog.Int("droppedRows", p.droppedRows))
	return nil
}
