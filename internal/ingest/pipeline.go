// Package ingest runs one worker per online CPU, each taking batches of
// already-decoded records (the source decodes them) off its dedicated
// source channel and folding them into the store.
package ingest

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/event"
	"github.com/ftahirops/nettop/internal/source"
	"github.com/ftahirops/nettop/internal/store"
)

// DefaultBufferSize is the default per-CPU batch capacity. Workers hold
// no buffer of their own: they take each batch as the source delivers it.
const DefaultBufferSize = 4096

// Recorder receives per-batch ingest counts for optional instrumentation,
// satisfied structurally by metrics.Recorder so this package never
// imports it.
type Recorder interface {
	IngestBatch(n int)
	Drop(n uint64)
}

// Pipeline fans out one goroutine per CPU over a Source, each calling
// Store.BatchUpdate as batches arrive. Workers share no mutable state
// besides the Store itself, which is safe for concurrent writers, and
// lastLost.
type Pipeline struct {
	src    source.Source
	store  *store.Store
	clock  clock.Clock
	logger *slog.Logger
	rec    Recorder

	// lastLost is the source-wide lost count already reported, shared by
	// all workers so each dropped record is reported once.
	lastLost atomic.Uint64
}

// New returns a Pipeline writing into st, reading events from src, and
// timestamping batches with clk.Now(). A nil logger falls back to
// slog.Default().
func New(src source.Source, st *store.Store, clk clock.Clock, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{src: src, store: st, clock: clk, logger: logger}
}

// SetRecorder attaches an optional Recorder; nil detaches it. Call
// before Run; not safe to call concurrently with it.
func (p *Pipeline) SetRecorder(r Recorder) { p.rec = r }

// Run launches one worker per source CPU under an errgroup.WithContext
// and waits for all of them. A worker returns nil when its channel
// closes or ctx is cancelled, so Run returns nil. A worker whose channel
// closes does not stop the others: Run returns once every channel has
// closed (as replay.Source and a closed kprobe.Source do) or ctx is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for cpu := 0; cpu < p.src.NumCPU(); cpu++ {
		cpu := cpu
		g.Go(func() error {
			return p.runWorker(ctx, cpu)
		})
	}
	return g.Wait()
}

func (p *Pipeline) runWorker(ctx context.Context, cpu int) error {
	ch := p.src.Events(cpu)
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-ch:
			if !ok {
				return nil
			}
			if len(batch) == 0 {
				continue
			}
			p.store.BatchUpdate(p.clock.Now(), batch)
			if p.rec != nil {
				p.rec.IngestBatch(len(batch))
			}

			_, lost := p.src.Stats()
			for prev := p.lastLost.Load(); lost > prev; prev = p.lastLost.Load() {
				if !p.lastLost.CompareAndSwap(prev, lost) {
					continue
				}
				p.logger.Warn("ingest: source reported dropped records",
					slog.Int("cpu", cpu), slog.Uint64("dropped", lost-prev))
				if p.rec != nil {
					p.rec.Drop(lost - prev)
				}
				break
			}
		}
	}
}

// DecodeBatch converts a slice of raw wire-format records into decoded
// event.Records, skipping (and counting) any record that fails to
// decode rather than aborting the whole batch.
func DecodeBatch(raw [][]byte) (records []event.Record, malformed int) {
	records = make([]event.Record, 0, len(raw))
	for _, buf := range raw {
		rec, err := event.Decode(buf)
		if err != nil {
			malformed++
			continue
		}
		records = append(records, rec)
	}
	return records, malformed
}
