package ingest

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/event"
	"github.com/ftahirops/nettop/internal/logging"
	"github.com/ftahirops/nettop/internal/source/replay"
	"github.com/ftahirops/nettop/internal/store"
)

func sampleRecord(t *testing.T, n int32) event.Record {
	t.Helper()
	local, _ := event.FromNetIP(net.ParseIP("127.0.0.1"))
	remote, _ := event.FromNetIP(net.ParseIP("10.0.0.1"))
	return event.Record{
		SockType: event.SockStream, LocalAddr: local, RemoteAddr: remote,
		LocalPort: 4000, RemotePort: 443, Ret: n, PID: 7, Channel: event.ChannelTx,
	}
}

func TestPipelineIngestsAllBatches(t *testing.T) {
	clk, _ := clock.NewFake()
	st := store.New(time.Second, 10)
	src := replay.New(2, []replay.Batch{
		{CPU: 0, Records: []event.Record{sampleRecord(t, 10), sampleRecord(t, 20)}},
		{CPU: 1, Records: []event.Record{sampleRecord(t, 30)}},
	}, 0)

	p := New(src, st, clk, logging.New(false))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	view := st.SegmentsView()
	last, ok := view.Last()
	if !ok {
		t.Fatal("expected at least one segment after ingest")
	}
	if got := last.Segment.TotalStat().Total(); got != 60 {
		t.Errorf("total bytes = %d, want 60", got)
	}
}

type countingRecorder struct {
	batches int
	ingested int
	dropped  uint64
}

func (c *countingRecorder) IngestBatch(n int) { c.batches++; c.ingested += n }
func (c *countingRecorder) Drop(n uint64)     { c.dropped += n }

func TestPipelineRecorderCounting(t *testing.T) {
	clk, _ := clock.NewFake()
	st := store.New(time.Second, 10)
	src := replay.New(1, []replay.Batch{
		{CPU: 0, Records: []event.Record{sampleRecord(t, 1), sampleRecord(t, 2), sampleRecord(t, 3)}},
	}, 5)

	p := New(src, st, clk, logging.New(false))
	rec := &countingRecorder{}
	p.SetRecorder(rec)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.batches != 1 {
		t.Errorf("batches = %d, want 1", rec.batches)
	}
	if rec.ingested != 3 {
		t.Errorf("ingested = %d, want 3", rec.ingested)
	}
	if rec.dropped != 5 {
		t.Errorf("dropped = %d, want 5 (the source's pre-seeded lost count)", rec.dropped)
	}
}

func TestDecodeBatchSkipsMalformedRecords(t *testing.T) {
	good := make([]byte, event.WireSize)
	bad := make([]byte, event.WireSize-1)
	records, malformed := DecodeBatch([][]byte{good, bad, good})
	if len(records) != 2 {
		t.Errorf("len(records) = %d, want 2", len(records))
	}
	if malformed != 1 {
		t.Errorf("malformed = %d, want 1", malformed)
	}
}
