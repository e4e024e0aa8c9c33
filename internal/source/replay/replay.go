// Package replay implements a deterministic, in-memory source.Source
// used by tests and by the CLI's replay subcommand, grounded on the
// teacher's own engine.Player/engine.Recorder record-replay split
// (engine/recorder.go) generalized from ticker snapshots to raw event
// batches.
package replay

import "github.com/ftahirops/nettop/internal/event"

// Batch is one scheduled delivery: a CPU index and the records a worker
// for that CPU should receive.
type Batch struct {
	CPU     int
	Records []event.Record
}

// Source replays a fixed sequence of Batches, then closes every channel.
// Lost is a synthetic drop counter a test can pre-seed to exercise the
// pipeline's drop-logging path.
type Source struct {
	numCPU  int
	chans   []chan []event.Record
	read    uint64
	lost    uint64
}

// New returns a Source serving numCPU channels, pre-loaded with batches.
// Each channel is buffered deeply enough to hold every batch destined
// for it, so New never blocks; every batch is queued and every channel
// closed before New returns. Close is a no-op and cannot stop a replay
// early.
func New(numCPU int, batches []Batch, lost uint64) *Source {
	byCPU := make([][]event.Record, numCPU)
	perCPUCount := make([]int, numCPU)
	for _, b := range batches {
		if b.CPU < 0 || b.CPU >= numCPU {
			continue
		}
		perCPUCount[b.CPU]++
	}

	s := &Source{numCPU: numCPU, lost: lost}
	s.chans = make([]chan []event.Record, numCPU)
	for i := range s.chans {
		s.chans[i] = make(chan []event.Record, perCPUCount[i]+1)
	}
	for _, b := range batches {
		if b.CPU < 0 || b.CPU >= numCPU {
			continue
		}
		byCPU[b.CPU] = append(byCPU[b.CPU], b.Records...)
		s.chans[b.CPU] <- b.Records
		s.read += uint64(len(b.Records))
	}
	for _, ch := range s.chans {
		close(ch)
	}
	return s
}

func (s *Source) Events(cpu int) <-chan []event.Record {
	if cpu < 0 || cpu >= len(s.chans) {
		ch := make(chan []event.Record)
		close(ch)
		return ch
	}
	return s.chans[cpu]
}

func (s *Source) NumCPU() int { return s.numCPU }

func (s *Source) Stats() (read, lost uint64) { return s.read, s.lost }

func (s *Source) Close() error { return nil }
