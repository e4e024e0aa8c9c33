package store

import (
	"sync/atomic"

	"github.com/ftahirops/nettop/internal/event"
)

// Traffic holds the two atomic counters for one direction of traffic:
// bytes transferred and message count. Zero value is empty traffic.
type Traffic struct {
	bytes atomic.Uint64
	count atomic.Uint64
}

// Add increments the counters; n is the byte length of one message.
func (t *Traffic) Add(n uint64) {
	t.bytes.Add(n)
	t.count.Add(1)
}

// Snapshot reads the current counters without tearing.
func (t *Traffic) Snapshot() (bytes, count uint64) {
	return t.bytes.Load(), t.count.Load()
}

// Stat is an immutable snapshot of Metrics: four counters. Merging two
// Stats is componentwise addition; the zero value is the merge
// identity.
type Stat struct {
	RxBytes uint64
	RxCount uint64
	TxBytes uint64
	TxCount uint64
}

// Total returns rx_bytes + tx_bytes.
func (s Stat) Total() uint64 { return s.RxBytes + s.TxBytes }

// TotalCount returns rx_count + tx_count.
func (s Stat) TotalCount() uint64 { return s.RxCount + s.TxCount }

// Merge returns the componentwise sum of s and o.
func (s Stat) Merge(o Stat) Stat {
	return Stat{
		RxBytes: s.RxBytes + o.RxBytes,
		RxCount: s.RxCount + o.RxCount,
		TxBytes: s.TxBytes + o.TxBytes,
		TxCount: s.TxCount + o.TxCount,
	}
}

// Metrics is the live, mutable pair of per-channel Traffic counters kept
// inside a Segment's index.
type Metrics struct {
	rx Traffic
	tx Traffic
}

// Increment adds n bytes and one message count to the given channel.
func (m *Metrics) Increment(channel event.Channel, n uint64) {
	switch channel {
	case event.ChannelRx:
		m.rx.Add(n)
	default:
		m.tx.Add(n)
	}
}

// Snapshot returns the Stat captured from the current counter values.
func (m *Metrics) Snapshot() Stat {
	rxBytes, rxCount := m.rx.Snapshot()
	txBytes, txCount := m.tx.Snapshot()
	return Stat{RxBytes: rxBytes, RxCount: rxCount, TxBytes: txBytes, TxCount: txCount}
}
