package store

import (
	"sync"

	"github.com/ftahirops/nettop/internal/event"
)

// Segment aggregates one time window of events by several Interest
// dimensions and remembers the distinct sockets observed in the window.
//
// The index and socket set are sync.Map rather than a plain mutex-guarded
// map so that concurrent writers touching different keys never block one
// another, mirroring the DashMap/DashSet-backed segment this is ported
// from; Go's standard library has no striped concurrent map, and
// sync.Map is the idiom this corpus itself reaches for (see
// malbeclabs-doublezero's clickhouse.go reflection cache) when it needs
// exactly this shape: many concurrent readers, occasional new keys.
type Segment struct {
	total Metrics

	mu    sync.Mutex // serializes creating new index keys; socks is written without it
	index sync.Map   // Interest -> *Metrics
	socks sync.Map   // event.Endpoint -> Socket
}

// NewSegment returns an empty segment.
func NewSegment() *Segment {
	return &Segment{}
}

func (s *Segment) metricsFor(key Interest) *Metrics {
	if v, ok := s.index.Load(key); ok {
		return v.(*Metrics)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.index.Load(key); ok {
		return v.(*Metrics)
	}
	m := &Metrics{}
	s.index.Store(key, m)
	return m
}

// BatchUpdate consumes a batch of records. Events with a negative Ret
// (an -errno) are skipped entirely, per the event-record contract.
// Within the batch, each event updates its four Interest keys
// individually (those keys vary per event) but the segment-wide total is
// accumulated locally and applied once per channel at the end of the
// batch, avoiding one atomic add per event on the hottest counter.
func (s *Segment) BatchUpdate(events []event.Record) {
	var rxBytes, rxCount, txBytes, txCount uint64

	for _, r := range events {
		if !r.Usable() {
			continue
		}
		n := r.Len()

		sock := Socket{PID: r.PID,
			Local:    event.Endpoint{Addr: r.LocalAddr, Port: r.LocalPort},
			Remote:   event.Endpoint{Addr: r.RemoteAddr, Port: r.RemotePort},
			SockType: r.SockType,
		}
		s.socks.Store(sock.Key(), sock)

		for _, key := range InterestsFromRecord(r) {
			s.metricsFor(key).Increment(r.Channel, n)
		}

		switch r.Channel {
		case event.ChannelRx:
			rxBytes += n
			rxCount++
		default:
			txBytes += n
			txCount++
		}
	}

	if rxCount > 0 {
		s.total.rx.bytes.Add(rxBytes)
		s.total.rx.count.Add(rxCount)
	}
	if txCount > 0 {
		s.total.tx.bytes.Add(txBytes)
		s.total.tx.count.Add(txCount)
	}
}

// Total returns rx+tx bytes when channel is nil, else that channel's
// bytes alone.
func (s *Segment) Total(channel *event.Channel) uint64 {
	stat := s.total.Snapshot()
	if channel == nil {
		return stat.Total()
	}
	if *channel == event.ChannelRx {
		return stat.RxBytes
	}
	return stat.TxBytes
}

// TotalPacketCount returns rx_count + tx_count for the whole segment.
func (s *Segment) TotalPacketCount() uint64 {
	return s.total.Snapshot().TotalCount()
}

// TotalStat returns the segment-wide Stat snapshot.
func (s *Segment) TotalStat() Stat { return s.total.Snapshot() }

// StatByInterest returns the Stat recorded for key, or the zero Stat and
// false if the key was never touched. Interest{All} always returns the
// segment total.
func (s *Segment) StatByInterest(key Interest) (Stat, bool) {
	if key.kind == interestAll {
		return s.total.Snapshot(), true
	}
	v, ok := s.index.Load(key)
	if !ok {
		return Stat{}, false
	}
	return v.(*Metrics).Snapshot(), true
}

// ForEachSocket iterates distinct sockets once each in unspecified order.
// Iteration stops early if f returns false.
func (s *Segment) ForEachSocket(f func(Socket) bool) {
	s.socks.Range(func(_, v any) bool {
		return f(v.(Socket))
	})
}
