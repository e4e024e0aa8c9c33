// Package collector implements the two read-side views over the store:
// the socket table (per-socket rows with rates) and the traffic
// sparkline (a resampled time series of segment totals).
package collector

import (
	"time"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/event"
	"github.com/ftahirops/nettop/internal/filter"
	"github.com/ftahirops/nettop/internal/store"
)

// Defaults for SocketTableConfig, matching the original observer.
const (
	DefaultCollectionWindow = 5 * time.Minute
	DefaultRateWindow       = 1 * time.Second
)

// SocketTableConfig bounds how far back a SocketTable collection walks
// the store, and how recent a window counts toward the displayed rate.
type SocketTableConfig struct {
	CollectionWindow time.Duration
	RateWindow       time.Duration
}

// DefaultSocketTableConfig returns the spec's documented defaults.
func DefaultSocketTableConfig() SocketTableConfig {
	return SocketTableConfig{CollectionWindow: DefaultCollectionWindow, RateWindow: DefaultRateWindow}
}

// SocketRow is one collected, merged row of the socket table.
type SocketRow struct {
	PID          uint32
	Local        event.Endpoint
	Remote       event.Endpoint
	SockType     event.SocketType
	Stat         store.Stat
	RateStat     store.Stat
	RateDuration time.Duration
	LastActivity clock.Timestamp
}

// BytesPerSecond returns the row's byte rate, or (0, false) when the
// rate duration is zero and the rate is therefore undefined.
func (r SocketRow) BytesPerSecond() (float64, bool) {
	if r.RateDuration <= 0 {
		return 0, false
	}
	return float64(r.RateStat.Total()) / r.RateDuration.Seconds(), true
}

// filterable adapts a store.Socket to filter.Filterable for expression
// evaluation.
type filterable store.Socket

func (f filterable) PID() uint32 { return f.PID }
func (f filterable) Protocol() filter.Protocol {
	if f.SockType == event.SockDgram {
		return filter.ProtocolUdp
	}
	return filter.ProtocolTcp
}
func (f filterable) IPVersion() event.IPVersion  { return f.Local.Addr.Version }
func (f filterable) LocalAddress() event.IPAddr  { return f.Local.Addr }
func (f filterable) RemoteAddress() event.IPAddr { return f.Remote.Addr }
func (f filterable) LocalPort() uint16           { return f.Local.Port }
func (f filterable) RemotePort() uint16          { return f.Remote.Port }

// SocketTable walks a store view and folds per-socket rows.
type SocketTable struct {
	config SocketTableConfig
}

// NewSocketTable returns a collector using the given config.
func NewSocketTable(cfg SocketTableConfig) *SocketTable {
	return &SocketTable{config: cfg}
}

// Collect walks segments newest-first while within CollectionWindow of
// now, merging per-socket rows. window is the store's segment duration.
// preFilter, when non-nil, is applied via its Interest projection before
// the optional expression is evaluated; a nil preFilter (or store.All)
// admits every socket.
func (c *SocketTable) Collect(
	rawNow clock.Timestamp,
	window time.Duration,
	view store.View,
	preFilter *store.Interest,
	expr filter.Expr,
) []SocketRow {
	now := rawNow.Trunc(window)
	rateCutoff := rateCutoff(now, window, c.config.RateWindow)

	rows := map[event.Endpoint]*SocketRow{}
	order := []event.Endpoint{}

	view.ReverseIterate(func(ts store.TimeSegment) bool {
		if now.SaturatingElapsedSince(ts.Ts) > c.config.CollectionWindow {
			return false
		}
		ts.Segment.ForEachSocket(func(sock store.Socket) bool {
			if preFilter != nil && !matchesInterest(*preFilter, sock) {
				return true
			}
			if expr != nil && !filter.Eval(filterable(sock), expr) {
				return true
			}
			stat, ok := ts.Segment.StatByInterest(store.ByLocalSocket(sock.Local))
			if !ok {
				return true
			}

			row, seen := rows[sock.Local]
			if !seen {
				row = &SocketRow{
					PID: sock.PID, Local: sock.Local, Remote: sock.Remote,
					SockType: sock.SockType, LastActivity: ts.Ts,
				}
				rows[sock.Local] = row
				order = append(order, sock.Local)
			}
			row.Stat = row.Stat.Merge(stat)
			if !ts.Ts.Before(rateCutoff) {
				row.RateStat = row.RateStat.Merge(stat)
			}
			return true
		})
		return true
	})

	last, haveLast := view.Last()
	result := make([]SocketRow, 0, len(order))
	for _, key := range order {
		row := rows[key]
		if haveLast {
			row.RateDuration = last.Ts.Sub(rateCutoff) + window
		}
		result = append(result, *row)
	}
	return result
}

// rateCutoff computes max(window, now - rate_window), truncated to the
// segment window: `rate_cutoff = max(window, now - rate_window).trunc(window)`.
func rateCutoff(now clock.Timestamp, window, rateWindow time.Duration) clock.Timestamp {
	sub := now.Duration() - rateWindow
	if sub < 0 {
		sub = 0
	}
	floor := window
	if sub > floor {
		floor = sub
	}
	return clock.Zero.Add(floor).Trunc(window)
}

// matchesInterest reports whether sock is admitted by the given
// pre-filter Interest. store.All (the zero Interest) admits everything.
func matchesInterest(want store.Interest, sock store.Socket) bool {
	if want == store.All {
		return true
	}
	switch {
	case want == store.ByPid(sock.PID):
		return true
	case want == store.ByLocalSocket(sock.Local):
		return true
	case want == store.ByRemoteSocket(sock.Remote):
		return true
	case want == store.ByRemoteIp(sock.Remote.Addr):
		return true
	default:
		return false
	}
}
