package collector

import (
	"time"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/store"
)

// DataPoint is one per-segment sample collected for the sparkline: a
// truncated timestamp plus the segment's rx/tx byte totals.
type DataPoint struct {
	Ts clock.Timestamp
	Rx uint64
	Tx uint64
}

// Sparkline maintains a FIFO of per-segment totals, optionally
// restricted to one Interest, and resamples it onto a pixel-width grid
// by linear interpolation.
type Sparkline struct {
	interest *store.Interest
	points   []DataPoint
}

// NewSparkline returns a collector over the whole store total when
// interest is nil, or restricted to that Interest otherwise.
func NewSparkline(interest *store.Interest) *Sparkline {
	return &Sparkline{interest: interest}
}

// Collect drops stale points whose ts is older than the view's oldest
// segment, then appends one DataPoint for every view segment strictly
// newer than the current back of the FIFO.
func (s *Sparkline) Collect(view store.View) {
	oldest, ok := view.First()
	if !ok {
		s.points = s.points[:0]
		return
	}
	cut := 0
	for cut < len(s.points) && s.points[cut].Ts.Before(oldest.Ts) {
		cut++
	}
	if cut > 0 {
		s.points = append(s.points[:0], s.points[cut:]...)
	}

	var backTs clock.Timestamp
	haveBack := len(s.points) > 0
	if haveBack {
		backTs = s.points[len(s.points)-1].Ts
	}

	view.Iterate(func(ts store.TimeSegment) bool {
		if haveBack && !ts.Ts.After(backTs) {
			return true
		}
		rx, tx := s.totals(ts.Segment)
		s.points = append(s.points, DataPoint{Ts: ts.Ts, Rx: rx, Tx: tx})
		haveBack = true
		backTs = ts.Ts
		return true
	})
}

func (s *Sparkline) totals(seg *store.Segment) (rx, tx uint64) {
	if s.interest == nil {
		stat := seg.TotalStat()
		return stat.RxBytes, stat.TxBytes
	}
	stat, ok := seg.StatByInterest(*s.interest)
	if !ok {
		return 0, 0
	}
	return stat.RxBytes, stat.TxBytes
}

// Series is the resampled output: width uniformly-spaced samples of
// bytes-per-second, oldest first.
type Series struct {
	Values []float64
}

// Render resamples the collected points onto width pixels by linear
// interpolation. The newest collected sample is always dropped first
// because its segment may still be receiving concurrent updates;
// Render returns an empty Series if fewer than two points remain.
func (s *Sparkline) Render(window time.Duration, width int) Series {
	if width <= 0 || len(s.points) < 2 {
		return Series{}
	}
	pts := s.points[:len(s.points)-1]
	if len(pts) < 2 {
		return Series{}
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	secs := window.Seconds()
	for i, p := range pts {
		xs[i] = p.Ts.Duration().Seconds()
		ys[i] = float64(p.Rx+p.Tx) / secs
	}

	start := xs[0]
	span := xs[len(xs)-1] - start
	outInterval := span / float64(maxInt(width-1, 1))

	values := make([]float64, width)
	for i := 0; i < width; i++ {
		x := start + outInterval*float64(i)
		values[i] = interp(xs, ys, x)
	}
	return Series{Values: values}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// interp performs linear interpolation of the (xs, ys) series at x,
// clamping to the first/last value outside the series' domain.
func interp(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	// Binary search for the bracketing interval.
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	x0, x1 := xs[lo], xs[hi]
	y0, y1 := ys[lo], ys[hi]
	if x1 == x0 {
		return y0
	}
	t := (x - x0) / (x1 - x0)
	return y0 + t*(y1-y0)
}
