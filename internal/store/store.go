// Package store implements the time-segmented statistics ring: Segment
// aggregates one window of traffic by Interest, and Store is the ring of
// Segments indexed by truncated timestamp.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/ftahirops/nettop/internal/event"

	"github.com/ftahirops/nettop/internal/clock"
)

// TimeSegment pairs a Segment with the truncated timestamp that is its
// key in the ring.
type TimeSegment struct {
	Ts      clock.Timestamp
	Segment *Segment
}

// Recorder receives store-lifecycle events for optional instrumentation,
// satisfied structurally by metrics.Recorder so this package never
// imports it.
type Recorder interface {
	SetActiveSegments(n int)
	Evict()
}

// Store is an ordered ring of TimeSegments, strictly increasing by
// exactly Window, with no gaps between the oldest and newest present.
type Store struct {
	window   time.Duration
	capacity int

	mu       sync.RWMutex
	segments []TimeSegment
	rec      Recorder
}

// New creates an empty Store. capacity must be >= 1 and window > 0.
func New(window time.Duration, capacity int) *Store {
	if window <= 0 {
		panic("store: window must be positive")
	}
	if capacity < 1 {
		panic("store: capacity must be at least 1")
	}
	return &Store{window: window, capacity: capacity}
}

// SetRecorder attaches an optional Recorder; nil detaches it. Not safe
// to call concurrently with BatchUpdate.
func (s *Store) SetRecorder(r Recorder) { s.rec = r }

// Window returns the fixed segment duration.
func (s *Store) Window() time.Duration { return s.window }

// MaxCapacity returns the fixed maximum segment count.
func (s *Store) MaxCapacity() int { return s.capacity }

// BatchUpdate ingests events at time ts, creating or reusing the segment
// keyed by ts.Trunc(window).
//
// The write path follows a fast/slow split: a read-locked check against
// the last segment handles the overwhelmingly common case (events
// arriving within the current window); only crossing into a new window
// takes the write lock, and only that path can gap-fill or evict.
func (s *Store) BatchUpdate(ts clock.Timestamp, events []event.Record) {
	key := ts.Trunc(s.window)

	s.mu.RLock()
	if n := len(s.segments); n > 0 && s.segments[n-1].Ts.Equal(key) {
		seg := s.segments[n-1].Segment
		s.mu.RUnlock()
		seg.BatchUpdate(events)
		return
	}
	s.mu.RUnlock()

	s.mu.Lock()
	// Re-check: another writer may have created the segment while we
	// waited for the exclusive lock.
	if n := len(s.segments); n > 0 && s.segments[n-1].Ts.Equal(key) {
		seg := s.segments[n-1].Segment
		s.mu.Unlock()
		seg.BatchUpdate(events)
		return
	}
	s.growTo(key)
	seg := s.segments[len(s.segments)-1].Segment
	s.mu.Unlock()

	seg.BatchUpdate(events)
}

// growTo must be called with mu held for writing. It appends new, empty
// segments until the last segment's ts equals key, evicting the oldest
// whenever the ring is already at capacity. If the ring is empty, the
// first segment is created directly at key with no gap-fill before it.
func (s *Store) growTo(key clock.Timestamp) {
	if len(s.segments) == 0 {
		s.append(key)
		return
	}
	last := s.segments[len(s.segments)-1].Ts
	for last.Before(key) {
		last = last.Add(s.window)
		s.append(last)
	}
}

func (s *Store) append(ts clock.Timestamp) {
	if len(s.segments) == s.capacity {
		s.segments = s.segments[1:]
		if s.rec != nil {
			s.rec.Evict()
		}
	}
	s.segments = append(s.segments, TimeSegment{Ts: ts, Segment: NewSegment()})
	if s.rec != nil {
		s.rec.SetActiveSegments(len(s.segments))
	}
}

// OldestTimestamp ensures the store contains at least one segment whose
// newest key matches now.Trunc(window), creating empty segments as
// needed, then returns that key. The UI calls this before each collection
// even when traffic is silent so that rate-window math stays aligned.
func (s *Store) OldestTimestamp(now clock.Timestamp) clock.Timestamp {
	s.BatchUpdate(now, nil)
	return now.Trunc(s.window)
}

// View is a read-only snapshot of the segment sequence at the moment it
// was taken. Because Go cannot safely express "hold a lock until this
// value is garbage collected", View instead copies the slice of
// TimeSegment values (cheap: each is a timestamp plus a pointer) under a
// read lock and releases the lock immediately; the Segments it points to
// continue to accept concurrent, lock-free writes exactly as the design
// requires, and the sequence of (ts, *Segment) pairs in the View never
// changes after it is taken.
type View struct {
	segments []TimeSegment
}

// Len returns the number of segments pinned in the view.
func (v View) Len() int { return len(v.segments) }

// IsEmpty reports whether the view has no segments.
func (v View) IsEmpty() bool { return len(v.segments) == 0 }

// First returns the oldest segment in the view.
func (v View) First() (TimeSegment, bool) {
	if len(v.segments) == 0 {
		return TimeSegment{}, false
	}
	return v.segments[0], true
}

// Last returns the newest segment in the view.
func (v View) Last() (TimeSegment, bool) {
	if len(v.segments) == 0 {
		return TimeSegment{}, false
	}
	return v.segments[len(v.segments)-1], true
}

// All returns the pinned segments oldest-first. The returned slice must
// not be mutated by the caller.
func (v View) All() []TimeSegment { return v.segments }

// Iterate calls f for each segment oldest-first; iteration stops early
// if f returns false.
func (v View) Iterate(f func(TimeSegment) bool) {
	for _, ts := range v.segments {
		if !f(ts) {
			return
		}
	}
}

// ReverseIterate calls f for each segment newest-first; iteration stops
// early if f returns false.
func (v View) ReverseIterate(f func(TimeSegment) bool) {
	for i := len(v.segments) - 1; i >= 0; i-- {
		if !f(v.segments[i]) {
			return
		}
	}
}

// SegmentsView pins and returns the current segment sequence.
func (s *Store) SegmentsView() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]TimeSegment, len(s.segments))
	copy(cp, s.segments)
	return View{segments: cp}
}

// String renders a compact summary, useful in logs and test failures.
func (s *Store) String() string {
	v := s.SegmentsView()
	return fmt.Sprintf("Store{window=%s cap=%d len=%d}", s.window, s.capacity, v.Len())
}
