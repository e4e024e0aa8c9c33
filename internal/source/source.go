// Package source defines the boundary contract between the event
// producer (a kernel probe, or a replay for tests) and the ingest
// pipeline.
package source

import "github.com/ftahirops/nettop/internal/event"

// Source delivers per-CPU batches of decoded event records and reports
// cumulative counts of records read and dropped (not per-poll deltas).
type Source interface {
	// Events returns the channel a worker for the given CPU index reads
	// batches from. The channel is closed when the source shuts down.
	Events(cpu int) <-chan []event.Record

	// NumCPU returns how many per-CPU channels Events will serve.
	NumCPU() int

	// Stats returns the cumulative (read, lost) counters across all
	// CPUs since the source was created.
	Stats() (read, lost uint64)

	// Close releases the source's resources. Safe to call once.
	Close() error
}
