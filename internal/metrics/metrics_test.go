package metrics

import "testing"

func TestNilRecorderMethodsAreNoOps(t *testing.T) {
	var r *Recorder
	// None of these may panic on a nil receiver; that safety is what lets
	// store/ingest pass a nil *Recorder through an interface without an
	// extra "is metrics enabled" check at every call site.
	r.IngestBatch(10)
	r.Drop(5)
	r.SetActiveSegments(3)
	r.Evict()
}

func TestNewRecorderCountersIncrement(t *testing.T) {
	r := New()
	r.IngestBatch(7)
	r.Drop(2)
	r.SetActiveSegments(4)
	r.Evict()

	mfs, err := r.registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	values := map[string]float64{}
	for _, mf := range mfs {
		m := mf.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			values[mf.GetName()] = c.GetValue()
		}
		if g := m.GetGauge(); g != nil {
			values[mf.GetName()] = g.GetValue()
		}
	}

	if values["nettop_events_ingested_total"] != 7 {
		t.Errorf("events_ingested = %v, want 7", values["nettop_events_ingested_total"])
	}
	if values["nettop_events_dropped_total"] != 2 {
		t.Errorf("events_dropped = %v, want 2", values["nettop_events_dropped_total"])
	}
	if values["nettop_segments_active"] != 4 {
		t.Errorf("segments_active = %v, want 4", values["nettop_segments_active"])
	}
	if values["nettop_segments_evicted_total"] != 1 {
		t.Errorf("segments_evicted = %v, want 1", values["nettop_segments_evicted_total"])
	}
}
