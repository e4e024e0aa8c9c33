package procmeta

import "testing"

func TestLookupUnknownPidDegradesToPlaceholder(t *testing.T) {
	c := NewCache()
	// PID 0 never has a /proc/0/comm entry on Linux.
	comm, ok := c.Lookup(0)
	if ok {
		t.Fatalf("Lookup(0) ok = true, want false")
	}
	if comm != "?" {
		t.Errorf("Lookup(0) comm = %q, want \"?\"", comm)
	}
}

func TestLookupCachesNegativeResult(t *testing.T) {
	c := NewCache()
	comm1, ok1 := c.Lookup(0)
	comm2, ok2 := c.Lookup(0)
	if comm1 != comm2 || ok1 != ok2 {
		t.Errorf("cached lookup diverged: (%q,%v) vs (%q,%v)", comm1, ok1, comm2, ok2)
	}
}
