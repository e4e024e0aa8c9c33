package store

import (
	"net"
	"testing"
	"time"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/event"
)

func rec(pid uint32, localPort, remotePort uint16, n int32, ch event.Channel) event.Record {
	local, _ := event.FromNetIP(net.ParseIP("127.0.0.1"))
	remote, _ := event.FromNetIP(net.ParseIP("10.0.0.1"))
	return event.Record{
		SockType:   event.SockStream,
		LocalAddr:  local,
		RemoteAddr: remote,
		LocalPort:  localPort,
		RemotePort: remotePort,
		Ret:        n,
		PID:        pid,
		Channel:    ch,
	}
}

func TestStoreBasicTotals(t *testing.T) {
	clk, fake := clock.NewFake()
	st := New(time.Second, 4)

	st.BatchUpdate(clk.Now(), []event.Record{
		rec(1, 1000, 443, 100, event.ChannelTx),
		rec(1, 1000, 443, 50, event.ChannelRx),
	})

	view := st.SegmentsView()
	if view.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", view.Len())
	}
	last, ok := view.Last()
	if !ok {
		t.Fatal("Last() not ok")
	}
	stat := last.Segment.TotalStat()
	if stat.TxBytes != 100 || stat.RxBytes != 50 {
		t.Errorf("stat = %+v, want tx=100 rx=50", stat)
	}

	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), []event.Record{rec(1, 1000, 443, 10, event.ChannelTx)})
	view = st.SegmentsView()
	if view.Len() != 2 {
		t.Fatalf("Len() after advance = %d, want 2", view.Len())
	}
}

func TestStoreGapFilling(t *testing.T) {
	clk, fake := clock.NewFake()
	st := New(time.Second, 10)

	st.BatchUpdate(clk.Now(), []event.Record{rec(1, 1, 2, 1, event.ChannelTx)})
	fake.Advance(3 * time.Second)
	st.BatchUpdate(clk.Now(), []event.Record{rec(1, 1, 2, 1, event.ChannelTx)})

	view := st.SegmentsView()
	if view.Len() != 4 {
		t.Fatalf("Len() = %d, want 4 (1 + 2 empty gap segments + 1)", view.Len())
	}
	segs := view.All()
	// The two gap segments in the middle should be empty.
	if segs[1].Segment.TotalStat().Total() != 0 || segs[2].Segment.TotalStat().Total() != 0 {
		t.Errorf("gap segments not empty: %+v %+v", segs[1].Segment.TotalStat(), segs[2].Segment.TotalStat())
	}
}

func TestStoreEviction(t *testing.T) {
	clk, fake := clock.NewFake()
	st := New(time.Second, 2)

	st.BatchUpdate(clk.Now(), nil)
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), nil)
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), nil)

	view := st.SegmentsView()
	if view.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (capacity-bounded)", view.Len())
	}
}

type fakeRecorder struct {
	evictions int
	active    []int
}

func (f *fakeRecorder) SetActiveSegments(n int) { f.active = append(f.active, n) }
func (f *fakeRecorder) Evict()                  { f.evictions++ }

func TestStoreRecorderCallbacks(t *testing.T) {
	clk, fake := clock.NewFake()
	st := New(time.Second, 2)
	fr := &fakeRecorder{}
	st.SetRecorder(fr)

	st.BatchUpdate(clk.Now(), nil)
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), nil)
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), nil)

	if fr.evictions != 1 {
		t.Errorf("evictions = %d, want 1", fr.evictions)
	}
	if len(fr.active) == 0 || fr.active[len(fr.active)-1] != 2 {
		t.Errorf("active = %v, want last entry 2", fr.active)
	}
}

func TestStoreRecorderNilIsNoOp(t *testing.T) {
	clk, _ := clock.NewFake()
	st := New(time.Second, 1)
	st.SetRecorder(nil)
	// Must not panic with no recorder attached.
	st.BatchUpdate(clk.Now(), nil)
}

func TestStatMergeIdentityAndCommutativity(t *testing.T) {
	a := Stat{RxBytes: 10, RxCount: 1, TxBytes: 20, TxCount: 2}
	var zero Stat
	if a.Merge(zero) != a {
		t.Errorf("a.Merge(zero) = %+v, want %+v", a.Merge(zero), a)
	}
	b := Stat{RxBytes: 5, TxBytes: 7, TxCount: 1}
	if a.Merge(b) != b.Merge(a) {
		t.Errorf("Merge is not commutative: %+v vs %+v", a.Merge(b), b.Merge(a))
	}
	c := Stat{RxBytes: 1}
	if a.Merge(b).Merge(c) != a.Merge(b.Merge(c)) {
		t.Errorf("Merge is not associative")
	}
}
