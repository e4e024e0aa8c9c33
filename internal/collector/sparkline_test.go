package collector

import (
	"net"
	"testing"
	"time"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/event"
	"github.com/ftahirops/nettop/internal/store"
)

func TestSparklineCollectAndRender(t *testing.T) {
	clk, fake := clock.NewFake()
	st := store.New(time.Second, 10)

	local, _ := event.FromNetIP(net.ParseIP("127.0.0.1"))
	remote, _ := event.FromNetIP(net.ParseIP("10.0.0.1"))
	mk := func(n int32) event.Record {
		return event.Record{
			SockType: event.SockStream, LocalAddr: local, RemoteAddr: remote,
			LocalPort: 1000, RemotePort: 443, Ret: n, PID: 1, Channel: event.ChannelTx,
		}
	}

	st.BatchUpdate(clk.Now(), []event.Record{mk(100)})
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), []event.Record{mk(200)})
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), []event.Record{mk(300)})

	spark := NewSparkline(nil)
	spark.Collect(st.SegmentsView())

	series := spark.Render(st.Window(), 4)
	if len(series.Values) != 4 {
		t.Fatalf("len(Values) = %d, want 4", len(series.Values))
	}
	// Render always drops the newest point (still-mutable segment), so
	// only the first two segments (100, 200 bytes/s) feed interpolation;
	// the resampled series must stay within that [100, 200] range.
	for i, v := range series.Values {
		if v < 100 || v > 200 {
			t.Errorf("Values[%d] = %v, want in [100, 200]", i, v)
		}
	}
	if series.Values[0] != 100 {
		t.Errorf("Values[0] = %v, want 100 (clamped to first sample)", series.Values[0])
	}
	if series.Values[len(series.Values)-1] != 200 {
		t.Errorf("Values[last] = %v, want 200 (clamped to last retained sample)", series.Values[len(series.Values)-1])
	}
}

func TestSparklineEmptyStoreRendersEmptySeries(t *testing.T) {
	clk, _ := clock.NewFake()
	st := store.New(time.Second, 10)
	spark := NewSparkline(nil)
	spark.Collect(st.SegmentsView())
	_ = clk
	series := spark.Render(st.Window(), 10)
	if len(series.Values) != 0 {
		t.Fatalf("len(Values) = %d, want 0 for an empty store", len(series.Values))
	}
}

func TestSparklineInterestFiltersSegmentTotals(t *testing.T) {
	clk, fake := clock.NewFake()
	st := store.New(time.Second, 10)

	local, _ := event.FromNetIP(net.ParseIP("127.0.0.1"))
	remoteA, _ := event.FromNetIP(net.ParseIP("10.0.0.1"))
	remoteB, _ := event.FromNetIP(net.ParseIP("10.0.0.2"))

	st.BatchUpdate(clk.Now(), []event.Record{
		{SockType: event.SockStream, LocalAddr: local, RemoteAddr: remoteA, LocalPort: 1, RemotePort: 443, Ret: 10, PID: 1, Channel: event.ChannelTx},
		{SockType: event.SockStream, LocalAddr: local, RemoteAddr: remoteB, LocalPort: 2, RemotePort: 443, Ret: 20, PID: 1, Channel: event.ChannelTx},
	})
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), nil)

	interest := store.ByRemoteIp(remoteA)
	spark := NewSparkline(&interest)
	spark.Collect(st.SegmentsView())
	if len(spark.points) == 0 {
		t.Fatal("expected at least one collected point")
	}
	if spark.points[0].Tx != 10 {
		t.Errorf("points[0].Tx = %d, want 10 (remoteA's traffic only)", spark.points[0].Tx)
	}
}
