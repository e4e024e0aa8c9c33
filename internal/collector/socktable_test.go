package collector

import (
	"net"
	"testing"
	"time"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/event"
	"github.com/ftahirops/nettop/internal/store"
)

func txRecord(t *testing.T, n int32) event.Record {
	t.Helper()
	local, _ := event.FromNetIP(net.ParseIP("127.0.0.1"))
	remote, _ := event.FromNetIP(net.ParseIP("10.0.0.1"))
	return event.Record{
		SockType:   event.SockStream,
		LocalAddr:  local,
		RemoteAddr: remote,
		LocalPort:  5000,
		RemotePort: 443,
		Ret:        n,
		PID:        42,
		Channel:    event.ChannelTx,
	}
}

func TestSocketTableRateWindow(t *testing.T) {
	clk, fake := clock.NewFake()
	st := store.New(time.Second, 10)

	st.BatchUpdate(clk.Now(), []event.Record{txRecord(t, 100)})
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), []event.Record{txRecord(t, 50)})
	fake.Advance(time.Second)
	st.BatchUpdate(clk.Now(), []event.Record{txRecord(t, 25)})

	tbl := NewSocketTable(DefaultSocketTableConfig())
	rows := tbl.Collect(clk.Now(), st.Window(), st.SegmentsView(), nil, nil)
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Stat.Total() != 175 {
		t.Errorf("Stat.Total() = %d, want 175", row.Stat.Total())
	}
	if row.RateStat.Total() != 75 {
		t.Errorf("RateStat.Total() = %d, want 75 (only the last rate-window segments)", row.RateStat.Total())
	}
	rate, ok := row.BytesPerSecond()
	if !ok {
		t.Fatal("BytesPerSecond() not ok")
	}
	if rate != 37.5 {
		t.Errorf("BytesPerSecond() = %v, want 37.5", rate)
	}
}

func TestSocketTablePreFilterByPid(t *testing.T) {
	clk, _ := clock.NewFake()
	st := store.New(time.Second, 10)
	st.BatchUpdate(clk.Now(), []event.Record{txRecord(t, 10)})

	tbl := NewSocketTable(DefaultSocketTableConfig())
	wantPid := store.ByPid(42)
	rows := tbl.Collect(clk.Now(), st.Window(), st.SegmentsView(), &wantPid, nil)
	if len(rows) != 1 {
		t.Fatalf("matching pid filter: len(rows) = %d, want 1", len(rows))
	}

	otherPid := store.ByPid(999)
	rows = tbl.Collect(clk.Now(), st.Window(), st.SegmentsView(), &otherPid, nil)
	if len(rows) != 0 {
		t.Fatalf("non-matching pid filter: len(rows) = %d, want 0", len(rows))
	}
}

func TestSocketTableEmptyViewYieldsNoRows(t *testing.T) {
	clk, _ := clock.NewFake()
	st := store.New(time.Second, 10)
	tbl := NewSocketTable(DefaultSocketTableConfig())
	rows := tbl.Collect(clk.Now(), st.Window(), st.SegmentsView(), nil, nil)
	if len(rows) != 0 {
		t.Fatalf("len(rows) = %d, want 0 on an empty store", len(rows))
	}
}
