package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/config"
	"github.com/ftahirops/nettop/internal/event"
	"github.com/ftahirops/nettop/internal/store"
)

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func newTestModel() Model {
	st := store.New(time.Second, 10)
	clk, _ := clock.NewFake()
	return NewModel(st, clk, config.Default())
}

func TestQuitsOnlyFromMainScreen(t *testing.T) {
	m := newTestModel()

	// From Main, q quits immediately.
	next, cmd := m.updateNormal(keyRune('q'))
	m = next.(Model)
	if !isQuit(cmd) {
		t.Fatalf("q from Main screen did not return tea.Quit")
	}

	// Drill into Process, q should back out instead of quitting.
	m.setNav(navState{kind: viewProcess, pid: 1})
	next, cmd = m.updateNormal(keyRune('q'))
	m = next.(Model)
	if isQuit(cmd) {
		t.Fatalf("q from Process screen quit instead of backing out")
	}
	if m.nav.kind != viewMain {
		t.Fatalf("nav.kind = %v after q from Process, want viewMain", m.nav.kind)
	}

	// Backspace behaves identically to q.
	m.setNav(navState{kind: viewRemoteIP})
	next, cmd = m.updateNormal(tea.KeyMsg{Type: tea.KeyBackspace})
	m = next.(Model)
	if isQuit(cmd) {
		t.Fatalf("backspace from RemoteIp screen quit instead of backing out")
	}
	if m.nav.kind != viewMain {
		t.Fatalf("nav.kind = %v after backspace from RemoteIp, want viewMain", m.nav.kind)
	}
}

func TestCtrlCAlwaysQuits(t *testing.T) {
	m := newTestModel()
	m.setNav(navState{kind: viewProcess, pid: 1})
	_, cmd := m.updateNormal(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Fatalf("ctrl+c did not quit from a non-Main screen")
	}
}

func TestPauseStopsCollectionUntilResumed(t *testing.T) {
	m := newTestModel()
	next, _ := m.updateNormal(keyRune(' '))
	m = next.(Model)
	if !m.paused {
		t.Fatalf("space did not set paused")
	}

	// Traffic that arrives while paused must not be collected on a tick.
	m.st.BatchUpdate(m.clk.Now(), []event.Record{{
		SockType: event.SockStream, LocalAddr: event.NewIPv4(0x7f000001), RemoteAddr: event.NewIPv4(0x0a000001),
		LocalPort: 5000, RemotePort: 443, Ret: 10, PID: 1, Channel: event.ChannelTx,
	}})
	next, _ = m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if !m.paused {
		t.Fatalf("tick while paused should not clear paused")
	}
	if len(m.rows) != 0 {
		t.Fatalf("len(rows) = %d after a tick while paused, want 0 (no re-collection)", len(m.rows))
	}

	next, _ = m.updateNormal(keyRune(' '))
	m = next.(Model)
	if m.paused {
		t.Fatalf("second space did not clear paused")
	}
	if len(m.rows) != 1 {
		t.Fatalf("len(rows) = %d after resume, want 1 (resume re-collects)", len(m.rows))
	}
}

func TestHostnameMessageCachesByIP(t *testing.T) {
	m := newTestModel()
	m.hostnames = make(map[string]string)

	ip := m.nav.ip // zero-value IPAddr is fine for this cache-keying test
	next, _ := m.Update(hostnameMsg{ip: ip, name: "example.com"})
	m = next.(Model)

	if got := m.hostnames[ip.String()]; got != "example.com" {
		t.Errorf("hostnames[%s] = %q, want example.com", ip.String(), got)
	}
}
