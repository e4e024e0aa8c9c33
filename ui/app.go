package ui

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ftahirops/nettop/internal/clock"
	"github.com/ftahirops/nettop/internal/collector"
	"github.com/ftahirops/nettop/internal/config"
	"github.com/ftahirops/nettop/internal/event"
	"github.com/ftahirops/nettop/internal/filter"
	"github.com/ftahirops/nettop/internal/procmeta"
	"github.com/ftahirops/nettop/internal/store"
)

// viewKind identifies the current screen, per the {Main, Process, RemoteIp}
// state machine.
type viewKind int

const (
	viewMain viewKind = iota
	viewProcess
	viewRemoteIP
)

// navState is the current screen plus whatever scope it drills into.
type navState struct {
	kind viewKind
	pid  uint32
	ip   event.IPAddr
}

type tickMsg time.Time

// hostnameMsg carries a best-effort reverse DNS result back from a
// background lookup started when the RemoteIp screen is entered.
type hostnameMsg struct {
	ip   event.IPAddr
	name string
}

// lookupHostnameCmd performs a blocking reverse DNS lookup off the
// event loop goroutine, matching spec.md's "background blocking worker"
// note for remote-IP detail; failures degrade to a placeholder rather
// than blocking the UI.
func lookupHostnameCmd(ip event.IPAddr) tea.Cmd {
	return func() tea.Msg {
		names, err := net.LookupAddr(ip.String())
		if err != nil || len(names) == 0 {
			return hostnameMsg{ip: ip, name: "[unresolved]"}
		}
		return hostnameMsg{ip: ip, name: strings.TrimSuffix(names[0], ".")}
	}
}

// Model is the bubbletea model driving the socket table and traffic
// sparkline over a live Store.
type Model struct {
	st        *store.Store
	clk       clock.Clock
	cfg       config.Config
	procCache *procmeta.Cache
	table     *collector.SocketTable
	spark     *collector.Sparkline

	nav navState

	width, height int

	rows   []collector.SocketRow
	series collector.Series

	selected int
	paused   bool

	filterExpr filter.Expr
	filterText string

	editing  bool
	draft    string
	draftErr *filter.ParseError

	statusMsg   string
	statusMsgAt time.Time

	hostnames map[string]string
}

// NewModel builds a Model over st, using clk for "now" and cfg for the
// refresh rate, sort column and initial filter. The socket table uses
// collector.DefaultSocketTableConfig for its collection and rate windows.
func NewModel(st *store.Store, clk clock.Clock, cfg config.Config) Model {
	m := Model{
		st:        st,
		clk:       clk,
		cfg:       cfg,
		procCache: procmeta.NewCache(),
		table:     collector.NewSocketTable(collector.DefaultSocketTableConfig()),
		spark:     collector.NewSparkline(nil),
		hostnames: make(map[string]string),
	}
	if cfg.DefaultFilter != "" {
		if expr, err := filter.Parse(cfg.DefaultFilter); err == nil {
			m.filterExpr = expr
			m.filterText = cfg.DefaultFilter
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tick(m.cfg.UIRefreshRate())
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// collect takes one store snapshot and recomputes the rows and the
// traffic series against it; called on each unpaused tick and on window
// resize, navigation change, filter commit and resume. It first makes
// sure the current window's segment exists even when traffic is silent.
func (m *Model) collect() {
	now := m.clk.Now()
	m.st.OldestTimestamp(now)
	view := m.st.SegmentsView()
	window := m.st.Window()

	var preFilter *store.Interest
	switch m.nav.kind {
	case viewProcess:
		pf := store.ByPid(m.nav.pid)
		preFilter = &pf
	case viewRemoteIP:
		pf := store.ByRemoteIp(m.nav.ip)
		preFilter = &pf
	}

	rows := m.table.Collect(now, window, view, preFilter, m.filterExpr)
	sortRows(rows, m.cfg.SocketSortColumn)
	m.rows = rows
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}

	m.spark.Collect(view)
	m.series = m.spark.Render(window, m.chartWidth())
}

func sortRows(rows []collector.SocketRow, column string) {
	sort.SliceStable(rows, func(i, j int) bool {
		switch column {
		case "total":
			return rows[i].Stat.Total() > rows[j].Stat.Total()
		default: // "rate"
			ri, _ := rows[i].BytesPerSecond()
			rj, _ := rows[j].BytesPerSecond()
			return ri > rj
		}
	})
}

// setNav switches screens, rebuilding the Sparkline against the new
// scope's Interest (a Sparkline's FIFO is only valid for one Interest)
// and re-collecting immediately so the new screen isn't blank until the
// next tick.
func (m *Model) setNav(n navState) {
	m.nav = n
	m.selected = 0
	switch n.kind {
	case viewProcess:
		i := store.ByPid(n.pid)
		m.spark = collector.NewSparkline(&i)
	case viewRemoteIP:
		i := store.ByRemoteIp(n.ip)
		m.spark = collector.NewSparkline(&i)
	default:
		m.spark = collector.NewSparkline(nil)
	}
	m.collect()
}

func (m *Model) chartWidth() int {
	w := m.width - 12
	if w < 10 {
		w = 10
	}
	return w
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.collect()
		return m, nil

	case tickMsg:
		if !m.paused {
			m.collect()
		}
		return m, tick(m.cfg.UIRefreshRate())

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateNormal(msg)

	case hostnameMsg:
		m.hostnames[msg.ip.String()] = msg.name
		return m, nil
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.draft = m.filterText
		m.draftErr = nil
		m.editing = false
		return m, nil
	case tea.KeyEnter:
		if m.draft == "" {
			m.filterExpr = nil
			m.filterText = ""
			m.editing = false
			m.collect()
			return m, nil
		}
		expr, err := filter.Parse(m.draft)
		if err != nil {
			m.draftErr, _ = err.(*filter.ParseError)
			return m, nil
		}
		m.filterExpr = expr
		m.filterText = m.draft
		m.editing = false
		m.collect()
		return m, nil
	case tea.KeyBackspace:
		if len(m.draft) > 0 {
			m.draft = m.draft[:len(m.draft)-1]
		}
		m.revalidateDraft()
		return m, nil
	case tea.KeyRunes, tea.KeySpace:
		m.draft += string(msg.Runes)
		if msg.Type == tea.KeySpace {
			m.draft += " "
		}
		m.revalidateDraft()
		return m, nil
	}
	return m, nil
}

func (m *Model) revalidateDraft() {
	if m.draft == "" {
		m.draftErr = nil
		return
	}
	_, err := filter.Parse(m.draft)
	m.draftErr, _ = err.(*filter.ParseError)
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "backspace":
		if m.nav.kind != viewMain {
			m.setNav(navState{kind: viewMain})
		} else {
			return m, tea.Quit
		}
	case "p", "enter":
		if m.nav.kind == viewMain && m.selected < len(m.rows) {
			m.setNav(navState{kind: viewProcess, pid: m.rows[m.selected].PID})
		}
	case "r":
		if m.nav.kind == viewMain && m.selected < len(m.rows) {
			ip := m.rows[m.selected].Remote.Addr
			m.setNav(navState{kind: viewRemoteIP, ip: ip})
			if _, cached := m.hostnames[ip.String()]; !cached {
				return m, lookupHostnameCmd(ip)
			}
		}
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case " ":
		m.paused = !m.paused
		if !m.paused {
			m.collect()
		}
	case "/":
		m.editing = true
		m.draft = m.filterText
		m.draftErr = nil
	case "s":
		if m.cfg.SocketSortColumn == "rate" {
			m.cfg.SocketSortColumn = "total"
		} else {
			m.cfg.SocketSortColumn = "rate"
		}
		sortRows(m.rows, m.cfg.SocketSortColumn)
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "collecting..."
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	if detail := m.renderDetails(); detail != "" {
		sb.WriteString(detail)
		sb.WriteString("\n")
	}

	chartH := 8
	if m.height > 0 && m.height < 30 {
		chartH = 5
	}
	maxVal := autoScale(m.series.Values, 1<<30)
	now := time.Now()
	start := now.Add(-m.cfg.Backlog())
	sb.WriteString(activePanelStyle.Render(areaChart(m.series.Values, "rx+tx", m.width-4, chartH, 0, maxVal, rateChartColor, start, now)))
	sb.WriteString("\n")

	sb.WriteString(m.renderFilterBar())
	sb.WriteString("\n")

	sb.WriteString(m.renderTable())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatusBar())

	return sb.String()
}

func (m Model) renderHeader() string {
	var scope string
	switch m.nav.kind {
	case viewProcess:
		comm, _ := m.procCache.Lookup(m.nav.pid)
		scope = fmt.Sprintf("process pid=%d (%s)", m.nav.pid, comm)
	case viewRemoteIP:
		scope = fmt.Sprintf("remote %s", m.nav.ip.String())
	default:
		scope = "all sockets"
	}
	left := titleStyle.Render("nettop") + "  " + labelStyle.Render(scope)
	if m.paused {
		left += "  " + pausedStyle.Render("[PAUSED]")
	}
	clockStr := dimStyle.Render(time.Now().Format("15:04:05") + "  every " + m.cfg.UIRefreshRate().String())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(clockStr)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + clockStr
}

// renderDetails renders the aggregate-across-all-rows summary shown on
// the Process and RemoteIp screens: total rx+tx across every socket in
// scope, plus (for RemoteIp) the best-effort reverse DNS hostname.
// Returns "" on the Main screen, which has no single scope to summarize.
func (m Model) renderDetails() string {
	if m.nav.kind == viewMain {
		return ""
	}

	var total store.Stat
	for _, row := range m.rows {
		total = total.Merge(row.Stat)
	}
	line := fmt.Sprintf("%s total rx %s  tx %s  across %d socket(s)",
		labelStyle.Render("details:"),
		valueStyle.Render(humanize.Bytes(total.RxBytes)),
		valueStyle.Render(humanize.Bytes(total.TxBytes)),
		len(m.rows))

	if m.nav.kind == viewRemoteIP {
		host, ok := m.hostnames[m.nav.ip.String()]
		if !ok {
			host = "[resolving]"
		}
		line += "  " + labelStyle.Render("hostname:") + " " + valueStyle.Render(host)
	}

	return panelStyle.Render(line)
}

func (m Model) renderFilterBar() string {
	if m.editing {
		style := acceptingBorderStyle
		errText := ""
		if m.draftErr != nil {
			style = rejectingBorderStyle
			errText = "  " + critStyle.Render(fmt.Sprintf("col %d: %s", m.draftErr.Column, m.draftErr.Message))
		}
		return style.Render("/ " + m.draft + errText)
	}
	if m.filterText == "" {
		return panelStyle.Render(dimStyle.Render("/ no filter"))
	}
	return panelStyle.Render("/ " + valueStyle.Render(m.filterText))
}

func (m Model) renderTable() string {
	var sb strings.Builder
	header := fmt.Sprintf("%-8s %-12s %-22s %-22s %-6s %10s %10s",
		"PID", "COMM", "LOCAL", "REMOTE", "TYPE", "RATE", "TOTAL")
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")

	maxRows := m.height - 14
	if maxRows < 1 {
		maxRows = 1
	}
	for i, row := range m.rows {
		if i >= maxRows {
			break
		}
		comm, _ := m.procCache.Lookup(row.PID)
		rate, ok := row.BytesPerSecond()
		rateStr := "-"
		rateStyle := dimStyle
		if ok {
			rateStr = humanize.Bytes(uint64(rate)) + "/s"
			rateStyle = rateColor(rate)
		}
		line := fmt.Sprintf("%-8d %-12s %-22s %-22s %-6s %10s %10s",
			row.PID, truncate(comm, 12), truncate(row.Local.String(), 22), truncate(row.Remote.String(), 22),
			row.SockType.String(), rateStyle.Render(rateStr), humanize.Bytes(row.Stat.Total()))
		if i == m.selected {
			sb.WriteString(selectedStyle.Render(line))
		} else {
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}
	if len(m.rows) == 0 {
		sb.WriteString(dimStyle.Render("no sockets observed"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	return helpStyle.Render("j/k:move  enter/p:process  r:remote ip  q/backspace:back or quit  space:pause  /:filter  s:sort")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

