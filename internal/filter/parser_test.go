package filter

import (
	"net"
	"testing"

	"github.com/ftahirops/nettop/internal/event"
)

type fakeSocket struct {
	pid    uint32
	proto  Protocol
	ver    event.IPVersion
	local  event.IPAddr
	remote event.IPAddr
	lport  uint16
	rport  uint16
}

func (f fakeSocket) PID() uint32                   { return f.pid }
func (f fakeSocket) Protocol() Protocol             { return f.proto }
func (f fakeSocket) IPVersion() event.IPVersion     { return f.ver }
func (f fakeSocket) LocalAddress() event.IPAddr     { return f.local }
func (f fakeSocket) RemoteAddress() event.IPAddr    { return f.remote }
func (f fakeSocket) LocalPort() uint16              { return f.lport }
func (f fakeSocket) RemotePort() uint16             { return f.rport }

func mustAddr(t *testing.T, s string) event.IPAddr {
	t.Helper()
	addr, err := event.FromNetIP(net.ParseIP(s))
	if err != nil {
		t.Fatalf("FromNetIP(%s): %v", s, err)
	}
	return addr
}

func TestParseAndEvalScenario(t *testing.T) {
	expr, err := Parse("tcp and (laddr[127.0.0.1] or laddr[192.168.1.32]) and rport[443]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sock := fakeSocket{
		pid:    100,
		proto:  ProtocolTcp,
		ver:    event.IPv4,
		local:  mustAddr(t, "127.0.0.1"),
		remote: mustAddr(t, "93.184.216.34"),
		lport:  54321,
		rport:  443,
	}
	if !Eval(sock, expr) {
		t.Fatalf("expected match on rport 443")
	}

	sock.rport = 8443
	if Eval(sock, expr) {
		t.Fatalf("expected no match after rport changed to 8443")
	}
}

func TestParsePrecedenceNotAndOr(t *testing.T) {
	// not tcp and udp or pid[1]  ==  ((not tcp) and udp) or pid[1]
	expr, err := Parse("not tcp and udp or pid[1]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	or, ok := expr.(ExprOr)
	if !ok {
		t.Fatalf("top level = %T, want ExprOr", expr)
	}
	and, ok := or.Left.(ExprAnd)
	if !ok {
		t.Fatalf("or.Left = %T, want ExprAnd", or.Left)
	}
	if _, ok := and.Left.(ExprNot); !ok {
		t.Fatalf("and.Left = %T, want ExprNot", and.Left)
	}
	if _, ok := or.Right.(ExprPid); !ok {
		t.Fatalf("or.Right = %T, want ExprPid", or.Right)
	}
}

func TestParseErrorColumns(t *testing.T) {
	cases := []struct {
		input string
	}{
		{"pid[notanumber]"},
		{"port[999999]"},
		{"laddr[not-an-ip]"},
		{"tcp and"},
		{"(tcp"},
		{"garbage"},
	}
	for _, tc := range cases {
		_, err := Parse(tc.input)
		if err == nil {
			t.Errorf("Parse(%q): expected an error, got none", tc.input)
			continue
		}
		perr, ok := err.(*ParseError)
		if !ok {
			t.Errorf("Parse(%q): error type = %T, want *ParseError", tc.input, err)
			continue
		}
		if perr.Column < 1 {
			t.Errorf("Parse(%q): column = %d, want >= 1", tc.input, perr.Column)
		}
	}
}

func TestParseBareProtocolAndIPVersion(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  Expr
	}{
		{"tcp", ExprProtocol{Protocol: ProtocolTcp}},
		{"udp", ExprProtocol{Protocol: ProtocolUdp}},
		{"ipv4", ExprIPVersion{Version: event.IPv4}},
		{"ipv6", ExprIPVersion{Version: event.IPv6}},
	} {
		expr, err := Parse(tc.input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.input, err)
		}
		if expr != tc.want {
			t.Errorf("Parse(%q) = %#v, want %#v", tc.input, expr, tc.want)
		}
	}
}

func TestParseDoesNotMatchKeywordPrefix(t *testing.T) {
	// "tcpx" must not parse as "tcp" followed by garbage "x"; it should
	// fail as a single unrecognized token.
	_, err := Parse("tcpx")
	if err == nil {
		t.Fatalf("Parse(\"tcpx\") succeeded, want an error")
	}
}

func TestParsePortPredicates(t *testing.T) {
	expr, err := Parse("port[22]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sock := fakeSocket{lport: 22, rport: 9999}
	if !Eval(sock, expr) {
		t.Fatalf("port[22] should match local port 22")
	}
	sock2 := fakeSocket{lport: 9999, rport: 22}
	if !Eval(sock2, expr) {
		t.Fatalf("port[22] should match remote port 22 too")
	}
}
