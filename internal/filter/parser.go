package filter

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/ftahirops/nettop/internal/event"
)

// ParseError is a typed parse failure carrying a 1-based column, the
// byte offset at which parsing gave up.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter: %s (column %d)", e.Message, e.Column)
}

// Parse compiles a filter expression. Operator precedence is
// not > and > or, all left-associative; parentheses override precedence.
func Parse(input string) (Expr, error) {
	p := &parser{input: input}
	p.skipSpace()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.atEnd() {
		return nil, p.errorf("unexpected trailing input")
	}
	return expr, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.input) }

func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == ' ' || c == '\t' {
			p.pos++
			continue
		}
		break
	}
}

func (p *parser) column() int { return p.pos + 1 }

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Line: 1, Column: p.column(), Message: fmt.Sprintf(format, args...)}
}

// tryConsume consumes literal s if it appears at the current position
// followed by a non-identifier character (or end of input), so that
// "tcp" doesn't match a prefix of "tcpx". It does not skip leading
// whitespace; callers call skipSpace first.
func (p *parser) tryConsume(s string) bool {
	if !strings.HasPrefix(p.input[p.pos:], s) {
		return false
	}
	next := p.pos + len(s)
	if next < len(p.input) && isIdentByte(p.input[next]) {
		return false
	}
	p.pos = next
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// parseOr handles 'or', the lowest-precedence, left-associative
// connective: expr := andTerm ('or' andTerm)*
func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		save := p.pos
		p.skipSpace()
		if !p.tryConsume("or") {
			p.pos = save
			return left, nil
		}
		p.skipSpace()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ExprOr{Left: left, Right: right}
	}
}

// parseAnd handles 'and', binding tighter than 'or':
// andTerm := notTerm ('and' notTerm)*
func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		save := p.pos
		p.skipSpace()
		if !p.tryConsume("and") {
			p.pos = save
			return left, nil
		}
		p.skipSpace()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ExprAnd{Left: left, Right: right}
	}
}

// parseNot handles the highest-precedence prefix operator:
// notTerm := 'not' notTerm | atom
func (p *parser) parseNot() (Expr, error) {
	p.skipSpace()
	if p.tryConsume("not") {
		p.skipSpace()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ExprNot{Operand: operand}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Expr, error) {
	p.skipSpace()
	if p.atEnd() {
		return nil, p.errorf("expected expression")
	}

	if p.input[p.pos] == '(' {
		p.pos++
		p.skipSpace()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.atEnd() || p.input[p.pos] != ')' {
			return nil, p.errorf("expected ')'")
		}
		p.pos++
		return inner, nil
	}

	switch {
	case p.tryConsume("tcp"):
		return ExprProtocol{Protocol: ProtocolTcp}, nil
	case p.tryConsume("udp"):
		return ExprProtocol{Protocol: ProtocolUdp}, nil
	case p.tryConsume("ipv4"):
		return ExprIPVersion{Version: event.IPv4}, nil
	case p.tryConsume("ipv6"):
		return ExprIPVersion{Version: event.IPv6}, nil
	}

	for _, kw := range bracketedKeywords {
		if strings.HasPrefix(p.input[p.pos:], kw.prefix) {
			p.pos += len(kw.prefix)
			raw, closeCol, err := p.parseBracketed()
			if err != nil {
				return nil, err
			}
			expr, buildErr := kw.build(raw)
			if buildErr != nil {
				return nil, &ParseError{Line: 1, Column: closeCol, Message: buildErr.Error()}
			}
			return expr, nil
		}
	}

	return nil, p.errorf("unrecognized token")
}

type bracketedKeyword struct {
	prefix string
	build  func(raw string) (Expr, error)
}

var bracketedKeywords = []bracketedKeyword{
	{"pid[", func(raw string) (Expr, error) {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid pid number")
		}
		return ExprPid{Pid: uint32(n)}, nil
	}},
	{"port[", func(raw string) (Expr, error) { return parsePort(raw, func(p uint16) Expr { return ExprPort{Port: p} }) }},
	{"lport[", func(raw string) (Expr, error) { return parsePort(raw, func(p uint16) Expr { return ExprLocalPort{Port: p} }) }},
	{"rport[", func(raw string) (Expr, error) { return parsePort(raw, func(p uint16) Expr { return ExprRemotePort{Port: p} }) }},
	{"addr[", func(raw string) (Expr, error) { return parseAddr(raw, func(a event.IPAddr) Expr { return ExprAddr{Addr: a} }) }},
	{"laddr[", func(raw string) (Expr, error) { return parseAddr(raw, func(a event.IPAddr) Expr { return ExprLocalAddr{Addr: a} }) }},
	{"raddr[", func(raw string) (Expr, error) { return parseAddr(raw, func(a event.IPAddr) Expr { return ExprRemoteAddr{Addr: a} }) }},
}

func parsePort(raw string, build func(uint16) Expr) (Expr, error) {
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port number")
	}
	return build(uint16(n)), nil
}

func parseAddr(raw string, build func(event.IPAddr) Expr) (Expr, error) {
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip address")
	}
	addr, err := event.FromNetIP(ip)
	if err != nil {
		return nil, fmt.Errorf("invalid ip address")
	}
	return build(addr), nil
}

// parseBracketed reads the raw token up to the closing ']' after a
// keyword prefix like "pid[" has already been consumed. It returns the
// 1-based column of the ']' itself, which is where a semantic error
// (invalid number, invalid address) is reported — matching the position
// at which the original grammar's value parser runs, just before the
// bracket is matched.
func (p *parser) parseBracketed() (raw string, closeCol int, err *ParseError) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != ']' {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return "", 0, p.errorf("expected ']'")
	}
	raw = p.input[start:p.pos]
	closeCol = p.column()
	p.pos++ // consume ']'
	return raw, closeCol, nil
}
