// Package filter implements the small boolean expression language used
// to restrict the socket table and sparkline to processes, addresses,
// ports or protocol families.
package filter

import "github.com/ftahirops/nettop/internal/event"

// Protocol is the sugar-level protocol an expression can match.
type Protocol uint8

const (
	ProtocolTcp Protocol = iota
	ProtocolUdp
)

// Expr is the algebraic sum type of the filter grammar.
type Expr interface {
	isExpr()
}

type ExprPid struct{ Pid uint32 }
type ExprProtocol struct{ Protocol Protocol }
type ExprIPVersion struct{ Version event.IPVersion }
type ExprAddr struct{ Addr event.IPAddr }
type ExprLocalAddr struct{ Addr event.IPAddr }
type ExprRemoteAddr struct{ Addr event.IPAddr }
type ExprPort struct{ Port uint16 }
type ExprLocalPort struct{ Port uint16 }
type ExprRemotePort struct{ Port uint16 }
type ExprAnd struct{ Left, Right Expr }
type ExprOr struct{ Left, Right Expr }
type ExprNot struct{ Operand Expr }

func (ExprPid) isExpr()         {}
func (ExprProtocol) isExpr()    {}
func (ExprIPVersion) isExpr()   {}
func (ExprAddr) isExpr()        {}
func (ExprLocalAddr) isExpr()   {}
func (ExprRemoteAddr) isExpr()  {}
func (ExprPort) isExpr()        {}
func (ExprLocalPort) isExpr()   {}
func (ExprRemotePort) isExpr()  {}
func (ExprAnd) isExpr()         {}
func (ExprOr) isExpr()          {}
func (ExprNot) isExpr()         {}

// Filterable is the attribute set an expression is evaluated against.
type Filterable interface {
	PID() uint32
	Protocol() Protocol
	IPVersion() event.IPVersion
	LocalAddress() event.IPAddr
	RemoteAddress() event.IPAddr
	LocalPort() uint16
	RemotePort() uint16
}

// Eval recursively evaluates expr against f. Connectives short-circuit.
func Eval(f Filterable, expr Expr) bool {
	switch e := expr.(type) {
	case ExprPid:
		return f.PID() == e.Pid
	case ExprProtocol:
		return f.Protocol() == e.Protocol
	case ExprIPVersion:
		return f.IPVersion() == e.Version
	case ExprAddr:
		return f.LocalAddress().Equal(e.Addr) || f.RemoteAddress().Equal(e.Addr)
	case ExprLocalAddr:
		return f.LocalAddress().Equal(e.Addr)
	case ExprRemoteAddr:
		return f.RemoteAddress().Equal(e.Addr)
	case ExprPort:
		return f.LocalPort() == e.Port || f.RemotePort() == e.Port
	case ExprLocalPort:
		return f.LocalPort() == e.Port
	case ExprRemotePort:
		return f.RemotePort() == e.Port
	case ExprAnd:
		return Eval(f, e.Left) && Eval(f, e.Right)
	case ExprOr:
		return Eval(f, e.Left) || Eval(f, e.Right)
	case ExprNot:
		return !Eval(f, e.Operand)
	default:
		return false
	}
}
