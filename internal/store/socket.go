package store

import "github.com/ftahirops/nettop/internal/event"

// Socket identifies one observed endpoint. Per the kernel invariant that
// a bound local endpoint names at most one live socket at a time,
// identity for de-duplication is the Local endpoint alone — Remote and
// SockType ride along as metadata and do not participate in equality.
type Socket struct {
	PID      uint32
	Local    event.Endpoint
	Remote   event.Endpoint
	SockType event.SocketType
}

// Key returns the comparable value used to de-duplicate sockets within
// a segment: the local endpoint only.
func (s Socket) Key() event.Endpoint { return s.Local }
