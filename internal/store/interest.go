package store

import (
	"github.com/ftahirops/nettop/internal/event"
)

// Interest is an aggregation key within a Segment.
type Interest struct {
	kind interestKind
	pid  uint32
	ep   event.Endpoint
	ip   event.IPAddr
}

type interestKind uint8

const (
	interestAll interestKind = iota
	interestPid
	interestLocalSocket
	interestRemoteSocket
	interestRemoteIp
)

// All is the implicit key whose Metrics equal the segment's total.
var All = Interest{kind: interestAll}

func ByPid(pid uint32) Interest { return Interest{kind: interestPid, pid: pid} }

func ByLocalSocket(ep event.Endpoint) Interest {
	return Interest{kind: interestLocalSocket, ep: ep}
}

func ByRemoteSocket(ep event.Endpoint) Interest {
	return Interest{kind: interestRemoteSocket, ep: ep}
}

func ByRemoteIp(ip event.IPAddr) Interest {
	return Interest{kind: interestRemoteIp, ip: ip}
}

// key is a comparable projection suitable for use as a map key; Interest
// itself contains an event.Endpoint whose IPAddr has unexported array
// fields, which are comparable, so Interest is usable directly, but we
// keep a dedicated key type to insulate callers from that detail.
type interestKey = Interest

// InterestsFromRecord returns the four keys every usable event updates:
// Pid, LocalSocket, RemoteSocket and RemoteIp.
func InterestsFromRecord(r event.Record) [4]Interest {
	local := event.Endpoint{Addr: r.LocalAddr, Port: r.LocalPort}
	remote := event.Endpoint{Addr: r.RemoteAddr, Port: r.RemotePort}
	return [4]Interest{
		ByPid(r.PID),
		ByLocalSocket(local),
		ByRemoteSocket(remote),
		ByRemoteIp(r.RemoteAddr),
	}
}
