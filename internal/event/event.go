// Package event defines the fixed-layout per-message record delivered by
// the kernel-probe event source, and the domain values decoded from it.
package event

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Channel is the direction a socket message travelled.
type Channel uint8

const (
	ChannelTx Channel = iota
	ChannelRx
)

func (c Channel) String() string {
	if c == ChannelRx {
		return "rx"
	}
	return "tx"
}

// SocketType mirrors the kernel's socket type constants.
type SocketType uint8

const (
	SockStream SocketType = iota
	SockDgram
	SockRaw
	SockRdm
	SockSeqpacket
	SockDCCP
	SockPacket
	SockUnknown
)

func (t SocketType) String() string {
	switch t {
	case SockStream:
		return "stream"
	case SockDgram:
		return "dgram"
	case SockRaw:
		return "raw"
	case SockRdm:
		return "rdm"
	case SockSeqpacket:
		return "seqpacket"
	case SockDCCP:
		return "dccp"
	case SockPacket:
		return "packet"
	default:
		return "unknown"
	}
}

// IPVersion tags which union arm of IPAddr is populated.
type IPVersion uint8

const (
	IPv4 IPVersion = iota
	IPv6
)

// IPAddr is the tagged {V4(u32), V6([u16;8])} address value from the
// data model. Zero value is the unspecified IPv4 address.
type IPAddr struct {
	Version IPVersion
	v4      uint32
	v6      [8]uint16
}

// NewIPv4 builds an IPAddr from a host-order 32-bit address.
func NewIPv4(addr uint32) IPAddr {
	return IPAddr{Version: IPv4, v4: addr}
}

// NewIPv6 builds an IPAddr from eight host-order 16-bit words.
func NewIPv6(words [8]uint16) IPAddr {
	return IPAddr{Version: IPv6, v6: words}
}

// Uint32 returns the raw v4 word; only meaningful when Version == IPv4.
func (a IPAddr) Uint32() uint32 { return a.v4 }

// Words returns the raw v6 words; only meaningful when Version == IPv6.
func (a IPAddr) Words() [8]uint16 { return a.v6 }

// Equal compares two addresses for value equality, tag included.
func (a IPAddr) Equal(b IPAddr) bool {
	if a.Version != b.Version {
		return false
	}
	if a.Version == IPv4 {
		return a.v4 == b.v4
	}
	return a.v6 == b.v6
}

// ToNetIP converts to the standard library representation for display
// and for parsing/formatting in the filter language.
func (a IPAddr) ToNetIP() net.IP {
	if a.Version == IPv4 {
		b := make(net.IP, 4)
		binary.BigEndian.PutUint32(b, a.v4)
		return b
	}
	b := make(net.IP, 16)
	for i, w := range a.v6 {
		binary.BigEndian.PutUint16(b[i*2:], w)
	}
	return b
}

func (a IPAddr) String() string { return a.ToNetIP().String() }

// FromNetIP builds an IPAddr from a parsed net.IP, preferring the V4
// representation when the address has one.
func FromNetIP(ip net.IP) (IPAddr, error) {
	if v4 := ip.To4(); v4 != nil {
		return NewIPv4(binary.BigEndian.Uint32(v4)), nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return IPAddr{}, fmt.Errorf("event: not an IP address: %v", ip)
	}
	var words [8]uint16
	for i := range words {
		words[i] = binary.BigEndian.Uint16(v6[i*2:])
	}
	return NewIPv6(words), nil
}

// Endpoint is an (address, port) pair, used both for the local and
// remote side of a Socket.
type Endpoint struct {
	Addr IPAddr
	Port uint16
}

func (e Endpoint) Equal(o Endpoint) bool {
	return e.Port == o.Port && e.Addr.Equal(o.Addr)
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Addr.String(), fmt.Sprintf("%d", e.Port))
}

// Record is the decoded, host-endian domain value. Wire ports are
// network-endian and are converted to host order by Decode.
type Record struct {
	SockType   SocketType
	LocalAddr  IPAddr
	RemoteAddr IPAddr
	LocalPort  uint16
	RemotePort uint16
	// Ret holds the raw signed return value from the kernel call: >= 0
	// is a successful transfer of that many bytes, < 0 is -errno.
	Ret     int32
	PID     uint32
	Channel Channel
}

// Usable reports whether the event represents a successful transfer
// that aggregation should account for.
func (r Record) Usable() bool { return r.Ret >= 0 }

// Len returns the transferred byte count; only meaningful when Usable.
func (r Record) Len() uint64 { return uint64(r.Ret) }

// wireRecord is the fixed, C-compatible layout the probe produces. It
// exists separately from Record because the source boundary is a byte
// array, not a Go struct with methods; ports are carried network-endian
// on the wire.
type wireRecord struct {
	SockType    uint8
	_           [3]byte
	IPVersion   uint8
	_           [3]byte
	LocalAddr   [16]byte
	RemoteAddr  [16]byte
	LocalPortBE uint16
	RemotePortBE uint16
	Ret         int32
	PID         uint32
	Channel     uint8
	_           [3]byte
}

// WireSize is the fixed byte length of one encoded record.
const WireSize = 56

func ntohs(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

func decodeAddr(version uint8, raw [16]byte) IPAddr {
	if version == uint8(IPv4) {
		return NewIPv4(binary.BigEndian.Uint32(raw[12:16]))
	}
	var words [8]uint16
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[i*2:])
	}
	return NewIPv6(words)
}

// Decode parses one fixed-layout record out of buf, converting ports
// from network to host byte order. It returns an error only when buf is
// too short. A socket type beyond SockUnknown is clamped to SockUnknown,
// and an IP version byte other than IPv4 decodes both addresses as IPv6.
// Neither case is rejected here, and aggregation does not skip such
// records.
func Decode(buf []byte) (Record, error) {
	if len(buf) < WireSize {
		return Record{}, fmt.Errorf("event: short record: %d bytes, want %d", len(buf), WireSize)
	}
	var w wireRecord
	w.SockType = buf[0]
	w.IPVersion = buf[4]
	copy(w.LocalAddr[:], buf[8:24])
	copy(w.RemoteAddr[:], buf[24:40])
	w.LocalPortBE = binary.LittleEndian.Uint16(buf[40:42])
	w.RemotePortBE = binary.LittleEndian.Uint16(buf[42:44])
	w.Ret = int32(binary.LittleEndian.Uint32(buf[44:48]))
	w.PID = binary.LittleEndian.Uint32(buf[48:52])
	w.Channel = buf[52]

	sockType := SocketType(w.SockType)
	if sockType > SockUnknown {
		sockType = SockUnknown
	}
	channel := Channel(w.Channel)
	if channel != ChannelRx {
		channel = ChannelTx
	}

	return Record{
		SockType:   sockType,
		LocalAddr:  decodeAddr(w.IPVersion, w.LocalAddr),
		RemoteAddr: decodeAddr(w.IPVersion, w.RemoteAddr),
		LocalPort:  ntohs(w.LocalPortBE),
		RemotePort: ntohs(w.RemotePortBE),
		Ret:        w.Ret,
		PID:        w.PID,
		Channel:    channel,
	}, nil
}
