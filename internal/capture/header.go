package capture

import (
	"encoding/binary"
	"net/netip"
)

const (
	IPv4HeaderLen = 20
	UDPHeaderLen  = 8
	// Overhead is the synthesized header size in front of every payload.
	Overhead = IPv4HeaderLen + UDPHeaderLen

	ProtoUDP   = 0x11
	DefaultTTL = 0x40

	flagDontFragment = 0x4000
	versionIHL       = 0x45
)

// IPv4Header builds a 20-byte header for a UDP datagram carrying payloadLen
// bytes. The header checksum is filled in.
func IPv4Header(src, dst netip.Addr, payloadLen int) []byte {
	h := make([]byte, IPv4HeaderLen)
	h[0] = versionIHL
	h[1] = 0
	binary.BigEndian.PutUint16(h[2:4], uint16(payloadLen+Overhead))
	binary.BigEndian.PutUint16(h[4:6], 0)
	binary.BigEndian.PutUint16(h[6:8], flagDontFragment)
	h[8] = DefaultTTL
	h[9] = ProtoUDP
	s, d := src.As4(), dst.As4()
	copy(h[12:16], s[:])
	copy(h[16:20], d[:])
	binary.BigEndian.PutUint16(h[10:12], Checksum(h))
	return h
}

// UDPHeader builds an 8-byte header for payload. The checksum covers the
// pseudo-header, the header itself and the payload; a computed zero goes out
// as 0xFFFF since zero means "no checksum" on the wire.
func UDPHeader(src, dst netip.Addr, srcPort, dstPort uint16, payload []byte) []byte {
	length := uint16(len(payload) + UDPHeaderLen)
	h := make([]byte, UDPHeaderLen)
	binary.BigEndian.PutUint16(h[0:2], srcPort)
	binary.BigEndian.PutUint16(h[2:4], dstPort)
	binary.BigEndian.PutUint16(h[4:6], length)

	sum := Checksum(PseudoHeader(src, dst, ProtoUDP, length), h, payload)
	if sum == 0 {
		sum = 0xFFFF
	}
	binary.BigEndian.PutUint16(h[6:8], sum)
	return h
}
