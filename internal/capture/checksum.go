package capture

import (
	"encoding/binary"
	"net/netip"
)

// Sum adds the big-endian 16-bit words of data into a 32-bit accumulator.
// An odd trailing byte is padded with zero.
func Sum(data []byte) uint32 {
	var sum uint32
	n := len(data) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(data[i:]))
		if sum&0x80000000 != 0 {
			sum = sum&0xFFFF + sum>>16
		}
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	return sum
}

// Fold carries the high half into the low half until nothing is left over.
func Fold(sum uint32) uint16 {
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return uint16(sum)
}

// Checksum is the Internet checksum over the concatenation of chunks.
func Checksum(chunks ...[]byte) uint16 {
	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	all := make([]byte, 0, size)
	for _, c := range chunks {
		all = append(all, c...)
	}
	return ^Fold(Sum(all))
}

// Verify reports whether data, checksum field included, sums to all ones.
func Verify(data []byte) bool {
	return Fold(Sum(data)) == 0xFFFF
}

// PseudoHeader builds the 12-byte IPv4 pseudo-header covered by transport
// checksums.
func PseudoHeader(src, dst netip.Addr, proto uint8, length uint16) []byte {
	out := make([]byte, 12)
	s, d := src.As4(), dst.As4()
	copy(out[0:4], s[:])
	copy(out[4:8], d[:])
	out[8] = 0
	out[9] = proto
	binary.BigEndian.PutUint16(out[10:12], length)
	return out
}
