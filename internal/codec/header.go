package codec

import (
	"encoding/binary"
	"fmt"
)

const (
	Magic      uint32 = 0x46415354 // "FAST"
	Version    uint16 = 1
	HeaderSize uint16 = 16

	// MaxPayload bounds decode allocations.
	MaxPayload uint32 = 10 * 1024 * 1024
)

// Header is the fixed frame header.
type Header struct {
	Magic      uint32
	Version    uint16
	HeaderLen  uint16
	TemplateID uint32
	PayloadLen uint32
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.HeaderLen)
	binary.BigEndian.PutUint32(buf[8:12], h.TemplateID)
	binary.BigEndian.PutUint32(buf[12:16], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(HeaderSize) {
		return Header{}, fmt.Errorf("%w: fixed header length %d", ErrTruncated, len(b))
	}
	h := Header{
		Magic:      binary.BigEndian.Uint32(b[0:4]),
		Version:    binary.BigEndian.Uint16(b[4:6]),
		HeaderLen:  binary.BigEndian.Uint16(b[6:8]),
		TemplateID: binary.BigEndian.Uint32(b[8:12]),
		PayloadLen: binary.BigEndian.Uint32(b[12:16]),
	}
	if h.Magic != Magic {
		return Header{}, ErrInvalidMagic
	}
	if h.Version != Version {
		return Header{}, ErrUnsupportedVersion
	}
	if h.HeaderLen != HeaderSize {
		return Header{}, ErrInvalidHeaderLen
	}
	return h, nil
}
