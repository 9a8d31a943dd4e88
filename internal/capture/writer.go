package capture

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/danmuck/fastplan/internal/logging/logs"
)

// MaxUDPPayload is the largest payload an IPv4 UDP datagram can carry.
const MaxUDPPayload = 65535 - Overhead

// DefaultAddress applies until SetAddresses is called.
var DefaultAddress = netip.MustParseAddr("127.0.0.1")

var (
	ErrBufferOverflow = errors.New("capture: buffer overflow")
	ErrInvalidPort    = errors.New("capture: invalid port")
	ErrSnapLen        = errors.New("capture: snap length too small")
)

// Writer appends synthesized UDP/IPv4 records to a pcap stream. Records use
// the raw IP link type since no link-layer header is written.
type Writer struct {
	pw      *pcapgo.Writer
	port    uint16
	snaplen uint32
	from    netip.Addr
	to      netip.Addr
	index   int64
}

// NewWriter writes the global header to w. Both UDP ports are set to port.
func NewWriter(w io.Writer, port uint16, snaplen uint32) (*Writer, error) {
	if port == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	if snaplen <= Overhead {
		return nil, fmt.Errorf("%w: %d", ErrSnapLen, snaplen)
	}
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snaplen, layers.LinkTypeRaw); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Writer{
		pw:      pw,
		port:    port,
		snaplen: snaplen,
		from:    DefaultAddress,
		to:      DefaultAddress,
	}, nil
}

// SetAddresses changes the IPv4 source and destination for later frames.
// Invalid addresses fall back to DefaultAddress.
func (w *Writer) SetAddresses(from, to netip.Addr) {
	if !from.Is4() {
		from = DefaultAddress
	}
	if !to.Is4() {
		to = DefaultAddress
	}
	w.from, w.to = from, to
}

// MaxPayload is the largest payload WriteFrame accepts.
func (w *Writer) MaxPayload() int {
	limit := int(w.snaplen) - Overhead
	if limit > MaxUDPPayload {
		limit = MaxUDPPayload
	}
	return limit
}

// Frames is the number of records written so far.
func (w *Writer) Frames() int64 {
	return w.index
}

// WriteFrame writes one record. The frame index stands in for the
// timestamp seconds.
func (w *Writer) WriteFrame(payload []byte) error {
	if len(payload) > w.MaxPayload() {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrBufferOverflow, len(payload), w.MaxPayload())
	}
	record := make([]byte, 0, Overhead+len(payload))
	record = append(record, IPv4Header(w.from, w.to, len(payload))...)
	record = append(record, UDPHeader(w.from, w.to, w.port, w.port, payload)...)
	record = append(record, payload...)

	ci := gopacket.CaptureInfo{
		Timestamp:     time.Unix(w.index, 0),
		CaptureLength: len(record),
		Length:        len(record),
	}
	if err := w.pw.WritePacket(ci, record); err != nil {
		return fmt.Errorf("write pcap record %d: %w", w.index, err)
	}
	logs.Tracef("capture.WriteFrame index=%d len=%d %s->%s", w.index, len(record), w.from, w.to)
	w.index++
	return nil
}
