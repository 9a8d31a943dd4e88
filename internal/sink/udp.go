package sink

import (
	"fmt"
	"net"
	"time"

	"github.com/danmuck/fastplan/internal/logging/logs"
)

// MaxDatagram is the largest UDP payload over IPv4.
const MaxDatagram = 65507

var loopbackIP = net.IPv4(127, 0, 0, 1)

// UDPLoopback sends each frame to its own loopback socket and reads the
// datagram back so the receive queue never grows across frames.
type UDPLoopback struct {
	conn    *net.UDPConn
	self    *net.UDPAddr
	buf     *frameBuffer
	timeout time.Duration
	scratch []byte
}

// NewUDPLoopback binds 127.0.0.1:port. Port 0 picks an ephemeral port.
// maxFrame is clamped to MaxDatagram.
func NewUDPLoopback(port, maxFrame int, timeout time.Duration) (*UDPLoopback, error) {
	if err := validatePort(port, true); err != nil {
		return nil, err
	}
	if maxFrame > MaxDatagram {
		maxFrame = MaxDatagram
	}
	buf, err := newFrameBuffer(maxFrame)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: loopbackIP, Port: port})
	if err != nil {
		return nil, fmt.Errorf("udp loopback bind port=%d: %w", port, err)
	}
	self := conn.LocalAddr().(*net.UDPAddr)
	logs.Debugf("sink.udp bound addr=%s max_frame=%d", self, maxFrame)
	return &UDPLoopback{
		conn:    conn,
		self:    self,
		buf:     buf,
		timeout: timeout,
		scratch: make([]byte, maxFrame+1),
	}, nil
}

// Addr is the bound local address.
func (s *UDPLoopback) Addr() *net.UDPAddr {
	return s.self
}

func (s *UDPLoopback) Accept(frame []byte) error {
	return s.buf.add(frame)
}

// EndFrame sends the buffered frame and drains the echo under the receive
// deadline.
func (s *UDPLoopback) EndFrame() error {
	frame := s.buf.take()
	if len(frame) == 0 {
		return nil
	}
	if _, err := s.conn.WriteToUDP(frame, s.self); err != nil {
		return fmt.Errorf("udp loopback send: %w", err)
	}
	if err := s.conn.SetReadDeadline(deadline(s.timeout)); err != nil {
		return err
	}
	n, _, err := s.conn.ReadFromUDP(s.scratch)
	if err != nil {
		return fmt.Errorf("udp loopback drain: %w", err)
	}
	if n != len(frame) {
		logs.Warnf("sink.udp drained %d bytes, sent %d", n, len(frame))
	}
	return nil
}

func (s *UDPLoopback) Close() error {
	return s.conn.Close()
}
