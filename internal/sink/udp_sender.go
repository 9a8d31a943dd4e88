package sink

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/danmuck/fastplan/internal/logging/logs"
)

// UDPSender delivers each frame as one datagram to a remote peer.
type UDPSender struct {
	conn net.Conn
	buf  *frameBuffer
}

func NewUDPSender(host string, port, maxFrame int) (*UDPSender, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, ErrMissingRemoteHost
	}
	if err := validatePort(port, false); err != nil {
		return nil, err
	}
	if maxFrame > MaxDatagram {
		maxFrame = MaxDatagram
	}
	buf, err := newFrameBuffer(maxFrame)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.Dial("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("udp sender dial %s: %w", addr, err)
	}
	logs.Debugf("sink.send remote=%s max_frame=%d", conn.RemoteAddr(), maxFrame)
	return &UDPSender{conn: conn, buf: buf}, nil
}

func (s *UDPSender) Accept(frame []byte) error {
	return s.buf.add(frame)
}

func (s *UDPSender) EndFrame() error {
	frame := s.buf.take()
	if len(frame) == 0 {
		return nil
	}
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("udp send: %w", err)
	}
	return nil
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}
