package sink

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danmuck/fastplan/internal/logging/logs"
)

const tcpDialTimeout = 2 * time.Second

// TCPLoopback holds both ends of one loopback connection. Frames are written
// on the accepted side and read back in full on the dialing side.
type TCPLoopback struct {
	ln      *net.TCPListener
	server  net.Conn
	client  net.Conn
	buf     *frameBuffer
	timeout time.Duration
	scratch []byte
}

// NewTCPLoopback listens on 127.0.0.1:port and connects to itself.
// Port 0 picks an ephemeral port.
func NewTCPLoopback(port, maxFrame int, timeout time.Duration) (*TCPLoopback, error) {
	if err := validatePort(port, true); err != nil {
		return nil, err
	}
	buf, err := newFrameBuffer(maxFrame)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: loopbackIP, Port: port})
	if err != nil {
		return nil, fmt.Errorf("tcp loopback listen port=%d: %w", port, err)
	}
	server, client, err := connectLoopback(ln)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	logs.Debugf("sink.tcp connected local=%s remote=%s max_frame=%d", client.LocalAddr(), client.RemoteAddr(), maxFrame)
	return &TCPLoopback{
		ln:      ln,
		server:  server,
		client:  client,
		buf:     buf,
		timeout: timeout,
	}, nil
}

// connectLoopback dials ln and returns the accepted and dialing ends.
func connectLoopback(ln *net.TCPListener) (net.Conn, net.Conn, error) {
	if err := ln.SetDeadline(time.Time{}); err != nil {
		return nil, nil, err
	}
	var g errgroup.Group
	var server net.Conn
	g.Go(func() error {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("tcp loopback accept: %w", err)
		}
		server = conn
		return nil
	})

	client, dialErr := net.DialTimeout("tcp4", ln.Addr().String(), tcpDialTimeout)
	if dialErr != nil {
		// unblocks Accept; the caller owns ln and closes it
		_ = ln.SetDeadline(time.Now())
	}
	if err := g.Wait(); err != nil || dialErr != nil {
		if client != nil {
			_ = client.Close()
		}
		if server != nil {
			_ = server.Close()
		}
		if dialErr != nil {
			return nil, nil, fmt.Errorf("tcp loopback dial: %w", dialErr)
		}
		return nil, nil, err
	}
	return server, client, nil
}

// Addr is the listener address.
func (s *TCPLoopback) Addr() net.Addr {
	return s.ln.Addr()
}

func (s *TCPLoopback) Accept(frame []byte) error {
	return s.buf.add(frame)
}

// EndFrame writes the frame and drains exactly that many bytes from the
// peer side. A failed frame leaves an unknown number of bytes in flight, so
// the connection pair is replaced before the next frame.
func (s *TCPLoopback) EndFrame() error {
	frame := s.buf.take()
	if len(frame) == 0 {
		return nil
	}
	if s.client == nil {
		if err := s.reconnect(); err != nil {
			return err
		}
	}
	if err := s.transfer(frame); err != nil {
		s.discard(err)
		return err
	}
	return nil
}

func (s *TCPLoopback) transfer(frame []byte) error {
	if err := s.server.SetWriteDeadline(deadline(s.timeout)); err != nil {
		return err
	}
	var g errgroup.Group
	g.Go(func() error {
		if _, err := s.server.Write(frame); err != nil {
			return fmt.Errorf("tcp loopback send: %w", err)
		}
		return nil
	})
	if cap(s.scratch) < len(frame) {
		s.scratch = make([]byte, len(frame))
	}
	drainErr := s.drain(s.scratch[:len(frame)])
	if drainErr != nil {
		// a blocked writer would otherwise hold Wait until its deadline
		_ = s.server.SetWriteDeadline(time.Now())
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return drainErr
}

func (s *TCPLoopback) drain(p []byte) error {
	if err := s.client.SetReadDeadline(deadline(s.timeout)); err != nil {
		return err
	}
	if _, err := io.ReadFull(s.client, p); err != nil {
		return fmt.Errorf("tcp loopback drain: %w", err)
	}
	return nil
}

// discard drops the current pair along with any unread bytes and tries to
// connect a fresh one. A failed reconnect is retried on the next frame.
func (s *TCPLoopback) discard(cause error) {
	logs.Warnf("sink.tcp resetting connection after failed frame: %v", cause)
	s.closeConns()
	if err := s.reconnect(); err != nil {
		logs.Warnf("sink.tcp reconnect failed: %v", err)
	}
}

func (s *TCPLoopback) reconnect() error {
	server, client, err := connectLoopback(s.ln)
	if err != nil {
		return err
	}
	s.server, s.client = server, client
	return nil
}

func (s *TCPLoopback) closeConns() error {
	var err error
	if s.client != nil {
		err = errors.Join(err, s.client.Close())
	}
	if s.server != nil {
		err = errors.Join(err, s.server.Close())
	}
	s.client, s.server = nil, nil
	return err
}

func (s *TCPLoopback) Close() error {
	return errors.Join(s.closeConns(), s.ln.Close())
}
