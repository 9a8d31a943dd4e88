package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danmuck/fastplan/internal/logging/logs"
)

// Handler consumes one received datagram. The slice is reused after the
// handler returns.
type Handler func(datagram []byte) error

// Receiver listens for datagrams sent by a UDPSender or any other peer.
type Receiver struct {
	conn    *net.UDPConn
	scratch []byte
}

// NewReceiver binds host:port. An empty host listens on all interfaces.
func NewReceiver(host string, port int) (*Receiver, error) {
	if err := validatePort(port, true); err != nil {
		return nil, err
	}
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(strings.TrimSpace(host), strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("receiver resolve: %w", err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("receiver bind %s: %w", addr, err)
	}
	logs.Infof("sink.receiver bound addr=%s", conn.LocalAddr())
	return &Receiver{conn: conn, scratch: make([]byte, MaxDatagram)}, nil
}

func (r *Receiver) Addr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// Serve hands each datagram to h until ctx is done or h fails. The socket
// is closed when Serve returns.
func (r *Receiver) Serve(ctx context.Context, h Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return r.conn.Close()
	})
	g.Go(func() error {
		defer cancel()
		for {
			n, from, err := r.conn.ReadFromUDP(r.scratch)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("receiver read: %w", err)
			}
			logs.Debugf("sink.receiver datagram from=%s bytes=%d", from, n)
			if err := h(r.scratch[:n]); err != nil {
				return err
			}
		}
	})
	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Close releases the socket. Serve closes it on return as well.
func (r *Receiver) Close() error {
	err := r.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
