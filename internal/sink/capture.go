package sink

import (
	"bufio"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"github.com/danmuck/fastplan/internal/capture"
	"github.com/danmuck/fastplan/internal/logging/logs"
)

// CaptureSink writes every frame as a UDP/IPv4 record of a pcap file.
type CaptureSink struct {
	file *os.File
	bw   *bufio.Writer
	w    *capture.Writer
	buf  *frameBuffer
}

var _ Addressable = (*CaptureSink)(nil)

// NewCaptureSink creates path and writes the pcap global header. Frames
// larger than the lesser of maxFrame and one IPv4 datagram are rejected.
func NewCaptureSink(path string, port, maxFrame int) (*CaptureSink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrMissingCapture
	}
	if err := validatePort(port, false); err != nil {
		return nil, err
	}
	if maxFrame <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameSize, maxFrame)
	}
	if maxFrame > capture.MaxUDPPayload {
		maxFrame = capture.MaxUDPPayload
	}
	buf, err := newFrameBuffer(maxFrame)
	if err != nil {
		return nil, err
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture %s: %w", path, err)
	}
	bw := bufio.NewWriter(file)
	w, err := capture.NewWriter(bw, uint16(port), uint32(maxFrame+capture.Overhead))
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	logs.Debugf("sink.pcap file=%s port=%d max_frame=%d", path, port, maxFrame)
	return &CaptureSink{file: file, bw: bw, w: w, buf: buf}, nil
}

// SetAddresses applies to the next frame.
func (s *CaptureSink) SetAddresses(from, to netip.Addr) {
	s.w.SetAddresses(from, to)
}

func (s *CaptureSink) Accept(frame []byte) error {
	return s.buf.add(frame)
}

// EndFrame writes one record and flushes it to the file.
func (s *CaptureSink) EndFrame() error {
	if err := s.w.WriteFrame(s.buf.take()); err != nil {
		return err
	}
	return s.bw.Flush()
}

// Frames is the number of records written.
func (s *CaptureSink) Frames() int64 {
	return s.w.Frames()
}

func (s *CaptureSink) Close() error {
	return errors.Join(s.bw.Flush(), s.file.Close())
}
