package sink

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"
)

// Sink consumes one frame at a time.
type Sink interface {
	// Accept appends bytes to the current frame.
	Accept(frame []byte) error
	// EndFrame delivers the current frame and starts a new one.
	EndFrame() error
	Close() error
}

// Addressable sinks carry per-frame IPv4 endpoints.
type Addressable interface {
	SetAddresses(from, to netip.Addr)
}

var (
	ErrBufferOverflow    = errors.New("sink: buffer overflow")
	ErrInvalidPort       = errors.New("sink: invalid port")
	ErrInvalidFrameSize  = errors.New("sink: invalid max frame size")
	ErrUnknownTransport  = errors.New("sink: unknown transport")
	ErrMissingCapture    = errors.New("sink: capture file required")
	ErrMissingRemoteHost = errors.New("sink: remote host required")
	ErrClosed            = errors.New("sink: closed")
)

// Transport names a sink variant.
type Transport string

const (
	TransportASCII   Transport = "ascii"
	TransportRaw     Transport = "raw"
	TransportUDP     Transport = "udp"
	TransportTCP     Transport = "tcp"
	TransportSend    Transport = "send"
	TransportCapture Transport = "pcap"
)

// Transports lists every supported transport name.
func Transports() []Transport {
	return []Transport{TransportASCII, TransportRaw, TransportUDP, TransportTCP, TransportSend, TransportCapture}
}

// ParseTransport resolves a transport name case-insensitively.
func ParseTransport(raw string) (Transport, error) {
	name := Transport(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range Transports() {
		if t == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTransport, raw)
}

// Options selects and configures a sink for Open.
type Options struct {
	Transport      Transport
	Host           string
	Port           int
	CaptureFile    string
	MaxFrameSize   int
	ReceiveTimeout time.Duration
	Separator      string
	// Output receives debug text; nil means stdout.
	Output io.Writer
}

// Open constructs the sink described by opts. Construction failures are
// returned as-is so callers can treat them as fatal.
func Open(opts Options) (Sink, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	switch opts.Transport {
	case TransportASCII, "":
		return NewASCII(out, opts.Separator), nil
	case TransportRaw:
		return NewRaw(out, opts.Separator), nil
	case TransportUDP:
		return NewUDPLoopback(opts.Port, opts.MaxFrameSize, opts.ReceiveTimeout)
	case TransportTCP:
		return NewTCPLoopback(opts.Port, opts.MaxFrameSize, opts.ReceiveTimeout)
	case TransportSend:
		return NewUDPSender(opts.Host, opts.Port, opts.MaxFrameSize)
	case TransportCapture:
		return NewCaptureSink(opts.CaptureFile, opts.Port, opts.MaxFrameSize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, opts.Transport)
	}
}

func validatePort(port int, allowEphemeral bool) error {
	if port < 0 || port > 65535 || (port == 0 && !allowEphemeral) {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	return nil
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}
