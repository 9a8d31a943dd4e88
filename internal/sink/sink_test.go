package sink

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/fastplan/internal/capture"
	"github.com/danmuck/fastplan/internal/testutil/testlog"
)

const testTimeout = 2 * time.Second

func TestASCIISinkRendersBits(t *testing.T) {
	testlog.Start(t)

	var out bytes.Buffer
	s := NewASCII(&out, "\n")
	require.NoError(t, s.Accept([]byte{0x01, 0x80}))
	require.NoError(t, s.Accept([]byte{0xA5}))
	require.NoError(t, s.EndFrame())
	assert.Equal(t, "00000001\n10000000\n10100101\n", out.String())

	out.Reset()
	s = NewASCII(&out, "")
	require.NoError(t, s.Accept([]byte{0xFF, 0x00}))
	assert.Empty(t, out.String(), "output is buffered until EndFrame")
	require.NoError(t, s.Close())
	assert.Equal(t, "1111111100000000", out.String())
}

func TestRawSinkPassesBytesThrough(t *testing.T) {
	testlog.Start(t)

	var out bytes.Buffer
	s := NewRaw(&out, "")
	require.NoError(t, s.Accept([]byte("FAST")))
	require.NoError(t, s.EndFrame())
	assert.Equal(t, "FAST", out.String())

	out.Reset()
	s = NewRaw(&out, "|")
	require.NoError(t, s.Accept([]byte("ab")))
	require.NoError(t, s.EndFrame())
	assert.Equal(t, "a|b|", out.String())
}

func TestUDPLoopbackEchoesFrames(t *testing.T) {
	testlog.Start(t)

	s, err := NewUDPLoopback(0, 1024, testTimeout)
	require.NoError(t, err)
	defer s.Close()
	assert.NotZero(t, s.Addr().Port)

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Accept([]byte{byte(i), 0x01}))
		require.NoError(t, s.Accept([]byte{0x02}))
		require.NoError(t, s.EndFrame())
	}
	require.NoError(t, s.EndFrame(), "empty frame is a no-op")
}

func TestUDPLoopbackOverflowResetsBuffer(t *testing.T) {
	testlog.Start(t)

	s, err := NewUDPLoopback(0, 4, testTimeout)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Accept([]byte{1, 2, 3}))
	err = s.Accept([]byte{4, 5})
	assert.ErrorIs(t, err, ErrBufferOverflow)

	require.NoError(t, s.Accept([]byte{1, 2, 3, 4}))
	require.NoError(t, s.EndFrame())
}

func TestTCPLoopbackDrainsWholeFrames(t *testing.T) {
	testlog.Start(t)

	s, err := NewTCPLoopback(0, 2<<20, testTimeout)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Accept(bytes.Repeat([]byte{0x5A}, 1<<20)))
	require.NoError(t, s.EndFrame())
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Accept([]byte{byte(i)}))
		require.NoError(t, s.EndFrame())
	}

	err = s.Accept(make([]byte, 2<<20+1))
	assert.ErrorIs(t, err, ErrBufferOverflow)
}

func TestTCPLoopbackResetsStreamAfterFailedFrame(t *testing.T) {
	testlog.Start(t)

	s, err := NewTCPLoopback(0, 64, testTimeout)
	require.NoError(t, err)
	defer s.Close()

	// bytes left over from an interrupted frame
	_, err = s.server.Write([]byte("stale"))
	require.NoError(t, err)

	s.timeout = time.Nanosecond
	require.NoError(t, s.Accept([]byte("doomed")))
	require.Error(t, s.EndFrame())
	require.NotNil(t, s.client, "pair should be reconnected after a failed frame")

	s.timeout = testTimeout
	require.NoError(t, s.Accept([]byte("fresh")))
	require.NoError(t, s.EndFrame())
	assert.Equal(t, []byte("fresh"), s.scratch[:5])
}

func TestUDPSenderReachesReceiver(t *testing.T) {
	testlog.Start(t)

	r, err := NewReceiver("127.0.0.1", 0)
	require.NoError(t, err)

	got := make(chan []byte, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Serve(ctx, func(d []byte) error {
			got <- append([]byte(nil), d...)
			return nil
		})
	}()

	s, err := NewUDPSender("127.0.0.1", r.Addr().Port, 1024)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Accept([]byte("one")))
	require.NoError(t, s.EndFrame())
	require.NoError(t, s.Accept([]byte("two")))
	require.NoError(t, s.EndFrame())

	for _, want := range []string{"one", "two"} {
		select {
		case d := <-got:
			assert.Equal(t, want, string(d))
		case <-time.After(testTimeout):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("receiver did not stop")
	}
}

func TestCaptureSinkWritesAddressedRecords(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "out.pcap")
	s, err := NewCaptureSink(path, 5000, 1<<20)
	require.NoError(t, err)

	require.NoError(t, s.Accept([]byte("first")))
	require.NoError(t, s.EndFrame())
	s.SetAddresses(netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("192.0.2.2"))
	require.NoError(t, s.Accept([]byte("second")))
	require.NoError(t, s.EndFrame())
	assert.Equal(t, int64(2), s.Frames())

	err = s.Accept(make([]byte, capture.MaxUDPPayload+1))
	assert.ErrorIs(t, err, ErrBufferOverflow)
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)

	var srcs []string
	var payloads []string
	for {
		data, _, err := r.ReadPacketData()
		if err != nil {
			break
		}
		pkt := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.Default)
		ip := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		udp := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		srcs = append(srcs, ip.SrcIP.String())
		payloads = append(payloads, string(udp.Payload))
	}
	assert.Equal(t, []string{"127.0.0.1", "192.0.2.1"}, srcs)
	assert.Equal(t, []string{"first", "second"}, payloads)
}

func TestOpenValidatesOptions(t *testing.T) {
	testlog.Start(t)

	_, err := Open(Options{Transport: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrUnknownTransport)

	_, err = Open(Options{Transport: TransportCapture, Port: 1, MaxFrameSize: 10})
	assert.ErrorIs(t, err, ErrMissingCapture)

	_, err = Open(Options{Transport: TransportCapture, CaptureFile: filepath.Join(t.TempDir(), "x.pcap"), Port: 70000, MaxFrameSize: 10})
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = Open(Options{Transport: TransportUDP, Port: -1, MaxFrameSize: 10})
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = Open(Options{Transport: TransportUDP, MaxFrameSize: 0})
	assert.ErrorIs(t, err, ErrInvalidFrameSize)

	_, err = Open(Options{Transport: TransportSend, Port: 9, MaxFrameSize: 10})
	assert.ErrorIs(t, err, ErrMissingRemoteHost)

	var out bytes.Buffer
	s, err := Open(Options{Transport: TransportRaw, Output: &out})
	require.NoError(t, err)
	require.NoError(t, s.Accept([]byte("x")))
	require.NoError(t, s.Close())
	assert.Equal(t, "x", out.String())

	tr, err := ParseTransport(" PCAP ")
	require.NoError(t, err)
	assert.Equal(t, TransportCapture, tr)
}
