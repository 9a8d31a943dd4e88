package sink

import "fmt"

// frameBuffer collects one frame up to max bytes.
type frameBuffer struct {
	buf []byte
	max int
}

func newFrameBuffer(max int) (*frameBuffer, error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameSize, max)
	}
	return &frameBuffer{max: max}, nil
}

// add appends p. On overflow the partial frame is dropped so the next frame
// starts clean.
func (b *frameBuffer) add(p []byte) error {
	if len(b.buf)+len(p) > b.max {
		size := len(b.buf) + len(p)
		b.reset()
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrBufferOverflow, size, b.max)
	}
	b.buf = append(b.buf, p...)
	return nil
}

// take returns the buffered frame and clears the buffer.
func (b *frameBuffer) take() []byte {
	out := b.buf
	b.buf = nil
	return out
}

func (b *frameBuffer) reset() {
	b.buf = b.buf[:0]
}
