package sink

import (
	"bufio"
	"io"
)

// TextSink writes frames to a writer, either as raw bytes or as eight
// '0'/'1' characters per byte. A non-empty separator follows every byte.
type TextSink struct {
	w     *bufio.Writer
	sep   string
	ascii bool
	bits  [8]byte
}

// NewASCII renders each byte as its binary digits, most significant first.
func NewASCII(w io.Writer, sep string) *TextSink {
	return &TextSink{w: bufio.NewWriter(w), sep: sep, ascii: true}
}

// NewRaw passes bytes through unchanged.
func NewRaw(w io.Writer, sep string) *TextSink {
	return &TextSink{w: bufio.NewWriter(w), sep: sep}
}

func (s *TextSink) Accept(frame []byte) error {
	if !s.ascii && s.sep == "" {
		_, err := s.w.Write(frame)
		return err
	}
	for _, b := range frame {
		if err := s.writeByte(b); err != nil {
			return err
		}
	}
	return nil
}

func (s *TextSink) writeByte(b byte) error {
	if s.ascii {
		for i := range s.bits {
			s.bits[i] = '0' + (b>>(7-i))&1
		}
		if _, err := s.w.Write(s.bits[:]); err != nil {
			return err
		}
	} else if err := s.w.WriteByte(b); err != nil {
		return err
	}
	if s.sep != "" {
		_, err := s.w.WriteString(s.sep)
		return err
	}
	return nil
}

// EndFrame flushes buffered output.
func (s *TextSink) EndFrame() error {
	return s.w.Flush()
}

// Close flushes. The underlying writer belongs to the caller.
func (s *TextSink) Close() error {
	return s.w.Flush()
}
