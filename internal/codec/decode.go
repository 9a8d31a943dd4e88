package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/fastplan/internal/codec/tlv"
)

// Frame is one decoded message: header plus its top-level fields.
type Frame struct {
	Header Header
	Fields []tlv.Field
}

// Decode reads a single frame from r.
func Decode(r io.Reader) (Frame, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrTruncated
		}
		return Frame{}, err
	}
	head, err := DecodeHeader(headerBytes)
	if err != nil {
		return Frame{}, err
	}
	if head.PayloadLen > MaxPayload {
		return Frame{}, ErrPayloadTooLarge
	}

	frame := Frame{Header: head}
	if head.PayloadLen == 0 {
		return frame, nil
	}
	payload := make([]byte, head.PayloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, ErrTruncated
	}
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return Frame{}, err
	}
	frame.Fields = fields
	return frame, nil
}

// Unmarshal decodes a complete frame held in b.
func Unmarshal(b []byte) (Frame, error) {
	r := bytes.NewReader(b)
	frame, err := Decode(r)
	if err != nil {
		return Frame{}, err
	}
	if r.Len() != 0 {
		return Frame{}, fmt.Errorf("codec: %d trailing bytes", r.Len())
	}
	return frame, nil
}

// SequenceItems splits a sequence field value into its group elements.
func SequenceItems(value []byte) ([]tlv.Field, error) {
	if len(value) < 4 {
		return nil, ErrTruncated
	}
	count := binary.BigEndian.Uint32(value[:4])
	items, err := tlv.DecodeFields(value[4:])
	if err != nil {
		return nil, err
	}
	if uint32(len(items)) != count {
		return nil, fmt.Errorf("%w: sequence count %d, found %d", ErrTruncated, count, len(items))
	}
	for _, item := range items {
		if err := tlv.MustType(item, tlv.TypeGroup); err != nil {
			return nil, err
		}
	}
	return items, nil
}
