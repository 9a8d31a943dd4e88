package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/danmuck/fastplan/internal/codec/tlv"
)

// Encode writes msg to w. Every mandatory field must have been bound.
func Encode(w io.Writer, msg *Message) error {
	if msg == nil || msg.Template == nil {
		return ErrNilMessage
	}
	payload, err := encodeGroup(msg.Template.Name, msg.GroupValue)
	if err != nil {
		return err
	}
	if uint64(len(payload)) > uint64(MaxPayload) {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	head := Header{
		Magic:      Magic,
		Version:    Version,
		HeaderLen:  HeaderSize,
		TemplateID: msg.Template.ID,
		PayloadLen: uint32(len(payload)),
	}
	if _, err := w.Write(EncodeHeader(head)); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// Marshal returns the encoded frame for msg.
func Marshal(msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeGroup(path string, g *GroupValue) ([]byte, error) {
	fields := make([]tlv.Field, 0, len(g.entries))
	for idx, e := range g.entries {
		f := g.fields[idx]
		where := path + "." + f.Name
		if !e.set {
			if !f.Optional {
				return nil, fmt.Errorf("%w: %s", ErrMissingRequired, where)
			}
			continue
		}
		typ, _ := tlv.TypeFor(f.Kind)
		value := e.raw
		var err error
		switch {
		case e.group != nil:
			value, err = encodeGroup(where, e.group)
		case e.seq != nil:
			value, err = encodeSequence(where, e.seq)
		}
		if err != nil {
			return nil, err
		}
		fields = append(fields, tlv.Field{ID: uint16(idx + g.offset), Type: typ, Value: value})
	}
	return tlv.EncodeFields(fields), nil
}

func encodeSequence(path string, s *SequenceValue) ([]byte, error) {
	items := make([]tlv.Field, 0, len(s.items))
	for i, item := range s.items {
		payload, err := encodeGroup(fmt.Sprintf("%s[%d]", path, i), item)
		if err != nil {
			return nil, err
		}
		items = append(items, tlv.Field{ID: uint16(i), Type: tlv.TypeGroup, Value: payload})
	}
	out := binary.BigEndian.AppendUint32(nil, uint32(len(s.items)))
	return append(out, tlv.EncodeFields(items)...), nil
}
