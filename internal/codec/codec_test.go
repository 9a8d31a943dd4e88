package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/fastplan/internal/codec/tlv"
	"github.com/danmuck/fastplan/internal/template"
	"github.com/danmuck/fastplan/internal/testutil/testlog"
)

func quoteTemplate() *template.Template {
	return &template.Template{
		ID:   7,
		Name: "Quote",
		Fields: []template.Field{
			{Name: "Seq", Kind: template.KindUInt32},
			{Name: "Symbol", Kind: template.KindASCII},
			{Name: "Px", Kind: template.KindDecimal},
			{Name: "Note", Kind: template.KindUnicode, Optional: true},
			{Name: "Legs", Kind: template.KindSequence, Fields: []template.Field{
				{Name: "Qty", Kind: template.KindInt64},
			}},
		},
	}
}

func TestMarshalWritesHeaderAndSlots(t *testing.T) {
	testlog.Start(t)
	msg := NewMessage(quoteTemplate())
	mustNil(t, msg.SetInt32(1, 42))
	mustNil(t, msg.SetString(2, "ABC"))
	mustNil(t, msg.SetDecimal(3, 314, -2))
	seq, err := msg.NewSequence(5)
	mustNil(t, err)
	for _, qty := range []int64{5, -6} {
		item, err := seq.Append()
		mustNil(t, err)
		mustNil(t, item.SetInt64(0, qty))
	}

	raw, err := Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	frame, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Header.TemplateID != 7 || int(frame.Header.PayloadLen) != len(raw)-int(HeaderSize) {
		t.Fatalf("unexpected header: %+v", frame.Header)
	}
	if len(frame.Fields) != 4 {
		t.Fatalf("expected 4 encoded fields (optional omitted), got %d", len(frame.Fields))
	}

	seqField, ok := tlv.GetField(frame.Fields, 1)
	if !ok || seqField.Type != tlv.TypeUInt32 {
		t.Fatalf("slot 1 missing or wrong type: %+v", seqField)
	}
	if v, _ := tlv.U32FromBytes(seqField.Value); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}

	px, ok := tlv.GetField(frame.Fields, 3)
	if !ok || len(px.Value) != 12 {
		t.Fatalf("decimal slot malformed: %+v", px)
	}
	if exp := int32(binary.BigEndian.Uint32(px.Value[:4])); exp != -2 {
		t.Fatalf("expected exponent -2, got %d", exp)
	}
	if mant := int64(binary.BigEndian.Uint64(px.Value[4:])); mant != 314 {
		t.Fatalf("expected mantissa 314, got %d", mant)
	}

	legs, ok := tlv.GetField(frame.Fields, 5)
	if !ok || legs.Type != tlv.TypeSequence {
		t.Fatalf("sequence slot missing: %+v", legs)
	}
	items, err := SequenceItems(legs.Value)
	if err != nil {
		t.Fatalf("sequence items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	inner, err := tlv.DecodeFields(items[1].Value)
	if err != nil || len(inner) != 1 {
		t.Fatalf("decode item: %v (%d fields)", err, len(inner))
	}
	if v, _ := tlv.U64FromBytes(inner[0].Value); int64(v) != -6 {
		t.Fatalf("expected -6, got %d", int64(v))
	}
}

func TestMarshalRejectsMissingMandatoryField(t *testing.T) {
	testlog.Start(t)
	msg := NewMessage(quoteTemplate())
	mustNil(t, msg.SetInt32(1, 1))

	_, err := Marshal(msg)
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired, got %v", err)
	}
}

func TestSettersRejectWrongSlots(t *testing.T) {
	testlog.Start(t)
	msg := NewMessage(quoteTemplate())

	if err := msg.SetInt32(0, 1); !errors.Is(err, ErrSlotRange) {
		t.Fatalf("slot 0 is reserved, got %v", err)
	}
	if err := msg.SetInt32(6, 1); !errors.Is(err, ErrSlotRange) {
		t.Fatalf("expected ErrSlotRange, got %v", err)
	}
	if err := msg.SetInt64(1, 1); !errors.Is(err, ErrFieldTypeMismatch) {
		t.Fatalf("expected ErrFieldTypeMismatch, got %v", err)
	}
	if err := msg.SetString(2, "é"); !errors.Is(err, ErrNotASCII) {
		t.Fatalf("expected ErrNotASCII, got %v", err)
	}
	mustNil(t, msg.SetString(4, "é"))
	if err := msg.SetString(4, "again"); !errors.Is(err, ErrAlreadySet) {
		t.Fatalf("expected ErrAlreadySet, got %v", err)
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	testlog.Start(t)
	msg := &Message{Template: &template.Template{ID: 1, Name: "Empty"}, GroupValue: newGroupValue(nil, 1)}
	raw, err := Marshal(msg)
	if err != nil {
		t.Fatalf("marshal empty: %v", err)
	}
	if len(raw) != int(HeaderSize) {
		t.Fatalf("expected bare header, got %d bytes", len(raw))
	}

	if _, err := Decode(bytes.NewReader(raw[:HeaderSize-1])); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	bad := append([]byte(nil), raw...)
	bad[0] ^= 0xFF
	if _, err := Decode(bytes.NewReader(bad)); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
	if _, err := Marshal(nil); !errors.Is(err, ErrNilMessage) {
		t.Fatalf("expected ErrNilMessage, got %v", err)
	}
}

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
