package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/fastplan/internal/template"
)

const HeaderLen = 7

var (
	ErrShortFieldHeader = errors.New("tlv: short field header")
	ErrShortFieldValue  = errors.New("tlv: short field value")
)

// Type IDs, one per template field kind.
const (
	TypeInt32      uint8 = 1
	TypeUInt32     uint8 = 2
	TypeInt64      uint8 = 3
	TypeUInt64     uint8 = 4
	TypeDecimal    uint8 = 5
	TypeASCII      uint8 = 6
	TypeUnicode    uint8 = 7
	TypeByteVector uint8 = 8
	TypeGroup      uint8 = 9
	TypeSequence   uint8 = 10
)

var kindTypes = map[template.Kind]uint8{
	template.KindInt32:      TypeInt32,
	template.KindUInt32:     TypeUInt32,
	template.KindInt64:      TypeInt64,
	template.KindUInt64:     TypeUInt64,
	template.KindDecimal:    TypeDecimal,
	template.KindASCII:      TypeASCII,
	template.KindUnicode:    TypeUnicode,
	template.KindByteVector: TypeByteVector,
	template.KindGroup:      TypeGroup,
	template.KindSequence:   TypeSequence,
}

// TypeFor maps a field kind to its wire type id.
func TypeFor(k template.Kind) (uint8, bool) {
	t, ok := kindTypes[k]
	return t, ok
}

// Field is one decoded TLV field. ID is the positional slot.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func EncodeField(f Field) []byte {
	buf := make([]byte, HeaderLen+len(f.Value))
	binary.BigEndian.PutUint16(buf[0:2], f.ID)
	buf[2] = f.Type
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(f.Value)))
	copy(buf[7:], f.Value)
	return buf
}

func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0)
	i := 0
	for i < len(payload) {
		if len(payload)-i < HeaderLen {
			return nil, ErrShortFieldHeader
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		typeID := payload[i+2]
		l := binary.BigEndian.Uint32(payload[i+3 : i+7])
		i += HeaderLen
		if uint32(len(payload)-i) < l {
			return nil, ErrShortFieldValue
		}
		val := make([]byte, l)
		copy(val, payload[i:i+int(l)])
		i += int(l)
		fields = append(fields, Field{ID: id, Type: typeID, Value: val})
	}
	return fields, nil
}

func EncodeFields(fields []Field) []byte {
	size := 0
	for _, f := range fields {
		size += HeaderLen + len(f.Value)
	}
	out := make([]byte, 0, size)
	for _, f := range fields {
		out = append(out, EncodeField(f)...)
	}
	return out
}

func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func MustType(f Field, expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("tlv: field %d type mismatch: got %d want %d", f.ID, f.Type, expected)
	}
	return nil
}

func U32FromBytes(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("tlv: invalid u32 length: %d", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

func U64FromBytes(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("tlv: invalid u64 length: %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
