package plan

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/danmuck/fastplan/internal/template"
)

const bitsInByte = 8

// MaxRawBytes bounds a single bytemessage payload.
const MaxRawBytes = 10 * 1024 * 1024

// ParseHex decodes an even-length hex string.
func ParseHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: %q", ErrOddHex, s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidHex, s, err)
	}
	return b, nil
}

// ParseBits packs a whitespace-tolerant string of '0'/'1' digits, most
// significant bit first, into bytes.
func ParseBits(s string) ([]byte, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if len(digits)%bitsInByte != 0 {
		return nil, fmt.Errorf("%w: %d digits", ErrBitLength, len(digits))
	}
	if len(digits)/bitsInByte > MaxRawBytes {
		return nil, ErrRawTooLarge
	}
	out := make([]byte, len(digits)/bitsInByte)
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c != '0' && c != '1' {
			return nil, fmt.Errorf("%w: %q at offset %d", ErrNotBinary, c, i)
		}
		if c == '1' {
			out[i/bitsInByte] |= 0x80 >> (i % bitsInByte)
		}
	}
	return out, nil
}

// ParseDecimal keeps the exact base-10 representation of s.
func ParseDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %q: %v", ErrInvalidNumber, s, err)
	}
	return Decimal{Unscaled: d.Coefficient(), Exponent: d.Exponent()}, nil
}

// parseScalar converts a value attribute according to the element kind.
func parseScalar(kind template.Kind, raw string) (Value, error) {
	switch kind {
	case template.KindInt32:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return nil, numberErr(raw, err)
		}
		return Int32(v), nil
	case template.KindUInt32:
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return nil, numberErr(raw, err)
		}
		return Int32(int32(uint32(v))), nil
	case template.KindInt64:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, numberErr(raw, err)
		}
		return Int64(v), nil
	case template.KindUInt64:
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, numberErr(raw, err)
		}
		return Int64(int64(v)), nil
	case template.KindDecimal:
		return ParseDecimal(raw)
	case template.KindASCII:
		for i := 0; i < len(raw); i++ {
			if raw[i] > unicode.MaxASCII {
				return nil, fmt.Errorf("%w: %q", ErrNotASCII, raw)
			}
		}
		return Text(raw), nil
	case template.KindUnicode:
		return Text(raw), nil
	case template.KindByteVector:
		b, err := ParseHex(raw)
		if err != nil {
			return nil, err
		}
		return Bytes(b), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownElement, kind)
	}
}

func numberErr(raw string, err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		return fmt.Errorf("%w: %q out of range", ErrInvalidNumber, raw)
	}
	return fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
}

// parseAddress accepts IPv4 literals only; synthesized capture headers are IPv4.
func parseAddress(raw string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return addr, nil
}

func parseTemplateID(raw string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: template id %q", ErrInvalidNumber, raw)
	}
	return uint32(v), nil
}
