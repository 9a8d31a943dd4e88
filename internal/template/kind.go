package template

import "strings"

// Kind is the declared type of a template field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt32
	KindUInt32
	KindInt64
	KindUInt64
	KindDecimal
	KindASCII
	KindUnicode
	KindByteVector
	KindGroup
	KindSequence
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindInt32:      "int32",
	KindUInt32:     "uInt32",
	KindInt64:      "int64",
	KindUInt64:     "uInt64",
	KindDecimal:    "decimal",
	KindASCII:      "ascii",
	KindUnicode:    "unicode",
	KindByteVector: "byteVector",
	KindGroup:      "group",
	KindSequence:   "sequence",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// ParseKind resolves a plan element name (case-insensitive) to a kind.
func ParseKind(name string) (Kind, bool) {
	name = strings.TrimSpace(name)
	for k := KindInt32; k <= KindSequence; k++ {
		if strings.EqualFold(kindNames[k], name) {
			return k, true
		}
	}
	return KindInvalid, false
}

// Scalar reports whether the kind carries a single value.
func (k Kind) Scalar() bool {
	return k >= KindInt32 && k <= KindByteVector
}

// Composite reports whether the kind owns a nested field list.
func (k Kind) Composite() bool {
	return k == KindGroup || k == KindSequence
}
