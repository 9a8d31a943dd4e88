package plan

import (
	"fmt"
	"math/big"
)

// Value is one node of a value tree. The concrete types below are the only
// implementations.
type Value interface {
	isValue()
	Tag() string
}

// Null marks a field that is explicitly absent.
type Null struct{}

// Int32 carries any 32-bit integer; unsigned values keep their bit pattern.
type Int32 int32

// Int64 carries any 64-bit integer; unsigned values keep their bit pattern.
type Int64 int64

// Decimal is an exact base-10 number: Unscaled * 10^Exponent.
type Decimal struct {
	Unscaled *big.Int
	Exponent int32
}

type Text string

type Bytes []byte

// Group holds one node per field of a nested schema.
type Group []Value

// Sequence holds independent repetitions of a group schema.
type Sequence []Group

func (Null) isValue()     {}
func (Int32) isValue()    {}
func (Int64) isValue()    {}
func (Decimal) isValue()  {}
func (Text) isValue()     {}
func (Bytes) isValue()    {}
func (Group) isValue()    {}
func (Sequence) isValue() {}

func (Null) Tag() string     { return "null" }
func (Int32) Tag() string    { return "int32" }
func (Int64) Tag() string    { return "int64" }
func (Decimal) Tag() string  { return "decimal" }
func (Text) Tag() string     { return "text" }
func (Bytes) Tag() string    { return "bytes" }
func (Group) Tag() string    { return "group" }
func (Sequence) Tag() string { return "sequence" }

func (d Decimal) String() string {
	if d.Unscaled == nil {
		return fmt.Sprintf("0e%d", d.Exponent)
	}
	return fmt.Sprintf("%se%d", d.Unscaled.String(), d.Exponent)
}

// IsNull reports whether v is absent (nil or Null).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
