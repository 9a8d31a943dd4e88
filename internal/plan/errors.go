package plan

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedXML        = errors.New("plan: malformed xml")
	ErrNoPlan              = errors.New("plan: document has no plan element")
	ErrMultiplePlans       = errors.New("plan: multiple plans in one document")
	ErrOutsidePlan         = errors.New("plan: element outside plan")
	ErrUnitOpen            = errors.New("plan: unit started before the previous one finished")
	ErrMissingTemplate     = errors.New("plan: first message lacks a template")
	ErrUnknownTemplate     = errors.New("plan: unknown template")
	ErrFieldOutsideUnit    = errors.New("plan: field outside any message")
	ErrOptionalGroupFields = errors.New("plan: optional group contains fields")
	ErrSequenceElement     = errors.New("plan: sequence element is not a present group")
	ErrUnknownElement      = errors.New("plan: unknown element")
	ErrInvalidNumber       = errors.New("plan: invalid number")
	ErrNotASCII            = errors.New("plan: ascii value has non-ascii characters")
	ErrOddHex              = errors.New("plan: hex string is odd in length")
	ErrInvalidHex          = errors.New("plan: invalid hex string")
	ErrNotBinary           = errors.New("plan: bytemessage body is not binary")
	ErrBitLength           = errors.New("plan: binary is not a multiple of 8")
	ErrRawTooLarge         = errors.New("plan: bytemessage too large")
	ErrInvalidAddress      = errors.New("plan: invalid ipv4 address")
)

// ParseError locates a parse failure in the source document.
type ParseError struct {
	Line    int
	Column  int
	Element string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Element == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d col %d <%s>: %v", e.Line, e.Column, e.Element, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
