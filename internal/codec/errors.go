package codec

import "errors"

var (
	ErrInvalidMagic       = errors.New("codec: invalid magic")
	ErrUnsupportedVersion = errors.New("codec: unsupported version")
	ErrInvalidHeaderLen   = errors.New("codec: invalid header length")
	ErrTruncated          = errors.New("codec: truncated data")
	ErrPayloadTooLarge    = errors.New("codec: payload too large")
	ErrSlotRange          = errors.New("codec: slot out of range")
	ErrFieldTypeMismatch  = errors.New("codec: field type mismatch")
	ErrAlreadySet         = errors.New("codec: field already bound")
	ErrMissingRequired    = errors.New("codec: mandatory field not bound")
	ErrNotASCII           = errors.New("codec: ascii field has non-ascii characters")
	ErrNilMessage         = errors.New("codec: nil message")
)
