package compile

// Builder receives positional bindings for one message or group instance.
type Builder interface {
	SetInt32(slot int, v int32) error
	SetInt64(slot int, v int64) error
	SetDecimal(slot int, unscaled int64, exponent int32) error
	SetString(slot int, v string) error
	SetBytes(slot int, v []byte) error
	// NewGroup binds a group value at slot and returns its builder.
	NewGroup(slot int) (Builder, error)
	// NewSequence binds a sequence value at slot.
	NewSequence(slot int) (SequenceBuilder, error)
}

// SequenceBuilder appends repetitions to a sequence value.
type SequenceBuilder interface {
	Append() (Builder, error)
}
