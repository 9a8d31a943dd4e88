package compile

import (
	"fmt"

	"github.com/danmuck/fastplan/internal/logging/logs"
	"github.com/danmuck/fastplan/internal/plan"
	"github.com/danmuck/fastplan/internal/template"
)

// Message binds a message unit's values against its template. values[0] is
// the reserved template slot and is skipped.
func Message(tpl *template.Template, values plan.Group, b Builder) error {
	if tpl == nil {
		return ErrNilTemplate
	}
	if len(values) > tpl.Slots() {
		return &BindError{
			Path: tpl.Name,
			Kind: template.KindGroup,
			Got:  fmt.Sprintf("%d values", len(values)),
			Err:  fmt.Errorf("%w: template has %d slots", ErrArity, tpl.Slots()),
		}
	}
	for slot := 1; slot < len(values); slot++ {
		field := tpl.Fields[slot-1]
		if err := bind(tpl.Name, slot, field, values[slot], b); err != nil {
			return err
		}
	}
	logs.Tracef("compile.Message template=%s slots=%d", tpl, len(values))
	return nil
}

// Group binds a nested group's values against its schema, starting at slot 0.
func Group(path string, fields []template.Field, values plan.Group, b Builder) error {
	if len(values) > len(fields) {
		return &BindError{
			Path: path,
			Kind: template.KindGroup,
			Got:  fmt.Sprintf("%d values", len(values)),
			Err:  fmt.Errorf("%w: group has %d fields", ErrArity, len(fields)),
		}
	}
	for slot, v := range values {
		if err := bind(path, slot, fields[slot], v, b); err != nil {
			return err
		}
	}
	return nil
}

func bind(parent string, slot int, field template.Field, v plan.Value, b Builder) error {
	if plan.IsNull(v) {
		return nil
	}
	path := fieldPath(parent, slot, field)
	mismatch := func() error {
		return &BindError{Path: path, Kind: field.Kind, Got: v.Tag(), Err: ErrKindMismatch}
	}
	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		return &BindError{Path: path, Kind: field.Kind, Err: err}
	}

	switch field.Kind {
	case template.KindSequence:
		seq, ok := v.(plan.Sequence)
		if !ok {
			return mismatch()
		}
		sb, err := b.NewSequence(slot)
		if err != nil {
			return wrap(err)
		}
		for i, item := range seq {
			gb, err := sb.Append()
			if err != nil {
				return wrap(err)
			}
			if err := Group(fmt.Sprintf("%s[%d]", path, i), field.Fields, item, gb); err != nil {
				return err
			}
		}
		return nil
	case template.KindGroup:
		g, ok := v.(plan.Group)
		if !ok {
			return mismatch()
		}
		gb, err := b.NewGroup(slot)
		if err != nil {
			return wrap(err)
		}
		return Group(path, field.Fields, g, gb)
	case template.KindInt32, template.KindUInt32:
		n, ok := v.(plan.Int32)
		if !ok {
			return mismatch()
		}
		return wrap(b.SetInt32(slot, int32(n)))
	case template.KindInt64, template.KindUInt64:
		n, ok := v.(plan.Int64)
		if !ok {
			return mismatch()
		}
		return wrap(b.SetInt64(slot, int64(n)))
	case template.KindDecimal:
		d, ok := v.(plan.Decimal)
		if !ok {
			return mismatch()
		}
		if d.Unscaled == nil || !d.Unscaled.IsInt64() {
			return wrap(fmt.Errorf("%w: %s", ErrDecimalRange, d))
		}
		return wrap(b.SetDecimal(slot, d.Unscaled.Int64(), d.Exponent))
	case template.KindASCII, template.KindUnicode:
		s, ok := v.(plan.Text)
		if !ok {
			return mismatch()
		}
		return wrap(b.SetString(slot, string(s)))
	case template.KindByteVector:
		raw, ok := v.(plan.Bytes)
		if !ok {
			return mismatch()
		}
		return wrap(b.SetBytes(slot, []byte(raw)))
	default:
		return mismatch()
	}
}

func fieldPath(parent string, slot int, field template.Field) string {
	if field.Name != "" {
		return parent + "." + field.Name
	}
	return fmt.Sprintf("%s.#%d", parent, slot)
}
