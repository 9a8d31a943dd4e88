package codec

import (
	"encoding/binary"
	"fmt"
	"unicode"

	"github.com/danmuck/fastplan/internal/compile"
	"github.com/danmuck/fastplan/internal/template"
)

var (
	_ compile.Builder         = (*GroupValue)(nil)
	_ compile.SequenceBuilder = (*SequenceValue)(nil)
)

type entry struct {
	set   bool
	raw   []byte
	group *GroupValue
	seq   *SequenceValue
}

// GroupValue holds the bound values of one group instance. Slots are
// offset so that message-level groups start at slot 1.
type GroupValue struct {
	fields  []template.Field
	offset  int
	entries []entry
}

func newGroupValue(fields []template.Field, offset int) *GroupValue {
	return &GroupValue{
		fields:  fields,
		offset:  offset,
		entries: make([]entry, len(fields)),
	}
}

// SequenceValue holds the repetitions of a sequence field.
type SequenceValue struct {
	fields []template.Field
	items  []*GroupValue
}

// Message is a bindable instance of a template.
type Message struct {
	Template *template.Template
	*GroupValue
}

func NewMessage(tpl *template.Template) *Message {
	return &Message{Template: tpl, GroupValue: newGroupValue(tpl.Fields, 1)}
}

func (g *GroupValue) slot(slot int, kinds ...template.Kind) (*entry, template.Field, error) {
	idx := slot - g.offset
	if idx < 0 || idx >= len(g.fields) {
		return nil, template.Field{}, fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	f := g.fields[idx]
	matched := false
	for _, k := range kinds {
		if f.Kind == k {
			matched = true
			break
		}
	}
	if !matched {
		return nil, f, fmt.Errorf("%w: slot %d %q is %s", ErrFieldTypeMismatch, slot, f.Name, f.Kind)
	}
	e := &g.entries[idx]
	if e.set {
		return nil, f, fmt.Errorf("%w: slot %d %q", ErrAlreadySet, slot, f.Name)
	}
	return e, f, nil
}

func (g *GroupValue) SetInt32(slot int, v int32) error {
	e, _, err := g.slot(slot, template.KindInt32, template.KindUInt32)
	if err != nil {
		return err
	}
	e.raw = binary.BigEndian.AppendUint32(nil, uint32(v))
	e.set = true
	return nil
}

func (g *GroupValue) SetInt64(slot int, v int64) error {
	e, _, err := g.slot(slot, template.KindInt64, template.KindUInt64)
	if err != nil {
		return err
	}
	e.raw = binary.BigEndian.AppendUint64(nil, uint64(v))
	e.set = true
	return nil
}

// SetDecimal stores exponent (4 bytes) then mantissa (8 bytes).
func (g *GroupValue) SetDecimal(slot int, unscaled int64, exponent int32) error {
	e, _, err := g.slot(slot, template.KindDecimal)
	if err != nil {
		return err
	}
	buf := binary.BigEndian.AppendUint32(make([]byte, 0, 12), uint32(exponent))
	e.raw = binary.BigEndian.AppendUint64(buf, uint64(unscaled))
	e.set = true
	return nil
}

func (g *GroupValue) SetString(slot int, v string) error {
	e, f, err := g.slot(slot, template.KindASCII, template.KindUnicode)
	if err != nil {
		return err
	}
	if f.Kind == template.KindASCII {
		for i := 0; i < len(v); i++ {
			if v[i] > unicode.MaxASCII {
				return fmt.Errorf("%w: slot %d %q", ErrNotASCII, slot, f.Name)
			}
		}
	}
	e.raw = []byte(v)
	e.set = true
	return nil
}

func (g *GroupValue) SetBytes(slot int, v []byte) error {
	e, _, err := g.slot(slot, template.KindByteVector)
	if err != nil {
		return err
	}
	e.raw = append([]byte(nil), v...)
	e.set = true
	return nil
}

func (g *GroupValue) NewGroup(slot int) (compile.Builder, error) {
	e, f, err := g.slot(slot, template.KindGroup)
	if err != nil {
		return nil, err
	}
	e.group = newGroupValue(f.Fields, 0)
	e.set = true
	return e.group, nil
}

func (g *GroupValue) NewSequence(slot int) (compile.SequenceBuilder, error) {
	e, f, err := g.slot(slot, template.KindSequence)
	if err != nil {
		return nil, err
	}
	e.seq = &SequenceValue{fields: f.Fields}
	e.set = true
	return e.seq, nil
}

func (s *SequenceValue) Append() (compile.Builder, error) {
	item := newGroupValue(s.fields, 0)
	s.items = append(s.items, item)
	return item, nil
}

func (s *SequenceValue) Len() int {
	return len(s.items)
}
