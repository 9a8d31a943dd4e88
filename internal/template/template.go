package template

import (
	"fmt"
	"strings"
)

// Field describes one positional slot of a template or nested group.
type Field struct {
	Name     string
	ID       string
	Kind     Kind
	Optional bool
	// Fields is the nested schema for group and sequence kinds.
	Fields []Field
}

// Template is a message schema. Slot 0 of its positional view is reserved
// for the template identifier; user fields occupy slots 1..len(Fields).
type Template struct {
	ID     uint32
	Name   string
	Fields []Field
}

// ReservedSlot is the positional slot carrying the template identifier.
const ReservedSlot = 0

// Slots is the number of positional slots including the reserved one.
func (t *Template) Slots() int {
	return len(t.Fields) + 1
}

// Field resolves a positional slot. Slot 0 yields the reserved id field.
func (t *Template) Field(slot int) (Field, bool) {
	if slot == ReservedSlot {
		return Field{Name: "templateId", Kind: KindUInt32}, true
	}
	if slot < 0 || slot > len(t.Fields) {
		return Field{}, false
	}
	return t.Fields[slot-1], true
}

func (t *Template) String() string {
	return fmt.Sprintf("%s(%d)", t.Name, t.ID)
}

func validateFields(path string, fields []Field) error {
	for i, f := range fields {
		where := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(f.Name) != "" {
			where = path + "." + f.Name
		}
		if f.Kind == KindInvalid || f.Kind > KindSequence {
			return fmt.Errorf("%w: %s has no kind", ErrInvalidTemplate, where)
		}
		if f.Kind.Scalar() && len(f.Fields) > 0 {
			return fmt.Errorf("%w: scalar %s owns nested fields", ErrInvalidTemplate, where)
		}
		if f.Kind.Composite() {
			if err := validateFields(where, f.Fields); err != nil {
				return err
			}
		}
	}
	return nil
}
