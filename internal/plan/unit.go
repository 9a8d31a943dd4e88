package plan

import (
	"net/netip"

	"github.com/danmuck/fastplan/internal/template"
)

// DefaultAddress applies to units without from/to tags.
var DefaultAddress = netip.MustParseAddr("127.0.0.1")

// Unit is one transmission item: a MessageUnit or a RawUnit.
type Unit interface {
	Addresses() (from, to netip.Addr)
	Kind() string
	isUnit()
}

// MessageUnit is a templated message. Values[0] is the reserved template slot.
type MessageUnit struct {
	Template *template.Template
	Values   Group
	From     netip.Addr
	To       netip.Addr
}

// RawUnit is an opaque byte payload emitted as-is.
type RawUnit struct {
	Payload []byte
	From    netip.Addr
	To      netip.Addr
}

func (u *MessageUnit) Addresses() (netip.Addr, netip.Addr) { return u.From, u.To }
func (u *RawUnit) Addresses() (netip.Addr, netip.Addr)     { return u.From, u.To }

func (u *MessageUnit) Kind() string { return "message" }
func (u *RawUnit) Kind() string     { return "bytemessage" }

func (*MessageUnit) isUnit() {}
func (*RawUnit) isUnit()     {}

// Plan is the ordered sequence of units. Insertion order is transmission
// order; a plan is never mutated once Parse returns it.
type Plan struct {
	units []Unit
}

func (p *Plan) append(u Unit) {
	p.units = append(p.units, u)
}

func (p *Plan) Len() int {
	return len(p.units)
}

// Units returns the units in transmission order.
func (p *Plan) Units() []Unit {
	out := make([]Unit, len(p.units))
	copy(out, p.units)
	return out
}

func (p *Plan) Unit(i int) Unit {
	return p.units[i]
}
