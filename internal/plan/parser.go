package plan

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"unicode"

	"github.com/danmuck/fastplan/internal/logging/logs"
	"github.com/danmuck/fastplan/internal/template"
)

// Plan document element and attribute names. Element names match
// case-insensitively.
const (
	ElemPlan        = "plan"
	ElemMessage     = "message"
	ElemByteMessage = "bytemessage"
	ElemGroup       = "group"
	ElemSequence    = "sequence"

	AttrTemplateID   = "templateID"
	AttrTemplateName = "templateName"
	AttrValue        = "value"
	AttrFrom         = "from"
	AttrTo           = "to"
)

// valueList is the list under construction for the innermost open message,
// group or sequence. A nil *valueList marks an absent optional group.
type valueList struct {
	values []Value
}

type messageState struct {
	tpl      *template.Template
	from, to netip.Addr
}

// rawState collects bytemessage digits with whitespace already stripped.
type rawState struct {
	digits   strings.Builder
	from, to netip.Addr
}

// parser consumes xml tokens and keeps the suspended value lists on an
// explicit stack so nesting depth never grows the Go call stack.
type parser struct {
	reg *template.Registry

	plan    *Plan
	closed  bool
	lastTpl *template.Template
	maxRaw  int

	msg     *messageState
	raw     *rawState
	current *valueList
	stack   []*valueList
}

// Parse reads a complete plan document. On any error the plan is nil; a
// partial plan is never returned.
func Parse(r io.Reader, reg *template.Registry) (*Plan, error) {
	return parse(r, reg, MaxRawBytes)
}

func parse(r io.Reader, reg *template.Registry, maxRaw int) (*Plan, error) {
	p := &parser{reg: reg, maxRaw: maxRaw}
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		line, col := dec.InputPos()
		if err != nil {
			logs.Errf("plan.Parse xml error line=%d: %v", line, err)
			return nil, &ParseError{Line: line, Column: col, Err: fmt.Errorf("%w: %v", ErrMalformedXML, err)}
		}

		var name string
		switch t := tok.(type) {
		case xml.StartElement:
			name = t.Name.Local
			err = p.start(strings.ToLower(name), t.Attr)
		case xml.EndElement:
			name = t.Name.Local
			err = p.end(strings.ToLower(name))
		case xml.CharData:
			name = ElemByteMessage
			err = p.chars(t)
		}
		if err != nil {
			logs.Errf("plan.Parse line=%d element=%s: %v", line, name, err)
			return nil, &ParseError{Line: line, Column: col, Element: name, Err: err}
		}
	}

	if p.plan == nil {
		return nil, &ParseError{Err: ErrNoPlan}
	}
	if p.unitOpen() {
		return nil, &ParseError{Err: ErrUnitOpen}
	}
	logs.Debugf("plan.Parse ok units=%d", p.plan.Len())
	return p.plan, nil
}

// ParseFile parses the plan document at path.
func ParseFile(path string, reg *template.Registry) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("plan load failed (%s): %w", path, err)
	}
	defer f.Close()
	p, err := Parse(f, reg)
	if err != nil {
		return nil, fmt.Errorf("plan parse failed (%s): %w", path, err)
	}
	logs.Infof("plan.ParseFile path=%s units=%d", path, p.Len())
	return p, nil
}

func (p *parser) unitOpen() bool {
	return p.msg != nil || p.raw != nil
}

func (p *parser) start(name string, attrs []xml.Attr) error {
	if name == ElemPlan {
		if p.plan != nil {
			return ErrMultiplePlans
		}
		p.plan = &Plan{}
		return nil
	}
	if p.plan == nil || p.closed {
		return ErrOutsidePlan
	}

	switch name {
	case ElemMessage:
		return p.startMessage(attrs)
	case ElemByteMessage:
		return p.startRaw(attrs)
	}

	if p.raw != nil {
		return fmt.Errorf("%w: <%s> inside bytemessage", ErrUnknownElement, name)
	}
	if p.msg == nil {
		return ErrFieldOutsideUnit
	}
	if p.current == nil {
		return ErrOptionalGroupFields
	}

	if name == ElemGroup || name == ElemSequence {
		p.stack = append(p.stack, p.current)
		if _, present := attr(attrs, AttrValue); present {
			p.current = &valueList{}
		} else {
			p.current = nil
		}
		return nil
	}

	kind, ok := template.ParseKind(name)
	if !ok || !kind.Scalar() {
		return fmt.Errorf("%w: <%s>", ErrUnknownElement, name)
	}
	var v Value = Null{}
	if raw, present := attr(attrs, AttrValue); present {
		parsed, err := parseScalar(kind, raw)
		if err != nil {
			return err
		}
		v = parsed
	}
	p.current.values = append(p.current.values, v)
	return nil
}

func (p *parser) startMessage(attrs []xml.Attr) error {
	if p.unitOpen() {
		return ErrUnitOpen
	}
	tpl, err := p.resolveTemplate(attrs)
	if err != nil {
		return err
	}
	from, to, err := unitAddresses(attrs)
	if err != nil {
		return err
	}
	p.lastTpl = tpl
	p.msg = &messageState{tpl: tpl, from: from, to: to}
	// Slot 0 is the reserved template slot and never carries plan data.
	p.current = &valueList{values: []Value{Null{}}}
	p.stack = p.stack[:0]
	return nil
}

func (p *parser) startRaw(attrs []xml.Attr) error {
	if p.unitOpen() {
		return ErrUnitOpen
	}
	from, to, err := unitAddresses(attrs)
	if err != nil {
		return err
	}
	p.raw = &rawState{from: from, to: to}
	return nil
}

// resolveTemplate tries templateID, then templateName, then the generic value
// attribute as an id, and finally falls back to the previous message's template.
func (p *parser) resolveTemplate(attrs []xml.Attr) (*template.Template, error) {
	if raw, ok := attr(attrs, AttrTemplateID); ok {
		return p.templateByID(raw)
	}
	if name, ok := attr(attrs, AttrTemplateName); ok {
		tpl, found := p.reg.ByName(name)
		if !found {
			return nil, fmt.Errorf("%w: name %q", ErrUnknownTemplate, name)
		}
		return tpl, nil
	}
	if raw, ok := attr(attrs, AttrValue); ok {
		return p.templateByID(raw)
	}
	if p.lastTpl == nil {
		return nil, ErrMissingTemplate
	}
	return p.lastTpl, nil
}

func (p *parser) templateByID(raw string) (*template.Template, error) {
	id, err := parseTemplateID(raw)
	if err != nil {
		return nil, err
	}
	tpl, ok := p.reg.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownTemplate, id)
	}
	return tpl, nil
}

func (p *parser) end(name string) error {
	switch name {
	case ElemPlan:
		p.closed = true
	case ElemMessage:
		p.plan.append(&MessageUnit{
			Template: p.msg.tpl,
			Values:   Group(p.current.values),
			From:     p.msg.from,
			To:       p.msg.to,
		})
		p.msg = nil
		p.current = nil
	case ElemByteMessage:
		payload, err := ParseBits(p.raw.digits.String())
		if err != nil {
			return err
		}
		p.plan.append(&RawUnit{Payload: payload, From: p.raw.from, To: p.raw.to})
		p.raw = nil
	case ElemGroup, ElemSequence:
		closed := p.current
		p.current = p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		v, err := closeComposite(name, closed)
		if err != nil {
			return err
		}
		p.current.values = append(p.current.values, v)
	}
	return nil
}

func closeComposite(name string, closed *valueList) (Value, error) {
	if closed == nil {
		return Null{}, nil
	}
	if name == ElemGroup {
		return Group(closed.values), nil
	}
	seq := make(Sequence, 0, len(closed.values))
	for i, v := range closed.values {
		g, ok := v.(Group)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s", ErrSequenceElement, i, v.Tag())
		}
		seq = append(seq, g)
	}
	return seq, nil
}

// chars enforces the raw size limit as the body arrives instead of after the
// closing tag.
func (p *parser) chars(data xml.CharData) error {
	if p.raw == nil {
		return nil
	}
	for _, r := range string(data) {
		if unicode.IsSpace(r) {
			continue
		}
		if p.raw.digits.Len() >= p.maxRaw*bitsInByte {
			return fmt.Errorf("%w: more than %d bytes", ErrRawTooLarge, p.maxRaw)
		}
		p.raw.digits.WriteRune(r)
	}
	return nil
}

func unitAddresses(attrs []xml.Attr) (netip.Addr, netip.Addr, error) {
	from, to := DefaultAddress, DefaultAddress
	if raw, ok := attr(attrs, AttrFrom); ok {
		addr, err := parseAddress(raw)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		from = addr
	}
	if raw, ok := attr(attrs, AttrTo); ok {
		addr, err := parseAddress(raw)
		if err != nil {
			return netip.Addr{}, netip.Addr{}, err
		}
		to = addr
	}
	return from, to, nil
}

func attr(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}
