package plan

import (
	"errors"
	"math/big"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danmuck/fastplan/internal/template"
	"github.com/danmuck/fastplan/internal/testutil/testlog"
)

func testRegistry(t *testing.T) *template.Registry {
	t.Helper()
	reg, err := template.LoadRegistry(filepath.Join("..", "template", "testdata", "templates.xml"))
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	return reg
}

func parseString(t *testing.T, doc string) (*Plan, error) {
	t.Helper()
	return Parse(strings.NewReader(doc), testRegistry(t))
}

func TestParseUnitsInDocumentOrder(t *testing.T) {
	testlog.Start(t)

	p, err := parseString(t, `<plan>
  <message templateID="1"><uInt32 value="1"/><ascii value="t0"/></message>
  <bytemessage>00000001 00000010</bytemessage>
  <message templateName="Heartbeat" from="10.0.0.1" to="10.0.0.2"><uInt32 value="2"/><ascii/></message>
  <message><uInt32 value="3"/></message>
</plan>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Len() != 4 {
		t.Fatalf("expected 4 units, got %d", p.Len())
	}

	first, ok := p.Unit(0).(*MessageUnit)
	if !ok || first.Template.ID != 1 {
		t.Fatalf("unexpected first unit: %#v", p.Unit(0))
	}
	if diff := cmp.Diff(Group{Null{}, Int32(1), Text("t0")}, first.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	from, to := first.Addresses()
	if from != DefaultAddress || to != DefaultAddress {
		t.Fatalf("expected default addresses, got %s -> %s", from, to)
	}

	raw, ok := p.Unit(1).(*RawUnit)
	if !ok {
		t.Fatalf("expected raw unit, got %T", p.Unit(1))
	}
	if diff := cmp.Diff([]byte{0x01, 0x02}, raw.Payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	third := p.Unit(2).(*MessageUnit)
	if third.From != netip.MustParseAddr("10.0.0.1") || third.To != netip.MustParseAddr("10.0.0.2") {
		t.Fatalf("unexpected addresses: %s -> %s", third.From, third.To)
	}
	if diff := cmp.Diff(Group{Null{}, Int32(2), Null{}}, third.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	fourth := p.Unit(3).(*MessageUnit)
	if fourth.Template != first.Template {
		t.Fatalf("expected template carried from previous message, got %s", fourth.Template)
	}
}

func TestParseNestedGroupsAndSequences(t *testing.T) {
	testlog.Start(t)

	p, err := parseString(t, `<plan>
  <message templateID="2">
    <uInt32 value="9"/>
    <unicode value="héllo"/>
    <group value="">
      <int64 value="-5"/>
      <byteVector value="0a1b"/>
    </group>
    <sequence value="">
      <group value=""><decimal value="3.14"/><int32 value="7"/></group>
      <group value=""><decimal value="1"/><int32/></group>
    </sequence>
  </message>
  <message templateID="2">
    <uInt32 value="10"/>
    <unicode/>
    <group></group>
    <sequence value=""></sequence>
  </message>
</plan>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := Group{
		Null{},
		Int32(9),
		Text("héllo"),
		Group{Int64(-5), Bytes{0x0A, 0x1B}},
		Sequence{
			Group{Decimal{Unscaled: big.NewInt(314), Exponent: -2}, Int32(7)},
			Group{Decimal{Unscaled: big.NewInt(1), Exponent: 0}, Null{}},
		},
	}
	got := p.Unit(0).(*MessageUnit).Values
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	second := p.Unit(1).(*MessageUnit).Values
	if diff := cmp.Diff(Group{Null{}, Int32(10), Null{}, Null{}, Sequence{}}, second); diff != "" {
		t.Fatalf("absent group mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsMalformedPlans(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"no plan", `<message templateID="1"/>`, ErrOutsidePlan},
		{"empty document", ``, ErrNoPlan},
		{"two plans", `<root><plan></plan><plan></plan></root>`, ErrOutsidePlan},
		{"message after plan", `<plan></plan><message templateID="1"><uInt32 value="5"/><ascii value="x"/></message>`, ErrOutsidePlan},
		{"bytemessage after plan", `<plan><bytemessage>00000001</bytemessage></plan><bytemessage>00000001</bytemessage>`, ErrOutsidePlan},
		{"sibling plans", `<plan></plan><plan></plan>`, ErrMultiplePlans},
		{"field outside unit", `<plan><int32 value="1"/></plan>`, ErrFieldOutsideUnit},
		{"odd hex", `<plan><message templateID="2"><uInt32 value="1"/><unicode/><group value=""><int64 value="1"/><byteVector value="0a1"/></group></message></plan>`, ErrOddHex},
		{"not binary", `<plan><bytemessage>0000000200000000</bytemessage></plan>`, ErrNotBinary},
		{"bit length", `<plan><bytemessage>0101</bytemessage></plan>`, ErrBitLength},
		{"absent group with fields", `<plan><message templateID="2"><uInt32 value="1"/><unicode/><group><int64 value="1"/></group></message></plan>`, ErrOptionalGroupFields},
		{"missing template", `<plan><message><int32 value="1"/></message></plan>`, ErrMissingTemplate},
		{"unknown template", `<plan><message templateID="99"/></plan>`, ErrUnknownTemplate},
		{"unknown template name", `<plan><message templateName="Nope"/></plan>`, ErrUnknownTemplate},
		{"unknown element", `<plan><message templateID="1"><float value="1"/></message></plan>`, ErrUnknownElement},
		{"element inside bytemessage", `<plan><bytemessage><int32/></bytemessage></plan>`, ErrUnknownElement},
		{"nested unit", `<plan><message templateID="1"><message templateID="1"/></message></plan>`, ErrUnitOpen},
		{"sequence of scalars", `<plan><message templateID="2"><uInt32 value="1"/><unicode/><group/><sequence value=""><int32 value="1"/></sequence></message></plan>`, ErrSequenceElement},
		{"bad address", `<plan><message templateID="1" from="::1"/></plan>`, ErrInvalidAddress},
		{"bad number", `<plan><message templateID="1"><uInt32 value="abc"/></message></plan>`, ErrInvalidNumber},
		{"unclosed", `<plan><message templateID="1">`, ErrMalformedXML},
	}
	reg := testRegistry(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(strings.NewReader(tc.doc), reg)
			if p != nil {
				t.Fatalf("expected nil plan on error, got %d units", p.Len())
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
		})
	}
}

func TestParseRejectsSecondPlanElement(t *testing.T) {
	testlog.Start(t)

	_, err := parseString(t, `<plan><plan/></plan>`)
	if !errors.Is(err, ErrMultiplePlans) {
		t.Fatalf("expected ErrMultiplePlans, got %v", err)
	}
}

func TestParseStopsOversizedBytemessageWhileReading(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	doc := "<plan><bytemessage>\n00000001\n00000010<!-- split -->\n00000011\n</bytemessage></plan>"

	_, err := parse(strings.NewReader(doc), reg, 2)
	if !errors.Is(err, ErrRawTooLarge) {
		t.Fatalf("expected ErrRawTooLarge, got %v", err)
	}

	p, err := parse(strings.NewReader(doc), reg, 3)
	if err != nil {
		t.Fatalf("parse at limit: %v", err)
	}
	raw := p.Unit(0).(*RawUnit)
	if diff := cmp.Diff([]byte{0x01, 0x02, 0x03}, raw.Payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAcceptsValueAttributeAsTemplateID(t *testing.T) {
	testlog.Start(t)

	p, err := parseString(t, `<PLAN><Message value="1"><UINT32 value="5"/><Ascii value="x"/></Message></PLAN>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	unit := p.Unit(0).(*MessageUnit)
	if unit.Template.Name != "Heartbeat" {
		t.Fatalf("expected Heartbeat, got %s", unit.Template)
	}
}
