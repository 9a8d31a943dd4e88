package template

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/danmuck/fastplan/internal/logging/logs"
)

var ErrUnsupportedField = errors.New("template: unsupported field element")

// node is a generic element tree; field order inside templates is significant
// so the document is kept as ordered children rather than typed structs.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
}

func (n node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

func (n node) local() string {
	return strings.ToLower(n.XMLName.Local)
}

// Load reads a template document. The root is either <templates> holding
// <template> children or a single <template>.
func Load(r io.Reader) ([]*Template, error) {
	var root node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("template: decode: %w", err)
	}

	var defs []node
	switch root.local() {
	case "templates":
		for _, child := range root.Children {
			if child.local() == "template" {
				defs = append(defs, child)
			}
		}
	case "template":
		defs = []node{root}
	default:
		return nil, fmt.Errorf("%w: unexpected root <%s>", ErrInvalidTemplate, root.XMLName.Local)
	}

	out := make([]*Template, 0, len(defs))
	for _, def := range defs {
		t, err := convertTemplate(def)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func LoadFile(path string) ([]*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("template load failed (%s): %w", path, err)
	}
	defer f.Close()
	list, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("template parse failed (%s): %w", path, err)
	}
	return list, nil
}

// LoadRegistry loads every file into a fresh registry.
func LoadRegistry(paths ...string) (*Registry, error) {
	reg := NewRegistry()
	for _, path := range paths {
		list, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, t := range list {
			if err := reg.Register(t); err != nil {
				return nil, fmt.Errorf("template register failed (%s): %w", path, err)
			}
		}
		logs.Debugf("template.LoadRegistry path=%s templates=%d", path, len(list))
	}
	logs.Infof("template.LoadRegistry files=%d templates=%d", len(paths), reg.Len())
	return reg, nil
}

func convertTemplate(def node) (*Template, error) {
	name, _ := def.attr("name")
	name = strings.TrimSpace(name)
	rawID, ok := def.attr("id")
	if !ok {
		return nil, fmt.Errorf("%w: template %q has no id", ErrInvalidTemplate, name)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(rawID), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: template %q id %q: %v", ErrInvalidTemplate, name, rawID, err)
	}
	fields, err := convertFields(name, def.Children, false)
	if err != nil {
		return nil, err
	}
	return &Template{ID: uint32(id), Name: name, Fields: fields}, nil
}

func convertFields(path string, children []node, inSequence bool) ([]Field, error) {
	fields := make([]Field, 0, len(children))
	for _, child := range children {
		elem := child.local()
		switch elem {
		case "typeref":
			continue
		case "length":
			if inSequence {
				continue
			}
			return nil, fmt.Errorf("%w: <length> outside sequence in %s", ErrUnsupportedField, path)
		}

		f := Field{}
		f.Name, _ = child.attr("name")
		f.ID, _ = child.attr("id")
		if presence, ok := child.attr("presence"); ok {
			f.Optional = strings.EqualFold(strings.TrimSpace(presence), "optional")
		}
		where := path + "." + f.Name

		switch elem {
		case "string":
			f.Kind = KindASCII
			if charset, ok := child.attr("charset"); ok && strings.EqualFold(charset, "unicode") {
				f.Kind = KindUnicode
			}
		case "group", "sequence":
			f.Kind = KindGroup
			if elem == "sequence" {
				f.Kind = KindSequence
			}
			nested, err := convertFields(where, child.Children, elem == "sequence")
			if err != nil {
				return nil, err
			}
			f.Fields = nested
		default:
			kind, ok := ParseKind(elem)
			if !ok {
				return nil, fmt.Errorf("%w: <%s> in %s", ErrUnsupportedField, child.XMLName.Local, path)
			}
			f.Kind = kind
		}
		fields = append(fields, f)
	}
	return fields, nil
}
