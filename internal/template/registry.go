package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrTemplateExists  = errors.New("template: already registered")
	ErrTemplateNil     = errors.New("template: nil template")
	ErrInvalidTemplate = errors.New("template: invalid template")
)

// Registry stores templates by id and by name.
type Registry struct {
	byID   map[uint32]*Template
	byName map[string]*Template
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uint32]*Template),
		byName: make(map[string]*Template),
	}
}

// Register adds a template. Ids and names must be unique.
func (r *Registry) Register(t *Template) error {
	if t == nil {
		return ErrTemplateNil
	}
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return fmt.Errorf("%w: template %d has no name", ErrInvalidTemplate, t.ID)
	}
	if err := validateFields(name, t.Fields); err != nil {
		return err
	}
	if _, ok := r.byID[t.ID]; ok {
		return fmt.Errorf("%w: id %d", ErrTemplateExists, t.ID)
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: name %q", ErrTemplateExists, name)
	}
	r.byID[t.ID] = t
	r.byName[name] = t
	return nil
}

func (r *Registry) ByID(id uint32) (*Template, bool) {
	t, ok := r.byID[id]
	return t, ok
}

func (r *Registry) ByName(name string) (*Template, bool) {
	t, ok := r.byName[strings.TrimSpace(name)]
	return t, ok
}

func (r *Registry) Len() int {
	return len(r.byID)
}

// List returns templates ordered by id.
func (r *Registry) List() []*Template {
	list := make([]*Template, 0, len(r.byID))
	for _, t := range r.byID {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}
