// Package schema provides the collection metadata registry.
//
// The registry is loaded from the embedded CUE catalog and consumed by the
// form drafts (field coercion, validation), the list renderer (card
// projection) and the detail page (field order and labels).
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
)

// FieldType classifies how a form input is coerced and rendered.
type FieldType int

const (
	FieldText FieldType = iota
	FieldTextarea
	FieldNumber
	FieldInt
	FieldDate
	FieldEmail
)

// String returns the catalog-visible type name.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldTextarea:
		return "textarea"
	case FieldNumber:
		return "number"
	case FieldInt:
		return "int"
	case FieldDate:
		return "date"
	case FieldEmail:
		return "email"
	default:
		return "unknown"
	}
}

// InputType is the HTML input type used by the form renderer.
func (ft FieldType) InputType() string {
	switch ft {
	case FieldNumber, FieldInt:
		return "number"
	case FieldDate:
		return "date"
	case FieldEmail:
		return "email"
	default:
		return "text"
	}
}

// Numeric returns true for fields stored as numbers.
func (ft FieldType) Numeric() bool {
	return ft == FieldNumber || ft == FieldInt
}

func parseFieldType(s string) (FieldType, error) {
	switch s {
	case "text":
		return FieldText, nil
	case "textarea":
		return FieldTextarea, nil
	case "number":
		return FieldNumber, nil
	case "int":
		return FieldInt, nil
	case "date":
		return FieldDate, nil
	case "email":
		return FieldEmail, nil
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// FieldSpec describes a single scalar form field.
type FieldSpec struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"-"`
	TypeName string    `json:"type"`
	Required bool      `json:"required,omitempty"`
}

// ImageField describes an image-list (Multiple) or single-image field.
type ImageField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Folder   string `json:"folder"`
	Profile  string `json:"profile,omitempty"`
	Multiple bool   `json:"multiple,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// ArrayField describes a repeatable free-text list such as features.
type ArrayField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// CardFields names the document fields the list renderer projects.
type CardFields struct {
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Rating      string `json:"rating,omitempty"`
}

// Collection holds the complete metadata for one collection.
type Collection struct {
	Name       string       `json:"name"`
	Kind       string       `json:"kind"`
	Label      string       `json:"label"`
	TitleField string       `json:"title"`
	Card       CardFields   `json:"card"`
	Fields     []FieldSpec  `json:"fields"`
	Images     []ImageField `json:"images,omitempty"`
	Arrays     []ArrayField `json:"arrays,omitempty"`

	definition cue.Value
	fieldIndex map[string]int
	// cue values sharing a context are not safe for concurrent evaluation.
	cueMu *sync.Mutex
}

// Field returns the scalar field spec by name.
func (c *Collection) Field(name string) (FieldSpec, bool) {
	i, ok := c.fieldIndex[name]
	if !ok {
		return FieldSpec{}, false
	}
	return c.Fields[i], true
}

// Image returns the image field spec by name.
func (c *Collection) Image(name string) (ImageField, bool) {
	for _, f := range c.Images {
		if f.Name == name {
			return f, true
		}
	}
	return ImageField{}, false
}

// Array returns the array field spec by name.
func (c *Collection) Array(name string) (ArrayField, bool) {
	for _, f := range c.Arrays {
		if f.Name == name {
			return f, true
		}
	}
	return ArrayField{}, false
}

// Coerce converts a raw form value for a scalar field. Number fields accept
// decimal input, int fields whole numbers; an empty string on a numeric
// field yields ok=false meaning "leave unset".
func Coerce(spec FieldSpec, raw string) (v any, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	switch spec.Type {
	case FieldNumber:
		if raw == "" {
			return nil, false, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false, &FieldError{Field: spec.Name, Message: "must be a number"}
		}
		return f, true, nil
	case FieldInt:
		if raw == "" {
			return nil, false, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, false, &FieldError{Field: spec.Name, Message: "must be a whole number"}
		}
		return n, true, nil
	default:
		return raw, true, nil
	}
}

// Registry holds all collections. It is populated once at startup and is
// safe for concurrent read access afterwards.
type Registry struct {
	collections map[string]*Collection
	order       []string
	cueMu       sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{collections: make(map[string]*Collection)}
}

// Register adds a collection to the registry.
func (r *Registry) Register(c *Collection) {
	c.cueMu = &r.cueMu
	c.fieldIndex = make(map[string]int, len(c.Fields))
	for i, f := range c.Fields {
		c.fieldIndex[f.Name] = i
	}
	if _, exists := r.collections[c.Name]; !exists {
		r.order = append(r.order, c.Name)
	}
	r.collections[c.Name] = c
}

// Collection returns the metadata for a named collection, or nil if unknown.
func (r *Registry) Collection(name string) *Collection {
	return r.collections[name]
}

// Names returns all collection names in catalog order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns every collection in catalog order.
func (r *Registry) All() []*Collection {
	out := make([]*Collection, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.collections[n])
	}
	return out
}

// FieldError reports one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError aggregates the field problems of one payload.
type ValidationError struct {
	Collection string        `json:"collection"`
	Problems   []*FieldError `json:"problems"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	sort.Strings(msgs)
	return fmt.Sprintf("invalid %s document: %s", e.Collection, strings.Join(msgs, "; "))
}
