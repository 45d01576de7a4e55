package schema

import (
	_ "embed"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed collections.cue
var catalogSource string

type catalogEntry struct {
	Name       string       `json:"name"`
	Kind       string       `json:"kind"`
	Definition string       `json:"definition"`
	Label      string       `json:"label"`
	Title      string       `json:"title"`
	Card       CardFields   `json:"card"`
	Fields     []fieldEntry `json:"fields"`
	Images     []ImageField `json:"images"`
	Arrays     []ArrayField `json:"arrays"`
}

type fieldEntry struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Load compiles the embedded CUE catalog into a Registry. profile is the
// upload profile assigned to every image field.
func Load(profile string) (*Registry, error) {
	return LoadSource(catalogSource, profile)
}

// LoadSource compiles a CUE catalog from source.
func LoadSource(src, profile string) (*Registry, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(src, cue.Filename("collections.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compiling collection catalog: %w", err)
	}

	var entries []catalogEntry
	if err := root.LookupPath(cue.ParsePath("catalog")).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding collection catalog: %w", err)
	}

	reg := NewRegistry()
	for _, e := range entries {
		def := root.LookupPath(cue.ParsePath(e.Definition))
		if err := def.Err(); err != nil {
			return nil, fmt.Errorf("collection %s: definition %s: %w", e.Name, e.Definition, err)
		}
		c := &Collection{
			Name:       e.Name,
			Kind:       e.Kind,
			Label:      e.Label,
			TitleField: e.Title,
			Card:       e.Card,
			Images:     e.Images,
			Arrays:     e.Arrays,
			definition: def,
		}
		for _, f := range e.Fields {
			ft, err := parseFieldType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("collection %s field %s: %w", e.Name, f.Name, err)
			}
			c.Fields = append(c.Fields, FieldSpec{
				Name:     f.Name,
				Label:    f.Label,
				Type:     ft,
				TypeName: f.Type,
				Required: f.Required,
			})
		}
		for i := range c.Images {
			if c.Images[i].Profile == "" {
				c.Images[i].Profile = profile
			}
		}
		reg.Register(c)
	}
	if len(reg.order) == 0 {
		return nil, errors.New("collection catalog is empty")
	}
	return reg, nil
}

// Validate unifies a (possibly partial) payload with the collection's CUE
// definition. Integral floats on int fields are narrowed first so that
// documents read back from JSON storage validate the same as fresh input.
func (c *Collection) Validate(fields map[string]any) error {
	normalized := make(map[string]any, len(fields))
	for k, v := range fields {
		if spec, ok := c.Field(k); ok && spec.Type == FieldInt {
			if f, isFloat := v.(float64); isFloat && f == float64(int64(f)) {
				v = int(f)
			}
		}
		normalized[k] = v
	}

	if !c.definition.Exists() {
		return nil
	}
	c.cueMu.Lock()
	defer c.cueMu.Unlock()

	val := c.definition.Context().Encode(normalized)
	if err := val.Err(); err != nil {
		return &ValidationError{Collection: c.Name, Problems: []*FieldError{{Field: "document", Message: err.Error()}}}
	}
	if err := c.definition.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Collection: c.Name, Problems: []*FieldError{{Field: "document", Message: err.Error()}}}
	}
	return nil
}

// CheckRequired reports required scalar and image fields that are missing
// or blank in a complete (create) payload.
func (c *Collection) CheckRequired(fields map[string]any) error {
	var problems []*FieldError
	for _, f := range c.Fields {
		if !f.Required {
			continue
		}
		v, ok := fields[f.Name]
		if !ok || v == nil {
			problems = append(problems, &FieldError{Field: f.Name, Message: "is required"})
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			problems = append(problems, &FieldError{Field: f.Name, Message: "is required"})
		}
	}
	for _, img := range c.Images {
		if !img.Required {
			continue
		}
		if n := countImages(fields[img.Name]); n == 0 {
			msg := "requires an image"
			if img.Multiple {
				msg = "requires at least one image"
			}
			problems = append(problems, &FieldError{Field: img.Name, Message: msg})
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Collection: c.Name, Problems: problems}
	}
	return nil
}

func countImages(v any) int {
	switch x := v.(type) {
	case []string:
		return len(x)
	case []any:
		return len(x)
	case string:
		if x != "" {
			return 1
		}
	}
	return 0
}
