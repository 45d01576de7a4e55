// Package types holds the value types shared by the store, the live feed and
// the HTTP layer.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Reserved document keys. They are assigned by the store and never accepted
// from a form payload.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Document is one entity record: an opaque id, flat scalar/array fields and
// the two server-assigned timestamps.
type Document struct {
	ID         string
	Collection string
	Fields     map[string]any
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// MarshalJSON flattens the document into {id, ...fields, createdAt, updatedAt}.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+3)
	for k, v := range d.Fields {
		out[k] = v
	}
	out[FieldID] = d.ID
	out[FieldCreatedAt] = d.CreatedAt
	if d.UpdatedAt != nil {
		out[FieldUpdatedAt] = *d.UpdatedAt
	}
	return json.Marshal(out)
}

// Value returns a field, including the reserved timestamp keys.
func (d Document) Value(field string) (any, bool) {
	switch field {
	case FieldID:
		return d.ID, true
	case FieldCreatedAt:
		return d.CreatedAt, true
	case FieldUpdatedAt:
		if d.UpdatedAt == nil {
			return nil, false
		}
		return *d.UpdatedAt, true
	}
	v, ok := d.Fields[field]
	return v, ok
}

// String returns a field rendered as text, or "" when absent.
func (d Document) String(field string) string {
	v, ok := d.Value(field)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return FormatNumber(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// Strings returns a field as a string list. A single string becomes a
// one-element list so single and multiple image fields read the same way.
func (d Document) Strings(field string) []string {
	v, ok := d.Fields[field]
	if !ok || v == nil {
		return nil
	}
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	}
	return nil
}

// Clone returns a deep copy of the document's field map and slices.
func (d Document) Clone() Document {
	c := d
	c.Fields = CloneFields(d.Fields)
	if d.UpdatedAt != nil {
		t := *d.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

// CloneFields copies a field map; string and any slices are copied too.
func CloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch x := v.(type) {
		case []string:
			out[k] = append([]string(nil), x...)
		case []any:
			out[k] = append([]any(nil), x...)
		default:
			out[k] = v
		}
	}
	return out
}

// FormatNumber renders integral floats without a fractional part.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Order describes how a collection snapshot is sorted.
type Order struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// DefaultOrder is newest first, as every dashboard page lists.
var DefaultOrder = Order{Field: FieldCreatedAt, Desc: true}

func (o Order) String() string {
	if o.Desc {
		return o.Field + " desc"
	}
	return o.Field + " asc"
}

// SortDocuments orders docs in place. Documents without the order field sort
// last; ties fall back to id so the order is stable across snapshots.
func SortDocuments(docs []Document, o Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		vi, iok := docs[i].Value(o.Field)
		vj, jok := docs[j].Value(o.Field)
		if !iok || vi == nil {
			if !jok || vj == nil {
				return docs[i].ID < docs[j].ID
			}
			return false
		}
		if !jok || vj == nil {
			return true
		}
		c := compareValues(vi, vj)
		if c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case float64:
		if y, ok := toFloat(b); ok {
			return compareFloat(x, y)
		}
	case int:
		if y, ok := toFloat(b); ok {
			return compareFloat(float64(x), y)
		}
	case string:
		if y, ok := b.(string); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// PageState is the observable state of a collection page.
type PageState string

const (
	PageLoading   PageState = "loading"
	PagePopulated PageState = "populated"
	PageEmpty     PageState = "empty"
	PageError     PageState = "error"
)

// Snapshot is a point-in-time ordered view of a collection.
type Snapshot struct {
	Collection string     `json:"collection"`
	Order      Order      `json:"order"`
	Documents  []Document `json:"documents"`
	Seq        uint64     `json:"seq"`
	At         time.Time  `json:"at"`
}

// State derives the page state from the snapshot contents.
func (s Snapshot) State() PageState {
	if len(s.Documents) == 0 {
		return PageEmpty
	}
	return PagePopulated
}

// Card is the list renderer's projection of one document.
type Card struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Rating      int    `json:"rating,omitempty"`
}

// DetailField is one rendered row of a detail page.
type DetailField struct {
	Name  string   `json:"name"`
	Label string   `json:"label"`
	Value string   `json:"value"`
	List  []string `json:"list,omitempty"`
}

// DetailView is the generic rendering of a single document.
type DetailView struct {
	ID         string        `json:"id"`
	Collection string        `json:"collection"`
	Title      string        `json:"title"`
	Images     []string      `json:"images,omitempty"`
	Fields     []DetailField `json:"fields"`
	CreatedAt  string        `json:"createdAt,omitempty"`
	UpdatedAt  string        `json:"updatedAt,omitempty"`
}
