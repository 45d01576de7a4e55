package crud

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

const (
	defaultTitleField = "title"
	maxRating         = 5
	timestampLayout   = "2006-01-02 15:04"
)

// CardsOf projects documents for the list renderer, keeping their order.
func CardsOf(coll *schema.Collection, docs []types.Document) []types.Card {
	return lo.Map(docs, func(d types.Document, _ int) types.Card { return CardOf(coll, d) })
}

// CardOf projects one document.
func CardOf(coll *schema.Collection, doc types.Document) types.Card {
	c := types.Card{
		ID:    doc.ID,
		Title: doc.String(titleField(coll)),
	}
	if f := coll.Card.Subtitle; f != "" {
		c.Subtitle = doc.String(f)
	}
	if f := coll.Card.Description; f != "" {
		c.Description = doc.String(f)
	}
	if f := coll.Card.Image; f != "" {
		if urls := doc.Strings(f); len(urls) > 0 {
			c.Image = urls[0]
		}
	}
	if f := coll.Card.Rating; f != "" {
		c.Rating = Rating(doc.Fields[f])
	}
	return c
}

// Rating reads a stored rating as a whole number of stars in 0..5.
func Rating(v any) int {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case float64:
		f = x
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	n := int(math.Round(f))
	return max(0, min(maxRating, n))
}

// Stars renders a rating as filled and empty stars.
func Stars(n int) string {
	n = max(0, min(maxRating, n))
	return strings.Repeat("★", n) + strings.Repeat("☆", maxRating-n)
}

// DetailOf renders every field of a document: catalog fields in catalog
// order, then any other stored field sorted by name. Images are listed
// separately and the title field is shown as the heading only.
func DetailOf(coll *schema.Collection, doc types.Document) types.DetailView {
	title := titleField(coll)
	v := types.DetailView{
		ID:         doc.ID,
		Collection: coll.Name,
		Title:      doc.String(title),
		CreatedAt:  doc.CreatedAt.Format(timestampLayout),
	}
	if doc.UpdatedAt != nil {
		v.UpdatedAt = doc.UpdatedAt.Format(timestampLayout)
	}

	seen := map[string]bool{title: true}
	for _, img := range coll.Images {
		seen[img.Name] = true
		v.Images = append(v.Images, doc.Strings(img.Name)...)
	}

	for _, f := range coll.Fields {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		if _, ok := doc.Fields[f.Name]; !ok {
			continue
		}
		value := doc.String(f.Name)
		if f.Name == coll.Card.Rating {
			value = Stars(Rating(doc.Fields[f.Name]))
		}
		v.Fields = append(v.Fields, types.DetailField{Name: f.Name, Label: f.Label, Value: value})
	}
	for _, arr := range coll.Arrays {
		seen[arr.Name] = true
		if entries := doc.Strings(arr.Name); len(entries) > 0 {
			v.Fields = append(v.Fields, types.DetailField{Name: arr.Name, Label: arr.Label, List: entries})
		}
	}

	extra := lo.Filter(lo.Keys(doc.Fields), func(k string, _ int) bool { return !seen[k] })
	sort.Strings(extra)
	for _, k := range extra {
		field := types.DetailField{Name: k, Label: Humanize(k)}
		switch doc.Fields[k].(type) {
		case []any, []string:
			field.List = doc.Strings(k)
		default:
			field.Value = doc.String(k)
		}
		v.Fields = append(v.Fields, field)
	}
	if v.Fields == nil {
		v.Fields = []types.DetailField{}
	}
	return v
}

// Humanize turns a field key such as tag_description or contactEmail into
// a label ("Tag Description", "Contact Email").
func Humanize(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0:
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

func titleField(coll *schema.Collection) string {
	if coll.TitleField != "" {
		return coll.TitleField
	}
	return defaultTitleField
}
