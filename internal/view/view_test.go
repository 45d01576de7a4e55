package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

func setup(t *testing.T) (*Renderer, *schema.Registry) {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	reg, err := schema.Load("unsigned_upload")
	require.NoError(t, err)
	return r, reg
}

func render(t *testing.T, r *Renderer, page string, data any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, page, data))
	return buf.String()
}

func TestRender_Login(t *testing.T) {
	r, _ := setup(t)
	out := render(t, r, PageLogin, LoginData{Shell: Shell{Username: "admin"}, Error: "Invalid username or password"})
	assert.Contains(t, out, `action="/login"`)
	assert.Contains(t, out, "Invalid username or password")
	assert.NotContains(t, out, "<nav>")
}

func TestRender_List(t *testing.T) {
	r, reg := setup(t)
	out := render(t, r, PageList, ListData{
		Shell:      Shell{Title: "Reviews", Username: "admin", Nav: Nav(reg, "reviews")},
		Collection: reg.Collection("reviews"),
		State:      types.PagePopulated,
		Cards:      []types.Card{{ID: "r1", Title: "Exceptional <Service>", Rating: 4}},
	})
	assert.Contains(t, out, `<a href="/dashboard/reviews" class="active">Reviews</a>`)
	assert.Contains(t, out, "Exceptional &lt;Service&gt;")
	assert.Contains(t, out, "★★★★☆")
	assert.Contains(t, out, `/dashboard/reviews/r1/delete`)
	assert.Contains(t, out, "confirm(")
}

func TestRender_EmptyList(t *testing.T) {
	r, reg := setup(t)
	out := render(t, r, PageList, ListData{
		Shell:      Shell{Nav: Nav(reg, "faqs")},
		Collection: reg.Collection("faqs"),
		State:      types.PageEmpty,
	})
	assert.Contains(t, out, "No items yet.")
}

func TestRender_FormKeepsInputAndAlert(t *testing.T) {
	r, reg := setup(t)
	out := render(t, r, PageForm, FormData{
		Shell:      Shell{Nav: Nav(reg, "properties"), Alert: "Error adding property"},
		Collection: reg.Collection("properties"),
		Values:     map[string]string{"name": "Villa", "price": "abc"},
		Arrays:     map[string][]string{"features": {"pool"}},
		Problems:   map[string]string{"price": "must be a number"},
	})
	assert.Contains(t, out, "Error adding property")
	assert.Contains(t, out, `action="/dashboard/properties/new"`)
	assert.Contains(t, out, `value="Villa"`)
	assert.Contains(t, out, "must be a number")
	assert.Contains(t, out, `value="pool"`)
	assert.Contains(t, out, `type="file" name="imageUrls" accept="image/*" multiple`)
}

func TestRender_EditFormShowsImages(t *testing.T) {
	r, reg := setup(t)
	out := render(t, r, PageForm, FormData{
		Shell:      Shell{Nav: Nav(reg, "team")},
		Collection: reg.Collection("team"),
		ID:         "t1",
		Images:     map[string][]string{"profileImage": {"https://cdn.example.com/p.jpg"}},
	})
	assert.Contains(t, out, `action="/dashboard/team/t1/edit"`)
	assert.Contains(t, out, `name="keep.profileImage" value="https://cdn.example.com/p.jpg" checked`)
	assert.Contains(t, out, "Update")
}

func TestRender_Detail(t *testing.T) {
	r, reg := setup(t)
	out := render(t, r, PageDetail, DetailData{
		Shell:      Shell{Nav: Nav(reg, "properties")},
		Collection: reg.Collection("properties"),
		View: types.DetailView{
			ID:     "p1",
			Title:  "Seaside Villa",
			Fields: []types.DetailField{{Name: "features", Label: "Features", List: []string{"pool", "garden"}}},
		},
	})
	assert.Contains(t, out, "<h1>Seaside Villa</h1>")
	assert.Contains(t, out, "<li>garden</li>")
}

func TestRender_UnknownPage(t *testing.T) {
	r, _ := setup(t)
	assert.Error(t, r.Render(&bytes.Buffer{}, "nope", nil))
}
