// Package view renders the server-side dashboard pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/matthewbaird/estatein/internal/crud"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	PageLogin  = "login"
	PageList   = "list"
	PageForm   = "form"
	PageDetail = "detail"
)

// NavItem is one sidebar entry.
type NavItem struct {
	Name   string
	Label  string
	Active bool
}

// Shell carries what every dashboard page needs.
type Shell struct {
	Title    string
	Username string
	Nav      []NavItem
	Alert    string
}

// LoginData renders the login screen.
type LoginData struct {
	Shell
	Error string
}

// ListData renders a collection page.
type ListData struct {
	Shell
	Collection *schema.Collection
	State      types.PageState
	Cards      []types.Card
}

// FormData renders the add and edit forms. Values hold the raw scalar
// inputs so a failed submit re-renders exactly what was typed.
type FormData struct {
	Shell
	Collection *schema.Collection
	ID         string
	Values     map[string]string
	Arrays     map[string][]string
	Images     map[string][]string
	Problems   map[string]string
}

// Editing reports whether the form edits an existing document.
func (f FormData) Editing() bool { return f.ID != "" }

// Action is the form's submit URL.
func (f FormData) Action() string {
	if f.Editing() {
		return "/dashboard/" + f.Collection.Name + "/" + f.ID + "/edit"
	}
	return "/dashboard/" + f.Collection.Name + "/new"
}

// DetailData renders a detail page.
type DetailData struct {
	Shell
	Collection *schema.Collection
	View       types.DetailView
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"stars":    crud.Stars,
	"humanize": crud.Humanize,
	"join":     strings.Join,
	"inputID":  func(parts ...string) string { return strings.Join(parts, "-") },
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	return newRenderer(templateFS)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageLogin, PageList, PageForm, PageDetail} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render executes a page into w. The page is rendered to a buffer first so
// a template error never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Nav builds the sidebar with active marked.
func Nav(reg *schema.Registry, active string) []NavItem {
	all := reg.All()
	out := make([]NavItem, 0, len(all))
	for _, c := range all {
		out = append(out, NavItem{Name: c.Name, Label: c.Label, Active: c.Name == active})
	}
	return out
}
