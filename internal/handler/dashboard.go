package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/estatein/internal/auth"
	"github.com/matthewbaird/estatein/internal/crud"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
	"github.com/matthewbaird/estatein/internal/view"
)

// DashboardHome is the landing page after login.
const DashboardHome = "/dashboard/properties"

// DashboardHandler serves the server-rendered collection pages.
type DashboardHandler struct {
	svc   *crud.Service
	views *view.Renderer
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(svc *crud.Service, views *view.Renderer) *DashboardHandler {
	return &DashboardHandler{svc: svc, views: views}
}

// Home redirects to the first collection page.
func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, DashboardHome, http.StatusSeeOther)
}

// List renders the cards of a collection, newest first. A failed read
// renders the error state; the page itself stays usable.
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	data := view.ListData{Shell: h.shell(r, coll, coll.Label), Collection: coll}
	cards, err := h.svc.Cards(r.Context(), coll.Name, types.DefaultOrder)
	switch {
	case err != nil:
		log.Error().Err(err).Str("collection", coll.Name).Msg("listing failed")
		data.State = types.PageError
	case len(cards) == 0:
		data.State = types.PageEmpty
	default:
		data.State = types.PagePopulated
	}
	data.Cards = cards
	renderPage(w, h.views, http.StatusOK, view.PageList, data)
}

// Detail renders one document.
func (h *DashboardHandler) Detail(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	dv, err := h.svc.Detail(r.Context(), coll.Name, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, coll, err)
		return
	}
	renderPage(w, h.views, http.StatusOK, view.PageDetail, view.DetailData{
		Shell:      h.shell(r, coll, dv.Title),
		Collection: coll,
		View:       dv,
	})
}

// NewForm renders an empty add form.
func (h *DashboardHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	d, err := h.svc.NewAdd(coll.Name)
	if err != nil {
		h.fail(w, r, coll, err)
		return
	}
	defer d.Cancel()
	h.renderForm(w, r, http.StatusOK, d, "", "", nil)
}

// Create submits an add form. Success returns to the list; failure shows
// the form again with the input and an alert.
func (h *DashboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	d, err := h.svc.NewAdd(coll.Name)
	if err != nil {
		h.fail(w, r, coll, err)
		return
	}
	defer d.Cancel()
	h.submit(w, r, d, "", func() error {
		_, err := d.Submit(r.Context())
		return err
	})
}

// EditForm renders the edit form seeded from the stored document.
func (h *DashboardHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	d, err := h.svc.NewEdit(r.Context(), coll.Name, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, coll, err)
		return
	}
	defer d.Cancel()
	h.renderForm(w, r, http.StatusOK, d, d.ID(), "", nil)
}

// Update submits an edit form.
func (h *DashboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	d, err := h.svc.NewEdit(r.Context(), coll.Name, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, coll, err)
		return
	}
	defer d.Cancel()
	h.submit(w, r, d, d.ID(), func() error {
		_, err := d.Submit(r.Context())
		return err
	})
}

// Delete removes a document and returns to the list. The browser asks for
// confirmation before posting; failures are logged only.
func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	h.svc.Delete(r.Context(), coll.Name, chi.URLParam(r, "id"))
	http.Redirect(w, r, "/dashboard/"+coll.Name, http.StatusSeeOther)
}

func (h *DashboardHandler) submit(w http.ResponseWriter, r *http.Request, d formDraft, id string, run func() error) {
	coll := d.Collection()
	cleanup, err := applyRequest(d, r)
	defer cleanup()
	if err == nil {
		err = run()
	}
	if err != nil {
		status, _ := statusOf(err)
		verb := "adding"
		if id != "" {
			verb = "updating"
		}
		h.renderForm(w, r, status, d, id, fmt.Sprintf("Error %s %s: %s", verb, coll.Kind, alertText(err)), problemsOf(err))
		return
	}
	http.Redirect(w, r, "/dashboard/"+coll.Name, http.StatusSeeOther)
}

func (h *DashboardHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, d formDraft, id, alert string, problems map[string]string) {
	coll := d.Collection()
	data := view.FormData{
		Shell:      h.shell(r, coll, coll.Label),
		Collection: coll,
		ID:         id,
		Values:     make(map[string]string, len(coll.Fields)),
		Arrays:     make(map[string][]string, len(coll.Arrays)),
		Images:     make(map[string][]string, len(coll.Images)),
		Problems:   problems,
	}
	data.Alert = alert
	for _, f := range coll.Fields {
		data.Values[f.Name] = d.Value(f.Name)
	}
	for _, a := range coll.Arrays {
		data.Arrays[a.Name] = d.Array(a.Name)
	}
	for _, img := range coll.Images {
		data.Images[img.Name] = d.Images(img.Name)
	}
	renderPage(w, h.views, status, view.PageForm, data)
}

func (h *DashboardHandler) collection(w http.ResponseWriter, r *http.Request) (*schema.Collection, bool) {
	coll, err := h.svc.Collection(chi.URLParam(r, "collection"))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	return coll, true
}

// fail renders the list page with an alert for errors outside a form.
func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, coll *schema.Collection, err error) {
	status, code := statusOf(err)
	if code == "INTERNAL_ERROR" {
		log.Error().Err(err).Str("collection", coll.Name).Msg("dashboard request failed")
	}
	cards, listErr := h.svc.Cards(r.Context(), coll.Name, types.DefaultOrder)
	state := types.PagePopulated
	switch {
	case listErr != nil:
		state = types.PageError
	case len(cards) == 0:
		state = types.PageEmpty
	}
	shell := h.shell(r, coll, coll.Label)
	shell.Alert = alertText(err)
	renderPage(w, h.views, status, view.PageList, view.ListData{Shell: shell, Collection: coll, State: state, Cards: cards})
}

func (h *DashboardHandler) shell(r *http.Request, coll *schema.Collection, title string) view.Shell {
	s := view.Shell{Title: title, Nav: view.Nav(h.svc.Registry(), coll.Name)}
	if sess, ok := auth.FromContext(r.Context()); ok {
		s.Username = sess.Username
	}
	return s
}

func alertText(err error) string {
	if _, code := statusOf(err); code == "INTERNAL_ERROR" {
		return "something went wrong, please try again"
	}
	return err.Error()
}

func renderPage(w http.ResponseWriter, views *view.Renderer, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.Render(w, page, data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("render failed")
	}
}
