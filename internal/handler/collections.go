package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/estatein/internal/crud"
)

// CollectionHandler serves the JSON collection API.
type CollectionHandler struct {
	svc *crud.Service
}

// NewCollectionHandler creates a CollectionHandler.
func NewCollectionHandler(svc *crud.Service) *CollectionHandler {
	return &CollectionHandler{svc: svc}
}

// Catalog returns every collection's schema in sidebar order.
func (h *CollectionHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"collections": h.svc.Registry().All()})
}

// List returns the ordered documents of a collection.
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.List(r.Context(), chi.URLParam(r, "collection"), parseOrder(r))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": len(docs)})
}

// Cards returns the list projection of a collection.
func (h *CollectionHandler) Cards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.Cards(r.Context(), chi.URLParam(r, "collection"), parseOrder(r))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// Get returns one document. With ?view=detail it returns the rendered
// detail view instead.
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	coll, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	if r.URL.Query().Get("view") == "detail" {
		view, err := h.svc.Detail(r.Context(), coll, id)
		if err != nil {
			storeErrorToHTTP(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}
	doc, err := h.svc.Get(r.Context(), coll, id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Create runs an add form from the request body.
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.NewAdd(chi.URLParam(r, "collection"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	defer d.Cancel()
	cleanup, err := applyRequest(d, r)
	defer cleanup()
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	doc, err := d.Submit(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// Update runs an edit form from the request body.
func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.NewEdit(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	defer d.Cancel()
	cleanup, err := applyRequest(d, r)
	defer cleanup()
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	doc, err := d.Submit(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Delete removes a document. Like the dashboard it always answers 204;
// store failures are logged.
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	coll := chi.URLParam(r, "collection")
	if _, err := h.svc.Collection(coll); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	h.svc.Delete(r.Context(), coll, chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
