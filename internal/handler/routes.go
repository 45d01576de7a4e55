package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/estatein/internal/auth"
	"github.com/matthewbaird/estatein/internal/chat"
	"github.com/matthewbaird/estatein/internal/crud"
	"github.com/matthewbaird/estatein/internal/view"
)

// Deps are the services the routes are built from.
type Deps struct {
	Service   *crud.Service
	Sessions  *auth.Manager
	Views     *view.Renderer
	Assistant *chat.Assistant
	// Live serves the WebSocket protocol. It reads the "subscribe" query
	// parameters of the upgrade request.
	Live http.Handler
}

// RegisterRoutes registers the login, dashboard and API routes on r.
func RegisterRoutes(r chi.Router, deps Deps) {
	ah := NewAuthHandler(deps.Sessions, deps.Views, deps.Assistant)
	dh := NewDashboardHandler(deps.Service, deps.Views)
	ch := NewCollectionHandler(deps.Service)
	cth := NewChatHandler(deps.Assistant)

	r.Get(LoginPath, ah.LoginPage)
	r.Post(LoginPath, ah.Login)
	r.Post("/logout", ah.Logout)
	r.Get("/", dh.Home)

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(deps.Sessions.Require(http.HandlerFunc(RedirectToLogin)))
		r.Get("/", dh.Home)
		r.Get("/{collection}", dh.List)
		r.Get("/{collection}/new", dh.NewForm)
		r.Post("/{collection}/new", dh.Create)
		r.Get("/{collection}/{id}", dh.Detail)
		r.Get("/{collection}/{id}/edit", dh.EditForm)
		r.Post("/{collection}/{id}/edit", dh.Update)
		r.Post("/{collection}/{id}/delete", dh.Delete)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.Sessions.Require(http.HandlerFunc(Unauthorized)))
		r.Get("/collections", ch.Catalog)
		r.Get("/collections/{collection}", ch.List)
		r.Post("/collections/{collection}", ch.Create)
		r.Get("/collections/{collection}/cards", ch.Cards)
		r.Get("/collections/{collection}/{id}", ch.Get)
		r.Patch("/collections/{collection}/{id}", ch.Update)
		r.Delete("/collections/{collection}/{id}", ch.Delete)
		if deps.Live != nil {
			r.Get("/ws", deps.Live.ServeHTTP)
			r.Get("/collections/{collection}/ws", func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				q.Set("subscribe", chi.URLParam(r, "collection"))
				r.URL.RawQuery = q.Encode()
				deps.Live.ServeHTTP(w, r)
			})
		}
		r.Post("/chat", cth.Send)
		r.Get("/chat/history", cth.History)
		r.Get("/chat/suggestions", cth.Suggestions)
	})
}
