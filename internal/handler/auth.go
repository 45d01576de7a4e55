package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/matthewbaird/estatein/internal/auth"
	"github.com/matthewbaird/estatein/internal/chat"
	"github.com/matthewbaird/estatein/internal/view"
)

// LoginPath is where every denied dashboard request ends up.
const LoginPath = "/login"

const invalidCredentials = "Invalid username or password"

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler serves login and logout.
type AuthHandler struct {
	sessions  *auth.Manager
	views     *view.Renderer
	assistant *chat.Assistant
}

// NewAuthHandler creates an AuthHandler. assistant may be nil.
func NewAuthHandler(sessions *auth.Manager, views *view.Renderer, assistant *chat.Assistant) *AuthHandler {
	return &AuthHandler{sessions: sessions, views: views, assistant: assistant}
}

// LoginPage shows the login form. Visiting it ends the current session.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	h.renderLogin(w, http.StatusOK, view.LoginData{})
}

// Login checks the submitted credentials. HTML forms are redirected to the
// dashboard on success and shown the login page again on failure; JSON
// clients get the session user or a 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	asJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var req loginRequest
	if asJSON {
		if !decodeValid(w, r, &req) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.renderLogin(w, http.StatusBadRequest, view.LoginData{Error: invalidCredentials})
			return
		}
		req = loginRequest{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
	}

	s, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("login failed")
		}
		if asJSON {
			storeErrorToHTTP(w, err)
			return
		}
		h.renderLogin(w, http.StatusUnauthorized, view.LoginData{
			Shell: view.Shell{Username: req.Username},
			Error: invalidCredentials,
		})
		return
	}

	auth.SetCookie(w, r, s)
	log.Info().Str("username", s.Username).Msg("login")
	if asJSON {
		writeJSON(w, http.StatusOK, map[string]string{"username": s.Username})
		return
	}
	http.Redirect(w, r, DashboardHome, http.StatusSeeOther)
}

// Logout ends the session and returns to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// RedirectToLogin answers denied dashboard requests.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// Unauthorized answers denied API requests.
func Unauthorized(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
}

func (h *AuthHandler) endSession(w http.ResponseWriter, r *http.Request) {
	id := auth.SessionID(r)
	if id == "" {
		return
	}
	if err := h.sessions.Logout(r.Context(), id); err != nil {
		log.Error().Err(err).Msg("logout failed")
	}
	if h.assistant != nil {
		h.assistant.Reset(id)
	}
	auth.ClearCookie(w)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, status int, data view.LoginData) {
	renderPage(w, h.views, status, view.PageLogin, data)
}
