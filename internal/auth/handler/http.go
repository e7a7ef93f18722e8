package handler

import (
	"errors"
	"net/http"
	"time"

	"comanda/backend/internal/auth/service"
)

// refreshCookieName is the cookie carrying the refresh token. The frontend
// never reads it; it is scoped to the auth endpoints only.
const refreshCookieName = "refreshToken"

const refreshCookiePath = "/auth"

// Handler exposes the auth endpoints over HTTP.
type Handler struct {
	svc          *service.AuthService
	cookieSecure bool
	refreshTTL   time.Duration
}

// NewHandler returns an auth handler. cookieSecure controls the Secure flag on
// the refresh cookie; refreshTTL is its lifetime.
func NewHandler(svc *service.AuthService, cookieSecure bool, refreshTTL time.Duration) *Handler {
	return &Handler{svc: svc, cookieSecure: cookieSecure, refreshTTL: refreshTTL}
}

// Register mounts the auth routes on mux. loginLimit, when non-nil, wraps
// only the login route (credential-stuffing throttle).
func (h *Handler) Register(mux *http.ServeMux, loginLimit func(http.Handler) http.Handler) {
	login := http.Handler(http.HandlerFunc(h.handleLogin))
	if loginLimit != nil {
		login = loginLimit(login)
	}
	mux.Handle("/auth/login", login)
	mux.HandleFunc("/auth/refresh-token", h.handleRefresh)
	mux.HandleFunc("/auth/logout", h.handleLogout)
}

// External JSON contract is Spanish; field names here are load-bearing.
type loginRequest struct {
	Correo     string `json:"correo"`
	Contrasena string `json:"contraseña"`
}

type authResponse struct {
	ID          string `json:"id"`
	Nombre      string `json:"nombre"`
	Rol         string `json:"rol"`
	AccessToken string `json:"accessToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Login(r.Context(), req.Correo, req.Contrasena, clientInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "usuario no encontrado")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "credenciales inválidas")
		default:
			writeError(w, http.StatusInternalServerError, "error interno")
		}
		return
	}

	h.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{
		ID:          res.User.ID,
		Nombre:      res.User.Name,
		Rol:         string(res.User.Role),
		AccessToken: res.AccessToken,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	token := h.refreshTokenFrom(r)
	if token == "" {
		// No token presented at all: reject without touching any session.
		writeError(w, http.StatusUnauthorized, "refresh token requerido")
		return
	}

	res, err := h.svc.Refresh(r.Context(), token, clientInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefreshToken), errors.Is(err, service.ErrRefreshTokenReuse):
			h.clearRefreshCookie(w)
			writeError(w, http.StatusForbidden, "refresh token inválido")
		default:
			writeError(w, http.StatusInternalServerError, "error interno")
		}
		return
	}

	h.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": res.AccessToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if token := h.refreshTokenFrom(r); token != "" {
		h.svc.Logout(r.Context(), token)
	}
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": "sesión cerrada"})
}

// refreshTokenFrom reads the refresh token from the cookie, falling back to a
// JSON body for clients that cannot send cookies.
func (h *Handler) refreshTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var req refreshRequest
	if err := decodeJSONLenient(r, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
