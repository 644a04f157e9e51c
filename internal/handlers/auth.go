package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/services"
	"github.com/vocaciona/apiserver/types"
)

// AuthHandler provides the authentication endpoints.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AuthRouter registers auth routes on the given router. Registration takes
// the optional middleware so an authenticated admin can mint non-user roles.
func AuthRouter(r chi.Router, authService *services.AuthService, authMiddleware, optionalAuthMiddleware func(http.Handler) http.Handler) {
	handler := NewAuthHandler(authService)

	r.Post("/login", handler.Login)
	r.With(optionalAuthMiddleware).Post("/registro", handler.Register)
	r.Post("/google", handler.LoginWithGoogle)
	r.With(authMiddleware).Put("/password", handler.ChangePassword)
}

type LoginRequest struct {
	Identificador string `json:"identificador"`
	Contrasena    string `json:"contrasena"`
}

type RegisterRequest struct {
	Nombre        string `json:"nombre"`
	Email         string `json:"email"`
	Contrasena    string `json:"contrasena"`
	NombreUsuario string `json:"nombreUsuario"`
	Rol           string `json:"rol"`
}

type GoogleLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

type ChangePasswordRequest struct {
	ContrasenaActual string `json:"contrasenaActual"`
	NuevaContrasena  string `json:"nuevaContrasena"`
}

// AuthResponse is the success envelope for login and registration.
type AuthResponse struct {
	Exito   bool             `json:"exito"`
	Usuario types.PublicUser `json:"usuario"`
	Token   string           `json:"token"`
}

// MessageResponse is the success envelope for operations with no payload.
type MessageResponse struct {
	Exito   bool   `json:"exito"`
	Mensaje string `json:"mensaje"`
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, apperr.CodeCamposIncompletos, "cuerpo de peticion invalido")
		return
	}

	usuario, token, err := h.authService.Login(r.Context(), req.Identificador, req.Contrasena)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Exito: true, Usuario: usuario, Token: token})
}

// Register creates an account and returns a session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, apperr.CodeCamposIncompletos, "cuerpo de peticion invalido")
		return
	}

	// Only an authenticated admin may mint non-user roles over HTTP.
	if req.Rol != "" && req.Rol != "user" {
		identity, ok := identityFromContext(r.Context())
		if !ok || identity.Rol != "admin" {
			req.Rol = "user"
		}
	}
	if req.Rol == "" {
		req.Rol = "user"
	}

	usuario, token, err := h.authService.Register(r.Context(), req.Nombre, req.Email, req.Contrasena, req.NombreUsuario, req.Rol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Exito: true, Usuario: usuario, Token: token})
}

// LoginWithGoogle exchanges a Google access token for a session.
func (h *AuthHandler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, apperr.CodeTokenInvalido, "cuerpo de peticion invalido")
		return
	}

	usuario, token, err := h.authService.LoginWithGoogle(r.Context(), req.AccessToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Exito: true, Usuario: usuario, Token: token})
}

// ChangePassword updates the caller's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, apperr.CodeCamposIncompletos, "cuerpo de peticion invalido")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), identity.UserID, req.ContrasenaActual, req.NuevaContrasena); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Exito: true, Mensaje: "contrasena actualizada"})
}
