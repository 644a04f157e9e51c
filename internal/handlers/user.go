package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/services"
	"github.com/vocaciona/apiserver/types"
)

// UserHandler provides profile endpoints.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers profile routes; all of them require authentication.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Use(authMiddleware)
	r.Get("/perfil", handler.OwnProfile)
	r.Get("/perfil/{id}", handler.ProfileByID)
	r.Put("/perfil", handler.UpdateProfile)
	r.Get("/dashboard", handler.Dashboard)
	r.Get("/buscar", handler.Search)
}

// ProfileResponse is the success envelope for profile reads and updates.
type ProfileResponse struct {
	Exito   bool             `json:"exito"`
	Usuario types.PublicUser `json:"usuario"`
}

// DashboardResponse wraps the dashboard aggregate.
type DashboardResponse struct {
	Exito     bool            `json:"exito"`
	Dashboard types.Dashboard `json:"dashboard"`
}

// SearchResponse lists matching public profiles.
type SearchResponse struct {
	Exito    bool               `json:"exito"`
	Usuarios []types.PublicUser `json:"usuarios"`
}

type UpdateProfileRequest struct {
	Nombre        *string `json:"nombre"`
	NombreUsuario *string `json:"nombreUsuario"`
	Avatar        *string `json:"avatar"`
	Biografia     *string `json:"biografia"`
	PerfilPublico *bool   `json:"perfilPublico"`
}

func (h *UserHandler) OwnProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	usuario, err := h.userService.Profile(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Exito: true, Usuario: usuario})
}

func (h *UserHandler) ProfileByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	usuario, err := h.userService.PublicProfile(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Exito: true, Usuario: usuario})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, apperr.CodeCamposIncompletos, "cuerpo de peticion invalido")
		return
	}

	usuario, err := h.userService.UpdateProfile(r.Context(), identity.UserID, services.ProfileChanges{
		Nombre:        req.Nombre,
		NombreUsuario: req.NombreUsuario,
		Avatar:        req.Avatar,
		Biografia:     req.Biografia,
		PerfilPublico: req.PerfilPublico,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Exito: true, Usuario: usuario})
}

func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	dashboard, err := h.userService.Dashboard(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{Exito: true, Dashboard: dashboard})
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limite"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeCode(w, http.StatusBadRequest, apperr.CodeCamposIncompletos, "limite invalido")
			return
		}
		limit = parsed
	}

	usuarios, err := h.userService.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Exito: true, Usuarios: usuarios})
}
