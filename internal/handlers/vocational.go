package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/services"
	"github.com/vocaciona/apiserver/types"
)

// VocationalHandler provides privacy-gated vocational result reads.
type VocationalHandler struct {
	resultService *services.TestResultService
}

func NewVocationalHandler(resultService *services.TestResultService) *VocationalHandler {
	return &VocationalHandler{resultService: resultService}
}

// VocationalRouter registers vocational routes; all require authentication.
func VocationalRouter(r chi.Router, resultService *services.TestResultService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewVocationalHandler(resultService)

	r.Use(authMiddleware)
	r.Get("/historial/{id}", handler.History)
	r.Get("/ultimo/{id}", handler.Latest)
	r.Get("/estadisticas/{id}", handler.Stats)
}

// StatsResponse wraps a user's aggregate statistics.
type StatsResponse struct {
	Exito        bool                  `json:"exito"`
	Estadisticas types.VocationalStats `json:"estadisticas"`
}

func (h *VocationalHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	resultados, err := h.resultService.History(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultListResponse{Exito: true, Resultados: resultados})
}

func (h *VocationalHandler) Latest(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	resultado, err := h.resultService.Latest(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Exito: true, Resultado: resultado})
}

func (h *VocationalHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	estadisticas, err := h.resultService.Stats(r.Context(), identity.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Exito: true, Estadisticas: estadisticas})
}
