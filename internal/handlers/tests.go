package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/services"
	"github.com/vocaciona/apiserver/types"
)

// TestsHandler provides test-result CRUD endpoints.
type TestsHandler struct {
	resultService *services.TestResultService
}

func NewTestsHandler(resultService *services.TestResultService) *TestsHandler {
	return &TestsHandler{resultService: resultService}
}

// TestsRouter registers test-result routes; all require authentication.
func TestsRouter(r chi.Router, resultService *services.TestResultService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTestsHandler(resultService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListOwn)
	r.Post("/guardar", handler.Save)
	r.Delete("/eliminar/{id}", handler.Delete)
}

type SaveResultRequest struct {
	TipoTest string          `json:"tipoTest"`
	Area     string          `json:"area"`
	Puntaje  float64         `json:"puntaje"`
	Detalle  json.RawMessage `json:"detalle"`
}

// ResultResponse is the success envelope for a single result.
type ResultResponse struct {
	Exito     bool             `json:"exito"`
	Resultado types.TestResult `json:"resultado"`
}

// ResultListResponse is the success envelope for result listings.
type ResultListResponse struct {
	Exito      bool               `json:"exito"`
	Resultados []types.TestResult `json:"resultados"`
}

func (h *TestsHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	resultados, err := h.resultService.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultListResponse{Exito: true, Resultados: resultados})
}

func (h *TestsHandler) Save(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	var req SaveResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, apperr.CodeCamposIncompletos, "cuerpo de peticion invalido")
		return
	}

	resultado, err := h.resultService.Save(r.Context(), identity.UserID, req.TipoTest, req.Area, req.Puntaje, req.Detalle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ResultResponse{Exito: true, Resultado: resultado})
}

func (h *TestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
		return
	}

	if err := h.resultService.Delete(r.Context(), identity.UserID, identity.Rol, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Exito: true, Mensaje: "resultado eliminado"})
}
