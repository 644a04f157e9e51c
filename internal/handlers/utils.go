package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/auth"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Email  string
	Nombre string
	Rol    string
}

// ErrorResponse is the failure envelope. The Codigo string is the contract
// client code branches on; it must stay stable.
type ErrorResponse struct {
	Exito  bool   `json:"exito"`
	Error  string `json:"error"`
	Codigo string `json:"codigo"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError maps a service failure to an HTTP status and forwards its
// stable code. Anything that is not an apperr.Error becomes a 500.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(err, "error interno del servidor")
	}
	writeJSON(w, statusForKind(appErr.Kind), ErrorResponse{
		Exito:  false,
		Error:  appErr.Message,
		Codigo: appErr.Code,
	})
}

func writeCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Exito: false, Error: message, Codigo: code})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RequireAuth enforces a bearer session token and injects the caller's
// identity into the request context.
func RequireAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token requerido")
				return
			}

			claims, err := issuer.Verify(tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					writeCode(w, http.StatusUnauthorized, apperr.CodeTokenExpirado, "el token expiro")
					return
				}
				writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token invalido")
				return
			}

			identity := Identity{
				UserID: claims.Subject,
				Email:  claims.Email,
				Nombre: claims.Nombre,
				Rol:    claims.Rol,
			}
			ctx := context.WithValue(r.Context(), contextIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injects the caller's identity when a bearer token is
// presented, but lets anonymous requests through. A token that is present
// yet invalid is still rejected.
func OptionalAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := bearerToken(r)
			if err != nil {
				writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token invalido")
				return
			}
			claims, err := issuer.Verify(tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					writeCode(w, http.StatusUnauthorized, apperr.CodeTokenExpirado, "el token expiro")
					return
				}
				writeCode(w, http.StatusUnauthorized, apperr.CodeTokenInvalido, "token invalido")
				return
			}

			identity := Identity{
				UserID: claims.Subject,
				Email:  claims.Email,
				Nombre: claims.Nombre,
				Rol:    claims.Rol,
			}
			ctx := context.WithValue(r.Context(), contextIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok || identity.UserID == "" {
		return Identity{}, false
	}
	return identity, true
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
