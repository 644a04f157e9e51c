// Package apperr defines the discriminated error type that service
// operations return instead of raw errors. Every failure carries a kind
// (which the HTTP layer maps to a status code) and a stable code string
// that client code branches on; the code, not the status, is the contract.
package apperr

import "fmt"

// Kind classifies a failure for HTTP status mapping.
type Kind int

const (
	// KindValidation covers client input mistakes (400).
	KindValidation Kind = iota
	// KindNotFound covers lookup misses (404).
	KindNotFound
	// KindAuth covers bad credentials and bad/expired tokens (401).
	KindAuth
	// KindForbidden covers permission failures on valid identities (403).
	KindForbidden
	// KindConflict covers duplicate email/username conflicts (409).
	KindConflict
	// KindUpstream covers unreachable dependencies (502).
	KindUpstream
	// KindTimeout covers dependency timeouts (504).
	KindTimeout
	// KindIntegrity covers invalid stored data and missing required
	// configuration (500).
	KindIntegrity
	// KindInternal covers everything unexpected (500).
	KindInternal
)

// Stable error codes forwarded verbatim to clients.
const (
	CodeCamposIncompletos    = "CAMPOS_INCOMPLETOS"
	CodeUsuarioNoEncontrado  = "USUARIO_NO_ENCONTRADO"
	CodeCuentaSinContrasena  = "CUENTA_SIN_CONTRASENA"
	CodeHashDesconocido      = "HASH_DESCONOCIDO"
	CodeContrasenaIncorrecta = "CONTRASENA_INCORRECTA"

	CodeNombreRequerido     = "NOMBRE_REQUERIDO"
	CodeEmailRequerido      = "EMAIL_REQUERIDO"
	CodeEmailInvalido       = "EMAIL_INVALIDO"
	CodeContrasenaRequerida = "CONTRASENA_REQUERIDA"
	CodeContrasenaCorta     = "CONTRASENA_CORTA"
	CodeUsuarioRequerido    = "USUARIO_REQUERIDO"
	CodeUsuarioCorto        = "USUARIO_CORTO"
	CodeRolRequerido        = "ROL_REQUERIDO"
	CodeRolInvalido         = "ROL_INVALIDO"

	CodeEmailEnUso       = "EMAIL_EN_USO"
	CodeUsuarioEnUso     = "USUARIO_EN_USO"
	CodeUsuarioDuplicado = "USUARIO_DUPLICADO"

	CodeTokenInvalido         = "TOKEN_INVALIDO"
	CodeTokenExpirado         = "TOKEN_EXPIRADO"
	CodeTokenGoogleInvalido   = "TOKEN_GOOGLE_INVALIDO"
	CodeTokenGoogleMalformado = "TOKEN_GOOGLE_MALFORMADO"
	CodeTimeoutGoogle         = "TIMEOUT_GOOGLE"
	CodeErrorRed              = "ERROR_RED"

	CodeContrasenaActualIncorrecta = "CONTRASENA_ACTUAL_INCORRECTA"
	CodeNoAutorizado               = "NO_AUTORIZADO"
	CodePerfilPrivado              = "PERFIL_PRIVADO"
	CodeResultadoNoEncontrado      = "RESULTADO_NO_ENCONTRADO"
	CodeSinResultados              = "SIN_RESULTADOS"

	CodeConfigFaltante = "CONFIG_FALTANTE"
	CodeErrorServidor  = "ERROR_SERVIDOR"
	CodeErrorBD        = "ERROR_BD"
)

// Error is a failure with a kind, a stable client code, and a message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap constructs an Error that wraps an underlying cause.
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation builds a 400-class error.
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// NotFound builds a 404-class error.
func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

// Auth builds a 401-class error.
func Auth(code, message string) *Error {
	return New(KindAuth, code, message)
}

// Forbidden builds a 403-class error.
func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

// Conflict builds a 409-class error.
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// Internal builds a 500-class error wrapping an unexpected cause.
func Internal(err error, message string) *Error {
	return Wrap(err, KindInternal, CodeErrorServidor, message)
}
