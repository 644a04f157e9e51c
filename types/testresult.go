package types

import (
	"encoding/json"
	"time"
)

// TestResult represents one completed vocational or aptitude test.
type TestResult struct {
	// ID is the unique identifier of the result, generated at creation.
	ID string `json:"id" db:"id"`

	// UserID references the account that took the test.
	UserID string `json:"usuarioId" db:"user_id"`

	// TestType identifies which test was taken (e.g., "vocacional").
	TestType string `json:"tipoTest" db:"test_type"`

	// Area is the dominant vocational area the test produced.
	Area string `json:"area" db:"area"`

	// Score is the numeric score for the dominant area.
	Score float64 `json:"puntaje" db:"score"`

	// Detail holds the test's full answer/score breakdown as JSON.
	Detail json.RawMessage `json:"detalle,omitempty" db:"detail"`

	// CreatedAt is the timestamp when the result was stored.
	CreatedAt time.Time `json:"fechaCreacion" db:"created_at"`
}

// VocationalStats summarizes a user's test history.
type VocationalStats struct {
	Total           int                `json:"total"`
	Tipos           []string           `json:"tipos"`
	UltimaFecha     *time.Time         `json:"ultimaFecha,omitempty"`
	PromedioPorArea map[string]float64 `json:"promedioPorArea"`
}
