package types

import "time"

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, generated at creation.
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, stored lowercased.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role indicates the user's authorization level or role
	// within the system (e.g., "admin", "user").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// Accounts created through Google login carry an empty hash and cannot
	// log in with a password. This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// AvatarURL is an optional reference to the user's avatar image.
	AvatarURL string `json:"avatar_url" db:"avatar_url"`

	// Bio is an optional free-form profile description.
	Bio string `json:"bio" db:"bio"`

	// IsPublic controls whether the profile and its vocational results
	// are visible to users who do not follow this account.
	IsPublic bool `json:"is_public" db:"is_public"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PublicUser is the client-facing projection of a User. It never carries
// the password hash and uses the JSON field names the web client expects.
type PublicUser struct {
	ID            string    `json:"id"`
	Nombre        string    `json:"nombre"`
	Email         string    `json:"email"`
	NombreUsuario string    `json:"nombreUsuario"`
	Rol           string    `json:"rol"`
	Avatar        string    `json:"avatar,omitempty"`
	Biografia     string    `json:"biografia,omitempty"`
	PerfilPublico bool      `json:"perfilPublico"`
	FechaCreacion time.Time `json:"fechaCreacion"`
}

// Public returns the client-facing projection of the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Nombre:        u.Name,
		Email:         u.Email,
		NombreUsuario: u.Username,
		Rol:           u.Role,
		Avatar:        u.AvatarURL,
		Biografia:     u.Bio,
		PerfilPublico: u.IsPublic,
		FechaCreacion: u.CreatedAt,
	}
}

// Dashboard aggregates a user's profile with activity counters.
type Dashboard struct {
	Usuario    PublicUser `json:"usuario"`
	TotalTests int        `json:"totalTests"`
	Seguidores int        `json:"seguidores"`
	Siguiendo  int        `json:"siguiendo"`
}
