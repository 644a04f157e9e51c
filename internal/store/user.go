package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vocaciona/apiserver/types"
)

const userColumns = `id, username, email, name, role, password_hash, avatar_url, bio, is_public, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.Bio,
		&user.IsPublic,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByIdentifier finds the account whose email or username equals the
// identifier. The match is case-sensitive against stored values. If the
// store ever returned more than one row, the first wins.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 OR username = $1
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, identifier))
}

// GetByEmailFold finds the account whose email matches case-insensitively.
func (r *UserRepository) GetByEmailFold(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// FindConflict returns an existing account colliding with the given
// lowercased email or exact username, for pre-insert uniqueness checks.
func (r *UserRepository) FindConflict(ctx context.Context, emailLower, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = $1 OR username = $2
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, emailLower, username))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, username, email, name, role, password_hash, avatar_url, bio, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.Name,
		user.Role,
		user.PasswordHash,
		user.AvatarURL,
		user.Bio,
		user.IsPublic,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return types.User{}, translateInsertError(err)
	}
	return user, nil
}

// Update rewrites the profile fields of an existing account.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET username = $1,
			name = $2,
			avatar_url = $3,
			bio = $4,
			is_public = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Name,
		user.AvatarURL,
		user.Bio,
		user.IsPublic,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, translateInsertError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// UpdatePasswordHash overwrites the stored password credential.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, hash, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAvatar sets the avatar reference.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	const query = `
		UPDATE users
		SET avatar_url = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, avatarURL, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search finds accounts by username prefix or name substring.
func (r *UserRepository) Search(ctx context.Context, q string, limit int) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username ILIKE $1 || '%' OR name ILIKE '%' || $1 || '%'
		ORDER BY username
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var user types.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.Name,
			&user.Role,
			&user.PasswordHash,
			&user.AvatarURL,
			&user.Bio,
			&user.IsPublic,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
