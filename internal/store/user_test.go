package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocaciona/apiserver/types"
)

func userRows(users ...types.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "name", "role", "password_hash",
		"avatar_url", "bio", "is_public", "created_at", "updated_at",
	})
	for _, u := range users {
		rows.AddRow(u.ID, u.Username, u.Email, u.Name, u.Role, u.PasswordHash,
			u.AvatarURL, u.Bio, u.IsPublic, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

var sampleUser = types.User{
	ID:           "5aa31bb3-55a7-43d8-9f39-d61708d388d1",
	Username:     "ana123",
	Email:        "ana@x.com",
	Name:         "Ana",
	Role:         "user",
	PasswordHash: "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b",
	IsPublic:     true,
	CreatedAt:    time.Now(),
	UpdatedAt:    time.Now(),
}

func TestUserGetByIdentifier(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ana@x.com").
		WillReturnRows(userRows(sampleUser))

	repo := NewUserRepository(db)
	user, err := repo.GetByIdentifier(context.Background(), "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, sampleUser.ID, user.ID)
	assert.Equal(t, sampleUser.PasswordHash, user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIdentifierNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("nadie").
		WillReturnRows(userRows())

	repo := NewUserRepository(db)
	_, err = repo.GetByIdentifier(context.Background(), "nadie")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	repo := NewUserRepository(db)
	_, err = repo.Create(context.Background(), sampleUser)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserCreateSetsTimestamps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepository(db)
	created, err := repo.Create(context.Background(), types.User{ID: "u1", Username: "ana123", Email: "ana@x.com"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepository(db)
	err = repo.UpdatePasswordHash(context.Background(), "u1", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordHashMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	err = repo.UpdatePasswordHash(context.Background(), "nope", "hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ana", 10).
		WillReturnRows(userRows(sampleUser))

	repo := NewUserRepository(db)
	users, err := repo.Search(context.Background(), "ana", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ana123", users[0].Username)
}
