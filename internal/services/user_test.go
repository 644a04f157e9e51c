package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/store"
	"github.com/vocaciona/apiserver/types"
)

func (r *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Search(_ context.Context, q string, limit int) ([]types.User, error) {
	var out []types.User
	for _, u := range r.users {
		if len(out) == limit {
			break
		}
		if strings.HasPrefix(u.Username, q) || strings.Contains(u.Name, q) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) CountByUser(_ context.Context, userID string) (int, error) {
	count := 0
	for _, result := range r.results {
		if result.UserID == userID {
			count++
		}
	}
	return count, nil
}

func newUserFixture() (*fakeUserRepo, *fakeFollowRepo, *fakeResultRepo) {
	users := newFakeUserRepo(
		types.User{ID: "publica", Username: "publica", Email: "publica@x.com", Name: "Paula", IsPublic: true},
		types.User{ID: "privada", Username: "privada", Email: "privada@x.com", Name: "Pilar", IsPublic: false},
		types.User{ID: "fan", Username: "fan", Email: "fan@x.com", Name: "Fabi", IsPublic: true},
	)
	return users, newFakeFollowRepo(), newFakeResultRepo()
}

func TestProfile(t *testing.T) {
	users, follows, results := newUserFixture()
	svc := NewUserService(users, follows, results, nil)

	usuario, err := svc.Profile(context.Background(), "publica")
	require.NoError(t, err)
	assert.Equal(t, "publica", usuario.NombreUsuario)

	_, err = svc.Profile(context.Background(), "nadie")
	assert.Equal(t, apperr.CodeUsuarioNoEncontrado, errCode(t, err))
}

func TestPublicProfilePrivacy(t *testing.T) {
	users, follows, results := newUserFixture()
	svc := NewUserService(users, follows, results, nil)

	_, err := svc.PublicProfile(context.Background(), "fan", "privada")
	assert.Equal(t, apperr.CodePerfilPrivado, errCode(t, err))

	follows.add("fan", "privada")
	usuario, err := svc.PublicProfile(context.Background(), "fan", "privada")
	require.NoError(t, err)
	assert.Equal(t, "privada", usuario.NombreUsuario)

	usuario, err = svc.PublicProfile(context.Background(), "fan", "publica")
	require.NoError(t, err)
	assert.Equal(t, "publica", usuario.NombreUsuario)
}

func TestUpdateProfile(t *testing.T) {
	stringPtr := func(s string) *string { return &s }
	boolPtr := func(b bool) *bool { return &b }

	t.Run("applies changes", func(t *testing.T) {
		users, follows, results := newUserFixture()
		svc := NewUserService(users, follows, results, nil)

		usuario, err := svc.UpdateProfile(context.Background(), "publica", ProfileChanges{
			Nombre:        stringPtr("Paula Nueva"),
			Biografia:     stringPtr("hola"),
			PerfilPublico: boolPtr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, "Paula Nueva", usuario.Nombre)
		assert.Equal(t, "hola", usuario.Biografia)
		assert.False(t, usuario.PerfilPublico)
	})

	t.Run("rejects short username", func(t *testing.T) {
		users, follows, results := newUserFixture()
		svc := NewUserService(users, follows, results, nil)

		_, err := svc.UpdateProfile(context.Background(), "publica", ProfileChanges{
			NombreUsuario: stringPtr("ab"),
		})
		assert.Equal(t, apperr.CodeUsuarioCorto, errCode(t, err))
	})

	t.Run("rejects taken username", func(t *testing.T) {
		users, follows, results := newUserFixture()
		svc := NewUserService(users, follows, results, nil)

		_, err := svc.UpdateProfile(context.Background(), "publica", ProfileChanges{
			NombreUsuario: stringPtr("privada"),
		})
		assert.Equal(t, apperr.CodeUsuarioEnUso, errCode(t, err))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		users, follows, results := newUserFixture()
		svc := NewUserService(users, follows, results, nil)

		_, err := svc.UpdateProfile(context.Background(), "publica", ProfileChanges{
			Nombre: stringPtr("   "),
		})
		assert.Equal(t, apperr.CodeNombreRequerido, errCode(t, err))
	})
}

func TestDashboardCounts(t *testing.T) {
	users, follows, results := newUserFixture()
	follows.add("fan", "publica")
	follows.add("privada", "publica")
	follows.add("publica", "fan")
	results.Create(context.Background(), types.TestResult{ID: "r1", UserID: "publica", TestType: "vocacional"})

	svc := NewUserService(users, follows, results, nil)
	dashboard, err := svc.Dashboard(context.Background(), "publica")
	require.NoError(t, err)
	assert.Equal(t, "publica", dashboard.Usuario.NombreUsuario)
	assert.Equal(t, 1, dashboard.TotalTests)
	assert.Equal(t, 2, dashboard.Seguidores)
	assert.Equal(t, 1, dashboard.Siguiendo)
}

func TestSearch(t *testing.T) {
	users, follows, results := newUserFixture()
	svc := NewUserService(users, follows, results, nil)

	found, err := svc.Search(context.Background(), "publica", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "publica", found[0].NombreUsuario)

	empty, err := svc.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
