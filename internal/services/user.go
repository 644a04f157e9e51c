package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/store"
	"github.com/vocaciona/apiserver/types"
)

const maxSearchLimit = 50

// UserRepository defines persistence operations for profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	FindConflict(ctx context.Context, emailLower, username string) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Search(ctx context.Context, q string, limit int) ([]types.User, error)
}

// FollowRepository exposes the follower relationship.
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followedID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
}

// TestCounter counts a user's stored results for the dashboard.
type TestCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

// ProfileChanges carries the updatable profile fields. Nil pointers leave
// the stored value untouched.
type ProfileChanges struct {
	Nombre        *string
	NombreUsuario *string
	Avatar        *string
	Biografia     *string
	PerfilPublico *bool
}

// UserService encapsulates profile use-cases.
type UserService struct {
	users   UserRepository
	follows FollowRepository
	tests   TestCounter
	log     *logrus.Entry
}

func NewUserService(users UserRepository, follows FollowRepository, tests TestCounter, log *logrus.Entry) *UserService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &UserService{users: users, follows: follows, tests: tests, log: log}
}

// Profile returns the caller's own profile.
func (s *UserService) Profile(ctx context.Context, userID string) (types.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.PublicUser{}, s.translateLookup(err)
	}
	return user.Public(), nil
}

// PublicProfile returns another user's profile, enforcing the privacy gate:
// a private profile is visible only to itself and to its followers.
func (s *UserService) PublicProfile(ctx context.Context, requesterID, targetID string) (types.PublicUser, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return types.PublicUser{}, s.translateLookup(err)
	}
	if err := s.authorizeView(ctx, requesterID, target); err != nil {
		return types.PublicUser{}, err
	}
	return target.Public(), nil
}

// UpdateProfile applies the provided changes to the caller's profile.
// A username change re-checks uniqueness before writing.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, changes ProfileChanges) (types.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.PublicUser{}, s.translateLookup(err)
	}

	if changes.NombreUsuario != nil {
		username := strings.TrimSpace(*changes.NombreUsuario)
		if len(username) < minUsernameLen {
			return types.PublicUser{}, apperr.Validation(apperr.CodeUsuarioCorto, "el nombre de usuario debe tener al menos 3 caracteres")
		}
		if username != user.Username {
			existing, err := s.users.FindConflict(ctx, "", username)
			switch {
			case err == nil && existing.ID != user.ID:
				return types.PublicUser{}, apperr.Conflict(apperr.CodeUsuarioEnUso, "el nombre de usuario ya esta en uso")
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return types.PublicUser{}, s.storeFailure("username conflict check", err)
			}
			user.Username = username
		}
	}
	if changes.Nombre != nil {
		nombre := strings.TrimSpace(*changes.Nombre)
		if nombre == "" {
			return types.PublicUser{}, apperr.Validation(apperr.CodeNombreRequerido, "el nombre es requerido")
		}
		user.Name = nombre
	}
	if changes.Avatar != nil {
		user.AvatarURL = strings.TrimSpace(*changes.Avatar)
	}
	if changes.Biografia != nil {
		user.Bio = strings.TrimSpace(*changes.Biografia)
	}
	if changes.PerfilPublico != nil {
		user.IsPublic = *changes.PerfilPublico
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.PublicUser{}, apperr.Conflict(apperr.CodeUsuarioEnUso, "el nombre de usuario ya esta en uso")
		}
		return types.PublicUser{}, s.translateLookup(err)
	}
	return updated.Public(), nil
}

// Dashboard aggregates the caller's profile with activity counters.
func (s *UserService) Dashboard(ctx context.Context, userID string) (types.Dashboard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.Dashboard{}, s.translateLookup(err)
	}

	tests, err := s.tests.CountByUser(ctx, userID)
	if err != nil {
		return types.Dashboard{}, s.storeFailure("dashboard test count", err)
	}
	followers, err := s.follows.CountFollowers(ctx, userID)
	if err != nil {
		return types.Dashboard{}, s.storeFailure("dashboard follower count", err)
	}
	following, err := s.follows.CountFollowing(ctx, userID)
	if err != nil {
		return types.Dashboard{}, s.storeFailure("dashboard following count", err)
	}

	return types.Dashboard{
		Usuario:    user.Public(),
		TotalTests: tests,
		Seguidores: followers,
		Siguiendo:  following,
	}, nil
}

// Search returns public projections matching the query.
func (s *UserService) Search(ctx context.Context, q string, limit int) ([]types.PublicUser, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []types.PublicUser{}, nil
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	users, err := s.users.Search(ctx, q, limit)
	if err != nil {
		return nil, s.storeFailure("user search", err)
	}
	out := make([]types.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// authorizeView enforces the follower privacy gate shared by profile and
// vocational reads.
func (s *UserService) authorizeView(ctx context.Context, requesterID string, target types.User) error {
	if target.IsPublic || requesterID == target.ID {
		return nil
	}
	follows, err := s.follows.Exists(ctx, requesterID, target.ID)
	if err != nil {
		return s.storeFailure("follower check", err)
	}
	if !follows {
		return apperr.Forbidden(apperr.CodePerfilPrivado, "el perfil es privado")
	}
	return nil
}

func (s *UserService) translateLookup(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(apperr.CodeUsuarioNoEncontrado, "usuario no encontrado")
	}
	return s.storeFailure("user lookup", err)
}

func (s *UserService) storeFailure(op string, err error) *apperr.Error {
	s.log.WithError(err).Errorf("%s failed", op)
	return apperr.Wrap(err, apperr.KindUpstream, apperr.CodeErrorBD, "error de base de datos")
}
