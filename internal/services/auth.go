package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/auth"
	"github.com/vocaciona/apiserver/internal/store"
	"github.com/vocaciona/apiserver/types"
)

const (
	defaultUserRole  = "user"
	adminRole        = "admin"
	minPasswordLen   = 6
	minUsernameLen   = 3
	maxSynthUsername = 15
	defaultAvatarURL = "https://api.dicebear.com/7.x/initials/svg"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthUserRepository defines the persistence operations the auth flows need.
type AuthUserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (types.User, error)
	GetByEmailFold(ctx context.Context, email string) (types.User, error)
	FindConflict(ctx context.Context, emailLower, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user types.User) (string, error)
}

// IdentityBridge exchanges an OAuth access token for a verified profile.
type IdentityBridge interface {
	FetchUserInfo(ctx context.Context, accessToken string) (*auth.GoogleUserInfo, error)
}

// AuthService orchestrates credential verification, registration, Google
// login, and token issuance.
type AuthService struct {
	users  AuthUserRepository
	issuer TokenIssuer
	bridge IdentityBridge
	log    *logrus.Entry
}

func NewAuthService(users AuthUserRepository, issuer TokenIssuer, bridge IdentityBridge, log *logrus.Entry) *AuthService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AuthService{users: users, issuer: issuer, bridge: bridge, log: log}
}

// Login verifies a password against the stored credential, whichever of the
// two supported encodings it uses. A successful verification against the
// legacy bcrypt encoding transparently rewrites the stored credential as a
// SHA-256 digest before returning.
func (s *AuthService) Login(ctx context.Context, identificador, contrasena string) (types.PublicUser, string, error) {
	identificador = strings.TrimSpace(identificador)
	if identificador == "" || strings.TrimSpace(contrasena) == "" {
		return types.PublicUser{}, "", apperr.Validation(apperr.CodeCamposIncompletos, "identificador y contrasena son requeridos")
	}

	user, err := s.users.GetByIdentifier(ctx, identificador)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PublicUser{}, "", apperr.NotFound(apperr.CodeUsuarioNoEncontrado, "usuario no encontrado")
		}
		return types.PublicUser{}, "", s.storeFailure("login lookup", err)
	}

	if user.PasswordHash == "" {
		// Accounts created through Google login have no password.
		return types.PublicUser{}, "", apperr.New(apperr.KindIntegrity, apperr.CodeCuentaSinContrasena, "la cuenta no tiene contrasena configurada")
	}

	kind, err := auth.ClassifyHash(user.PasswordHash)
	if err != nil {
		s.log.WithField("usuario", user.ID).Error("stored credential has unrecognized encoding")
		return types.PublicUser{}, "", apperr.New(apperr.KindIntegrity, apperr.CodeHashDesconocido, "formato de credencial no reconocido")
	}

	switch kind {
	case auth.HashBcrypt:
		if !auth.VerifyBcrypt(user.PasswordHash, contrasena) {
			return types.PublicUser{}, "", apperr.Auth(apperr.CodeContrasenaIncorrecta, "contrasena incorrecta")
		}
		// Write-through upgrade to the current encoding. The digest is
		// deterministic, so a concurrent login racing this write is benign.
		upgraded := auth.SHA256Hex(contrasena)
		if err := s.users.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
			s.log.WithField("usuario", user.ID).WithError(err).Warn("hash upgrade failed; will retry on next login")
		} else {
			user.PasswordHash = upgraded
		}
	case auth.HashSHA256:
		if !auth.VerifySHA256(user.PasswordHash, contrasena) {
			return types.PublicUser{}, "", apperr.Auth(apperr.CodeContrasenaIncorrecta, "contrasena incorrecta")
		}
	}

	return s.finishLogin(user)
}

// Register validates the payload, checks uniqueness, and creates an account
// with a SHA-256 credential. Nothing is written before validation passes.
func (s *AuthService) Register(ctx context.Context, nombre, email, contrasena, nombreUsuario, rol string) (types.PublicUser, string, error) {
	nombre = strings.TrimSpace(nombre)
	email = strings.TrimSpace(email)
	nombreUsuario = strings.TrimSpace(nombreUsuario)
	rol = strings.TrimSpace(rol)

	if err := validateRegistration(nombre, email, contrasena, nombreUsuario, rol); err != nil {
		return types.PublicUser{}, "", err
	}
	role, err := normalizeRole(rol)
	if err != nil {
		return types.PublicUser{}, "", err
	}

	emailLower := strings.ToLower(email)
	existing, err := s.users.FindConflict(ctx, emailLower, nombreUsuario)
	switch {
	case err == nil:
		if strings.EqualFold(existing.Email, email) {
			return types.PublicUser{}, "", apperr.Conflict(apperr.CodeEmailEnUso, "el email ya esta registrado")
		}
		return types.PublicUser{}, "", apperr.Conflict(apperr.CodeUsuarioEnUso, "el nombre de usuario ya esta en uso")
	case errors.Is(err, store.ErrNotFound):
	default:
		return types.PublicUser{}, "", s.storeFailure("register conflict check", err)
	}

	user, err := s.users.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Username:     nombreUsuario,
		Email:        emailLower,
		Name:         nombre,
		Role:         role,
		PasswordHash: auth.SHA256Hex(contrasena),
		IsPublic:     true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			return types.PublicUser{}, "", apperr.Conflict(apperr.CodeUsuarioDuplicado, "el usuario ya existe")
		}
		return types.PublicUser{}, "", s.storeFailure("register insert", err)
	}

	return s.finishLogin(user)
}

// LoginWithGoogle exchanges an OAuth access token for a verified profile,
// then finds or creates the matching account. This path never touches the
// password credential.
func (s *AuthService) LoginWithGoogle(ctx context.Context, accessToken string) (types.PublicUser, string, error) {
	if strings.TrimSpace(accessToken) == "" {
		return types.PublicUser{}, "", apperr.Validation(apperr.CodeTokenInvalido, "accessToken es requerido")
	}

	info, err := s.bridge.FetchUserInfo(ctx, accessToken)
	if err != nil {
		return types.PublicUser{}, "", translateBridgeError(err)
	}

	user, err := s.users.GetByEmailFold(ctx, info.Email)
	switch {
	case err == nil:
		if info.Picture != "" && user.AvatarURL == "" {
			if err := s.users.UpdateAvatar(ctx, user.ID, info.Picture); err != nil {
				s.log.WithField("usuario", user.ID).WithError(err).Warn("avatar backfill failed")
			} else {
				user.AvatarURL = info.Picture
			}
		}
	case errors.Is(err, store.ErrNotFound):
		avatar := info.Picture
		if avatar == "" {
			avatar = defaultAvatarURL
		}
		user, err = s.users.Create(ctx, types.User{
			ID:        uuid.NewString(),
			Username:  synthesizeUsername(info.Name),
			Email:     strings.ToLower(info.Email),
			Name:      info.Name,
			Role:      defaultUserRole,
			AvatarURL: avatar,
			IsPublic:  true,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return types.PublicUser{}, "", apperr.Conflict(apperr.CodeUsuarioDuplicado, "el usuario ya existe")
			}
			return types.PublicUser{}, "", s.storeFailure("google insert", err)
		}
	default:
		return types.PublicUser{}, "", s.storeFailure("google lookup", err)
	}

	return s.finishLogin(user)
}

// ChangePassword verifies the current secret with the same dual-encoding
// logic as Login, without the transparent upgrade, then stores the SHA-256
// digest of the new secret.
func (s *AuthService) ChangePassword(ctx context.Context, userID, actual, nueva string) error {
	if len(nueva) < minPasswordLen {
		return apperr.Validation(apperr.CodeContrasenaCorta, "la nueva contrasena debe tener al menos 6 caracteres")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(apperr.CodeUsuarioNoEncontrado, "usuario no encontrado")
		}
		return s.storeFailure("change password lookup", err)
	}
	if user.PasswordHash == "" {
		return apperr.New(apperr.KindIntegrity, apperr.CodeCuentaSinContrasena, "la cuenta no tiene contrasena configurada")
	}

	kind, err := auth.ClassifyHash(user.PasswordHash)
	if err != nil {
		return apperr.New(apperr.KindIntegrity, apperr.CodeHashDesconocido, "formato de credencial no reconocido")
	}

	ok := false
	switch kind {
	case auth.HashBcrypt:
		ok = auth.VerifyBcrypt(user.PasswordHash, actual)
	case auth.HashSHA256:
		ok = auth.VerifySHA256(user.PasswordHash, actual)
	}
	if !ok {
		return apperr.Auth(apperr.CodeContrasenaActualIncorrecta, "la contrasena actual es incorrecta")
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, auth.SHA256Hex(nueva)); err != nil {
		return s.storeFailure("change password update", err)
	}
	return nil
}

func (s *AuthService) finishLogin(user types.User) (types.PublicUser, string, error) {
	if user.Role == "" {
		user.Role = defaultUserRole
	}
	token, err := s.issuer.Issue(user)
	if err != nil {
		if errors.Is(err, auth.ErrNoSigningKey) {
			return types.PublicUser{}, "", apperr.Wrap(err, apperr.KindIntegrity, apperr.CodeConfigFaltante, "clave de firma no configurada")
		}
		return types.PublicUser{}, "", apperr.Internal(err, "no se pudo emitir el token")
	}
	return user.Public(), token, nil
}

func (s *AuthService) storeFailure(op string, err error) *apperr.Error {
	s.log.WithError(err).Errorf("%s failed", op)
	return apperr.Wrap(err, apperr.KindUpstream, apperr.CodeErrorBD, "error de base de datos")
}

func validateRegistration(nombre, email, contrasena, nombreUsuario, rol string) error {
	switch {
	case nombre == "":
		return apperr.Validation(apperr.CodeNombreRequerido, "el nombre es requerido")
	case email == "":
		return apperr.Validation(apperr.CodeEmailRequerido, "el email es requerido")
	case !emailPattern.MatchString(email):
		return apperr.Validation(apperr.CodeEmailInvalido, "el email no es valido")
	case contrasena == "":
		return apperr.Validation(apperr.CodeContrasenaRequerida, "la contrasena es requerida")
	case len(contrasena) < minPasswordLen:
		return apperr.Validation(apperr.CodeContrasenaCorta, "la contrasena debe tener al menos 6 caracteres")
	case nombreUsuario == "":
		return apperr.Validation(apperr.CodeUsuarioRequerido, "el nombre de usuario es requerido")
	case len(nombreUsuario) < minUsernameLen:
		return apperr.Validation(apperr.CodeUsuarioCorto, "el nombre de usuario debe tener al menos 3 caracteres")
	case rol == "":
		return apperr.Validation(apperr.CodeRolRequerido, "el rol es requerido")
	}
	return nil
}

// normalizeRole lowercases the role and checks it against the allow-list.
func normalizeRole(rol string) (string, error) {
	role := strings.ToLower(strings.TrimSpace(rol))
	switch role {
	case defaultUserRole, adminRole:
		return role, nil
	}
	return "", apperr.Validation(apperr.CodeRolInvalido, "rol no permitido")
}

// synthesizeUsername derives a login handle from a display name: lowercase,
// non-alphanumerics replaced with underscores, truncated to 15 characters,
// with a random 4-digit suffix to keep collisions unlikely.
func synthesizeUsername(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, c := range base {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	handle := b.String()
	if len(handle) > maxSynthUsername {
		handle = handle[:maxSynthUsername]
	}
	if handle == "" {
		handle = "user"
	}
	return fmt.Sprintf("%s%04d", handle, rand.IntN(10000))
}

func translateBridgeError(err error) *apperr.Error {
	switch {
	case errors.Is(err, auth.ErrBridgeTokenInvalid):
		return apperr.Auth(apperr.CodeTokenGoogleInvalido, "google rechazo el token de acceso")
	case errors.Is(err, auth.ErrBridgeTokenMalformed):
		return apperr.Validation(apperr.CodeTokenGoogleMalformado, "token de acceso malformado")
	case errors.Is(err, auth.ErrBridgeTimeout):
		return apperr.Wrap(err, apperr.KindTimeout, apperr.CodeTimeoutGoogle, "tiempo de espera agotado consultando google")
	case errors.Is(err, auth.ErrBridgeUnreachable):
		return apperr.Wrap(err, apperr.KindUpstream, apperr.CodeErrorRed, "no se pudo contactar a google")
	default:
		return apperr.Wrap(err, apperr.KindUpstream, apperr.CodeErrorRed, "fallo la consulta a google")
	}
}
