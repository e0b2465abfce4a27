package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	UserLookup
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Service is the identity/session provider: credentials in, tokens out.
type Service struct {
	users  UserRepository
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(users UserRepository, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Authenticate validates credentials and returns tokens. Inactive accounts cannot log in.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(dto.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return AuthTokens{}, internal.ErrInvalidCredentials()
		}
		return AuthTokens{}, internal.NewStorageError("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed: wrong password", "user_id", u.ID)
		return AuthTokens{}, internal.ErrInvalidCredentials()
	}

	if !u.IsActive {
		s.logger.Warn("login refused for inactive user", "user_id", u.ID)
		return AuthTokens{}, internal.ErrUserInactive()
	}

	s.logger.Info("user logged in", "user_id", u.ID, "role", u.Role)
	return s.issue(u)
}

// RefreshTokens re-checks the user so a deactivated account cannot keep refreshing.
func (s *Service) RefreshTokens(ctx context.Context, dto RefreshTokenDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	claims, err := s.tokens.ValidateRefreshToken(dto.RefreshToken)
	if err != nil {
		return AuthTokens{}, tokenError(err)
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return AuthTokens{}, internal.ErrInvalidToken()
		}
		return AuthTokens{}, internal.NewStorageError("failed to load user", err)
	}
	if !u.IsActive {
		return AuthTokens{}, internal.ErrUserInactive()
	}

	return s.issue(u)
}

// SessionFromToken verifies an access token. It does not consult the user store;
// that is the Gate's job on every guarded operation.
func (s *Service) SessionFromToken(token string) (*Session, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, tokenError(err)
	}
	return claims.Session(), nil
}

func (s *Service) issue(u *user.User) (AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign access token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(u)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign refresh token", err)
	}
	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func tokenError(err error) *internal.AppError {
	if errors.Is(err, ErrTokenExpired) {
		return internal.ErrTokenExpired()
	}
	return internal.ErrInvalidToken()
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
