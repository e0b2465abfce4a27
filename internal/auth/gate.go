package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/user"
)

// UserLookup is the slice of the user store the gate needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Authorizer is what services depend on to gate their operations.
type Authorizer interface {
	Authorize(ctx context.Context, s *Session, roles ...user.Role) (*user.User, error)
	Can(ctx context.Context, s *Session, action Action) (*user.User, error)
}

// Gate checks sessions against the current state of the user store. The user is
// reloaded on every call so deactivation and role changes apply on the next request.
type Gate struct {
	users  UserLookup
	now    func() time.Time
	logger *slog.Logger
}

func NewGate(users UserLookup, logger *slog.Logger) *Gate {
	return &Gate{users: users, now: time.Now, logger: logger}
}

// Authorize returns the current user behind s. An empty roles list admits any active user.
func (g *Gate) Authorize(ctx context.Context, s *Session, roles ...user.Role) (*user.User, error) {
	if s == nil || s.UserID == "" {
		return nil, internal.ErrMissingSession()
	}
	if !s.ExpiresAt.IsZero() && g.now().After(s.ExpiresAt) {
		return nil, internal.ErrTokenExpired()
	}

	u, err := g.users.GetByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			g.logger.Warn("session refers to unknown user", "user_id", s.UserID)
			return nil, internal.ErrInvalidToken()
		}
		return nil, internal.NewStorageError("failed to load session user", err)
	}

	if !u.IsActive {
		g.logger.Warn("rejected session of deactivated user", "user_id", u.ID)
		return nil, internal.ErrUserInactive()
	}

	if len(roles) > 0 && !u.Role.In(roles...) {
		g.logger.Warn("access denied: role not allowed",
			"user_id", u.ID,
			"role", u.Role,
			"required_roles", roles)
		return nil, internal.NewAuthorizationError("your role is not allowed to perform this operation", internal.ErrCodeRoleNotAllowed)
	}

	return u, nil
}

func (g *Gate) Can(ctx context.Context, s *Session, action Action) (*user.User, error) {
	return g.Authorize(ctx, s, RolesFor(action)...)
}
