package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListByRole(ctx context.Context, role Role, activeOnly bool) ([]*User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) CreateUser(ctx context.Context, dto CreateUserDTO) (*User, error) {
	dto.Email = NormalizeEmail(dto.Email)
	dto.Name = strings.TrimSpace(dto.Name)
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	u := &User{
		ID:           uuid.NewString(),
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: string(hash),
		Role:         Role(dto.Role),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, internal.NewValidationFieldError("email", "email is already registered", internal.ErrCodeEmailTaken)
		}
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewStorageError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound()
		}
		return nil, internal.NewStorageError("failed to load user", err)
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewStorageError("failed to list users", err)
	}
	return users, nil
}

// ListTechnicians returns active technicians, the only valid assignees.
func (s *Service) ListTechnicians(ctx context.Context) ([]TechnicianResponse, error) {
	users, err := s.repo.ListByRole(ctx, RoleTechnician, true)
	if err != nil {
		s.logger.Error("failed to list technicians", "error", err)
		return nil, internal.NewStorageError("failed to list technicians", err)
	}
	result := make([]TechnicianResponse, len(users))
	for i, u := range users {
		result[i] = TechnicianResponse{ID: u.ID, Name: u.Name}
	}
	return result, nil
}

// SetActive soft-deletes or restores a user. actorID may not deactivate themselves.
func (s *Service) SetActive(ctx context.Context, actorID, id string, dto SetActiveDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	if actorID == id && !*dto.IsActive {
		return internal.NewValidationFieldError("is_active", "you cannot deactivate your own account", internal.ErrCodeValidationFailed)
	}

	if err := s.repo.SetActive(ctx, id, *dto.IsActive); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrUserNotFound()
		}
		s.logger.Error("failed to update user status", "error", err, "user_id", id)
		return internal.NewStorageError("failed to update user status", err)
	}

	s.logger.Info("user active flag changed", "user_id", id, "is_active", *dto.IsActive, "actor_id", actorID)
	return nil
}
