package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	userDatamodel "github.com/frahmantamala/tracker-workorders/internal/core/datamodel/user"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements user.Repository using GORM
type UserRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewUserRepository bounds every call by queryTimeout; zero falls back to the package default.
func NewUserRepository(db *gorm.DB, queryTimeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: queryTimeout}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := user.ToDataModel(u)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("email = ?", user.NormalizeEmail(email)).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []*userDatamodel.User
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(rows), nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role user.Role, activeOnly bool) ([]*user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []*userDatamodel.User
	q := r.db.WithContext(ctx).Where("role = ?", string(role))
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(rows), nil
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

// isUniqueViolation covers both postgres (SQLSTATE 23505) and sqlite wording.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint failed")
}
