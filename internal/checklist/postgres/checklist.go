package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	checklistDatamodel "github.com/frahmantamala/tracker-workorders/internal/core/datamodel/checklist"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TemplateRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewTemplateRepository bounds every call by queryTimeout; zero falls back to the package default.
func NewTemplateRepository(db *gorm.DB, queryTimeout time.Duration) *TemplateRepository {
	return &TemplateRepository{db: db, timeout: queryTimeout}
}

func (r *TemplateRepository) Get(ctx context.Context, category string) (*checklistDatamodel.Template, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row checklistDatamodel.Template
	err := r.db.WithContext(ctx).Where("vehicle_category = ?", category).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]*checklistDatamodel.Template, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []*checklistDatamodel.Template
	err := r.db.WithContext(ctx).Order("vehicle_category ASC").Find(&rows).Error
	return rows, err
}

// Upsert inserts or replaces the template for its category.
func (r *TemplateRepository) Upsert(ctx context.Context, t *checklistDatamodel.Template) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	t.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vehicle_category"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(t).Error
}
