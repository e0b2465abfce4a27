package checklist

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	checklistDatamodel "github.com/frahmantamala/tracker-workorders/internal/core/datamodel/checklist"
)

// RepositoryAPI returns (nil, nil) from Get when no template exists for the category.
type RepositoryAPI interface {
	Get(ctx context.Context, category string) (*checklistDatamodel.Template, error)
	List(ctx context.Context) ([]*checklistDatamodel.Template, error)
	Upsert(ctx context.Context, t *checklistDatamodel.Template) error
}

type Service struct {
	repo   RepositoryAPI
	gate   auth.Authorizer
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, gate auth.Authorizer, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		logger: logger,
	}
}

// GetTemplate returns the ordered items for category. An unknown category yields an
// empty list, not an error.
func (s *Service) GetTemplate(ctx context.Context, category string) ([]string, error) {
	category = NormalizeCategory(category)
	row, err := s.repo.Get(ctx, category)
	if err != nil {
		s.logger.Error("failed to load checklist template", "vehicle_category", category, "error", err)
		return nil, internal.NewStorageError("failed to load checklist template", err)
	}
	if row == nil {
		return []string{}, nil
	}
	return FromDataModel(row).Items, nil
}

// SaveTemplate replaces the template for category. Saving the same items twice is a no-op.
func (s *Service) SaveTemplate(ctx context.Context, session *auth.Session, category string, dto SaveTemplateDTO) (*Template, error) {
	if _, err := s.gate.Can(ctx, session, auth.ActionManageTemplates); err != nil {
		return nil, err
	}

	category = NormalizeCategory(category)
	dto.Items = CleanItems(dto.Items)
	if err := dto.Validate(category); err != nil {
		return nil, err
	}

	t := &Template{VehicleCategory: category, Items: dto.Items}
	row := ToDataModel(t)
	if err := s.repo.Upsert(ctx, row); err != nil {
		s.logger.Error("failed to save checklist template", "vehicle_category", category, "error", err)
		return nil, internal.NewStorageError("failed to save checklist template", err)
	}

	s.logger.Info("checklist template saved",
		"vehicle_category", category,
		"items", len(t.Items),
		"by", session.UserID)
	return FromDataModel(row), nil
}

func (s *Service) ListTemplates(ctx context.Context, session *auth.Session) ([]*Template, error) {
	if _, err := s.gate.Can(ctx, session, auth.ActionManageTemplates); err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list checklist templates", "error", err)
		return nil, internal.NewStorageError("failed to list checklist templates", err)
	}

	templates := make([]*Template, len(rows))
	for i, row := range rows {
		templates[i] = FromDataModel(row)
	}
	return templates, nil
}
