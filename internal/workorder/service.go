package workorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/asset"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/core/events"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"github.com/google/uuid"
)

// Repository persists work orders. Transition must be a conditional update on the
// expected status and return ErrStaleState when the order has moved on.
type Repository interface {
	Create(ctx context.Context, wo *WorkOrder, actorID string) error
	GetByID(ctx context.Context, id string) (*WorkOrder, error)
	Transition(ctx context.Context, id string, from, to Status, changes Changes, actorID string) error
	Query(ctx context.Context, filter QueryFilter) ([]*WorkOrder, error)
	History(ctx context.Context, id string) ([]HistoryEntry, error)
}

type TemplateProvider interface {
	GetTemplate(ctx context.Context, category string) ([]string, error)
}

type TechnicianLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// AssetStore must be safe for concurrent use; attachments upload in parallel.
type AssetStore = asset.Storer

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service is the work-order state machine.
type Service struct {
	repo      Repository
	gate      auth.Authorizer
	templates TemplateProvider
	users     TechnicianLookup
	assets    AssetStore
	events    EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(repo Repository, gate auth.Authorizer, templates TemplateProvider, users TechnicianLookup, assets AssetStore, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		gate:      gate,
		templates: templates,
		users:     users,
		assets:    assets,
		events:    publisher,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Create registers a new order assigned to an active technician.
func (s *Service) Create(ctx context.Context, session *auth.Session, dto CreateWorkOrderDTO) (*WorkOrder, error) {
	actor, err := s.gate.Can(ctx, session, auth.ActionCreateWorkOrder)
	if err != nil {
		return nil, err
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		s.logger.Warn("work order validation failed", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	tech, err := s.users.GetByID(ctx, dto.TechnicianID)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return nil, internal.NewStorageError("failed to load technician", err)
	}
	if tech == nil || !tech.CanBeAssigned() {
		return nil, internal.NewValidationFieldError("technician_id",
			"technician_id must reference an active technician", internal.ErrCodeInvalidTechnician)
	}

	now := s.now()
	wo := &WorkOrder{
		ID:                 uuid.NewString(),
		ClientName:         dto.ClientName,
		ClientAddress:      dto.ClientAddress,
		VehicleModel:       dto.VehicleModel,
		VehiclePlate:       dto.VehiclePlate,
		VehicleCategory:    dto.VehicleCategory,
		ServiceType:        dto.ServiceType,
		TrackerTypes:       dto.TrackerTypes,
		CameraCount:        dto.CameraCount,
		ProblemDescription: dto.ProblemDescription,
		TechnicianID:       tech.ID,
		TechnicianName:     tech.Name,
		CreatedByID:        actor.ID,
		Status:             StatusPending,
		PhotoRefs:          map[string]string{},
		SignatureRefs:      map[string]string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, wo, actor.ID); err != nil {
		s.logger.Error("failed to create work order", "error", err, "actor_id", actor.ID)
		return nil, internal.NewStorageError("failed to create work order", err)
	}

	s.logger.Info("work order created",
		"work_order_id", wo.ID,
		"technician_id", wo.TechnicianID,
		"vehicle_plate", wo.VehiclePlate,
		"actor_id", actor.ID)

	s.publish(ctx, events.EventTypeWorkOrderCreated, wo, actor.ID, "", StatusPending)
	return wo, nil
}

// Start moves the order to in_progress. Only the assignee may start it.
func (s *Service) Start(ctx context.Context, session *auth.Session, id string) (*WorkOrder, error) {
	actor, wo, err := s.loadForAssignee(ctx, session, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, wo, StatusInProgress, Changes{}, actor.ID); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeWorkOrderStarted, wo, actor.ID, StatusPending, StatusInProgress)
	return wo, nil
}

// CompleteFieldWork validates the checklist and attachments, uploads the attachments
// and moves the order to awaiting_support. Nothing is uploaded if validation fails,
// and nothing is written if an upload fails.
func (s *Service) CompleteFieldWork(ctx context.Context, session *auth.Session, id string, dto FieldCompletionDTO) (*WorkOrder, error) {
	actor, wo, err := s.loadForAssignee(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if wo.Status != StatusInProgress {
		return nil, invalidTransition(wo.Status, StatusAwaitingSupport)
	}

	template, err := s.templates.GetTemplate(ctx, wo.VehicleCategory)
	if err != nil {
		return nil, err
	}
	if len(template) == 0 {
		s.logger.Warn("no checklist template for vehicle category, accepting empty checklist",
			"work_order_id", wo.ID,
			"vehicle_category", wo.VehicleCategory)
	}

	dto.Normalize()
	if err := dto.Validate(template); err != nil {
		return nil, err
	}

	photoRefs, err := s.upload(ctx, wo.ID, asset.KindPhoto, dto.Photos)
	if err != nil {
		return nil, err
	}
	signatureRefs, err := s.upload(ctx, wo.ID, asset.KindSignature, dto.Signatures)
	if err != nil {
		return nil, err
	}

	fw := &FieldWork{
		ChecklistResponses: dto.ChecklistResponses,
		TrackerSerialID:    dto.TrackerSerialID,
		Notes:              dto.Notes,
		LockInstalled:      dto.LockInstalled,
		PhotoRefs:          photoRefs,
		SignatureRefs:      signatureRefs,
		FinalizedAt:        s.now(),
	}
	if err := s.transition(ctx, wo, StatusAwaitingSupport, Changes{FieldWork: fw}, actor.ID); err != nil {
		return nil, err
	}

	wo.ChecklistResponses = fw.ChecklistResponses
	wo.TrackerSerialID = fw.TrackerSerialID
	wo.Notes = fw.Notes
	wo.LockInstalled = fw.LockInstalled
	wo.PhotoRefs = fw.PhotoRefs
	wo.SignatureRefs = fw.SignatureRefs
	wo.FinalizedAt = &fw.FinalizedAt

	s.logger.Info("field work completed",
		"work_order_id", wo.ID,
		"checklist_items", len(fw.ChecklistResponses),
		"photos", len(photoRefs),
		"signatures", len(signatureRefs))

	s.publish(ctx, events.EventTypeWorkOrderFieldCompleted, wo, actor.ID, StatusInProgress, StatusAwaitingSupport)
	return wo, nil
}

// FinalizeAdministratively closes an order after support has reviewed the field report.
func (s *Service) FinalizeAdministratively(ctx context.Context, session *auth.Session, id string) (*WorkOrder, error) {
	actor, err := s.gate.Can(ctx, session, auth.ActionFinalizeWorkOrder)
	if err != nil {
		return nil, err
	}

	wo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	closedAt := s.now()
	if err := s.transition(ctx, wo, StatusFinalized, Changes{ClosedAt: &closedAt}, actor.ID); err != nil {
		return nil, err
	}
	wo.ClosedAt = &closedAt

	s.publish(ctx, events.EventTypeWorkOrderFinalized, wo, actor.ID, StatusAwaitingSupport, StatusFinalized)
	return wo, nil
}

// Query lists orders. Technicians only ever see their own.
func (s *Service) Query(ctx context.Context, session *auth.Session, filter QueryFilter) ([]*WorkOrder, error) {
	actor, err := s.gate.Authorize(ctx, session)
	if err != nil {
		return nil, err
	}
	if !auth.RoleCan(actor.Role, auth.ActionViewAllWorkOrders) {
		filter.TechnicianID = actor.ID
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	orders, err := s.repo.Query(ctx, filter)
	if err != nil {
		s.logger.Error("failed to query work orders", "error", err)
		return nil, internal.NewStorageError("failed to query work orders", err)
	}
	return orders, nil
}

// Get returns one order to its assignee or to back-office staff.
func (s *Service) Get(ctx context.Context, session *auth.Session, id string) (*WorkOrder, error) {
	_, wo, err := s.loadForViewer(ctx, session, id)
	return wo, err
}

func (s *Service) History(ctx context.Context, session *auth.Session, id string) ([]HistoryEntry, error) {
	if _, _, err := s.loadForViewer(ctx, session, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, internal.NewStorageError("failed to load work order history", err)
	}
	return entries, nil
}

func (s *Service) load(ctx context.Context, id string) (*WorkOrder, error) {
	wo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrWorkOrderNotFound()
		}
		return nil, internal.NewStorageError("failed to load work order", err)
	}
	return wo, nil
}

// loadForAssignee checks the caller is a technician and the assignee before any state check.
func (s *Service) loadForAssignee(ctx context.Context, session *auth.Session, id string) (*user.User, *WorkOrder, error) {
	actor, err := s.gate.Can(ctx, session, auth.ActionExecuteFieldWork)
	if err != nil {
		return nil, nil, err
	}
	wo, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !wo.IsAssignedTo(actor.ID) {
		s.logger.Warn("work order action by non-assignee",
			"work_order_id", wo.ID,
			"actor_id", actor.ID,
			"technician_id", wo.TechnicianID)
		return nil, nil, internal.NewAuthorizationError("only the assigned technician can do this", internal.ErrCodeNotAssignee)
	}
	return actor, wo, nil
}

func (s *Service) loadForViewer(ctx context.Context, session *auth.Session, id string) (*user.User, *WorkOrder, error) {
	actor, err := s.gate.Authorize(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	wo, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !wo.IsAssignedTo(actor.ID) && !auth.RoleCan(actor.Role, auth.ActionViewAllWorkOrders) {
		return nil, nil, internal.NewAuthorizationError("you cannot view this work order", internal.ErrCodeNotAssignee)
	}
	return actor, wo, nil
}

// transition applies a one-step status change and updates wo in place on success.
func (s *Service) transition(ctx context.Context, wo *WorkOrder, to Status, changes Changes, actorID string) error {
	from := wo.Status
	if !CanTransition(from, to) {
		return invalidTransition(from, to)
	}

	if err := s.repo.Transition(ctx, wo.ID, from, to, changes, actorID); err != nil {
		if errors.Is(err, ErrStaleState) {
			s.logger.Warn("concurrent transition lost",
				"work_order_id", wo.ID,
				"from", from,
				"to", to)
			return invalidTransition(from, to)
		}
		if errors.Is(err, ErrNotFound) {
			return internal.ErrWorkOrderNotFound()
		}
		s.logger.Error("failed to transition work order", "error", err, "work_order_id", wo.ID)
		return internal.NewStorageError("failed to update work order", err)
	}

	wo.Status = to
	wo.UpdatedAt = s.now()
	s.logger.Info("work order transitioned",
		"work_order_id", wo.ID,
		"from", from,
		"to", to,
		"actor_id", actorID)
	return nil
}

func (s *Service) upload(ctx context.Context, orderID string, kind asset.Kind, attachments map[string]Attachment) (map[string]string, error) {
	jobs := make([]asset.Job, 0, len(attachments))
	for _, slot := range sortedKeys(attachments) {
		a := attachments[slot]
		jobs = append(jobs, asset.Job{Slot: slot, Content: a.Content, ContentType: a.ContentType})
	}
	return asset.StoreAll(ctx, s.assets, orderID, kind, jobs, asset.DefaultWorkers)
}

func (s *Service) publish(ctx context.Context, eventType string, wo *WorkOrder, actorID string, from, to Status) {
	if s.events == nil {
		return
	}
	event := events.NewWorkOrderEvent(eventType, wo.ID, wo.TechnicianID, actorID, string(from), string(to))
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish work order event", "error", err, "event_type", eventType, "work_order_id", wo.ID)
	}
}

func invalidTransition(from, to Status) *internal.AppError {
	return internal.NewInvalidStateError(
		"work order cannot move from "+string(from)+" to "+string(to),
		internal.ErrCodeInvalidTransition,
	).WithDetails(map[string]string{"current_status": string(from), "requested_status": string(to)})
}
