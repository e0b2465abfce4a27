package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	workorderDatamodel "github.com/frahmantamala/tracker-workorders/internal/core/datamodel/workorder"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkOrderRepository implements workorder.Repository using GORM. Every status change
// is written together with its history row.
type WorkOrderRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewWorkOrderRepository bounds every call by queryTimeout; zero falls back to the package default.
func NewWorkOrderRepository(db *gorm.DB, queryTimeout time.Duration) *WorkOrderRepository {
	return &WorkOrderRepository{db: db, timeout: queryTimeout}
}

func historyRow(id string, from, to workorder.Status, actorID string, at time.Time) *workorderDatamodel.History {
	return &workorderDatamodel.History{
		ID:          uuid.NewString(),
		WorkOrderID: id,
		FromStatus:  string(from),
		ToStatus:    string(to),
		ActorID:     actorID,
		OccurredAt:  at,
	}
}

func (r *WorkOrderRepository) Create(ctx context.Context, wo *workorder.WorkOrder, actorID string) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := wo.Check(); err != nil {
		return fmt.Errorf("refusing to store work order: %w", err)
	}
	if wo.Status != workorder.StatusPending {
		return fmt.Errorf("refusing to store work order: new orders start as %s", workorder.StatusPending)
	}

	row := workorder.ToDataModel(wo)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return tx.Create(historyRow(wo.ID, "", wo.Status, actorID, wo.CreatedAt)).Error
	})
}

func (r *WorkOrderRepository) GetByID(ctx context.Context, id string) (*workorder.WorkOrder, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row workorderDatamodel.WorkOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workorder.ErrNotFound
		}
		return nil, err
	}
	return workorder.FromDataModel(&row), nil
}

// Transition updates the order only while it is still in status from.
func (r *WorkOrderRepository) Transition(ctx context.Context, id string, from, to workorder.Status, changes workorder.Changes, actorID string) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !workorder.CanTransition(from, to) {
		return fmt.Errorf("illegal transition %s -> %s", from, to)
	}

	now := time.Now().UTC()
	update := workorderDatamodel.WorkOrder{Status: string(to), UpdatedAt: now}
	columns := []string{"status", "updated_at"}

	if fw := changes.FieldWork; fw != nil {
		answers := make(map[string]string, len(fw.ChecklistResponses))
		for label, a := range fw.ChecklistResponses {
			if !a.Valid() {
				return fmt.Errorf("checklist item %q has invalid answer %q", label, a)
			}
			answers[label] = string(a)
		}
		finalizedAt := fw.FinalizedAt
		update.ChecklistResponses = answers
		update.TrackerSerialID = fw.TrackerSerialID
		update.Notes = fw.Notes
		update.LockInstalled = fw.LockInstalled
		update.PhotoRefs = fw.PhotoRefs
		update.SignatureRefs = fw.SignatureRefs
		update.FinalizedAt = &finalizedAt
		columns = append(columns, "checklist_responses", "tracker_serial_id", "notes",
			"lock_installed", "photo_refs", "signature_refs", "finalized_at")
	}
	if changes.ClosedAt != nil {
		update.ClosedAt = changes.ClosedAt
		columns = append(columns, "closed_at")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&workorderDatamodel.WorkOrder{}).
			Where("id = ? AND status = ?", id, string(from)).
			Select(columns).
			Updates(&update)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&workorderDatamodel.WorkOrder{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return workorder.ErrNotFound
			}
			return workorder.ErrStaleState
		}
		return tx.Create(historyRow(id, from, to, actorID, now)).Error
	})
}

func (r *WorkOrderRepository) Query(ctx context.Context, f workorder.QueryFilter) ([]*workorder.WorkOrder, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&workorderDatamodel.WorkOrder{})
	if f.TechnicianID != "" {
		q = q.Where("technician_id = ?", f.TechnicianID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.FinalizedFrom != nil {
		q = q.Where("finalized_at >= ?", *f.FinalizedFrom)
	}
	if f.FinalizedTo != nil {
		q = q.Where("finalized_at <= ?", *f.FinalizedTo)
	}

	if f.ByFinalization() {
		q = q.Order("finalized_at ASC").Order("id ASC")
	} else {
		q = q.Order("created_at ASC").Order("id ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []*workorderDatamodel.WorkOrder
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return workorder.FromDataModelSlice(rows), nil
}

func (r *WorkOrderRepository) History(ctx context.Context, id string) ([]workorder.HistoryEntry, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []*workorderDatamodel.History
	err := r.db.WithContext(ctx).
		Where("work_order_id = ?", id).
		Order("occurred_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return workorder.HistoryFromDataModel(rows), nil
}
