package workorder

import (
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal/checklist"
	workorderDatamodel "github.com/frahmantamala/tracker-workorders/internal/core/datamodel/workorder"
)

var (
	ErrNotFound   = errors.New("work order not found")
	ErrStaleState = errors.New("work order is no longer in the expected status")
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusInProgress      Status = "in_progress"
	StatusAwaitingSupport Status = "awaiting_support"
	StatusFinalized       Status = "finalized"
)

// Statuses in workflow order. Transitions only move one step forward.
var Statuses = []Status{StatusPending, StatusInProgress, StatusAwaitingSupport, StatusFinalized}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Next returns the only status s may move to, or "" for the terminal status.
func (s Status) Next() Status {
	for i, known := range Statuses {
		if s == known && i+1 < len(Statuses) {
			return Statuses[i+1]
		}
	}
	return ""
}

func CanTransition(from, to Status) bool {
	return to != "" && from.Next() == to
}

func StatusNames() []string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return names
}

const (
	ServiceInstallation   = "installation"
	ServiceMaintenance    = "maintenance"
	ServiceUninstallation = "uninstallation"

	TrackerCamera = "camera"
)

var (
	ServiceTypes      = []string{ServiceInstallation, ServiceMaintenance, ServiceUninstallation}
	TrackerTypes      = []string{"gprs", "satellite", "rfid", "keypad", "dms", "adas", "tdi", TrackerCamera}
	VehicleCategories = []string{"car", "motorcycle", "truck", "machine"}
	PhotoSlots        = []string{"plate", "location", "tracker", "extra"}
	SignatureSlots    = []string{"technician", "client"}
)

// Options is the catalog clients use to build the creation and completion forms.
type Options struct {
	VehicleCategories []string `json:"vehicle_categories"`
	ServiceTypes      []string `json:"service_types"`
	TrackerTypes      []string `json:"tracker_types"`
	PhotoSlots        []string `json:"photo_slots"`
	SignatureSlots    []string `json:"signature_slots"`
	Statuses          []string `json:"statuses"`
}

func Catalog() Options {
	return Options{
		VehicleCategories: VehicleCategories,
		ServiceTypes:      ServiceTypes,
		TrackerTypes:      TrackerTypes,
		PhotoSlots:        PhotoSlots,
		SignatureSlots:    SignatureSlots,
		Statuses:          StatusNames(),
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type WorkOrder struct {
	ID                 string                      `json:"id"`
	ClientName         string                      `json:"client_name"`
	ClientAddress      string                      `json:"client_address"`
	VehicleModel       string                      `json:"vehicle_model"`
	VehiclePlate       string                      `json:"vehicle_plate"`
	VehicleCategory    string                      `json:"vehicle_category"`
	ServiceType        string                      `json:"service_type"`
	TrackerTypes       []string                    `json:"tracker_types"`
	CameraCount        int                         `json:"camera_count"`
	ProblemDescription string                      `json:"problem_description,omitempty"`
	TechnicianID       string                      `json:"technician_id"`
	TechnicianName     string                      `json:"technician_name"`
	CreatedByID        string                      `json:"created_by_id"`
	Status             Status                      `json:"status"`
	TrackerSerialID    string                      `json:"tracker_serial_id,omitempty"`
	ChecklistResponses map[string]checklist.Answer `json:"checklist_responses"`
	Notes              string                      `json:"notes,omitempty"`
	LockInstalled      bool                        `json:"lock_installed"`
	PhotoRefs          map[string]string           `json:"photo_refs"`
	SignatureRefs      map[string]string           `json:"signature_refs"`
	FinalizedAt        *time.Time                  `json:"finalized_at,omitempty"`
	ClosedAt           *time.Time                  `json:"closed_at,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

func (w *WorkOrder) IsAssignedTo(userID string) bool {
	return userID != "" && w.TechnicianID == userID
}

// HasFieldReport reports whether the technician has submitted the field work.
func (w *WorkOrder) HasFieldReport() bool {
	return w.Status == StatusAwaitingSupport || w.Status == StatusFinalized
}

// Check enforces the record invariants the store relies on.
func (w *WorkOrder) Check() error {
	switch {
	case w.ID == "":
		return errors.New("work order id is empty")
	case !w.Status.Valid():
		return fmt.Errorf("unknown work order status %q", w.Status)
	case w.TechnicianID == "" || w.CreatedByID == "":
		return errors.New("work order must reference a technician and a creator")
	case w.VehiclePlate == "" || w.VehicleModel == "" || w.ClientName == "" || w.ClientAddress == "":
		return errors.New("work order is missing required vehicle or client fields")
	case !contains(ServiceTypes, w.ServiceType):
		return fmt.Errorf("unknown service type %q", w.ServiceType)
	}
	for label, answer := range w.ChecklistResponses {
		if !answer.Valid() {
			return fmt.Errorf("checklist item %q has invalid answer %q", label, answer)
		}
	}
	if w.HasFieldReport() && w.FinalizedAt == nil {
		return errors.New("field-completed work order has no finalization time")
	}
	return nil
}

// FieldWork is what the technician records when completing an order.
type FieldWork struct {
	ChecklistResponses map[string]checklist.Answer
	TrackerSerialID    string
	Notes              string
	LockInstalled      bool
	PhotoRefs          map[string]string
	SignatureRefs      map[string]string
	FinalizedAt        time.Time
}

// Changes are the fields written together with a status transition.
type Changes struct {
	FieldWork *FieldWork
	ClosedAt  *time.Time
}

// HistoryEntry is one line of an order's audit trail.
type HistoryEntry struct {
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func ToDataModel(w *WorkOrder) *workorderDatamodel.WorkOrder {
	answers := make(map[string]string, len(w.ChecklistResponses))
	for label, a := range w.ChecklistResponses {
		answers[label] = string(a)
	}
	return &workorderDatamodel.WorkOrder{
		ID:                 w.ID,
		ClientName:         w.ClientName,
		ClientAddress:      w.ClientAddress,
		VehicleModel:       w.VehicleModel,
		VehiclePlate:       w.VehiclePlate,
		VehicleCategory:    w.VehicleCategory,
		ServiceType:        w.ServiceType,
		TrackerTypes:       w.TrackerTypes,
		CameraCount:        w.CameraCount,
		ProblemDescription: w.ProblemDescription,
		TechnicianID:       w.TechnicianID,
		TechnicianName:     w.TechnicianName,
		CreatedByID:        w.CreatedByID,
		Status:             string(w.Status),
		TrackerSerialID:    w.TrackerSerialID,
		ChecklistResponses: answers,
		Notes:              w.Notes,
		LockInstalled:      w.LockInstalled,
		PhotoRefs:          w.PhotoRefs,
		SignatureRefs:      w.SignatureRefs,
		FinalizedAt:        w.FinalizedAt,
		ClosedAt:           w.ClosedAt,
		CreatedAt:          w.CreatedAt,
		UpdatedAt:          w.UpdatedAt,
	}
}

func FromDataModel(w *workorderDatamodel.WorkOrder) *WorkOrder {
	answers := make(map[string]checklist.Answer, len(w.ChecklistResponses))
	for label, a := range w.ChecklistResponses {
		answers[label] = checklist.Answer(a)
	}
	return &WorkOrder{
		ID:                 w.ID,
		ClientName:         w.ClientName,
		ClientAddress:      w.ClientAddress,
		VehicleModel:       w.VehicleModel,
		VehiclePlate:       w.VehiclePlate,
		VehicleCategory:    w.VehicleCategory,
		ServiceType:        w.ServiceType,
		TrackerTypes:       nonNilSlice(w.TrackerTypes),
		CameraCount:        w.CameraCount,
		ProblemDescription: w.ProblemDescription,
		TechnicianID:       w.TechnicianID,
		TechnicianName:     w.TechnicianName,
		CreatedByID:        w.CreatedByID,
		Status:             Status(w.Status),
		TrackerSerialID:    w.TrackerSerialID,
		ChecklistResponses: answers,
		Notes:              w.Notes,
		LockInstalled:      w.LockInstalled,
		PhotoRefs:          nonNilMap(w.PhotoRefs),
		SignatureRefs:      nonNilMap(w.SignatureRefs),
		FinalizedAt:        w.FinalizedAt,
		ClosedAt:           w.ClosedAt,
		CreatedAt:          w.CreatedAt,
		UpdatedAt:          w.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*workorderDatamodel.WorkOrder) []*WorkOrder {
	result := make([]*WorkOrder, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}

func HistoryFromDataModel(rows []*workorderDatamodel.History) []HistoryEntry {
	entries := make([]HistoryEntry, len(rows))
	for i, h := range rows {
		entries[i] = HistoryEntry{
			FromStatus: Status(h.FromStatus),
			ToStatus:   Status(h.ToStatus),
			ActorID:    h.ActorID,
			OccurredAt: h.OccurredAt,
		}
	}
	return entries
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
