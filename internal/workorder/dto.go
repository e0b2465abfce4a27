package workorder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/asset"
	"github.com/frahmantamala/tracker-workorders/internal/checklist"
	"github.com/frahmantamala/tracker-workorders/internal/core/common/validation"
)

type CreateWorkOrderDTO struct {
	TechnicianID       string   `json:"technician_id"`
	ClientName         string   `json:"client_name"`
	ClientAddress      string   `json:"client_address"`
	VehicleModel       string   `json:"vehicle_model"`
	VehiclePlate       string   `json:"vehicle_plate"`
	VehicleCategory    string   `json:"vehicle_category"`
	ServiceType        string   `json:"service_type"`
	TrackerTypes       []string `json:"tracker_types"`
	CameraCount        int      `json:"camera_count"`
	ProblemDescription string   `json:"problem_description"`
}

// Normalize trims every field, canonicalizes plate and category, defaults the
// service type and de-duplicates tracker types.
func (d *CreateWorkOrderDTO) Normalize() {
	d.TechnicianID = strings.TrimSpace(d.TechnicianID)
	d.ClientName = strings.TrimSpace(d.ClientName)
	d.ClientAddress = strings.TrimSpace(d.ClientAddress)
	d.VehicleModel = strings.TrimSpace(d.VehicleModel)
	d.VehiclePlate = strings.ToUpper(strings.TrimSpace(d.VehiclePlate))
	d.VehicleCategory = checklist.NormalizeCategory(d.VehicleCategory)
	d.ProblemDescription = strings.TrimSpace(d.ProblemDescription)

	d.ServiceType = strings.ToLower(strings.TrimSpace(d.ServiceType))
	if d.ServiceType == "" {
		d.ServiceType = ServiceInstallation
	}

	seen := make(map[string]struct{}, len(d.TrackerTypes))
	types := make([]string, 0, len(d.TrackerTypes))
	for _, t := range d.TrackerTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	d.TrackerTypes = types

	if !contains(d.TrackerTypes, TrackerCamera) {
		d.CameraCount = 0
	}
}

func (d CreateWorkOrderDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("technician_id", d.TechnicianID).Required()
	v.Field("vehicle_plate", d.VehiclePlate).Required().Custom(func(interface{}) *internal.AppError {
		if d.VehiclePlate == "" {
			return nil
		}
		return validation.ValidatePlate(d.VehiclePlate)
	})
	v.Field("vehicle_model", d.VehicleModel).Required().MaxLength(100)
	v.Field("client_name", d.ClientName).Required().MaxLength(200)
	v.Field("client_address", d.ClientAddress).Required().MaxLength(500)
	v.Field("vehicle_category", d.VehicleCategory).MaxLength(50)
	v.Field("service_type", d.ServiceType).OneOf(ServiceTypes...)
	v.Field("problem_description", d.ProblemDescription).MaxLength(2000)
	v.Field("tracker_types", d.TrackerTypes).Custom(func(interface{}) *internal.AppError {
		for _, t := range d.TrackerTypes {
			if !contains(TrackerTypes, t) {
				return internal.NewValidationFieldError("tracker_types",
					fmt.Sprintf("unknown tracker type %q, expected one of: %s", t, strings.Join(TrackerTypes, ", ")),
					internal.ErrCodeInvalidOption)
			}
		}
		return nil
	})
	if contains(d.TrackerTypes, TrackerCamera) {
		v.Field("camera_count", d.CameraCount).MinInt(1, internal.ErrCodeValidationFailed)
	}
	return v.Validate()
}

// Attachment is an uploaded image before it reaches the object store.
type Attachment struct {
	Content     []byte
	ContentType string
}

type FieldCompletionDTO struct {
	ChecklistResponses map[string]checklist.Answer `json:"checklist_responses"`
	TrackerSerialID    string                      `json:"tracker_serial_id"`
	Notes              string                      `json:"notes"`
	LockInstalled      bool                        `json:"lock_installed"`
	Photos             map[string]Attachment       `json:"-"`
	Signatures         map[string]Attachment       `json:"-"`
}

func (d *FieldCompletionDTO) Normalize() {
	d.TrackerSerialID = strings.TrimSpace(d.TrackerSerialID)
	d.Notes = strings.TrimSpace(d.Notes)

	answers := make(map[string]checklist.Answer, len(d.ChecklistResponses))
	for label, a := range d.ChecklistResponses {
		answers[strings.TrimSpace(label)] = checklist.Answer(strings.ToLower(strings.TrimSpace(string(a))))
	}
	d.ChecklistResponses = answers
}

// Validate checks the completion against the template for the order's category.
// An empty template accepts any labels whose report tokens are distinct, but answers
// must still be intact or defective.
func (d FieldCompletionDTO) Validate(template []string) *internal.AppError {
	v := validation.NewValidator()
	v.Field("tracker_serial_id", d.TrackerSerialID).MaxLength(100)
	v.Field("notes", d.Notes).MaxLength(2000)

	v.Field("checklist_responses", d.ChecklistResponses).
		Custom(func(interface{}) *internal.AppError {
			for _, label := range sortedKeys(d.ChecklistResponses) {
				if a := d.ChecklistResponses[label]; !a.Valid() {
					return internal.NewValidationFieldError("checklist_responses",
						fmt.Sprintf("answer for %q must be %q or %q", label, checklist.AnswerIntact, checklist.AnswerDefective),
						internal.ErrCodeInvalidAnswer)
				}
			}
			return nil
		}).
		Custom(func(interface{}) *internal.AppError {
			if len(template) == 0 {
				return checklist.CheckLabelTokens("checklist_responses", sortedKeys(d.ChecklistResponses))
			}
			var missing []string
			for _, item := range template {
				if _, ok := d.ChecklistResponses[item]; !ok {
					missing = append(missing, item)
				}
			}
			if len(missing) > 0 {
				return internal.NewValidationFieldError("checklist_responses",
					"missing answers for: "+strings.Join(missing, ", "),
					internal.ErrCodeIncompleteChecklist)
			}
			t := checklist.Template{Items: template}
			for _, label := range sortedKeys(d.ChecklistResponses) {
				if !t.Contains(label) {
					return internal.NewValidationFieldError("checklist_responses",
						fmt.Sprintf("%q is not part of the checklist", label),
						internal.ErrCodeInvalidOption)
				}
			}
			return nil
		})

	v.Field("photos", d.Photos).Custom(func(interface{}) *internal.AppError {
		return validateAttachments("photo", d.Photos, PhotoSlots)
	})
	v.Field("signatures", d.Signatures).Custom(func(interface{}) *internal.AppError {
		return validateAttachments("signature", d.Signatures, SignatureSlots)
	})
	return v.Validate()
}

func validateAttachments(kind string, attachments map[string]Attachment, slots []string) *internal.AppError {
	for _, slot := range sortedKeys(attachments) {
		field := kind + "_" + slot
		if !contains(slots, slot) {
			return internal.NewValidationFieldError(field,
				fmt.Sprintf("unknown %s slot %q, expected one of: %s", kind, slot, strings.Join(slots, ", ")),
				internal.ErrCodeInvalidOption)
		}
		a := attachments[slot]
		if err := asset.Validate(field, a.Content, a.ContentType); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// QueryFilter selects work orders. A finalized date range switches ordering to
// finalized_at; everything else is ordered by creation.
type QueryFilter struct {
	TechnicianID  string
	Status        Status
	FinalizedFrom *time.Time
	FinalizedTo   *time.Time
	Limit         int
	Offset        int
}

func (f QueryFilter) ByFinalization() bool {
	return f.FinalizedFrom != nil || f.FinalizedTo != nil
}

func (f QueryFilter) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", string(f.Status)).OneOf(StatusNames()...)
	v.Field("from", f.FinalizedFrom).Custom(func(interface{}) *internal.AppError {
		if f.FinalizedFrom != nil && f.FinalizedTo != nil && f.FinalizedFrom.After(*f.FinalizedTo) {
			return internal.NewValidationFieldError("from", "from must not be after to", internal.ErrCodeInvalidDateRange)
		}
		return nil
	})
	return v.Validate()
}

type ListResponse struct {
	WorkOrders []*WorkOrder `json:"work_orders"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}
