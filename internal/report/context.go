package report

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal/checklist"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
)

// AssetFetcher downloads an image previously stored for an order.
type AssetFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}

type Image struct {
	Content   []byte
	Extension string
}

// ChecklistLine is one answered item, keyed by its normalized token.
type ChecklistLine struct {
	Label  string
	Key    string
	Answer string
}

// MergeContext is everything a layout can reference: scalar fields, checklist answers
// and images. Checklist answers are also present in Fields under their key.
type MergeContext struct {
	Fields    map[string]string
	Checklist []ChecklistLine
	Images    map[string]Image
}

// Value returns the field for key and whether it is set.
func (m MergeContext) Value(key string) (string, bool) {
	v, ok := m.Fields[key]
	return v, ok
}

// ChecklistKey is the merge field for an answered item.
func ChecklistKey(label string) string {
	return "checklist_" + checklist.NormalizeLabel(label)
}

func PhotoKey(slot string) string {
	return "photo_" + slot
}

func SignatureKey(signer string) string {
	return "signature_" + signer
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// BuildContext assembles the merge context for wo. Assets that cannot be fetched are
// skipped with a warning; they never fail the report.
func BuildContext(ctx context.Context, wo *workorder.WorkOrder, assets AssetFetcher, logger *slog.Logger) MergeContext {
	created := wo.CreatedAt
	mc := MergeContext{
		Fields: map[string]string{
			"id":                  wo.ID,
			"short_id":            shortID(wo.ID),
			"status":              string(wo.Status),
			"client_name":         wo.ClientName,
			"client_address":      wo.ClientAddress,
			"vehicle_model":       wo.VehicleModel,
			"vehicle_plate":       wo.VehiclePlate,
			"vehicle_category":    wo.VehicleCategory,
			"service_type":        wo.ServiceType,
			"tracker_types":       strings.Join(wo.TrackerTypes, ", "),
			"camera_count":        strconv.Itoa(wo.CameraCount),
			"problem_description": wo.ProblemDescription,
			"technician_name":     wo.TechnicianName,
			"tracker_serial_id":   wo.TrackerSerialID,
			"notes":               wo.Notes,
			"lock_installed":      yesNo(wo.LockInstalled),
			"created_at":          formatTime(&created),
			"finalized_at":        formatTime(wo.FinalizedAt),
			"closed_at":           formatTime(wo.ClosedAt),
		},
		Images: map[string]Image{},
	}

	labels := make([]string, 0, len(wo.ChecklistResponses))
	for label := range wo.ChecklistResponses {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		line := ChecklistLine{Label: label, Key: ChecklistKey(label), Answer: string(wo.ChecklistResponses[label])}
		if _, clash := mc.Fields[line.Key]; clash {
			logger.Warn("checklist labels normalize to the same key, keeping the first",
				"work_order_id", wo.ID,
				"key", line.Key,
				"label", label)
			continue
		}
		mc.Fields[line.Key] = line.Answer
		mc.Checklist = append(mc.Checklist, line)
	}

	fetchAll := func(refs map[string]string, key func(string) string) {
		slots := make([]string, 0, len(refs))
		for slot := range refs {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		for _, slot := range slots {
			content, ext, err := assets.Fetch(ctx, refs[slot])
			if err != nil {
				logger.Warn("skipping report image",
					"work_order_id", wo.ID,
					"slot", key(slot),
					"ref", refs[slot],
					"error", err)
				continue
			}
			mc.Images[key(slot)] = Image{Content: content, Extension: ext}
		}
	}
	fetchAll(wo.PhotoRefs, PhotoKey)
	fetchAll(wo.SignatureRefs, SignatureKey)

	return mc
}
