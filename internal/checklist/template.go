package checklist

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/frahmantamala/tracker-workorders/internal"
	checklistDatamodel "github.com/frahmantamala/tracker-workorders/internal/core/datamodel/checklist"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Answer is the technician's verdict on a single checklist item.
type Answer string

const (
	AnswerIntact    Answer = "intact"
	AnswerDefective Answer = "defective"
)

func (a Answer) Valid() bool {
	return a == AnswerIntact || a == AnswerDefective
}

// Template is the ordered list of checks for one vehicle category.
type Template struct {
	VehicleCategory string    `json:"vehicle_category"`
	Items           []string  `json:"items"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NormalizeCategory is the canonical form used as the template key and on work orders.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// CleanItems trims every label and drops blank ones, keeping order.
func CleanItems(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeLabel turns a checklist label into an identifier-safe token:
// "Luzes de Freio" -> "luzes_de_freio", "Pneus/Estepe" -> "pneus_estepe".
// Report layouts address answers by this token, so labels in one template
// must map to distinct, non-empty tokens.
func NormalizeLabel(label string) string {
	plain, _, err := transform.String(stripMarks, label)
	if err != nil {
		plain = label
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// CheckLabelTokens rejects labels without a usable token and pairs of labels
// that normalize to the same token.
func CheckLabelTokens(field string, labels []string) *internal.AppError {
	owners := make(map[string]string, len(labels))
	for _, label := range labels {
		token := NormalizeLabel(label)
		if token == "" {
			return internal.NewValidationFieldError(field,
				fmt.Sprintf("checklist item %q has no letters or digits", label), internal.ErrCodeValidationFailed)
		}
		if first, clash := owners[token]; clash {
			return internal.NewValidationFieldError(field,
				fmt.Sprintf("checklist items %q and %q collide as %q", first, label, token), internal.ErrCodeValidationFailed)
		}
		owners[token] = label
	}
	return nil
}

// Contains reports whether label is one of the template items.
func (t *Template) Contains(label string) bool {
	for _, item := range t.Items {
		if item == label {
			return true
		}
	}
	return false
}

func ToDataModel(t *Template) *checklistDatamodel.Template {
	return &checklistDatamodel.Template{
		VehicleCategory: t.VehicleCategory,
		Items:           t.Items,
		UpdatedAt:       t.UpdatedAt,
	}
}

func FromDataModel(t *checklistDatamodel.Template) *Template {
	items := t.Items
	if items == nil {
		items = []string{}
	}
	return &Template{
		VehicleCategory: t.VehicleCategory,
		Items:           items,
		UpdatedAt:       t.UpdatedAt,
	}
}
