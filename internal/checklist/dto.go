package checklist

import (
	"fmt"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/core/common/validation"
)

type SaveTemplateDTO struct {
	Items []string `json:"items"`
}

// Validate expects items already passed through CleanItems.
func (d SaveTemplateDTO) Validate(category string) *internal.AppError {
	v := validation.NewValidator()
	v.Field("vehicle_category", category).Required().MaxLength(50)
	v.Field("items", d.Items).
		Custom(func(value interface{}) *internal.AppError {
			if items, _ := value.([]string); len(items) == 0 {
				return internal.NewValidationFieldError("items", "a checklist template needs at least one item", internal.ErrCodeEmptyTemplate)
			}
			return nil
		}).
		Custom(func(value interface{}) *internal.AppError {
			items, _ := value.([]string)
			seen := make(map[string]struct{}, len(items))
			for _, item := range items {
				if _, dup := seen[item]; dup {
					return internal.NewValidationFieldError("items", fmt.Sprintf("duplicate checklist item %q", item), internal.ErrCodeValidationFailed)
				}
				seen[item] = struct{}{}
			}
			return nil
		}).
		Custom(func(value interface{}) *internal.AppError {
			items, _ := value.([]string)
			return CheckLabelTokens("items", items)
		})
	return v.Validate()
}

type TemplatesResponse struct {
	Templates []*Template `json:"templates"`
}
