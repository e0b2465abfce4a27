package user

import (
	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/core/common/validation"
)

type CreateUserDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (dto CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(120)
	v.Field("email", dto.Email).Required().Email()
	v.Field("password", dto.Password).Required().MinLength(8).MaxLength(72)
	v.Field("role", dto.Role).Required().OneOf(RoleNames()...)
	return v.Validate()
}

type SetActiveDTO struct {
	IsActive *bool `json:"is_active"`
}

func (dto SetActiveDTO) Validate() *internal.AppError {
	if dto.IsActive == nil {
		return internal.NewValidationFieldError("is_active", "is_active is required", internal.ErrCodeMissingField)
	}
	return nil
}

// TechnicianResponse is the assignment-picker view of a technician.
type TechnicianResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
