package user

import (
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/tracker-workorders/internal/core/datamodel/user"
)

type Role string

const (
	RoleTechnician Role = "technician"
	RoleSupport    Role = "support"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

// Roles lists every role in ascending order of privilege.
var Roles = []Role{RoleTechnician, RoleSupport, RoleManager, RoleAdmin}

// BackOffice is the set of roles allowed to create and close work orders.
var BackOffice = []Role{RoleSupport, RoleManager, RoleAdmin}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

func RoleNames() []string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return names
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsTechnician() bool {
	return u.Role == RoleTechnician
}

// CanBeAssigned reports whether work orders may be assigned to this user.
func (u *User) CanBeAssigned() bool {
	return u.IsActive && u.IsTechnician()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         Role(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}
