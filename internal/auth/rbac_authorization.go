package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/tracker-workorders/internal/transport"
	"github.com/frahmantamala/tracker-workorders/internal/user"
)

// RBACAuthorization guards routes by action before the handler runs. Services
// still authorize on their own; this only rejects early.
type RBACAuthorization struct {
	*transport.BaseHandler
	gate Authorizer
}

func NewRBACAuthorization(gate Authorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		gate:        gate,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, roles ...user.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		if _, err := ra.gate.Authorize(r.Context(), s, roles...); err != nil {
			ra.HandleServiceError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) RequireAction(action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, RolesFor(action)...)
	}
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, user.RoleAdmin)
	}
}
