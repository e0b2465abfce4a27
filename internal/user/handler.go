package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/transport"
	"github.com/frahmantamala/tracker-workorders/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateUser(ctx context.Context, dto CreateUserDTO) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	ListTechnicians(ctx context.Context) ([]TechnicianResponse, error)
	SetActive(ctx context.Context, actorID, id string, dto SetActiveDTO) error
}

// Handler serves user administration routes. Role checks happen in the router's RBAC middleware.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.CreateUser(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

// SetActive handles PATCH /users/{id}/active
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var dto SetActiveDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := internal.ActorFromContext(r.Context())
	if err := h.Service.SetActive(r.Context(), actor.UserID, chi.URLParam(r, "id"), dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTechnicians handles GET /users/technicians
func (h *Handler) ListTechnicians(w http.ResponseWriter, r *http.Request) {
	technicians, err := h.Service.ListTechnicians(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"technicians": technicians})
}
