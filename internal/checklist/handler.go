package checklist

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetTemplate(ctx context.Context, category string) ([]string, error)
	SaveTemplate(ctx context.Context, session *auth.Session, category string, dto SaveTemplateDTO) (*Template, error)
	ListTemplates(ctx context.Context, session *auth.Session) ([]*Template, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetTemplate handles GET /checklist-templates/{category}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	category := NormalizeCategory(chi.URLParam(r, "category"))
	items, err := h.Service.GetTemplate(r.Context(), category)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, Template{VehicleCategory: category, Items: items})
}

// ListTemplates handles GET /checklist-templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.SessionFromContext(r.Context())
	templates, err := h.Service.ListTemplates(r.Context(), s)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TemplatesResponse{Templates: templates})
}

// SaveTemplate handles PUT /checklist-templates/{category}
func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var dto SaveTemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, _ := auth.SessionFromContext(r.Context())
	t, err := h.Service.SaveTemplate(r.Context(), s, chi.URLParam(r, "category"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}
