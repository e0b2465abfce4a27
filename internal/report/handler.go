package report

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	OrderReport(ctx context.Context, session *auth.Session, id string) (*Document, error)
	Summary(ctx context.Context, session *auth.Session, from, to time.Time) (*Summary, error)
	Export(ctx context.Context, session *auth.Session, from, to time.Time) (*Document, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{BaseHandler: baseHandler, Service: service}
}

// GetOrderReport handles GET /work-orders/{id}/report
func (h *Handler) GetOrderReport(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	doc, err := h.Service.OrderReport(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteFile(w, doc.Filename, doc.ContentType, doc.Content)
}

// GetSummary handles GET /reports/summary?from=&to=
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.DateRangeParams(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	session, _ := auth.SessionFromContext(r.Context())
	summary, err := h.Service.Summary(r.Context(), session, from, to)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

// ExportWorkOrders handles GET /reports/export?from=&to=
func (h *Handler) ExportWorkOrders(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.DateRangeParams(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	session, _ := auth.SessionFromContext(r.Context())
	doc, err := h.Service.Export(r.Context(), session, from, to)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteFile(w, doc.Filename, doc.ContentType, doc.Content)
}
