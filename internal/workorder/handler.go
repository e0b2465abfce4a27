package workorder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/transport"
	"github.com/frahmantamala/tracker-workorders/pkg/logger"
	"github.com/go-chi/chi"
)

// maxCompletionBody bounds a field-completion upload (payload plus all images).
const maxCompletionBody = 40 << 20

type ServiceAPI interface {
	Create(ctx context.Context, session *auth.Session, dto CreateWorkOrderDTO) (*WorkOrder, error)
	Start(ctx context.Context, session *auth.Session, id string) (*WorkOrder, error)
	CompleteFieldWork(ctx context.Context, session *auth.Session, id string, dto FieldCompletionDTO) (*WorkOrder, error)
	FinalizeAdministratively(ctx context.Context, session *auth.Session, id string) (*WorkOrder, error)
	Query(ctx context.Context, session *auth.Session, filter QueryFilter) ([]*WorkOrder, error)
	Get(ctx context.Context, session *auth.Session, id string) (*WorkOrder, error)
	History(ctx context.Context, session *auth.Session, id string) ([]HistoryEntry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func session(r *http.Request) *auth.Session {
	s, _ := auth.SessionFromContext(r.Context())
	return s
}

// CreateWorkOrder handles POST /work-orders
func (h *Handler) CreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var dto CreateWorkOrderDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wo, err := h.Service.Create(r.Context(), session(r), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, wo)
}

// ListWorkOrders handles GET /work-orders
func (h *Handler) ListWorkOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.PageParams(r)
	q := r.URL.Query()
	filter := QueryFilter{
		TechnicianID: q.Get("technician_id"),
		Status:       Status(q.Get("status")),
		Limit:        limit,
		Offset:       offset,
	}

	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, err := h.DateRangeParams(r)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		filter.FinalizedFrom, filter.FinalizedTo = &from, &to
	}

	orders, err := h.Service.Query(r.Context(), session(r), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{WorkOrders: orders, Limit: limit, Offset: offset})
}

// GetWorkOrder handles GET /work-orders/{id}
func (h *Handler) GetWorkOrder(w http.ResponseWriter, r *http.Request) {
	wo, err := h.Service.Get(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, wo)
}

// GetHistory handles GET /work-orders/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.History(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

// StartWorkOrder handles POST /work-orders/{id}/start
func (h *Handler) StartWorkOrder(w http.ResponseWriter, r *http.Request) {
	wo, err := h.Service.Start(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, wo)
}

// CompleteWorkOrder handles POST /work-orders/{id}/complete. It accepts either a
// JSON body without attachments or a multipart form with a "payload" JSON part and
// files named photo_<slot> / signature_<slot>.
func (h *Handler) CompleteWorkOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCompletionBody)

	dto, err := h.decodeCompletion(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	wo, err := h.Service.CompleteFieldWork(r.Context(), session(r), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, wo)
}

// FinalizeWorkOrder handles POST /work-orders/{id}/finalize
func (h *Handler) FinalizeWorkOrder(w http.ResponseWriter, r *http.Request) {
	wo, err := h.Service.FinalizeAdministratively(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, wo)
}

// GetOptions handles GET /options
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, Catalog())
}

func (h *Handler) decodeCompletion(r *http.Request) (FieldCompletionDTO, error) {
	var dto FieldCompletionDTO

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			return dto, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed).WithCause(err)
		}
		return dto, nil
	}

	if err := r.ParseMultipartForm(maxCompletionBody); err != nil {
		return dto, internal.NewValidationError("invalid multipart form", internal.ErrCodeValidationFailed).WithCause(err)
	}
	if payload := r.FormValue("payload"); payload != "" {
		if err := json.Unmarshal([]byte(payload), &dto); err != nil {
			return dto, internal.NewValidationFieldError("payload", "payload must be valid JSON", internal.ErrCodeValidationFailed)
		}
	}

	dto.Photos = map[string]Attachment{}
	dto.Signatures = map[string]Attachment{}
	for field, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		var target map[string]Attachment
		var slot string
		switch {
		case strings.HasPrefix(field, "photo_"):
			target, slot = dto.Photos, strings.TrimPrefix(field, "photo_")
		case strings.HasPrefix(field, "signature_"):
			target, slot = dto.Signatures, strings.TrimPrefix(field, "signature_")
		default:
			h.Logger.Warn("ignoring unexpected upload field", "field", field)
			continue
		}

		a, err := readAttachment(headers[0])
		if err != nil {
			return dto, internal.NewValidationFieldError(field, "could not read uploaded file", internal.ErrCodeInvalidAsset)
		}
		target[slot] = a
	}
	return dto, nil
}

func readAttachment(fh *multipart.FileHeader) (Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return Attachment{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return Attachment{}, err
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}
	return Attachment{Content: content, ContentType: contentType}, nil
}

