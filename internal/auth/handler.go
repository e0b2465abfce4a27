package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/transport"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"github.com/frahmantamala/tracker-workorders/pkg/logger"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, dto RefreshTokenDTO) (AuthTokens, error)
	SessionFromToken(token string) (*Session, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Gate    Authorizer
}

func NewHandler(svc ServiceAPI, gate Authorizer) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Gate:        gate,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Me returns the caller as currently stored, not as encoded in the token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	u, err := h.Gate.Authorize(r.Context(), s)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, meResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	})
}

type meResponse struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  user.Role `json:"role"`
}

// AuthMiddleware turns the bearer token into a Session on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleServiceError(w, internal.ErrMissingSession())
			return
		}

		s, err := h.Service.SessionFromToken(token)
		if err != nil {
			h.Logger.Warn("auth middleware: token rejected", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		ctx := ContextWithSession(r.Context(), s)
		ctx = internal.ContextWithActor(ctx, internal.Actor{UserID: s.UserID, Role: string(s.Role)})
		ctx = logger.WithActor(ctx, s.UserID, string(s.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
