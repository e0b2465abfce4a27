package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/tracker-workorders/api"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/checklist"
	"github.com/frahmantamala/tracker-workorders/internal/report"
	"github.com/frahmantamala/tracker-workorders/internal/stats"
	"github.com/frahmantamala/tracker-workorders/internal/transport/middleware"
	"github.com/frahmantamala/tracker-workorders/internal/transport/swagger"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups every HTTP handler the API mounts. Nil handlers leave their routes out.
type Handlers struct {
	// AllowedOrigins is the comma separated CORS allow list.
	AllowedOrigins string

	Health    *HealthHandler
	Auth      *auth.Handler
	RBAC      *auth.RBACAuthorization
	User      *user.Handler
	Checklist *checklist.Handler
	WorkOrder *workorder.Handler
	Stats     *stats.Handler
	Report    *report.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	router.Use(middleware.CORS(h.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec())
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.Auth.Me)

			if h.Stats != nil {
				pr.Get("/stats", h.Stats.GetStats)
			}

			if h.User != nil && h.RBAC != nil {
				pr.Group(func(ur chi.Router) {
					ur.Use(h.RBAC.RequireAction(auth.ActionListTechnicians))
					ur.Get("/users/technicians", h.User.ListTechnicians)
				})
				pr.Group(func(ar chi.Router) {
					ar.Use(h.RBAC.RequireAdmin())
					ar.Get("/users", h.User.ListUsers)
					ar.Post("/users", h.User.CreateUser)
					ar.Patch("/users/{id}/active", h.User.SetActive)
				})
			}

			if h.Checklist != nil {
				pr.Route("/checklist-templates", func(cr chi.Router) {
					cr.Get("/", h.Checklist.ListTemplates)
					cr.Get("/{category}", h.Checklist.GetTemplate)
					cr.Put("/{category}", h.Checklist.SaveTemplate)
				})
			}

			if h.WorkOrder != nil {
				pr.Get("/options", h.WorkOrder.GetOptions)
				pr.Route("/work-orders", func(wr chi.Router) {
					wr.Post("/", h.WorkOrder.CreateWorkOrder)
					wr.Get("/", h.WorkOrder.ListWorkOrders)
					wr.Get("/{id}", h.WorkOrder.GetWorkOrder)
					wr.Get("/{id}/history", h.WorkOrder.GetHistory)
					wr.Post("/{id}/start", h.WorkOrder.StartWorkOrder)
					wr.Post("/{id}/complete", h.WorkOrder.CompleteWorkOrder)
					wr.Post("/{id}/finalize", h.WorkOrder.FinalizeWorkOrder)
					if h.Report != nil {
						wr.Get("/{id}/report", h.Report.GetOrderReport)
					}
				})
			}

			if h.Report != nil {
				pr.Route("/reports", func(rr chi.Router) {
					rr.Get("/summary", h.Report.GetSummary)
					rr.Get("/export", h.Report.ExportWorkOrders)
				})
			}
		})
	})
}
