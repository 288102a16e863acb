package http

import (
	"log/slog"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type Handlers struct {
	Attendance AttendanceHandler
	Leave      LeaveHandler
	Payroll    PayrollHandler
	Events     EventHandler
}

func NewRouter(JWTService jwt.Service, allowedOrigins []string, logger *slog.Logger, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			// Authenticated by the short-lived token in the query string
			r.Get("/stream", h.Events.Stream)

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.AuthRequired)
				r.Use(middleware.RequirePermission(identity.PermissionEventsSubscribe))
				r.Post("/token", h.Events.GetSSEToken)
				r.Get("/", h.Events.History)
			})
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/attendance", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(identity.PermissionAttendanceRecordOwn))
					r.Post("/check-in", h.Attendance.CheckIn)
					r.Post("/check-out", h.Attendance.CheckOut)
					r.Post("/break/start", h.Attendance.StartBreak)
					r.Post("/break/end", h.Attendance.EndBreak)
					r.Get("/summary", h.Attendance.Summary)
				})
			})

			r.Route("/leaves", func(r chi.Router) {
				r.With(middleware.RequirePermission(identity.PermissionLeaveCreate)).Post("/", h.Leave.Create)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(identity.PermissionLeaveViewOwn))
					r.Get("/", h.Leave.List)
					r.Get("/balance", h.Leave.Balance)
					r.Get("/{id}", h.Leave.Get)
				})
				r.With(middleware.RequirePermission(identity.PermissionLeaveCreate)).Post("/{id}/cancel", h.Leave.Cancel)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(identity.PermissionLeaveApprove))
					r.Get("/pending", h.Leave.Pending)
					r.Post("/{id}/approve", h.Leave.Approve)
					r.Post("/{id}/reject", h.Leave.Reject)
				})
				r.With(middleware.RequirePermission(identity.PermissionLeaveEntitlements)).Put("/entitlements", h.Leave.SetEntitlement)
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(identity.PermissionPayrollManage))
					r.Post("/compute", h.Payroll.Compute)
					r.Post("/{id}/submit", h.Payroll.Submit)
				})
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(identity.PermissionPayrollViewAll))
					r.Get("/", h.Payroll.List)
					r.Get("/{id}", h.Payroll.Get)
					r.Get("/periods/{year}/{month}/summary", h.Payroll.PeriodSummary)
				})
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(identity.PermissionPayrollApprove))
					r.Post("/{id}/approve", h.Payroll.Approve)
					r.Post("/periods/{year}/{month}/approve", h.Payroll.ApprovePeriod)
				})
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(identity.PermissionPayrollPay))
					r.Post("/{id}/pay", h.Payroll.MarkAsPaid)
					r.Post("/periods/{year}/{month}/pay", h.Payroll.MarkPeriodAsPaid)
				})
			})
		})
	})
	return r
}
