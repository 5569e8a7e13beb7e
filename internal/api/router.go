package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinixsphere/clinic-backend/internal/appointment"
	"github.com/clinixsphere/clinic-backend/internal/auth"
	"github.com/clinixsphere/clinic-backend/internal/prescription"
	"github.com/clinixsphere/clinic-backend/internal/user"
)

type RouterConfig struct {
	Users         *user.Service
	Appointments  *appointment.Service
	Prescriptions *prescription.Service
	Tokens        *auth.Manager
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Env           string
	Version       string
	Logger        zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Public auth endpoints
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", registerHandler(cfg.Users))
		r.Post("/login", loginHandler(cfg.Users))
	})

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens))

		r.Route("/api/appointments", func(r chi.Router) {
			r.Get("/", listAppointmentsHandler(cfg.Appointments))
			r.Get("/doctors/list", listDoctorsHandler(cfg.Users))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))

			r.With(RequireRole(auth.RolePatient)).
				Post("/", bookAppointmentHandler(cfg.Appointments))
			r.With(RequireRole(auth.RoleDoctor)).
				Put("/{id}", updateAppointmentStatusHandler(cfg.Appointments))
		})

		r.Route("/api/prescriptions", func(r chi.Router) {
			r.Get("/", listPrescriptionsHandler(cfg.Prescriptions))
			r.Get("/{id}", getPrescriptionHandler(cfg.Prescriptions))
			r.Get("/appointment/{appointmentId}", getPrescriptionByAppointmentHandler(cfg.Prescriptions))

			r.With(RequireRole(auth.RoleDoctor)).
				Post("/", createPrescriptionHandler(cfg.Prescriptions))
		})
	})

	return r
}
