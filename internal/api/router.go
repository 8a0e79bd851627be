package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/secondheart/scheduling/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Provider schedule management
	r.Route("/providers/{providerID}", func(r chi.Router) {
		r.Get("/working-intervals", listWorkingIntervalsHandler(cfg.Service))
		r.Post("/working-intervals", createWorkingIntervalHandler(cfg.Service))
		r.Post("/schedule/regenerate", regenerateScheduleHandler(cfg.Service))
		r.Get("/slots", listSlotsHandler(cfg.Service))
		r.Delete("/slots/free", bulkDeleteFreeSlotsHandler(cfg.Service))
	})
	r.Put("/working-intervals/{id}", updateWorkingIntervalHandler(cfg.Service))
	r.Delete("/working-intervals/{id}", deleteWorkingIntervalHandler(cfg.Service))

	// Booking
	r.Post("/appointments", claimSlotHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service))
	r.Delete("/appointments/{id}", releaseAppointmentHandler(cfg.Service))

	return r
}
