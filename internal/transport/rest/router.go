package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the scheduling routes onto a chi router.
func NewRouter(h *SchedulingHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthCheck)

	r.Route("/scheduling", func(r chi.Router) {
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.CreateAppointment)
			r.Get("/", h.ListAppointments)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetAppointment)
				r.Patch("/", h.UpdateAppointment)
				r.Patch("/status", h.UpdateAppointmentStatus)
				r.Delete("/", h.DeleteAppointment)
			})
		})

		r.Post("/conflicts/check", h.CheckConflicts)

		r.Route("/waitlist", func(r chi.Router) {
			r.Post("/", h.CreateWaitlistEntry)
			r.Get("/", h.ListWaitlist)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", h.CreateSchedule)
			r.Get("/", h.ListSchedules)
			r.Get("/exceptions", h.ListScheduleExceptions)
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
