/*
server.go - HTTP router setup

PURPOSE:
  Builds the chi router with middleware (request IDs, panic recovery,
  CORS, structured request logging) and mounts all API routes.

SEE ALSO:
  - handlers.go: Endpoint implementations
  - cmd/server/main.go: Server lifecycle
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter mounts all endpoints on a chi router.
func NewRouter(h *Handler, corsOrigins []string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/animals", func(r chi.Router) {
			r.Get("/", h.ListAnimals)
			r.Post("/", h.CreateAnimal)
			r.Get("/{id}", h.GetAnimal)
			r.Put("/{id}/status", h.UpdateAnimalStatus)
			r.Get("/{id}/weighings", h.ListWeighings)
			r.Post("/{id}/weighings", h.AddWeighing)
			r.Get("/{id}/cycles", h.ListCycles)
			r.Post("/{id}/cycles", h.StartCycle)
			r.Get("/{id}/vaccinations", h.VaccinationHistory)
		})

		r.Route("/pastures", func(r chi.Router) {
			r.Get("/", h.ListPastures)
			r.Post("/", h.CreatePasture)
			r.Get("/{id}", h.GetPasture)
			r.Post("/{id}/move", h.MoveAnimals)
		})

		r.Route("/cycles", func(r chi.Router) {
			r.Put("/{id}", h.UpdateCycle)
			r.Post("/{id}/diagnosis", h.ConfirmDiagnosis)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
		})

		r.Route("/installments", func(r chi.Router) {
			r.Get("/due", h.ListInstallmentsDue)
			r.Post("/{id}/pay", h.PayInstallment)
			r.Post("/{id}/cancel", h.CancelInstallment)
		})

		r.Route("/vaccine-types", func(r chi.Router) {
			r.Get("/", h.ListVaccineTypes)
			r.Post("/", h.CreateVaccineType)
		})

		r.Route("/vaccinations", func(r chi.Router) {
			r.Post("/", h.ScheduleVaccination)
			r.Post("/{id}/apply", h.ApplyVaccination)
			r.Post("/{id}/cancel", h.CancelVaccination)
		})

		r.Get("/agenda", h.Agenda)
		r.Get("/dashboard", h.Dashboard)
	})

	return r
}

// requestLogger emits one structured log line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
