package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/safecircle/server/internal/http/handlers"
	"github.com/safecircle/server/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Auth      *handlers.AuthHandler
	Nominees  *handlers.NomineeHandler
	Emergency *handlers.EmergencyHandler
	Health    *handlers.HealthHandler
	Predict   *handlers.PredictHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, allowedOrigins []string, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.Health.ServeHTTP)
	r.Post("/predict", h.Predict.ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/request-otp", h.Auth.HandleRequestOTP)
		r.Post("/verify-otp", h.Auth.HandleVerifyOTP)
	})

	r.Post("/emergency", h.Emergency.HandleReport)

	r.Route("/me", func(r chi.Router) {
		r.Get("/nominees", h.Nominees.HandleList)
		r.Post("/nominees", h.Nominees.HandleAdd)
		r.Put("/nominees/{id}", h.Nominees.HandleUpdate)
		r.Delete("/nominees/{id}", h.Nominees.HandleDelete)
		r.Get("/emergencies", h.Emergency.HandleHistory)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"detail":"Method Not Allowed"}`))
	})

	return r
}
