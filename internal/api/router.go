package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// RouterConfig configures the HTTP router
type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *logrus.Logger
}

// NewRouter wires middleware and routes onto a chi router
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(log.WithField("component", "http")))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	timeout := chimiddleware.Timeout(cfg.RequestTimeout)

	// Routes
	r.With(timeout).Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/ev", func(r chi.Router) {
			r.Use(timeout)
			r.Post("/calculate", h.CalculateEV)
			r.Get("/health", h.EVHealth)
		})

		r.Route("/odds", func(r chi.Router) {
			// Streams are long lived and stay outside the request timeout
			r.Get("/{sport_key}/stream", h.StreamOdds)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/sports/available", h.AvailableSports)
				r.Get("/{sport_key}", h.GetOdds)
			})
		})

		r.With(timeout).Get("/sports", h.Sports)
	})

	return r
}
