// Package http wires the handler and middleware chain into the service's
// route tree and owns the server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
	"github.com/finsentry/aml-insight/internal/interfaces/http/handlers"
	"github.com/finsentry/aml-insight/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies for the
// complete route tree.
type RouterConfig struct {
	HealthHandler     *handlers.HealthHandler
	AssessmentHandler *handlers.AssessmentHandler
	ProfileHandler    *handlers.ProfileHandler
	QuestionHandler   *handlers.QuestionHandler
	ChatHandler       *handlers.ChatHandler

	AllowedOrigins []string

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the route tree: the public health and metrics
// endpoints plus the /api group.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))
	}
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Check)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.AssessmentHandler != nil {
			api.Post("/assess-risk", cfg.AssessmentHandler.AssessRisk)
			api.Post("/assess-risk/enhanced", cfg.AssessmentHandler.AssessRiskEnhanced)
		}
		if cfg.ProfileHandler != nil {
			api.Post("/profile", cfg.ProfileHandler.GetProfile)
		}
		if cfg.QuestionHandler != nil {
			api.Post("/question", cfg.QuestionHandler.AskQuestion)
		}
		if cfg.ChatHandler != nil {
			api.Post("/chat", cfg.ChatHandler.Chat)
		}
	})

	return r
}
