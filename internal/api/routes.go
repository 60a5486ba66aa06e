package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adverant/nexus/flightcapture-worker/internal/logging"
	"github.com/adverant/nexus/flightcapture-worker/internal/processor"
	"github.com/adverant/nexus/flightcapture-worker/internal/storage"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// RouterConfig holds what the HTTP intake needs
type RouterConfig struct {
	Processor    processor.CaptureProcessorInterface
	Store        storage.RecordStore // optional
	MaxImageSize int64
	Timeout      time.Duration
	Logger       *logging.Logger
}

// NewRouter creates a new API router
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("API")
	}
	return &Router{
		handler:    NewHandler(cfg.Processor, cfg.Store, cfg.MaxImageSize, cfg.Timeout, logger),
		middleware: NewMiddleware(logger),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)

	router.Route("/api/v1", func(router chi.Router) {
		router.Post("/captures", r.handler.CreateCapture)
		router.Get("/records/{key}", r.handler.GetRecord)
		router.Get("/health", r.handler.GetHealth)
	})

	return router
}
