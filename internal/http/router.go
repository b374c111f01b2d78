package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docrag/internal/handlers"
	"docrag/internal/service"
)

// DefaultMaxUploadBytes bounds an upload request body when Deps leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService     service.ChatService
	DocumentService service.DocumentService
	HistoryService  service.HistoryService
	// HealthChecks maps a check name to the dependency it pings.
	HealthChecks   map[string]handlers.Pinger
	MaxUploadBytes int64
	// AllowedOrigins restricts CORS. Empty allows any origin.
	AllowedOrigins []string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(CORS(deps.AllowedOrigins))

	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	uploadHandler := handlers.NewUploadHandler(deps.DocumentService, maxUpload)
	historyHandler := handlers.NewHistoryHandler(deps.HistoryService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	r.Method(http.MethodPost, "/chat", chatHandler)
	r.Route("/documents", func(r chi.Router) {
		r.Method(http.MethodPost, "/upload", uploadHandler)
	})
	r.Method(http.MethodGet, "/health", healthHandler)

	r.Route("/chathistory", func(r chi.Router) {
		r.Post("/history", historyHandler.Add)
		r.Get("/history/{user_id}", historyHandler.List)
	})

	return r
}
