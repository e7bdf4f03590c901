package rest

import (
	"net/http"

	"github.com/Abdurahmanit/nodepop/internal/adapter/rest/middleware"
	"github.com/Abdurahmanit/nodepop/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	ServiceName string
	// JWTSecret protects listing creation when set.
	JWTSecret string
	// Images serves stored photos under /images when non-nil.
	Images  http.FileSystem
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func NewRouter(h *ListingHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}
	if cfg.Images != nil {
		r.Handle("/images/*", http.StripPrefix("/images", http.FileServer(cfg.Images)))
	}

	r.Route("/apiv1", func(r chi.Router) {
		r.Get("/anuncios", h.HandleSearchListings)
		r.Get("/anuncios/{id}", h.HandleGetListingByID)
		r.Get("/tags", h.HandleListTags)

		r.Group(func(r chi.Router) {
			if cfg.JWTSecret != "" {
				r.Use(middleware.JWTAuth(cfg.JWTSecret, cfg.Logger))
			}
			r.Post("/anuncios", h.HandleCreateListing)
		})
	})
	return r
}
