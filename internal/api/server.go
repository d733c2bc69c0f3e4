// Package api exposes the sector hierarchy and activity sector selections
// over HTTP.
package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sells-group/aims-sectors/internal/config"
	"github.com/sells-group/aims-sectors/internal/sector"
	"github.com/sells-group/aims-sectors/internal/store"
)

// Server is the HTTP API server for sector selection.
type Server struct {
	router  chi.Router
	tree    []sector.Category
	index   sector.Index
	filters *treeFilter
	store   store.Store
	log     *zap.Logger
	cfg     config.Config

	// mu serializes read-modify-write of activity selections.
	mu sync.Mutex
}

// NewServer creates and configures the HTTP server.
func NewServer(tree []sector.Category, st store.Store, log *zap.Logger, cfg config.Config) *Server {
	if log == nil {
		log = zap.L()
	}
	s := &Server{
		tree:    tree,
		index:   sector.NewIndex(tree),
		filters: newTreeFilter(tree, cfg.Server.FilterCacheSize),
		store:   st,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.Server.RateLimit > 0 {
			r.Use(RateLimit(rate.NewLimiter(rate.Limit(s.cfg.Server.RateLimit), max(s.cfg.Server.RateBurst, 1)), s.log))
		}

		r.Get("/api/sectors", s.handleListSectors)
		r.Get("/api/sectors/{code}", s.handleGetSector)
		r.Get("/api/sectors/{code}/activities", s.handleSectorActivities)
		r.Put("/api/activities/{activityID}/funding", s.handleSetFunding)

		r.Route("/api/activities/{activityID}/sectors", func(r chi.Router) {
			r.Get("/", s.handleGetSelection)
			r.Put("/", s.handleSetSelection)
			r.Delete("/", s.handleClearSelection)
			r.Post("/toggle", s.handleToggle)
			r.Delete("/{code}", s.handleRemove)
		})

		r.Get("/api/charts/sectors", s.handleSectorChart)
	})

	s.router = r
}

type healthResponse struct {
	Status        string `json:"status"`
	Subsectors    int    `json:"subsectors"`
	CachedQueries int    `json:"cached_queries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Subsectors:    len(s.index),
		CachedQueries: s.filters.cache.Len(),
	})
}

// treeFilter collapses concurrent identical queries onto one filter pass.
type treeFilter struct {
	cache *sector.FilterCache
	group singleflight.Group
}

func newTreeFilter(tree []sector.Category, size int) *treeFilter {
	return &treeFilter{cache: sector.NewFilterCache(tree, size)}
}

func (f *treeFilter) Filter(query string) []sector.Category {
	v, _, _ := f.group.Do(query, func() (any, error) {
		return f.cache.Filter(query), nil
	})
	return v.([]sector.Category)
}
