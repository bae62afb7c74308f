// Package api serves the project operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/grc-cli/internal/config"
	"github.com/sells-group/grc-cli/internal/metrics"
	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/project"
	"github.com/sells-group/grc-cli/internal/store"
)

// Projects is the subset of project.Service used by the handlers.
type Projects interface {
	Create(ctx context.Context, req project.CreateRequest, actor string) (*project.CreateResult, error)
	Patch(ctx context.Context, projectID string, patch project.ProjectPatch, actor string) (*model.ProjectDocument, error)
	PatchItem(ctx context.Context, projectID, itemID string, patch project.ItemPatch, actor string) (*model.ChecklistItem, error)
	UploadEvidence(ctx context.Context, projectID, itemID string, upload project.Upload, actor string) (*model.EvidenceRecord, error)
	Delete(ctx context.Context, projectID, actor string) (*project.DeletionSummary, error)
	Get(ctx context.Context, projectID string) (*model.ProjectDocument, error)
	Checklist(ctx context.Context, projectID string) (*model.Checklist, error)
	List(ctx context.Context, filter store.ProjectFilter) ([]model.ProjectSummary, error)
	Audit(ctx context.Context, projectID string) ([]model.AuditEntry, error)
	Fingerprint(ctx context.Context, projectID string) (*project.FingerprintReport, error)
}

// Catalog exposes the installed control packs.
type Catalog interface {
	List(ctx context.Context) ([]model.ControlPack, error)
	Lookup(ctx context.Context, ref model.SelectedPack) (model.ControlPack, bool, error)
}

// IndustryLister exposes the taxonomy.
type IndustryLister interface {
	Industries() []model.Industry
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	projects   Projects
	catalog    Catalog
	taxonomy   IndustryLister
	metrics    *metrics.Metrics
	cfg        config.ServerConfig
	limiter    *rate.Limiter
	maxRequest int64
}

// NewServer creates a Server. m may be nil.
func NewServer(projects Projects, catalog Catalog, taxonomy IndustryLister, m *metrics.Metrics, cfg config.ServerConfig) *Server {
	s := &Server{
		projects: projects,
		catalog:  catalog,
		taxonomy: taxonomy,
		metrics:  m,
		cfg:      cfg,
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	// Multipart framing adds a little on top of the file itself.
	s.maxRequest = cfg.MaxUploadBytes() + 1<<20
	return s
}

// Router wires every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/taxonomy/industries", s.handleIndustries)
		r.Get("/packs", s.handleListPacks)
		r.Get("/packs/{domain}/{packID}/{version}", s.handleGetPack)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Patch("/", s.handlePatchProject)
				r.Delete("/", s.handleDeleteProject)
				r.Get("/checklist", s.handleGetChecklist)
				r.Patch("/checklist/{itemID}", s.handlePatchItem)
				r.Post("/evidence/{itemID}", s.handleUploadEvidence)
				r.Get("/audit", s.handleAudit)
				r.Get("/fingerprint", s.handleFingerprint)
			})
		})

		r.Get("/reports/{projectID}", s.handleReport)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
