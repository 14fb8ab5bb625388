// Package server is the HTTP transport: an ultra-thin chi router where
// every route delegates to one core operation and translates its error
// kind to a status code.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/aqua777/codelens/analysis"
	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/index"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/schema"
)

// Server carries the wired core components behind the router.
type Server struct {
	cfg      *config.Config
	reg      *resource.Registry
	store    *index.Store
	engine   *engine.Engine
	business *analysis.BusinessExtractor
	docs     *analysis.DocSearcher
	diagrams *analysis.DiagramGenerator
	suggest  *analysis.Suggester
	log      *zap.Logger
}

// New wires a Server over an initialized registry.
func New(reg *resource.Registry) (*Server, error) {
	store, err := index.NewStore(reg)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(reg, store)
	if err != nil {
		return nil, err
	}
	library, err := reg.Prompts()
	if err != nil {
		return nil, err
	}
	suggestModel, err := reg.LLM(llm.KindComplexAlt)
	if err != nil {
		return nil, err
	}
	cfg := reg.Config()
	return &Server{
		cfg:      cfg,
		reg:      reg,
		store:    store,
		engine:   eng,
		business: analysis.NewBusinessExtractor(eng, library),
		docs:     analysis.NewDocSearcher(eng, cfg),
		diagrams: analysis.NewDiagramGenerator(eng, library),
		suggest:  analysis.NewSuggester(suggestModel, library),
		log:      reg.Logger(),
	}, nil
}

// Engine exposes the retrieval engine, mainly for the CLI and tests.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Router builds the chi handler with every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Post("/search", s.handleSearch)
	r.Post("/index", s.handleIndex)
	r.Post("/refresh/project", s.handleRefresh)
	r.Get("/violations/{project}", s.handleViolations)
	r.Get("/analyze/architecture/{project}", s.handleArchitecture)
	r.Post("/analyze/overview", s.handleOverview)
	r.Get("/analyze/business/{project}", s.handleBusiness)
	r.Get("/analyze/diagram/{project}", s.handleDiagram)
	r.Get("/check/violation", s.handleCheckViolation)
	r.Get("/smart/query", s.handleSmartQuery)
	r.Get("/exists", s.handleExists)
	r.Post("/complex", s.handleComplex)
	r.Post("/suggest", s.handleSuggest)

	r.Route("/docs", func(r chi.Router) {
		r.Post("/index", s.handleDocsIndex)
		r.Post("/search", s.handleDocsSearch)
		r.Get("/libraries", s.handleDocsLibraries)
		r.Get("/library/{library}", s.handleDocsLibrary)
		r.Get("/pattern", s.handleDocsPattern)
		r.Post("/index-framework", s.handleDocsIndexFramework)
		r.Get("/frameworks", s.handleDocsFrameworks)
	})

	r.Route("/graph/{project}", func(r chi.Router) {
		r.Get("/", s.handleGraph)
		r.Get("/export", s.handleGraphExport)
		r.Get("/visualize", s.handleGraphVisualize)
	})

	r.Post("/api/auto-docs/setup", s.handleAutoDocsSetup)

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error kinds to HTTP statuses with a {error} body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var cfgErr *schema.ConfigError
	var readErr *schema.ReadError
	switch {
	case errors.Is(err, schema.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, schema.ErrConflict):
		status = http.StatusConflict
	case errors.As(err, &cfgErr), errors.As(err, &readErr), errors.Is(err, index.ErrNoDocuments):
		status = http.StatusBadRequest
	case errors.Is(err, schema.ErrShutdown):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}
