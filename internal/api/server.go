// Package api serves the dataset inspection endpoints: health, dataset
// listings, individual records and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
)

// Server exposes the configured datasets over HTTP. Datasets open lazily on
// first access and stay open for the lifetime of the server.
type Server struct {
	cfg *config.AppConfig
	env dataset.Env

	mu   sync.Mutex
	open map[string]dataset.Dataset
}

// NewServer builds a Server over the resolved configuration. The env carries
// the record cache used by remote dataset types.
func NewServer(cfg *config.AppConfig, env dataset.Env) *Server {
	return &Server{
		cfg:  cfg,
		env:  env,
		open: map[string]dataset.Dataset{},
	}
}

// Router assembles the middleware stack and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(RequestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/datasets", s.handleListDatasets)
	r.Get("/api/datasets/{name}", s.handleDatasetSummary)
	r.Get("/api/datasets/{name}/records/{idx}", s.handleRecord)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then drains with a
// short shutdown grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeAll()
	return err
}

// dataset returns the opened dataset for name, opening it on first use.
func (s *Server) dataset(ctx context.Context, name string) (dataset.Dataset, error) {
	cfg, ok := s.cfg.Datasets[name]
	if !ok {
		return nil, errUnknownDataset
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.open[name]; ok {
		return ds, nil
	}
	ds, err := dataset.Open(ctx, s.env, cfg)
	if err != nil {
		return nil, err
	}
	s.open[name] = ds
	return ds, nil
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, ds := range s.open {
		_ = ds.Close()
		delete(s.open, name)
	}
}

// datasetNames lists the configured dataset names, sorted.
func (s *Server) datasetNames() []string {
	names := make([]string, 0, len(s.cfg.Datasets))
	for name := range s.cfg.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
