package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/version"
)

var errUnknownDataset = errors.New("unknown dataset")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error":     msg,
		"requestId": log.RequestIDFromContext(r.Context()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

type datasetInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Open    bool   `json:"open"`
	Records int    `json:"records,omitempty"`
}

func (s *Server) handleListDatasets(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]datasetInfo, 0, len(s.cfg.Datasets))
	for _, name := range s.datasetNames() {
		info := datasetInfo{Name: name, Type: s.cfg.Datasets[name].Type}
		if ds, ok := s.open[name]; ok {
			info.Open = true
			info.Records = ds.Len()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": out})
}

func (s *Server) handleDatasetSummary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := log.ContextWithDataset(r.Context(), name)

	ds, err := s.dataset(ctx, name)
	if errors.Is(err, errUnknownDataset) {
		writeError(w, r, http.StatusNotFound, "unknown dataset: "+name)
		return
	}
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "api")
		logger.Error().Err(err).Str(log.FieldDataset, name).Msg("dataset open failed")
		writeError(w, r, http.StatusBadGateway, "dataset open failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, datasetInfo{
		Name:    name,
		Type:    s.cfg.Datasets[name].Type,
		Open:    true,
		Records: ds.Len(),
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := log.ContextWithDataset(r.Context(), name)

	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "record index must be an integer")
		return
	}

	ds, err := s.dataset(ctx, name)
	if errors.Is(err, errUnknownDataset) {
		writeError(w, r, http.StatusNotFound, "unknown dataset: "+name)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "dataset open failed: "+err.Error())
		return
	}

	a, err := ds.Get(ctx, idx)
	if errors.Is(err, dataset.ErrIndexOutOfRange) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "api")
		logger.Error().Err(err).Str(log.FieldDataset, name).Int(log.FieldIndex, idx).Msg("record read failed")
		writeError(w, r, http.StatusInternalServerError, "record read failed")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
