// Package mptraj streams the MPTraj relaxation-trajectory dataset from the
// HuggingFace hub and applies atom-count and element filters before samples
// enter training.
package mptraj

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/hf"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/metrics"
)

// HubDataset is the hub repository that carries the MPTraj frames.
const HubDataset = "nimashoghi/mptrj"

func init() {
	dataset.RegisterOpener(config.TypeMPTraj, openDataset)
}

// row mirrors one MPTraj frame as stored on the hub.
type row struct {
	Numbers              []int         `json:"numbers"`
	Positions            [][3]float64  `json:"positions"`
	Cell                 [3][3]float64 `json:"cell"`
	CorrectedTotalEnergy *float64      `json:"corrected_total_energy"`
	Forces               [][3]float64  `json:"forces"`
	Stress               *[3][3]float64 `json:"stress"`
}

func (r *row) toAtoms() *atoms.Atoms {
	return &atoms.Atoms{
		Numbers:   r.Numbers,
		Positions: r.Positions,
		Cell:      r.Cell,
		PBC:       [3]bool{true, true, true},
		Energy:    r.CorrectedTotalEnergy,
		Forces:    r.Forces,
		Stress:    r.Stress,
	}
}

func cacheKey(c *config.MPTrajDatasetConfig) string {
	buf, _ := json.Marshal(c)
	sum := sha256.Sum256(buf)
	return "mptraj:" + c.Split + ":" + hex.EncodeToString(sum[:8])
}

func openDataset(ctx context.Context, env dataset.Env, cfg config.DatasetConfig) (dataset.Dataset, error) {
	c := cfg.MPTraj
	logger := log.WithComponentFromContext(ctx, "mptraj")

	split := c.Split
	if split == "" {
		split = "train"
	}

	key := cacheKey(c)
	var (
		ttl     time.Duration
		backend string
		baseURL = "https://datasets-server.huggingface.co"
	)
	if env.Config != nil {
		ttl = time.Duration(env.Config.Store.TTLHours) * time.Hour
		backend = env.Config.Store.Backend
		baseURL = env.Config.HF.BaseURL
	}

	if env.Store != nil {
		if buf, ok, err := env.Store.Get(ctx, key); err == nil && ok {
			metrics.CacheHits.WithLabelValues(backend).Inc()
			var samples []*atoms.Atoms
			if err := json.Unmarshal(buf, &samples); err == nil {
				logger.Info().Int(log.FieldRecords, len(samples)).Str(log.FieldSplit, split).Msg("mptraj served from cache")
				return dataset.NewMemory(samples), nil
			}
			_ = env.Store.Delete(ctx, key)
		} else {
			metrics.CacheMisses.WithLabelValues(backend).Inc()
		}
	}

	// Default per the MPTraj curation: structures under 5 atoms are noise.
	minAtoms := c.MinNumAtoms
	if minAtoms == nil {
		def := 5
		minAtoms = &def
	}
	filter := dataset.NewFilter(minAtoms, c.MaxNumAtoms, c.Elements)

	client := hf.New(baseURL)
	var (
		samples  []*atoms.Atoms
		filtered int
	)
	for offset := 0; ; {
		page, err := client.Rows(ctx, HubDataset, "default", split, offset, hf.MaxPageLength)
		if err != nil {
			return nil, err
		}
		for _, hubRow := range page.Rows {
			var r row
			if err := json.Unmarshal(hubRow.Row, &r); err != nil {
				return nil, fmt.Errorf("row %d: %w", hubRow.RowIdx, err)
			}
			a := r.toAtoms()
			if err := a.Validate(); err != nil {
				return nil, fmt.Errorf("row %d: %w", hubRow.RowIdx, err)
			}
			keep, err := filter.Keep(a)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", hubRow.RowIdx, err)
			}
			if !keep {
				filtered++
				continue
			}
			samples = append(samples, a)
		}
		offset += len(page.Rows)
		if len(page.Rows) == 0 || offset >= page.NumRowsTotal {
			break
		}
	}

	metrics.RecordsLoaded.WithLabelValues(config.TypeMPTraj).Add(float64(len(samples)))
	metrics.RecordsFiltered.WithLabelValues(config.TypeMPTraj).Add(float64(filtered))
	logger.Info().
		Str(log.FieldSplit, split).
		Int(log.FieldRecords, len(samples)).
		Int(log.FieldFiltered, filtered).
		Msg("mptraj loaded")

	if env.Store != nil {
		if buf, err := json.Marshal(samples); err == nil {
			if err := env.Store.Set(ctx, key, buf, ttl); err != nil {
				logger.Warn().Err(err).Msg("failed to cache mptraj samples")
			}
		}
	}
	return dataset.NewMemory(samples), nil
}
