package mp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/metrics"
)

func init() {
	dataset.RegisterOpener(config.TypeMP, openDataset)
}

// cacheKey derives a stable store key from the query parameters.
func cacheKey(c *config.MPDatasetConfig) string {
	buf, _ := json.Marshal(c)
	sum := sha256.Sum256(buf)
	return "mp:summary:" + hex.EncodeToString(sum[:8])
}

func openDataset(ctx context.Context, env dataset.Env, cfg config.DatasetConfig) (dataset.Dataset, error) {
	c := cfg.MP
	logger := log.WithComponentFromContext(ctx, "mp")

	key := cacheKey(c)
	ttl := time.Duration(0)
	backend := ""
	if env.Config != nil {
		ttl = time.Duration(env.Config.Store.TTLHours) * time.Hour
		backend = env.Config.Store.Backend
	}

	if env.Store != nil {
		if buf, ok, err := env.Store.Get(ctx, key); err == nil && ok {
			metrics.CacheHits.WithLabelValues(backend).Inc()
			var samples []*atoms.Atoms
			if err := json.Unmarshal(buf, &samples); err == nil {
				logger.Info().Int(log.FieldRecords, len(samples)).Msg("mp summary served from cache")
				return dataset.NewMemory(samples), nil
			}
			// Corrupt cache entry: drop it and refetch.
			_ = env.Store.Delete(ctx, key)
		} else {
			metrics.CacheMisses.WithLabelValues(backend).Inc()
		}
	}

	var (
		baseURL = "https://api.materialsproject.org"
		apiKey  string
	)
	if env.Config != nil {
		baseURL = env.Config.MP.BaseURL
		apiKey = env.Config.MP.APIKey
	}

	client := New(baseURL, apiKey)
	docs, err := client.Summary(ctx, c.Query, c.Fields)
	if err != nil {
		return nil, err
	}

	samples := make([]*atoms.Atoms, 0, len(docs))
	for _, doc := range docs {
		a, err := doc.ToAtoms()
		if err != nil {
			return nil, err
		}
		samples = append(samples, a)
	}
	metrics.RecordsLoaded.WithLabelValues(config.TypeMP).Add(float64(len(samples)))
	logger.Info().Int(log.FieldRecords, len(samples)).Msg("mp summary fetched")

	if env.Store != nil {
		if buf, err := json.Marshal(samples); err == nil {
			if err := env.Store.Set(ctx, key, buf, ttl); err != nil {
				logger.Warn().Err(err).Msg("failed to cache mp summary")
			}
		}
	}
	return dataset.NewMemory(samples), nil
}
