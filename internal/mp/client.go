// Package mp queries the Materials Project next-gen API and converts the
// returned pymatgen structures into training samples.
package mp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/metrics"
)

const (
	perPage     = 200
	maxAttempts = 3
)

type Client struct {
	base    string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// New builds a client for the given API base URL. The public API allows a
// sustained rate well below 25 req/s; we stay conservative.
func New(base, apiKey string) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// queryValues flattens the config query into API parameters.
func queryValues(q config.MPQuery, fields []string, page int) url.Values {
	v := url.Values{}
	if len(fields) == 0 {
		fields = []string{"material_id", "formula_pretty", "structure", "energy_per_atom", "formation_energy_per_atom", "band_gap", "is_stable"}
	}
	v.Set("_fields", strings.Join(fields, ","))
	v.Set("_per_page", strconv.Itoa(perPage))
	v.Set("_page", strconv.Itoa(page))
	if len(q.Elements) > 0 {
		v.Set("elements", strings.Join(q.Elements, ","))
	}
	if len(q.NumElems) > 0 {
		parts := make([]string, len(q.NumElems))
		for i, n := range q.NumElems {
			parts[i] = strconv.Itoa(n)
		}
		v.Set("nelements", strings.Join(parts, ","))
	}
	if q.BandGapMin != nil {
		v.Set("band_gap_min", strconv.FormatFloat(*q.BandGapMin, 'f', -1, 64))
	}
	if q.BandGapMax != nil {
		v.Set("band_gap_max", strconv.FormatFloat(*q.BandGapMax, 'f', -1, 64))
	}
	if q.IsStable != nil {
		v.Set("is_stable", strconv.FormatBool(*q.IsStable))
	}
	return v
}

type summaryPage struct {
	Data []SummaryDoc `json:"data"`
	Meta struct {
		TotalDoc int `json:"total_doc"`
	} `json:"meta"`
}

// Summary fetches every page of the summary endpoint matching the query.
func (c *Client) Summary(ctx context.Context, q config.MPQuery, fields []string) ([]SummaryDoc, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	logger := log.WithComponentFromContext(ctx, "mp")

	var docs []SummaryDoc
	for page := 1; ; page++ {
		p, err := c.fetchPage(ctx, queryValues(q, fields, page))
		if err != nil {
			return nil, err
		}
		docs = append(docs, p.Data...)
		logger.Debug().
			Int("page", page).
			Int(log.FieldRecords, len(docs)).
			Int("total", p.Meta.TotalDoc).
			Msg("summary page fetched")
		if len(p.Data) < perPage || len(docs) >= p.Meta.TotalDoc && p.Meta.TotalDoc > 0 {
			break
		}
	}
	return docs, nil
}

func (c *Client) fetchPage(ctx context.Context, v url.Values) (*summaryPage, error) {
	u := c.base + "/materials/summary/?" + v.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		p, err := c.doOnce(ctx, u)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if se, ok := err.(*StatusError); ok && !retryable(se.Code) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.FetchRetries.WithLabelValues("mp").Inc()
		// Exponential backoff: 1s, 2s
		select {
		case <-time.After(time.Duration(attempt) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	metrics.FetchErrors.WithLabelValues("mp").Inc()
	return nil, fmt.Errorf("summary fetch failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, u string) (*summaryPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	metrics.FetchDuration.WithLabelValues("mp").Observe(time.Since(start).Seconds())

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, &StatusError{Code: res.StatusCode, Body: string(body)}
	}

	var p summaryPage
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode summary page: %w", err)
	}
	return &p, nil
}
