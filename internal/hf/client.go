// Package hf is a thin client for the HuggingFace datasets-server rows API,
// which exposes hub datasets as paginated JSON without a Python runtime.
package hf

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

	"github.com/atomtune/atomtune/internal/metrics"
)

// MaxPageLength is the server-side cap on the length parameter.
const MaxPageLength = 100

const maxAttempts = 3

type Client struct {
	base string
	http *http.Client
}

func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// RowsPage is one window of a dataset split.
type RowsPage struct {
	Rows []struct {
		RowIdx int             `json:"row_idx"`
		Row    json.RawMessage `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Rows fetches rows [offset, offset+length) of the given dataset split.
func (c *Client) Rows(ctx context.Context, dataset, cfg, split string, offset, length int) (*RowsPage, error) {
	if length > MaxPageLength {
		length = MaxPageLength
	}
	v := url.Values{}
	v.Set("dataset", dataset)
	v.Set("config", cfg)
	v.Set("split", split)
	v.Set("offset", strconv.Itoa(offset))
	v.Set("length", strconv.Itoa(length))
	u := c.base + "/rows?" + v.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		page, err := c.doOnce(ctx, u)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.FetchRetries.WithLabelValues("hf").Inc()
		select {
		case <-time.After(time.Duration(attempt) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	metrics.FetchErrors.WithLabelValues("hf").Inc()
	return nil, fmt.Errorf("rows fetch failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, u string) (*RowsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	metrics.FetchDuration.WithLabelValues("hf").Observe(time.Since(start).Seconds())

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("datasets-server returned %d: %s", res.StatusCode, body)
	}

	var page RowsPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode rows page: %w", err)
	}
	return &page, nil
}
