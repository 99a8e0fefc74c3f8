package mp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/store"
)

const docJSON = `{
  "material_id": "mp-149",
  "formula_pretty": "Si",
  "structure": {
    "lattice": {"matrix": [[3.84,0,0],[0,3.84,0],[0,0,3.84]]},
    "sites": [
      {"species": [{"element": "Si", "occu": 1}], "xyz": [0,0,0]},
      {"species": [{"element": "Si", "occu": 1}], "xyz": [1.92,1.92,1.92]}
    ]
  },
  "energy_per_atom": -5.42,
  "band_gap": 1.1
}`

func summaryHandler(t *testing.T, wantKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != wantKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "/materials/summary/", r.URL.Path)
		fmt.Fprintf(w, `{"data":[%s],"meta":{"total_doc":1}}`, docJSON)
	}
}

func TestSummarySinglePage(t *testing.T) {
	srv := httptest.NewServer(summaryHandler(t, "k"))
	defer srv.Close()

	c := New(srv.URL, "k")
	docs, err := c.Summary(context.Background(), config.MPQuery{Elements: []string{"Si"}}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "mp-149", docs[0].MaterialID)

	a, err := docs[0].ToAtoms()
	require.NoError(t, err)
	assert.Equal(t, []int{14, 14}, a.Numbers)
	require.NotNil(t, a.Energy)
	assert.InDelta(t, -10.84, *a.Energy, 1e-9)
	assert.Equal(t, 1.1, a.Info["band_gap"])
}

func TestSummaryQueryParams(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		fmt.Fprint(w, `{"data":[],"meta":{"total_doc":0}}`)
	}))
	defer srv.Close()

	gapMin, gapMax := 0.5, 2.0
	stable := true
	c := New(srv.URL, "k")
	_, err := c.Summary(context.Background(), config.MPQuery{
		Elements:   []string{"Li", "O"},
		NumElems:   []int{2},
		BandGapMin: &gapMin,
		BandGapMax: &gapMax,
		IsStable:   &stable,
	}, []string{"material_id", "structure"})
	require.NoError(t, err)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "Li,O", q.Get("elements"))
	assert.Equal(t, "2", q.Get("nelements"))
	assert.Equal(t, "0.5", q.Get("band_gap_min"))
	assert.Equal(t, "2", q.Get("band_gap_max"))
	assert.Equal(t, "true", q.Get("is_stable"))
	assert.Equal(t, "material_id,structure", q.Get("_fields"))
}

func TestSummaryUnauthorized(t *testing.T) {
	srv := httptest.NewServer(summaryHandler(t, "correct"))
	defer srv.Close()

	c := New(srv.URL, "wrong")
	_, err := c.Summary(context.Background(), config.MPQuery{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestSummaryMissingKey(t *testing.T) {
	c := New("http://unused", "")
	_, err := c.Summary(context.Background(), config.MPQuery{}, nil)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestSummaryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"data":[],"meta":{"total_doc":0}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	_, err := c.Summary(context.Background(), config.MPQuery{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSummaryDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	_, err := c.Summary(context.Background(), config.MPQuery{}, nil)
	require.Error(t, err)
	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDatasetUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"data":[%s],"meta":{"total_doc":1}}`, docJSON)
	}))
	defer srv.Close()

	ctx := context.Background()
	env := dataset.Env{
		Config: &config.AppConfig{
			MP:    config.MPAPIConfig{BaseURL: srv.URL, APIKey: "k"},
			Store: config.StoreConfig{Backend: "memory", TTLHours: 1},
		},
		Store: store.NewMemoryStore(),
	}
	cfg := config.DatasetConfig{
		Type: config.TypeMP,
		MP:   &config.MPDatasetConfig{Type: config.TypeMP, Query: config.MPQuery{Elements: []string{"Si"}}},
	}

	ds, err := dataset.Open(ctx, env, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	require.NoError(t, ds.Close())

	// Second open must be served from the record store.
	ds, err = dataset.Open(ctx, env, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	require.NoError(t, ds.Close())

	assert.Equal(t, int32(1), calls.Load(), "second open should not hit the API")
}

func TestToAtomsDisorderedSite(t *testing.T) {
	var doc SummaryDoc
	require.NoError(t, json.Unmarshal([]byte(`{
		"material_id": "mp-x",
		"structure": {
			"lattice": {"matrix": [[1,0,0],[0,1,0],[0,0,1]]},
			"sites": [{"species": [{"element":"Fe","occu":0.3},{"element":"Ni","occu":0.7}], "xyz":[0,0,0]}]
		}
	}`), &doc))

	a, err := doc.ToAtoms()
	require.NoError(t, err)
	assert.Equal(t, []int{28}, a.Numbers, "dominant species wins")
}
