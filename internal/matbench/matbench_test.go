package matbench

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/store"
)

func structureJSON(element string) json.RawMessage {
	s := fmt.Sprintf(`{
		"lattice": {"matrix": [[4.0, 0, 0], [0, 4.0, 0], [0, 0, 4.0]]},
		"sites": [{"species": [{"element": %q, "occu": 1.0}], "xyz": [0, 0, 0]}]
	}`, element)
	return json.RawMessage(s)
}

// taskJSON builds a seven entry task file. Mbids are written out of order
// to exercise the sort before fold assignment.
func taskJSON(t *testing.T, property string) []byte {
	t.Helper()
	tf := taskFile{
		Columns: []string{"structure", property},
	}
	for _, i := range []int{3, 1, 7, 2, 5, 4, 6} {
		tf.Index = append(tf.Index, fmt.Sprintf("mb-%03d", i))
		row, err := json.Marshal([]json.RawMessage{
			structureJSON("Si"),
			json.RawMessage(fmt.Sprintf("%d.5", i)),
		})
		require.NoError(t, err)
		tf.Data = append(tf.Data, row)
	}
	buf, err := json.Marshal(tf)
	require.NoError(t, err)
	return buf
}

func gzipBytes(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func openTask(t *testing.T, dataDir string, c config.MatbenchDatasetConfig) (dataset.Dataset, error) {
	t.Helper()
	c.Type = config.TypeMatbench
	env := dataset.Env{
		Config: &config.AppConfig{DataDir: dataDir},
		Store:  store.NewMemoryStore(),
	}
	return dataset.Open(context.Background(), env, config.DatasetConfig{
		Type:     config.TypeMatbench,
		Matbench: &c,
	})
}

func TestOpenLocalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "matbench"), 0o750))
	path := filepath.Join(dir, "matbench", "matbench_mp_gap.json")
	require.NoError(t, os.WriteFile(path, taskJSON(t, "gap"), 0o640))

	ds, err := openTask(t, dir, config.MatbenchDatasetConfig{
		TaskName: "matbench_mp_gap",
		FoldIdx:  0,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, ds.Close()) }()

	// Sorted mbids are mb-001..mb-007; fold 0 holds out positions 0 and 5,
	// so mb-001 and mb-006 are excluded from the training entries.
	require.Equal(t, 5, ds.Len())
	wantValues := []float64{2.5, 3.5, 4.5, 5.5, 7.5}
	for i, want := range wantValues {
		a, err := ds.Get(context.Background(), i)
		require.NoError(t, err)
		require.Equal(t, []int{14}, a.Numbers)
		require.Equal(t, [3]bool{true, true, true}, a.PBC)
		require.Equal(t, want, a.Info["gap"])
	}
}

func TestOpenGzipFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "matbench"), 0o750))
	path := filepath.Join(dir, "matbench", "matbench_dielectric.json.gz")
	require.NoError(t, os.WriteFile(path, gzipBytes(t, taskJSON(t, "n")), 0o640))

	ds, err := openTask(t, dir, config.MatbenchDatasetConfig{
		TaskName: "matbench_dielectric",
		FoldIdx:  4,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, ds.Close()) }()

	// Fold 4 holds out position 4 only, leaving six training entries.
	require.Equal(t, 6, ds.Len())
	a, err := ds.Get(context.Background(), 0)
	require.NoError(t, err)
	require.Contains(t, a.Info, "n")
}

func TestPropertyNameOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "matbench"), 0o750))
	path := filepath.Join(dir, "matbench", "matbench_mp_gap.json")
	require.NoError(t, os.WriteFile(path, taskJSON(t, "gap"), 0o640))

	ds, err := openTask(t, dir, config.MatbenchDatasetConfig{
		TaskName:     "matbench_mp_gap",
		PropertyName: "band_gap",
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, ds.Close()) }()

	a, err := ds.Get(context.Background(), 0)
	require.NoError(t, err)
	require.Contains(t, a.Info, "band_gap")
	require.NotContains(t, a.Info, "gap")
}

func TestDownloadsOnce(t *testing.T) {
	var hits atomic.Int64
	payload := gzipBytes(t, taskJSON(t, "gap"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "/matbench_mp_gap.json.gz", r.URL.Path)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	orig := DownloadBase
	DownloadBase = srv.URL
	defer func() { DownloadBase = orig }()

	dir := t.TempDir()
	cfg := config.MatbenchDatasetConfig{TaskName: "matbench_mp_gap", FoldIdx: 1}

	for range 2 {
		ds, err := openTask(t, dir, cfg)
		require.NoError(t, err)
		require.Equal(t, 5, ds.Len())
		require.NoError(t, ds.Close())
	}
	require.Equal(t, int64(1), hits.Load(), "second open should reuse the downloaded file")

	_, err := os.Stat(filepath.Join(dir, "matbench", "matbench_mp_gap.json.gz"))
	require.NoError(t, err)
}

func TestDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such project", http.StatusNotFound)
	}))
	defer srv.Close()

	orig := DownloadBase
	DownloadBase = srv.URL
	defer func() { DownloadBase = orig }()

	_, err := openTask(t, t.TempDir(), config.MatbenchDatasetConfig{TaskName: "nope"})
	require.ErrorContains(t, err, "status 404")
}

func TestMalformedTaskFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "matbench"), 0o750))
	path := filepath.Join(dir, "matbench", "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"index": ["a"], "columns": ["structure", "v"], "data": []}`), 0o640))

	_, err := openTask(t, dir, config.MatbenchDatasetConfig{TaskName: "bad"})
	require.ErrorContains(t, err, "1 mbids for 0 data rows")
}
