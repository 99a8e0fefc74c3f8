// Package matbench loads one fold of a Matbench benchmark task. Task files
// are the published dataframe JSON archives; they are downloaded once into
// the data directory and reused afterwards.
package matbench

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/metrics"
	"github.com/atomtune/atomtune/internal/mp"
)

// DownloadBase hosts the published task archives.
var DownloadBase = "https://ml.materialsproject.org/projects"

// NumFolds is fixed by the benchmark protocol.
const NumFolds = 5

func init() {
	dataset.RegisterOpener(config.TypeMatbench, openDataset)
}

// taskFile mirrors the dataframe JSON layout of a published task:
// index carries the mbids, data one [structure, value] pair per entry.
type taskFile struct {
	Index   []string          `json:"index"`
	Columns []string          `json:"columns"`
	Data    []json.RawMessage `json:"data"`
}

type entry struct {
	mbid      string
	structure *mp.Structure
	value     float64
}

func openDataset(ctx context.Context, env dataset.Env, cfg config.DatasetConfig) (dataset.Dataset, error) {
	c := cfg.Matbench
	logger := log.WithComponentFromContext(ctx, "matbench")

	dataDir := "data"
	if env.Config != nil {
		dataDir = env.Config.DataDir
	}
	path, err := ensureTaskFile(ctx, dataDir, c.TaskName)
	if err != nil {
		return nil, err
	}

	entries, prop, err := readTaskFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.PropertyName != "" {
		prop = c.PropertyName
	}

	fold := foldEntries(entries, c.FoldIdx)
	samples := make([]*atoms.Atoms, 0, len(fold))
	for _, e := range fold {
		a, err := mp.StructureToAtoms(e.structure)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.mbid, err)
		}
		a.Info = map[string]float64{prop: e.value}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.mbid, err)
		}
		samples = append(samples, a)
	}

	metrics.RecordsLoaded.WithLabelValues(config.TypeMatbench).Add(float64(len(samples)))
	logger.Info().
		Str("task", c.TaskName).
		Int("fold", c.FoldIdx).
		Str("property", prop).
		Int(log.FieldRecords, len(samples)).
		Msg("matbench fold loaded")
	return dataset.NewMemory(samples), nil
}

// ensureTaskFile returns the local task file path, downloading the archive
// on first use. The write is atomic so a crashed download never leaves a
// truncated file behind.
func ensureTaskFile(ctx context.Context, dataDir, task string) (string, error) {
	dir := filepath.Join(dataDir, "matbench")
	path := filepath.Join(dir, task+".json.gz")
	for _, p := range []string{path, filepath.Join(dir, task+".json")} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}

	u := DownloadBase + "/" + task + ".json.gz"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: 10 * time.Minute}
	start := time.Now()
	res, err := client.Do(req)
	if err != nil {
		metrics.FetchErrors.WithLabelValues("matbench").Inc()
		return "", fmt.Errorf("download %s: %w", u, err)
	}
	defer func() { _ = res.Body.Close() }()
	metrics.FetchDuration.WithLabelValues("matbench").Observe(time.Since(start).Seconds())

	if res.StatusCode != http.StatusOK {
		metrics.FetchErrors.WithLabelValues("matbench").Inc()
		return "", fmt.Errorf("download %s: status %d", u, res.StatusCode)
	}

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", u, err)
	}
	if err := renameio.WriteFile(path, buf, 0o640); err != nil {
		return "", err
	}
	return path, nil
}

func readTaskFile(path string) ([]entry, string, error) {
	f, err := os.Open(path) // #nosec G304 -- path is derived from the task name
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var tf taskFile
	if err := json.NewDecoder(r).Decode(&tf); err != nil {
		return nil, "", err
	}
	if len(tf.Index) != len(tf.Data) {
		return nil, "", fmt.Errorf("index holds %d mbids for %d data rows", len(tf.Index), len(tf.Data))
	}
	if len(tf.Columns) < 2 {
		return nil, "", fmt.Errorf("want at least 2 columns, got %d", len(tf.Columns))
	}
	prop := tf.Columns[len(tf.Columns)-1]

	entries := make([]entry, 0, len(tf.Data))
	for i, raw := range tf.Data {
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil {
			return nil, "", fmt.Errorf("row %d: %w", i, err)
		}
		if len(pair) != 2 {
			return nil, "", fmt.Errorf("row %d: want [structure, value], got %d elements", i, len(pair))
		}
		var s mp.Structure
		if err := json.Unmarshal(pair[0], &s); err != nil {
			return nil, "", fmt.Errorf("row %d structure: %w", i, err)
		}
		var v float64
		if err := json.Unmarshal(pair[1], &v); err != nil {
			return nil, "", fmt.Errorf("row %d value: %w", i, err)
		}
		entries = append(entries, entry{mbid: tf.Index[i], structure: &s, value: v})
	}
	return entries, prop, nil
}

// foldEntries selects the training entries of the given fold: entries are
// ordered by mbid and assigned to folds round-robin, and the fold's own
// members are held out.
func foldEntries(entries []entry, fold int) []entry {
	sorted := make([]entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].mbid < sorted[j].mbid })

	out := make([]entry, 0, len(sorted))
	for i, e := range sorted {
		if i%NumFolds == fold {
			continue
		}
		out = append(out, e)
	}
	return out
}
