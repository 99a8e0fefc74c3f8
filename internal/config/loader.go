package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}

	// 1. Set defaults
	setDefaults(&cfg)

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	// 3. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)

	// Ensure DataDir is absolute to keep cache paths stable across cwd changes
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}

	// 4. Validate the resolved config
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(cfg *AppConfig) {
	cfg.LogLevel = "info"
	cfg.DataDir = "data"
	cfg.Listen = ":8080"
	cfg.Store = StoreConfig{Backend: "memory", TTLHours: 24}
	cfg.MP = MPAPIConfig{BaseURL: "https://api.materialsproject.org"}
	cfg.HF = HFConfig{BaseURL: "https://datasets-server.huggingface.co"}
	cfg.Module = DataModuleConfig{
		TrainSplit: 0.9,
		BatchSize:  32,
		NumWorkers: 4,
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator flags
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file is valid: defaults apply
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, err
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, file *FileConfig) {
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.DataDir != "" {
		cfg.DataDir = file.DataDir
	}
	if file.Listen != "" {
		cfg.Listen = file.Listen
	}
	if file.Store != nil {
		if file.Store.Backend != "" {
			cfg.Store.Backend = file.Store.Backend
		}
		if file.Store.Path != "" {
			cfg.Store.Path = file.Store.Path
		}
		if file.Store.RedisAddr != "" {
			cfg.Store.RedisAddr = file.Store.RedisAddr
		}
		if file.Store.TTLHours != nil {
			cfg.Store.TTLHours = *file.Store.TTLHours
		}
	}
	if file.MP != nil {
		if file.MP.BaseURL != "" {
			cfg.MP.BaseURL = file.MP.BaseURL
		}
		if file.MP.APIKey != "" {
			cfg.MP.APIKey = file.MP.APIKey
		}
	}
	if file.HF != nil && file.HF.BaseURL != "" {
		cfg.HF.BaseURL = file.HF.BaseURL
	}
	if file.Module != nil {
		if file.Module.TrainSplit != 0 {
			cfg.Module.TrainSplit = file.Module.TrainSplit
		}
		if file.Module.ShuffleSeed != nil {
			cfg.Module.ShuffleSeed = *file.Module.ShuffleSeed
		}
		if file.Module.BatchSize != 0 {
			cfg.Module.BatchSize = file.Module.BatchSize
		}
		if file.Module.NumWorkers != 0 {
			cfg.Module.NumWorkers = file.Module.NumWorkers
		}
	}
	if len(file.Datasets) > 0 {
		cfg.Datasets = file.Datasets
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.Listen = l.envString(EnvListen, cfg.Listen)
	cfg.MP.APIKey = l.envString(EnvMPAPIKey, cfg.MP.APIKey)
	cfg.MP.BaseURL = l.envString(EnvMPBaseURL, cfg.MP.BaseURL)
	cfg.HF.BaseURL = l.envString(EnvHFBaseURL, cfg.HF.BaseURL)
	cfg.Store.Backend = l.envString(EnvStoreBackend, cfg.Store.Backend)
	cfg.Store.Path = l.envString(EnvStorePath, cfg.Store.Path)
	cfg.Store.RedisAddr = l.envString(EnvRedisAddr, cfg.Store.RedisAddr)
}
