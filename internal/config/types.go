package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Dataset type discriminators.
const (
	TypeXYZ      = "xyz"
	TypeDB       = "db"
	TypeMP       = "mp"
	TypeMPTraj   = "mptraj"
	TypeMatbench = "matbench"
	TypeOMAT24   = "omat24"
	TypeJSON     = "json"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	LogLevel string
	DataDir  string // scratch directory for downloads and on-disk caches
	Listen   string // inspection server bind address

	Store    StoreConfig
	MP       MPAPIConfig
	HF       HFConfig
	Module   DataModuleConfig
	Datasets map[string]DatasetConfig
}

// FileConfig represents the YAML configuration structure. Fields whose zero
// value is meaningful (ttlHours, shuffleSeed) are pointers so an explicit
// zero in the file is distinguishable from the field being absent.
type FileConfig struct {
	LogLevel string `yaml:"logLevel,omitempty"`
	DataDir  string `yaml:"dataDir,omitempty"`
	Listen   string `yaml:"listen,omitempty"`

	Store    *FileStoreConfig         `yaml:"store,omitempty"`
	MP       *MPAPIConfig             `yaml:"mp,omitempty"`
	HF       *HFConfig                `yaml:"hf,omitempty"`
	Module   *FileModuleConfig        `yaml:"module,omitempty"`
	Datasets map[string]DatasetConfig `yaml:"datasets,omitempty"`
}

// FileStoreConfig is the YAML form of StoreConfig. ttlHours: 0 disables
// expiry, so presence matters.
type FileStoreConfig struct {
	Backend   string `yaml:"backend,omitempty"`
	Path      string `yaml:"path,omitempty"`
	RedisAddr string `yaml:"redisAddr,omitempty"`
	TTLHours  *int   `yaml:"ttlHours,omitempty"`
}

// FileModuleConfig is the YAML form of DataModuleConfig. shuffleSeed: 0 is a
// valid deterministic seed, so presence matters.
type FileModuleConfig struct {
	TrainSplit  float64 `yaml:"trainSplit,omitempty"`
	ShuffleSeed *int64  `yaml:"shuffleSeed,omitempty"`
	BatchSize   int     `yaml:"batchSize,omitempty"`
	NumWorkers  int     `yaml:"numWorkers,omitempty"`
}

// StoreConfig selects the record cache backend for remote datasets.
type StoreConfig struct {
	Backend   string `yaml:"backend,omitempty"` // memory | badger | redis
	Path      string `yaml:"path,omitempty"`    // badger directory
	RedisAddr string `yaml:"redisAddr,omitempty"`
	TTLHours  int    `yaml:"ttlHours,omitempty"`
}

// MPAPIConfig holds Materials Project API access settings.
type MPAPIConfig struct {
	BaseURL string `yaml:"baseURL,omitempty"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

// HFConfig holds HuggingFace datasets-server access settings.
type HFConfig struct {
	BaseURL string `yaml:"baseURL,omitempty"`
}

// DataModuleConfig wraps one dataset with train/validation splitting and
// batched iteration.
type DataModuleConfig struct {
	TrainSplit  float64 `yaml:"trainSplit,omitempty"` // fraction in (0,1]
	ShuffleSeed int64   `yaml:"shuffleSeed,omitempty"`
	BatchSize   int     `yaml:"batchSize,omitempty"`
	NumWorkers  int     `yaml:"numWorkers,omitempty"`
}

// DatasetConfig is a tagged union over the concrete dataset configurations.
// Exactly one of the pointer fields is non-nil after decoding, selected by
// the `type` discriminator.
type DatasetConfig struct {
	Type string

	XYZ      *XYZDatasetConfig
	DB       *DBDatasetConfig
	MP       *MPDatasetConfig
	MPTraj   *MPTrajDatasetConfig
	Matbench *MatbenchDatasetConfig
	OMAT24   *OMAT24DatasetConfig
	JSON     *JSONDatasetConfig
}

// XYZDatasetConfig reads structures from an (ext)xyz file.
type XYZDatasetConfig struct {
	Type      string `yaml:"type"`
	Src       string `yaml:"src"`
	EnergyKey string `yaml:"energyKey,omitempty"`
	ForcesKey string `yaml:"forcesKey,omitempty"`
	StressKey string `yaml:"stressKey,omitempty"`
}

// DBDatasetConfig reads structures from an ASE SQLite database.
type DBDatasetConfig struct {
	Type            string `yaml:"type"`
	Src             string `yaml:"src"`
	EnergyKey       string `yaml:"energyKey,omitempty"`
	ForcesKey       string `yaml:"forcesKey,omitempty"`
	StressKey       string `yaml:"stressKey,omitempty"`
	PreloadToMemory bool   `yaml:"preloadToMemory,omitempty"`
}

// MPQuery is passed through to the Materials Project summary endpoint.
type MPQuery struct {
	Elements   []string `yaml:"elements,omitempty"`
	NumElems   []int    `yaml:"numElements,omitempty"`
	BandGapMin *float64 `yaml:"bandGapMin,omitempty"`
	BandGapMax *float64 `yaml:"bandGapMax,omitempty"`
	IsStable   *bool    `yaml:"isStable,omitempty"`
}

// MPDatasetConfig queries the Materials Project API.
type MPDatasetConfig struct {
	Type   string   `yaml:"type"`
	Query  MPQuery  `yaml:"query"`
	Fields []string `yaml:"fields,omitempty"`
}

// MPTrajDatasetConfig streams the MPTraj relaxation-trajectory dataset.
type MPTrajDatasetConfig struct {
	Type        string   `yaml:"type"`
	Split       string   `yaml:"split,omitempty"` // train | val | test
	MinNumAtoms *int     `yaml:"minNumAtoms,omitempty"`
	MaxNumAtoms *int     `yaml:"maxNumAtoms,omitempty"`
	Elements    []string `yaml:"elements,omitempty"`
}

// MatbenchDatasetConfig loads one fold of a Matbench benchmark task.
type MatbenchDatasetConfig struct {
	Type         string `yaml:"type"`
	TaskName     string `yaml:"taskName"`
	PropertyName string `yaml:"propertyName,omitempty"`
	FoldIdx      int    `yaml:"foldIdx,omitempty"`
}

// OMAT24DatasetConfig reads a directory of ASE database shards.
type OMAT24DatasetConfig struct {
	Type    string `yaml:"type"`
	SrcPath string `yaml:"srcPath"`
}

// JSONDatasetConfig reads structures from a JSON records file. Tasks maps
// logical property names to JSON keys.
type JSONDatasetConfig struct {
	Type  string            `yaml:"type"`
	Src   string            `yaml:"src"`
	Tasks map[string]string `yaml:"tasks,omitempty"`
}

// UnmarshalYAML decodes the dataset block into the concrete config selected
// by the `type` discriminator.
func (d *DatasetConfig) UnmarshalYAML(node *yaml.Node) error {
	var probe struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&probe); err != nil {
		return err
	}
	d.Type = probe.Type

	switch probe.Type {
	case TypeXYZ:
		var c XYZDatasetConfig
		if err := node.Decode(&c); err != nil {
			return err
		}
		d.XYZ = &c
	case TypeDB:
		var c DBDatasetConfig
		if err := node.Decode(&c); err != nil {
			return err
		}
		d.DB = &c
	case TypeMP:
		var c MPDatasetConfig
		if err := node.Decode(&c); err != nil {
			return err
		}
		d.MP = &c
	case TypeMPTraj:
		var c MPTrajDatasetConfig
		if err := node.Decode(&c); err != nil {
			return err
		}
		d.MPTraj = &c
	case TypeMatbench:
		var c MatbenchDatasetConfig
		if err := node.Decode(&c); err != nil {
			return err
		}
		d.Matbench = &c
	case TypeOMAT24:
		var c OMAT24DatasetConfig
		if err := node.Decode(&c); err != nil {
			return err
		}
		d.OMAT24 = &c
	case TypeJSON:
		var c JSONDatasetConfig
		if err := node.Decode(&c); err != nil {
			return err
		}
		d.JSON = &c
	case "":
		return fmt.Errorf("%w: dataset block without a type field", ErrUnknownDatasetType)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDatasetType, probe.Type)
	}
	return nil
}

// MarshalYAML emits the concrete config so round-tripped files stay flat.
func (d DatasetConfig) MarshalYAML() (any, error) {
	switch d.Type {
	case TypeXYZ:
		return d.XYZ, nil
	case TypeDB:
		return d.DB, nil
	case TypeMP:
		return d.MP, nil
	case TypeMPTraj:
		return d.MPTraj, nil
	case TypeMatbench:
		return d.Matbench, nil
	case TypeOMAT24:
		return d.OMAT24, nil
	case TypeJSON:
		return d.JSON, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDatasetType, d.Type)
}
