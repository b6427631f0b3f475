package gtfsstrip

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FeedConfig describes one feed of a run. It is not modified while the feed runs.
type FeedConfig struct {
	ID      string `yaml:"id" toml:"id" validate:"required,excludesall=/\\"`
	Archive string `yaml:"archive" toml:"archive"` // <data dir>/gtfs/gtfs-<id>.zip if empty
	Output  string `yaml:"output" toml:"output"`   // <data dir>/gtfs/gtfs-<id>.sqlite if empty

	// Routes restricts the feed to these route ids. Empty keeps every route.
	Routes []string `yaml:"routes" toml:"routes" validate:"dive,required"`

	AgencyRemap map[string]string            `yaml:"agency_remap" toml:"agency_remap"`
	RouteRemap  map[string]string            `yaml:"route_remap" toml:"route_remap"`
	FieldRemaps map[string]map[string]string `yaml:"field_remaps" toml:"field_remaps"`
}

// Remap merges the feed's remap tables. AgencyRemap and RouteRemap win over
// FieldRemaps entries for agency_id and route_id.
func (f FeedConfig) Remap() Remap {
	remap := make(Remap, len(f.FieldRemaps)+2)
	for field, substitutes := range f.FieldRemaps {
		remap[field] = maps.Clone(substitutes)
	}
	if len(f.AgencyRemap) > 0 {
		remap["agency_id"] = mergeSubstitutes(remap["agency_id"], f.AgencyRemap)
	}
	if len(f.RouteRemap) > 0 {
		remap["route_id"] = mergeSubstitutes(remap["route_id"], f.RouteRemap)
	}
	return remap
}

func mergeSubstitutes(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

// InitialFilter is the filter the first table of the feed is read with.
func (f FeedConfig) InitialFilter() FilterSet {
	if len(f.Routes) == 0 {
		return NewFilterSet()
	}
	return NewFilterSet().With("route_id", f.Routes...)
}

func (f FeedConfig) withDefaults(dataDir string) FeedConfig {
	if f.Archive == "" {
		f.Archive = filepath.Join(dataDir, "gtfs", fmt.Sprintf("gtfs-%s.zip", f.ID))
	}
	if f.Output == "" {
		f.Output = filepath.Join(dataDir, "gtfs", fmt.Sprintf("gtfs-%s.sqlite", f.ID))
	}
	return f
}

// Config is the file form of a run: runner settings and the feeds to convert.
type Config struct {
	DataDir     string       `yaml:"data_dir" toml:"data_dir"`
	Parallelism int          `yaml:"parallelism" toml:"parallelism" validate:"gte=0"`
	BatchSize   int          `yaml:"batch_size" toml:"batch_size" validate:"gte=0"`
	Feeds       []FeedConfig `yaml:"feeds" toml:"feeds" validate:"required,min=1,unique=ID,dive"`
}

const DefaultDataDir = "data"

// LoadConfig reads a YAML or TOML (by .toml extension) config file and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// RunnerConfig returns the runner settings of c, leaving collaborators at their defaults.
func (c *Config) RunnerConfig() RunnerConfig {
	return RunnerConfig{
		DataDir:     c.DataDir,
		Parallelism: c.Parallelism,
		BatchSize:   c.BatchSize,
	}
}
