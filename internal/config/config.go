// Package config loads trialviz settings. Defaults come first, an optional
// YAML file is layered on top and TRIALVIZ_* environment variables win.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"trialviz/internal/blob"
	"trialviz/internal/chart"
	"trialviz/internal/logging"
	"trialviz/internal/simulate"
	"trialviz/pkg/domain"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "TRIALVIZ"

// Archive drivers.
const (
	ArchiveNone     = "none"
	ArchiveSQLite   = "sqlite"
	ArchivePostgres = "postgres"
)

// Config is the full application configuration.
type Config struct {
	Generator GeneratorConfig `yaml:"generator" envconfig:"GENERATOR"`
	Blob      blob.Config     `yaml:"blob" envconfig:"BLOB"`
	Archive   ArchiveConfig   `yaml:"archive" envconfig:"ARCHIVE"`
	Render    RenderConfig    `yaml:"render" envconfig:"RENDER"`
	Logging   logging.Config  `yaml:"logging" envconfig:"LOG"`
	Metrics   MetricsConfig   `yaml:"metrics" envconfig:"METRICS"`
}

// GeneratorConfig mirrors simulate.Config with file and env friendly names.
type GeneratorConfig struct {
	Seed         int64   `yaml:"seed" envconfig:"SEED"`
	Subjects     int     `yaml:"subjects" envconfig:"SUBJECTS" validate:"min=2"`
	BaselineMean float64 `yaml:"baseline_mean" envconfig:"BASELINE_MEAN"`
	BaselineSD   float64 `yaml:"baseline_sd" envconfig:"BASELINE_SD" validate:"gte=0"`
	// Multipliers is keyed by arm label. It is only settable from YAML.
	Multipliers map[string]simulate.Normal `yaml:"multipliers" ignored:"true"`
}

// ArchiveConfig selects the SQL sink for completed runs.
type ArchiveConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER" validate:"oneof=none sqlite postgres"`
	DSN    string `yaml:"dsn" envconfig:"DSN" validate:"required_if=Driver postgres"`
}

// RenderConfig sets the canvas for rendered figures.
type RenderConfig struct {
	Width  int    `yaml:"width" envconfig:"WIDTH" validate:"min=100"`
	Height int    `yaml:"height" envconfig:"HEIGHT" validate:"min=100"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=png svg"`
}

// MetricsConfig names the Prometheus textfile written after a run.
type MetricsConfig struct {
	File string `yaml:"file" envconfig:"FILE"`
}

// Default returns the reference configuration.
func Default() Config {
	sim := simulate.DefaultConfig()
	multipliers := make(map[string]simulate.Normal, len(sim.Multipliers))
	for group, dist := range sim.Multipliers {
		multipliers[string(group)] = dist
	}
	return Config{
		Generator: GeneratorConfig{
			Seed:         sim.Seed,
			Subjects:     sim.Subjects,
			BaselineMean: sim.BaselineMean,
			BaselineSD:   sim.BaselineSD,
			Multipliers:  multipliers,
		},
		Blob:    blob.Config{Driver: string(blob.DriverFilesystem)},
		Archive: ArchiveConfig{Driver: ArchiveNone},
		Render:  RenderConfig{Width: chart.DefaultWidth, Height: chart.DefaultHeight, Format: "png"},
		Logging: logging.Default(),
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	// An empty file leaves the defaults in place.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports every invalid field, named by its YAML path.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return c.Generator.Simulate().Validate()
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Simulate converts the section into generator parameters.
func (g GeneratorConfig) Simulate() simulate.Config {
	multipliers := make(map[domain.Group]simulate.Normal, len(g.Multipliers))
	for label, dist := range g.Multipliers {
		multipliers[domain.Group(strings.TrimSpace(label))] = dist
	}
	return simulate.Config{
		Seed:         g.Seed,
		Subjects:     g.Subjects,
		BaselineMean: g.BaselineMean,
		BaselineSD:   g.BaselineSD,
		Multipliers:  multipliers,
	}
}
