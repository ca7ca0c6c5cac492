// Package simulate produces the synthetic two-arm trial dataset.
package simulate

import (
	"errors"
	"fmt"
	"math"

	"trialviz/pkg/domain"
)

// Defaults reproduce the reference dataset.
const (
	DefaultSeed         int64   = 1234
	DefaultSubjects             = 70
	DefaultBaselineMean float64 = 50
	DefaultBaselineSD   float64 = 15
)

// Normal parameterises a normal distribution.
type Normal struct {
	Mean float64 `yaml:"mean" json:"mean"`
	SD   float64 `yaml:"sd" json:"sd"`
}

// Config controls dataset generation.
type Config struct {
	Seed         int64
	Subjects     int
	BaselineMean float64
	BaselineSD   float64
	// Multipliers holds the per-arm distribution of post/baseline.
	Multipliers map[domain.Group]Normal
}

// DefaultMultipliers returns the reference per-arm multiplier distributions.
func DefaultMultipliers() map[domain.Group]Normal {
	return map[domain.Group]Normal{
		domain.GroupA: {Mean: 1.05, SD: 0.15},
		domain.GroupB: {Mean: 1.25, SD: 0.15},
	}
}

// DefaultConfig returns the reference configuration (seed 1234, 70 subjects).
func DefaultConfig() Config {
	return Config{
		Seed:         DefaultSeed,
		Subjects:     DefaultSubjects,
		BaselineMean: DefaultBaselineMean,
		BaselineSD:   DefaultBaselineSD,
		Multipliers:  DefaultMultipliers(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Subjects < 2 {
		errs = append(errs, fmt.Errorf("subjects must be >= 2, got %d", c.Subjects))
	}
	if c.BaselineSD < 0 || math.IsNaN(c.BaselineSD) {
		errs = append(errs, fmt.Errorf("baseline sd must be >= 0, got %v", c.BaselineSD))
	}
	for group, dist := range c.Multipliers {
		if !group.Valid() {
			errs = append(errs, fmt.Errorf("multiplier for unknown group %q", group))
		}
		if dist.SD < 0 || math.IsNaN(dist.SD) {
			errs = append(errs, fmt.Errorf("multiplier sd for group %s must be >= 0", group))
		}
	}
	for _, group := range domain.Groups {
		if _, ok := c.Multipliers[group]; !ok {
			errs = append(errs, fmt.Errorf("missing multiplier for group %s", group))
		}
	}
	return errors.Join(errs...)
}

// GroupFor returns the arm of the subject at index i: the first ceil(n/2)
// subjects are A, the rest B.
func GroupFor(i, n int) domain.Group {
	if i < (n+1)/2 {
		return domain.GroupA
	}
	return domain.GroupB
}

// Generate builds the wide table. All baselines are drawn first, then all
// multipliers, both in subject order.
func Generate(cfg Config) (domain.WideTable, error) {
	if err := cfg.Validate(); err != nil {
		return domain.WideTable{}, fmt.Errorf("simulate: %w", err)
	}
	rng := newNormalSource(cfg.Seed)

	baselines := make([]float64, cfg.Subjects)
	for i := range baselines {
		raw := rng.normal(cfg.BaselineMean, cfg.BaselineSD)
		baselines[i] = math.Round(math.Max(raw, 0))
	}

	subjects := make([]domain.Subject, cfg.Subjects)
	for i := range subjects {
		group := GroupFor(i, cfg.Subjects)
		dist := cfg.Multipliers[group]
		multiplier := rng.normal(dist.Mean, dist.SD)
		subjects[i] = domain.Subject{
			ID:       i + 1,
			Group:    group,
			Baseline: baselines[i],
			Post:     baselines[i] * multiplier,
		}
	}
	return domain.WideTable{Subjects: subjects}, nil
}
