// Package config holds the settings of one matching run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/melody"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type MatcherType string

const (
	MatcherSlidingWindow  MatcherType = "sliding_window"
	MatcherLocalAlignment MatcherType = "local_alignment"
	MatcherGeometric      MatcherType = "geometric"
)

type SubstitutionType string

const (
	SubstitutionIdentity        SubstitutionType = "identity"
	SubstitutionPitchDifference SubstitutionType = "pitch_difference"
	SubstitutionWeighted        SubstitutionType = "weighted" // needs one variance per feature
)

// Config configures a matching run.
type Config struct {
	Matcher         MatcherType     `json:"matcher"`
	Features        []string        `json:"features"`
	ReturnPositions bool            `json:"return_positions"`
	Scaling         float64         `json:"scaling"` // 0 or 1: native note-per-element curves
	Workers         int             `json:"workers"` // 0: NumCPU-1, at least 2
	FailFast        bool            `json:"fail_fast"`
	LogLevel        string          `json:"log_level"`
	Alignment       AlignmentConfig `json:"alignment"`
}

// AlignmentConfig holds the local-alignment parameters.
type AlignmentConfig struct {
	InsertionWeight float64          `json:"insertion_weight"`
	DeletionWeight  float64          `json:"deletion_weight"`
	Substitution    SubstitutionType `json:"substitution"`
	Variances       []float64        `json:"variances,omitempty"`
	MaxTies         int              `json:"max_ties"`
}

// Default returns a local-alignment run over pitch with positions.
func Default() *Config {
	return &Config{
		Matcher:         MatcherLocalAlignment,
		Features:        []string{string(melody.FeaturePitch)},
		ReturnPositions: true,
		Scaling:         1.0,
		Workers:         0,
		LogLevel:        "info",
		Alignment: AlignmentConfig{
			InsertionWeight: -0.5,
			DeletionWeight:  -0.5,
			Substitution:    SubstitutionIdentity,
			MaxTies:         5,
		},
	}
}

// Load reads a JSON file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParsedFeatures returns the feature selector in order.
func (c *Config) ParsedFeatures() ([]melody.Feature, error) {
	return melody.ParseFeatures(c.Features)
}

// WorkerCount resolves the auto worker count.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return max(runtime.NumCPU()-1, 2)
}

// Validate checks names, ranges and the variance count. Gap weights are not checked.
func (c *Config) Validate() error {
	switch c.Matcher {
	case MatcherSlidingWindow, MatcherGeometric:
		if len(c.Features) > 1 {
			return fmt.Errorf("%w: matcher %s takes a single feature, got %d", ErrInvalidConfig, c.Matcher, len(c.Features))
		}
	case MatcherLocalAlignment:
	default:
		return fmt.Errorf("%w: unknown matcher %q", ErrInvalidConfig, c.Matcher)
	}

	if _, err := c.ParsedFeatures(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Scaling < 0 {
		return fmt.Errorf("%w: scaling %v is negative", ErrInvalidConfig, c.Scaling)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d is negative", ErrInvalidConfig, c.Workers)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	a := c.Alignment
	if a.MaxTies < 1 {
		return fmt.Errorf("%w: max_ties %d must be at least 1", ErrInvalidConfig, a.MaxTies)
	}
	switch a.Substitution {
	case SubstitutionIdentity, SubstitutionPitchDifference:
	case SubstitutionWeighted:
		// empty variances are filled in from the corpus before the run
		if len(a.Variances) > 0 && len(a.Variances) != len(c.Features) {
			return fmt.Errorf("%w: %d variances for %d features", ErrInvalidConfig, len(a.Variances), len(c.Features))
		}
	default:
		return fmt.Errorf("%w: unknown substitution %q", ErrInvalidConfig, a.Substitution)
	}
	return nil
}
