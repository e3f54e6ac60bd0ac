package waterfall

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ThresholdConfig overrides the waterfall's strategy acceptance
// thresholds from spec.md §4.2. A zero value for either field means
// "not set" and falls back to the spec default.
type ThresholdConfig struct {
	HeuristicAccept float64 `yaml:"heuristic_accept"`
	ExternalAccept  float64 `yaml:"external_accept"`
}

// DefaultThresholds returns the spec-mandated acceptance gates.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{HeuristicAccept: heuristicAcceptThreshold, ExternalAccept: externalAcceptThreshold}
}

// LoadThresholdConfig reads threshold overrides from a standalone YAML
// file shaped like:
//
//	waterfall:
//	  heuristic_accept: 0.7
//	  external_accept: 0.6
//
// A missing file is not an error: deployments that never created one get
// the spec defaults. Mirrors the teacher's internal/waterfall/config.go
// LoadConfig, trimmed to the two thresholds this domain actually needs.
func LoadThresholdConfig(path string) (ThresholdConfig, error) {
	defaults := DefaultThresholds()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return ThresholdConfig{}, eris.Wrapf(err, "waterfall: read threshold config %s", path)
	}

	var wrapper struct {
		Waterfall ThresholdConfig `yaml:"waterfall"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return ThresholdConfig{}, eris.Wrap(err, "waterfall: parse threshold config")
	}

	cfg := wrapper.Waterfall
	if cfg.HeuristicAccept == 0 {
		cfg.HeuristicAccept = defaults.HeuristicAccept
	}
	if cfg.ExternalAccept == 0 {
		cfg.ExternalAccept = defaults.ExternalAccept
	}
	if err := cfg.Validate(); err != nil {
		return ThresholdConfig{}, eris.Wrap(err, "waterfall: invalid threshold config")
	}
	return cfg, nil
}

// Validate checks that both thresholds are valid confidence bounds.
func (c ThresholdConfig) Validate() error {
	if c.HeuristicAccept < 0 || c.HeuristicAccept > 1 {
		return eris.Newf("waterfall: heuristic_accept must be within [0,1], got %f", c.HeuristicAccept)
	}
	if c.ExternalAccept < 0 || c.ExternalAccept > 1 {
		return eris.Newf("waterfall: external_accept must be within [0,1], got %f", c.ExternalAccept)
	}
	return nil
}
