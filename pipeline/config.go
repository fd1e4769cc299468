// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/protobench/protobench/crossrun"
	"github.com/protobench/protobench/cwfmt"
)

// Config fixes the cross product the orchestrator enumerates and the
// knobs of the reduction steps.
type Config struct {
	// Protocols, Scenarios and Services span the combinations to
	// process. A combination whose input directory is missing is
	// skipped with a warning.
	Protocols []string `yaml:"protocols"`
	Scenarios []string `yaml:"scenarios"`
	Services  []string `yaml:"services"`

	// OutlierThresholdMS is the structured-log latency (in
	// milliseconds) above which observations are discarded.
	OutlierThresholdMS float64 `yaml:"outlier_threshold_ms"`

	// Policies maps a metric kind name (cpu, memory, network_rx,
	// network_tx) to its cross-run aggregation policy.
	Policies map[string]crossrun.Policy `yaml:"policies"`

	// Parallelism bounds how many combinations are processed
	// concurrently. Values below 2 keep processing sequential.
	Parallelism int `yaml:"parallelism"`
}

// DefaultConfig returns the configuration matching the benchmark
// suite's layout: REST and gRPC under four load scenarios against
// four backend services.
func DefaultConfig() Config {
	policies := make(map[string]crossrun.Policy)
	for kind, p := range crossrun.DefaultPolicies() {
		policies[kind.String()] = p
	}
	return Config{
		Protocols:          []string{"rest", "grpc"},
		Scenarios:          []string{"average_load", "high_load", "spike", "breakpoint"},
		Services:           []string{"order", "payment", "product", "user"},
		OutlierThresholdMS: cwfmt.DefaultOutlierThresholdMS,
		Policies:           policies,
		Parallelism:        1,
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	known := make(map[string]bool)
	for _, kind := range crossrun.Kinds {
		known[kind.String()] = true
	}
	for name := range c.Policies {
		if !known[name] {
			return fmt.Errorf("policy for unknown metric kind %q", name)
		}
	}
	if c.OutlierThresholdMS <= 0 {
		return fmt.Errorf("outlier threshold must be positive, got %v", c.OutlierThresholdMS)
	}
	return nil
}

// policy returns the aggregation policy for kind, falling back to the
// default when the configuration does not name it.
func (c Config) policy(kind crossrun.MetricKind) crossrun.Policy {
	if p, ok := c.Policies[kind.String()]; ok {
		return p
	}
	return crossrun.DefaultPolicies()[kind]
}

// Combinations enumerates the protocol × scenario cross product in
// configuration order.
func (c Config) Combinations() []Combination {
	var combos []Combination
	for _, protocol := range c.Protocols {
		for _, scenario := range c.Scenarios {
			combos = append(combos, Combination{Protocol: protocol, Scenario: scenario})
		}
	}
	return combos
}
