// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/protobench/protobench/crossrun"
)

// A Combination identifies one test condition: a protocol exercised
// under a load scenario.
type Combination struct {
	Protocol string
	Scenario string
}

// DirName is the scenario directory name used by the benchmark
// harness, e.g. "grpc:spike".
func (c Combination) DirName() string {
	return c.Protocol + ":" + c.Scenario
}

func (c Combination) String() string {
	return c.DirName()
}

// Output file names written per scenario directory.
const (
	k6OutputFile      = "k6_metrics.json"
	logsOutputFile    = "cloudwatch_logs_metrics.json"
	metricsOutputFile = "cloudwatch_metrics.json"
)

// k6RunFiles lists a scenario directory's per-run k6 summary files,
// in lexical order.
func k6RunFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "results_*_run_*.json"))
}

// serviceLogFiles lists a service's per-run structured-log exports
// within a scenario directory.
func serviceLogFiles(dir, service string) ([]string, error) {
	pattern := fmt.Sprintf("run_*_%s_cloudwatch_logs.json", service)
	return filepath.Glob(filepath.Join(dir, service, pattern))
}

// serviceSeriesFiles lists a service's per-run time-series exports of
// one metric kind within a scenario directory.
func serviceSeriesFiles(dir, service string, kind crossrun.MetricKind) ([]string, error) {
	pattern := fmt.Sprintf("run_*_%s_%s_metrics.json", service, kind.FileToken())
	return filepath.Glob(filepath.Join(dir, service, pattern))
}
