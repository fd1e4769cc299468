// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline drives the extraction of comparable aggregate
// statistics from a tree of benchmark artifacts.
//
// The input tree contains one directory per protocol × scenario
// combination (named "{protocol}:{scenario}"), holding per-run k6
// summary files and per-service subdirectories of CloudWatch exports.
// For every combination the pipeline parses each artifact, reduces
// latency samples, collapses repeated runs, and writes one nested
// result per scenario directory under the output root. Every run is a
// pure batch transform of the files present at invocation time.
//
// All per-file errors are contained at the file level: a missing or
// malformed artifact is logged and skipped and never aborts sibling
// files, services or combinations.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/protobench/protobench/crossrun"
	"github.com/protobench/protobench/cwfmt"
	"github.com/protobench/protobench/k6fmt"
	"github.com/protobench/protobench/latmath"
)

// A Pipeline extracts and aggregates benchmark artifacts according to
// its configuration.
type Pipeline struct {
	cfg Config
	log zerolog.Logger
}

// New returns a Pipeline with the given configuration and logger.
func New(cfg Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, log: log}
}

// Counts tallies file outcomes for operator visibility.
type Counts struct {
	Processed int
	Skipped   int
}

func (c *Counts) add(other Counts) {
	c.Processed += other.Processed
	c.Skipped += other.Skipped
}

// A ScenarioResult is the pipeline's output for one combination:
// the averaged k6 record, per-service latency stats by operation,
// and per-service infrastructure summaries by metric-kind key.
type ScenarioResult struct {
	Combination Combination
	K6          map[string]float64
	Latency     map[string]map[cwfmt.Operation]latmath.Stats
	Infra       map[string]map[string]crossrun.Summary
	Counts      Counts
}

// Run processes every configured combination found under resultsDir
// and, if outDir is non-empty, writes each combination's output files
// beneath it. Combinations are independent, so they are processed
// concurrently when the configured parallelism allows; missing
// scenario directories are skipped with a warning. The returned slice
// holds the processed combinations in configuration order.
func (p *Pipeline) Run(resultsDir, outDir string) ([]*ScenarioResult, error) {
	info, err := os.Stat(resultsDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", resultsDir)
	}
	combos := p.cfg.Combinations()
	results := make([]*ScenarioResult, len(combos))

	limit := p.cfg.Parallelism
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, combo := range combos {
		g.Go(func() error {
			dir := filepath.Join(resultsDir, combo.DirName())
			if _, err := os.Stat(dir); err != nil {
				p.log.Warn().Str("combination", combo.String()).Str("dir", dir).
					Msg("scenario directory not found, skipping")
				return nil
			}
			res := p.processCombination(dir, combo)
			if outDir != "" {
				if err := p.writeOutputs(outDir, res); err != nil {
					return err
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	processed := results[:0]
	for _, res := range results {
		if res != nil {
			processed = append(processed, res)
		}
	}
	return processed, nil
}

func (p *Pipeline) processCombination(dir string, combo Combination) *ScenarioResult {
	res := &ScenarioResult{
		Combination: combo,
		Latency:     make(map[string]map[cwfmt.Operation]latmath.Stats),
		Infra:       make(map[string]map[string]crossrun.Summary),
	}

	k6, counts := p.AggregateK6(dir)
	res.K6 = k6
	res.Counts.add(counts)

	for _, service := range p.cfg.Services {
		if _, err := os.Stat(filepath.Join(dir, service)); err != nil {
			p.log.Warn().Str("combination", combo.String()).Str("service", service).
				Msg("service directory not found, skipping")
			continue
		}

		latency, counts := p.LatencyForService(dir, service)
		res.Counts.add(counts)
		if len(latency) > 0 {
			res.Latency[service] = latency
		}

		infra, counts := p.InfraForService(dir, service)
		res.Counts.add(counts)
		if len(infra) > 0 {
			res.Infra[service] = infra
		}
	}

	p.log.Info().Str("combination", combo.String()).
		Int("processed", res.Counts.Processed).
		Int("skipped", res.Counts.Skipped).
		Msg("combination done")
	return res
}

// AggregateK6 parses every per-run k6 summary in dir and collapses
// them into one averaged record. It returns nil when no run yields a
// usable record.
func (p *Pipeline) AggregateK6(dir string) (map[string]float64, Counts) {
	var counts Counts
	files, _ := k6RunFiles(dir)
	var records []map[string]float64
	for _, path := range files {
		m, _, err := k6fmt.ReadFile(path)
		if err != nil {
			p.log.Warn().Err(err).Str("file", path).Msg("skipping k6 summary")
			counts.Skipped++
			continue
		}
		if len(m) == 0 {
			p.log.Warn().Str("file", path).Msg("k6 summary has no extractable metrics")
			counts.Skipped++
			continue
		}
		records = append(records, m)
		counts.Processed++
	}

	avg, err := crossrun.Average(records)
	if err != nil {
		if errors.Is(err, crossrun.ErrEmptyInput) {
			p.log.Warn().Str("dir", dir).Msg("no k6 metrics extracted")
		}
		return nil, counts
	}
	return avg, counts
}

// LatencyForService pools the latency observations of a service's
// per-run structured-log exports and reduces each non-empty operation
// bucket to its summary statistics. Pooling across runs makes
// total_requests the sum of valid observations over all runs.
func (p *Pipeline) LatencyForService(dir, service string) (map[cwfmt.Operation]latmath.Stats, Counts) {
	var counts Counts
	files, _ := serviceLogFiles(dir, service)
	pooled := make(map[cwfmt.Operation][]float64)
	for _, path := range files {
		buckets, err := cwfmt.ReadLogFile(path, p.cfg.OutlierThresholdMS, p.log)
		if err != nil {
			p.log.Warn().Err(err).Str("file", path).Msg("skipping log export")
			counts.Skipped++
			continue
		}
		total := 0
		for op, values := range buckets {
			pooled[op] = append(pooled[op], values...)
			total += len(values)
		}
		if total == 0 {
			p.log.Warn().Str("file", path).Msg("no valid latency data in log export")
			counts.Skipped++
			continue
		}
		counts.Processed++
	}

	stats := make(map[cwfmt.Operation]latmath.Stats)
	for op, values := range pooled {
		if st, ok := latmath.NewSample(values).Summary(); ok {
			stats[op] = st
		}
	}
	return stats, counts
}

// LatencyByService reduces the structured-log exports of every
// configured service under one scenario directory.
func (p *Pipeline) LatencyByService(dir string) (map[string]map[cwfmt.Operation]latmath.Stats, Counts) {
	var counts Counts
	out := make(map[string]map[cwfmt.Operation]latmath.Stats)
	for _, service := range p.cfg.Services {
		if _, err := os.Stat(filepath.Join(dir, service)); err != nil {
			p.log.Warn().Str("service", service).Str("dir", dir).
				Msg("service directory not found, skipping")
			continue
		}
		latency, c := p.LatencyForService(dir, service)
		counts.add(c)
		if len(latency) > 0 {
			out[service] = latency
		}
	}
	return out, counts
}

// InfraForService reduces a service's per-run time-series exports to
// one Summary per metric kind, under the configured per-kind policy.
// Kinds with no contributing file are omitted.
func (p *Pipeline) InfraForService(dir, service string) (map[string]crossrun.Summary, Counts) {
	var counts Counts
	out := make(map[string]crossrun.Summary)
	for _, kind := range crossrun.Kinds {
		files, _ := serviceSeriesFiles(dir, service, kind)
		var perFile [][]float64
		for _, path := range files {
			maxima, err := cwfmt.ReadSeriesFile(path)
			if err != nil {
				p.log.Warn().Err(err).Str("file", path).Msg("skipping time-series export")
				counts.Skipped++
				continue
			}
			if len(maxima) == 0 {
				p.log.Warn().Str("file", path).Msg("no maximum values in time-series export")
				counts.Skipped++
				continue
			}
			perFile = append(perFile, maxima)
			counts.Processed++
		}
		summary, err := crossrun.Summarize(p.cfg.policy(kind), kind.Unit(), perFile)
		if err != nil {
			continue
		}
		out[kind.OutputKey()] = summary
	}
	return out, counts
}

func (p *Pipeline) writeOutputs(outDir string, res *ScenarioResult) error {
	scenarioDir := filepath.Join(outDir, res.Combination.DirName())
	if err := os.MkdirAll(scenarioDir, 0o777); err != nil {
		return err
	}
	if res.K6 != nil {
		if err := writeJSON(filepath.Join(scenarioDir, k6OutputFile), res.K6); err != nil {
			return err
		}
	}
	if len(res.Latency) > 0 {
		if err := writeJSON(filepath.Join(scenarioDir, logsOutputFile), res.Latency); err != nil {
			return err
		}
	}
	for _, service := range p.cfg.Services {
		latency, hasLatency := res.Latency[service]
		infra, hasInfra := res.Infra[service]
		if !hasLatency && !hasInfra {
			continue
		}
		serviceDir := filepath.Join(scenarioDir, service)
		if err := os.MkdirAll(serviceDir, 0o777); err != nil {
			return err
		}
		if hasLatency {
			if err := writeJSON(filepath.Join(serviceDir, logsOutputFile), latency); err != nil {
				return err
			}
		}
		if hasInfra {
			if err := writeJSON(filepath.Join(serviceDir, metricsOutputFile), infra); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o666)
}
