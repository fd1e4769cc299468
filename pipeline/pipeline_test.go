// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protobench/protobench/crossrun"
	"github.com/protobench/protobench/cwfmt"
	"github.com/protobench/protobench/latmath"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Protocols = []string{"rest", "grpc"}
	cfg.Scenarios = []string{"spike"}
	cfg.Services = []string{"order"}
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o777))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o666))
}

func k6Doc(variant string, avg, rate, count float64) string {
	duration, reqs := "http_req_duration", "http_reqs"
	if variant == "grpc" {
		duration, reqs = "grpc_req_duration", "iterations"
	}
	return fmt.Sprintf(`{"metrics": {
		"%s": {"values": {"avg": %v, "min": 1, "max": 50, "med": 10, "p(90)": 20, "p(95)": 30, "p(99)": 40}},
		"%s": {"values": {"rate": %v, "count": %v}},
		"vus_max": {"values": {"value": 25}}
	}}`, duration, avg, reqs, rate, count)
}

// logDoc builds a structured-log export with the given number of
// valid serialize and deserialize events plus one outlier.
func logDoc(serialize, deserialize int) string {
	doc := `{"events": [`
	first := true
	add := func(op string, latency float64) {
		if !first {
			doc += ","
		}
		first = false
		doc += fmt.Sprintf(`{"message": "\"id\",\"grpc\",\"%s\",\"/x\",\"t\",\"%v\""}`, op, latency)
	}
	for i := 0; i < serialize; i++ {
		add("serialize", float64(i+1))
	}
	for i := 0; i < deserialize; i++ {
		add("deserialize", float64(i+1)*2)
	}
	add("serialize", 1500) // above the 1000 ms threshold, dropped
	return doc + `]}`
}

func seriesDoc(maxima ...float64) string {
	doc := `{"Datapoints": [`
	for i, m := range maxima {
		if i > 0 {
			doc += ","
		}
		doc += fmt.Sprintf(`{"Maximum": %v}`, m)
	}
	return doc + `]}`
}

// buildScenario populates one scenario directory with 3 log runs,
// 2 k6 runs and 2 time-series runs for the order service.
func buildScenario(t *testing.T, root, protocol string) {
	t.Helper()
	dir := filepath.Join(root, protocol+":spike")
	for run := 1; run <= 2; run++ {
		name := fmt.Sprintf("results_%s:spike_run_%d.json", protocol, run)
		writeFile(t, filepath.Join(dir, name), k6Doc(protocol, float64(10*run), 100, 1000))
	}
	for run := 1; run <= 3; run++ {
		name := fmt.Sprintf("run_%d_order_cloudwatch_logs.json", run)
		writeFile(t, filepath.Join(dir, "order", name), logDoc(2, 1))
	}
	for run := 1; run <= 2; run++ {
		writeFile(t, filepath.Join(dir, "order", fmt.Sprintf("run_%d_order_cpu_metrics.json", run)),
			seriesDoc(10, 20, 30))
		writeFile(t, filepath.Join(dir, "order", fmt.Sprintf("run_%d_order_network_rx_bytes_metrics.json", run)),
			seriesDoc(100, 300))
	}
}

func TestRunEndToEnd(t *testing.T) {
	resultsDir := t.TempDir()
	outDir := t.TempDir()
	buildScenario(t, resultsDir, "rest")
	buildScenario(t, resultsDir, "grpc")

	p := New(testConfig(), zerolog.Nop())
	results, err := p.Run(resultsDir, outDir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, res := range results {
		// Exactly one LatencyStats per operation per scenario, with
		// total_requests summed over the 3 run files rather than
		// duplicated per file.
		latency := res.Latency["order"]
		require.Len(t, latency, 2)
		assert.Equal(t, 6, latency[cwfmt.OpSerialize].Count)
		assert.Equal(t, 3, latency[cwfmt.OpDeserialize].Count)

		// k6 records averaged across the 2 runs.
		assert.Equal(t, 15.0, res.K6["request_duration_avg"])
		assert.Equal(t, 1000.0, res.K6["throughput_total_requests"])
		assert.Equal(t, 25.0, res.K6["vus_max"])

		// CPU uses the absolute maximum, network the mean of maxima.
		infra := res.Infra["order"]
		assert.Equal(t, 30.0, infra["cpu_utilization"].AverageMaximum)
		assert.Equal(t, "Percent", infra["cpu_utilization"].Unit)
		assert.Equal(t, 200.0, infra["network_rx_bytes"].AverageMaximum)
		assert.Equal(t, "Bytes", infra["network_rx_bytes"].Unit)
		assert.Equal(t, 2, infra["cpu_utilization"].TotalFiles)
	}
}

func TestRunWritesOutputs(t *testing.T) {
	resultsDir := t.TempDir()
	outDir := t.TempDir()
	buildScenario(t, resultsDir, "grpc")

	cfg := testConfig()
	cfg.Protocols = []string{"grpc"}
	p := New(cfg, zerolog.Nop())
	_, err := p.Run(resultsDir, outDir)
	require.NoError(t, err)

	scenarioDir := filepath.Join(outDir, "grpc:spike")

	var k6 map[string]float64
	readJSON(t, filepath.Join(scenarioDir, "k6_metrics.json"), &k6)
	assert.Equal(t, 15.0, k6["request_duration_avg"])

	var combined map[string]map[string]latmath.Stats
	readJSON(t, filepath.Join(scenarioDir, "cloudwatch_logs_metrics.json"), &combined)
	assert.Equal(t, 6, combined["order"]["serialize"].Count)

	var perService map[string]latmath.Stats
	readJSON(t, filepath.Join(scenarioDir, "order", "cloudwatch_logs_metrics.json"), &perService)
	assert.Equal(t, 3, perService["deserialize"].Count)

	var infra map[string]crossrun.Summary
	readJSON(t, filepath.Join(scenarioDir, "order", "cloudwatch_metrics.json"), &infra)
	assert.Equal(t, 30.0, infra["cpu_utilization"].AverageMaximum)
}

func readJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestRunMissingScenarioDir(t *testing.T) {
	resultsDir := t.TempDir()
	buildScenario(t, resultsDir, "rest")
	// No grpc:spike directory: it must be skipped without aborting
	// the rest combination.
	p := New(testConfig(), zerolog.Nop())
	results, err := p.Run(resultsDir, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rest:spike", results[0].Combination.DirName())
}

func TestRunParallel(t *testing.T) {
	resultsDir := t.TempDir()
	outDir := t.TempDir()
	buildScenario(t, resultsDir, "rest")
	buildScenario(t, resultsDir, "grpc")

	cfg := testConfig()
	cfg.Parallelism = 4
	p := New(cfg, zerolog.Nop())
	results, err := p.Run(resultsDir, outDir)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Configuration order is preserved regardless of scheduling.
	assert.Equal(t, "rest:spike", results[0].Combination.DirName())
	assert.Equal(t, "grpc:spike", results[1].Combination.DirName())
}

func TestAggregateK6SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "results_rest:spike_run_1.json"), k6Doc("rest", 10, 100, 1000))
	writeFile(t, filepath.Join(dir, "results_rest:spike_run_2.json"), "{malformed")

	p := New(testConfig(), zerolog.Nop())
	avg, counts := p.AggregateK6(dir)
	assert.Equal(t, 10.0, avg["request_duration_avg"])
	assert.Equal(t, 1, counts.Processed)
	assert.Equal(t, 1, counts.Skipped)
}

func TestAggregateK6Empty(t *testing.T) {
	p := New(testConfig(), zerolog.Nop())
	avg, counts := p.AggregateK6(t.TempDir())
	assert.Nil(t, avg)
	assert.Equal(t, Counts{}, counts)
}

func TestLatencyForServiceSkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "order", "run_1_order_cloudwatch_logs.json"), logDoc(2, 2))
	// Only an outlier: contributes nothing and counts as skipped.
	writeFile(t, filepath.Join(dir, "order", "run_2_order_cloudwatch_logs.json"), logDoc(0, 0))

	p := New(testConfig(), zerolog.Nop())
	latency, counts := p.LatencyForService(dir, "order")
	assert.Equal(t, 2, latency[cwfmt.OpSerialize].Count)
	assert.Equal(t, 2, latency[cwfmt.OpDeserialize].Count)
	assert.Equal(t, 1, counts.Processed)
	assert.Equal(t, 1, counts.Skipped)
}

func TestInfraForServiceExcludesEmptySeries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "order", "run_1_order_cpu_metrics.json"), seriesDoc(40, 60))
	writeFile(t, filepath.Join(dir, "order", "run_2_order_cpu_metrics.json"), `{"Datapoints": []}`)

	p := New(testConfig(), zerolog.Nop())
	infra, counts := p.InfraForService(dir, "order")
	require.Contains(t, infra, "cpu_utilization")
	assert.Equal(t, 60.0, infra["cpu_utilization"].AverageMaximum)
	assert.Equal(t, 1, infra["cpu_utilization"].TotalFiles)
	assert.Equal(t, 1, counts.Processed)
	assert.Equal(t, 1, counts.Skipped)
	// No memory or network files at all: those kinds are omitted.
	assert.NotContains(t, infra, "memory_utilization")
	assert.NotContains(t, infra, "network_rx_bytes")
}
