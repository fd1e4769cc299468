// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package k6fmt reads k6 end-of-test summary files.
//
// A summary file is a JSON object whose "metrics" mapping carries one
// entry per k6 metric, each with a "values" mapping of statistical
// sub-keys. The REST and gRPC executors emit different metric names
// for request duration and throughput, so the reader resolves the
// protocol variant once per file and reads all variant-dependent
// metrics through it. Volume, virtual-user and check metrics are
// shared by both variants.
package k6fmt

import (
	"fmt"
	"os"

	"github.com/Jeffail/gabs/v2"
)

// A Variant identifies which k6 executor produced a summary file.
type Variant int

const (
	// VariantUnknown means neither variant's metrics are present.
	// Shared metrics can still be extracted.
	VariantUnknown Variant = iota
	// VariantREST is the HTTP executor (http_req_duration, http_reqs).
	VariantREST
	// VariantGRPC is the gRPC executor (grpc_req_duration, iterations).
	VariantGRPC
)

func (v Variant) String() string {
	switch v {
	case VariantREST:
		return "rest"
	case VariantGRPC:
		return "grpc"
	}
	return "unknown"
}

// durationMetric is the source metric for request_duration_* keys.
func (v Variant) durationMetric() string {
	if v == VariantGRPC {
		return "grpc_req_duration"
	}
	return "http_req_duration"
}

// throughputMetric is the source metric for throughput_* keys. The
// gRPC executor has no per-request counter, so iterations stands in.
func (v Variant) throughputMetric() string {
	if v == VariantGRPC {
		return "iterations"
	}
	return "http_reqs"
}

// Metrics is a flat record of named numeric metrics extracted from
// one run's summary file.
type Metrics map[string]float64

// DetectVariant resolves the protocol variant of a parsed summary by
// the presence of variant-specific duration metrics. REST wins if
// both are somehow present; the two key sets are mutually exclusive
// in practice.
func DetectVariant(root *gabs.Container) Variant {
	switch {
	case root.ExistsP("metrics.http_req_duration"):
		return VariantREST
	case root.ExistsP("metrics.grpc_req_duration"):
		return VariantGRPC
	}
	return VariantUnknown
}

// Extract parses one k6 summary document and returns its flat metric
// record along with the detected variant. A document without a
// "metrics" mapping is malformed. Metrics absent from the document
// are omitted from the record; sub-keys with missing or non-numeric
// values are recorded as zero.
func Extract(data []byte) (Metrics, Variant, error) {
	root, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, VariantUnknown, fmt.Errorf("parsing k6 summary: %w", err)
	}
	if !root.Exists("metrics") {
		return nil, VariantUnknown, fmt.Errorf("k6 summary has no metrics mapping")
	}

	variant := DetectVariant(root)
	m := make(Metrics)

	if sent := root.S("metrics", "data_sent"); sent != nil {
		m["data_sent_count"] = num(sent, "values", "count")
		m["data_sent_rate"] = num(sent, "values", "rate")
	}
	if recv := root.S("metrics", "data_received"); recv != nil {
		m["data_received_count"] = num(recv, "values", "count")
		m["data_received_rate"] = num(recv, "values", "rate")
	}

	if variant != VariantUnknown {
		if dur := root.S("metrics", variant.durationMetric()); dur != nil {
			m["request_duration_avg"] = num(dur, "values", "avg")
			m["request_duration_min"] = num(dur, "values", "min")
			m["request_duration_max"] = num(dur, "values", "max")
			m["request_duration_median"] = num(dur, "values", "med")
			m["request_duration_p90"] = num(dur, "values", "p(90)")
			m["request_duration_p95"] = num(dur, "values", "p(95)")
			m["request_duration_p99"] = num(dur, "values", "p(99)")
		}
		if reqs := root.S("metrics", variant.throughputMetric()); reqs != nil {
			m["throughput_requests_per_second"] = num(reqs, "values", "rate")
			m["throughput_total_requests"] = num(reqs, "values", "count")
		}
	}

	if vus := root.S("metrics", "vus_max"); vus != nil {
		m["vus_max"] = num(vus, "values", "value")
	}
	if checks := root.S("metrics", "checks"); checks != nil {
		m["success_rate_rate"] = num(checks, "values", "rate")
		m["success_rate_passes"] = num(checks, "values", "passes")
		m["success_rate_fails"] = num(checks, "values", "fails")
	}

	return m, variant, nil
}

// ReadFile extracts the metric record of a single summary file.
func ReadFile(path string) (Metrics, Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, VariantUnknown, err
	}
	m, v, err := Extract(data)
	if err != nil {
		return nil, v, fmt.Errorf("%s: %w", path, err)
	}
	return m, v, nil
}

// num reads a numeric value at the given path, or zero if the value
// is missing or not a number.
func num(c *gabs.Container, path ...string) float64 {
	v := c.S(path...)
	if v == nil {
		return 0
	}
	f, ok := v.Data().(float64)
	if !ok {
		return 0
	}
	return f
}
