// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package latmath provides tools for computing summary statistics
// over distributions of latency measurements.
//
// This package is deliberately simple. Summaries are empirical: the
// reported percentiles are order statistics of the observed sample,
// with no interpolation, and no confidence intervals are computed.
package latmath

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// A Sample is a set of repeated latency measurements of one operation.
type Sample struct {
	// Values are the measured values, in ascending order.
	Values []float64
}

// NewSample constructs a Sample from a set of measurements.
// The values slice is sorted in place.
func NewSample(values []float64) *Sample {
	// Sort values for fast order statistics.
	sort.Float64s(values)
	return &Sample{values}
}

// N returns the number of measurements in the sample.
func (s *Sample) N() int {
	return len(s.Values)
}

// Quantile returns the empirical q-quantile of a non-empty sample:
// the element at index ⌊q·n⌋ of the sorted values. The index is
// clamped to the last element so q=1 is well-defined.
func (s *Sample) Quantile(q float64) float64 {
	n := len(s.Values)
	i := int(math.Floor(q * float64(n)))
	if i >= n {
		i = n - 1
	}
	return s.Values[i]
}

// Median returns the median of a non-empty sample: the middle element
// for odd-length samples, or the mean of the two central elements for
// even-length samples.
func (s *Sample) Median() float64 {
	n := len(s.Values)
	if n%2 == 1 {
		return s.Values[n/2]
	}
	return (s.Values[n/2-1] + s.Values[n/2]) / 2
}

// Stats summarizes a latency sample.
//
// The JSON field names are the pipeline's output contract for
// per-operation latency blocks.
type Stats struct {
	Count  int     `json:"total_requests"`
	Min    float64 `json:"latency_min"`
	Max    float64 `json:"latency_max"`
	Mean   float64 `json:"latency_avg"`
	Median float64 `json:"latency_median"`
	P90    float64 `json:"latency_p90"`
	P95    float64 `json:"latency_p95"`
	P99    float64 `json:"latency_p99"`
}

// Summary computes summary statistics for s. It reports ok=false for
// an empty sample, which yields no Stats rather than a zero-filled
// one.
func (s *Sample) Summary() (st Stats, ok bool) {
	if s == nil || len(s.Values) == 0 {
		return Stats{}, false
	}
	min, max := stats.Bounds(s.Values)
	return Stats{
		Count:  len(s.Values),
		Min:    min,
		Max:    max,
		Mean:   stats.Mean(s.Values),
		Median: s.Median(),
		P90:    s.Quantile(0.9),
		P95:    s.Quantile(0.95),
		P99:    s.Quantile(0.99),
	}, true
}

// Map returns st as a flat metric mapping, suitable for cross-run
// averaging alongside other flat records.
func (st Stats) Map() map[string]float64 {
	return map[string]float64{
		"total_requests": float64(st.Count),
		"latency_min":    st.Min,
		"latency_max":    st.Max,
		"latency_avg":    st.Mean,
		"latency_median": st.Median,
		"latency_p90":    st.P90,
		"latency_p95":    st.P95,
		"latency_p99":    st.P99,
	}
}
