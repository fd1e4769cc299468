// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crossrun collapses the records of repeated benchmark runs
// into a single aggregate record.
//
// Runs are repeated for statistical stability; every run of one
// scenario/service/protocol combination produces a structurally
// identical flat record, and the aggregate is the per-key arithmetic
// mean across those records. The package also reduces per-run
// infrastructure time-series maxima under an explicit per-metric-kind
// aggregation policy.
package crossrun

import (
	"errors"
	"fmt"

	"github.com/aclements/go-moremath/stats"
)

// ErrEmptyInput is returned when an aggregation is given zero
// records. The affected combination produces no output; the error is
// never fatal to sibling combinations.
var ErrEmptyInput = errors.New("no records to aggregate")

// Average computes the per-key arithmetic mean across records. A key
// present in only a subset of the records is averaged over the
// records that contain it, so each key's mean is weighted by its own
// count. Callers are expected to pass records sharing one key set;
// Average does not enforce that.
func Average(records []map[string]float64) (map[string]float64, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		for key, value := range rec {
			sums[key] += value
			counts[key]++
		}
	}
	avg := make(map[string]float64, len(sums))
	for key, sum := range sums {
		avg[key] = sum / float64(counts[key])
	}
	return avg, nil
}

// A Policy selects how per-file maxima of one metric kind are
// collapsed across a combination's run files.
type Policy int

const (
	// MeanOfMaxima represents each file by the mean of its datapoint
	// maxima and averages those representatives across files.
	MeanOfMaxima Policy = iota
	// AbsoluteMaximum represents each file by its largest datapoint
	// maximum and takes the largest representative across files.
	AbsoluteMaximum
)

func (p Policy) String() string {
	switch p {
	case MeanOfMaxima:
		return "mean_of_maxima"
	case AbsoluteMaximum:
		return "absolute_maximum"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "mean_of_maxima":
		return MeanOfMaxima, nil
	case "absolute_maximum":
		return AbsoluteMaximum, nil
	}
	return 0, fmt.Errorf("unknown aggregation policy %q", s)
}

// MarshalYAML implements yaml.Marshaler.
func (p Policy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Policy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// FileValue reduces one file's maxima to its representative value
// under p. It reports ok=false for a file carrying no maxima; such
// files are excluded from aggregation rather than counted as zero.
func FileValue(p Policy, maxima []float64) (v float64, ok bool) {
	if len(maxima) == 0 {
		return 0, false
	}
	if p == AbsoluteMaximum {
		_, max := stats.Bounds(maxima)
		return max, true
	}
	return stats.Mean(maxima), true
}

// Combine collapses per-file representative values across run files.
func Combine(p Policy, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	if p == AbsoluteMaximum {
		_, max := stats.Bounds(values)
		return max, nil
	}
	return stats.Mean(values), nil
}

// A Summary is the aggregate of one (service, metric kind) pair
// across a combination's run files. The JSON field names are the
// pipeline's output contract for infrastructure blocks.
type Summary struct {
	AverageMaximum float64 `json:"average_maximum"`
	TotalFiles     int     `json:"total_files_processed"`
	Unit           string  `json:"unit"`
}

// Summarize reduces the per-file maxima of one metric kind into its
// aggregate Summary under p. Files with no maxima are excluded; if no
// file contributes a value, Summarize returns ErrEmptyInput.
func Summarize(p Policy, unit string, perFile [][]float64) (Summary, error) {
	var values []float64
	for _, maxima := range perFile {
		if v, ok := FileValue(p, maxima); ok {
			values = append(values, v)
		}
	}
	combined, err := Combine(p, values)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		AverageMaximum: combined,
		TotalFiles:     len(values),
		Unit:           unit,
	}, nil
}
