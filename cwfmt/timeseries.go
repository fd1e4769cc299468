// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cwfmt

import (
	"encoding/json"
	"fmt"
	"os"
)

type datapoint struct {
	// Maximum is optional; datapoints without one carry no usable
	// value for this pipeline.
	Maximum *float64 `json:"Maximum"`
}

type seriesDocument struct {
	Datapoints []datapoint `json:"Datapoints"`
}

// ReadSeries decodes a metric time-series export and returns the
// maximum values of all datapoints that carry one, in file order.
// The result may be empty; callers must exclude such files from
// aggregation rather than treating them as zero.
func ReadSeries(data []byte) ([]float64, error) {
	var doc seriesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing time-series export: %w", err)
	}
	if doc.Datapoints == nil {
		return nil, fmt.Errorf("time-series export has no Datapoints array")
	}
	var maxima []float64
	for _, dp := range doc.Datapoints {
		if dp.Maximum != nil {
			maxima = append(maxima, *dp.Maximum)
		}
	}
	return maxima, nil
}

// ReadSeriesFile reads and decodes a single time-series export file.
func ReadSeriesFile(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	maxima, err := ReadSeries(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return maxima, nil
}
