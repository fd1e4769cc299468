// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cwfmt reads CloudWatch export files: structured-log exports
// carrying per-request serialization latencies, and metric time-series
// exports carrying windowed maxima.
//
// Both formats are JSON with a single required top-level key ("events"
// and "Datapoints" respectively). Per-event problems inside a file are
// contained: bad entries are dropped with a warning and the rest of
// the file is still used.
package cwfmt

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultOutlierThresholdMS is the latency above which an observation
// is discarded as an outlier. Log latencies are in milliseconds; the
// comparison is strict, so a value exactly at the threshold is kept.
const DefaultOutlierThresholdMS = 1000.0

// An Operation is a measured phase of message handling.
type Operation string

const (
	OpSerialize   Operation = "serialize"
	OpDeserialize Operation = "deserialize"
)

// An Entry is one decoded log message.
type Entry struct {
	RequestID string
	Protocol  string
	Operation string
	Endpoint  string
	Timestamp string
	// LatencyMS is the measured latency in milliseconds.
	LatencyMS float64
}

type logEvent struct {
	Message string `json:"message"`
}

type logDocument struct {
	Events []logEvent `json:"events"`
}

// ParseEntry decodes one log message of the form
//
//	"id","protocol","operation","endpoint","timestamp","latency"
//
// Messages with fewer than six fields or a non-numeric latency field
// are rejected.
func ParseEntry(message string) (Entry, error) {
	parts := strings.Split(message, ",")
	if len(parts) < 6 {
		return Entry{}, fmt.Errorf("message has %d fields, want 6", len(parts))
	}
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	latency, err := strconv.ParseFloat(parts[5], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("latency field %q: %w", parts[5], err)
	}
	return Entry{
		RequestID: parts[0],
		Protocol:  parts[1],
		Operation: parts[2],
		Endpoint:  parts[3],
		Timestamp: parts[4],
		LatencyMS: latency,
	}, nil
}

// ReadLogs decodes a structured-log export and buckets the surviving
// latency observations by operation. Observations above thresholdMS
// and entries that fail to decode are dropped with a warning.
// Operations outside the known set are ignored. Both buckets may be
// empty; a file with no valid observation yields no record.
func ReadLogs(data []byte, thresholdMS float64, log zerolog.Logger) (map[Operation][]float64, error) {
	var doc logDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing log export: %w", err)
	}
	if doc.Events == nil {
		return nil, fmt.Errorf("log export has no events array")
	}

	buckets := make(map[Operation][]float64)
	for _, ev := range doc.Events {
		if ev.Message == "" {
			continue
		}
		entry, err := ParseEntry(ev.Message)
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed log message")
			continue
		}
		if entry.LatencyMS > thresholdMS {
			log.Warn().
				Float64("latency_ms", entry.LatencyMS).
				Float64("threshold_ms", thresholdMS).
				Msg("skipping outlier latency value")
			continue
		}
		switch Operation(strings.ToLower(entry.Operation)) {
		case OpSerialize:
			buckets[OpSerialize] = append(buckets[OpSerialize], entry.LatencyMS)
		case OpDeserialize:
			buckets[OpDeserialize] = append(buckets[OpDeserialize], entry.LatencyMS)
		}
	}
	return buckets, nil
}

// ReadLogFile reads and decodes a single structured-log export file.
func ReadLogFile(path string, thresholdMS float64, log zerolog.Logger) (map[Operation][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	buckets, err := ReadLogs(data, thresholdMS, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buckets, nil
}
