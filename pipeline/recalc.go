// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/protobench/protobench/crossrun"
)

// RecalcInfra re-derives infrastructure summaries from the raw
// time-series exports under resultsDir and rewrites the existing
// cloudwatch_metrics.json outputs under outDir in place, applying the
// configured per-kind policy. Only metric-kind keys already present
// in an output file are replaced; files or combinations without
// outputs are skipped with a warning.
func (p *Pipeline) RecalcInfra(resultsDir, outDir string) error {
	for _, combo := range p.cfg.Combinations() {
		for _, service := range p.cfg.Services {
			outPath := filepath.Join(outDir, combo.DirName(), service, metricsOutputFile)
			data, err := os.ReadFile(outPath)
			if err != nil {
				p.log.Warn().Str("file", outPath).Msg("no existing metrics output, skipping")
				continue
			}
			var existing map[string]crossrun.Summary
			if err := json.Unmarshal(data, &existing); err != nil {
				p.log.Warn().Err(err).Str("file", outPath).Msg("unreadable metrics output, skipping")
				continue
			}

			recomputed, _ := p.InfraForService(filepath.Join(resultsDir, combo.DirName()), service)
			updated := false
			for _, kind := range crossrun.Kinds {
				key := kind.OutputKey()
				if _, ok := existing[key]; !ok {
					continue
				}
				summary, ok := recomputed[key]
				if !ok {
					p.log.Warn().Str("combination", combo.String()).Str("service", service).
						Str("kind", kind.String()).Msg("no raw data to recalculate from")
					continue
				}
				existing[key] = summary
				updated = true
			}
			if !updated {
				continue
			}
			if err := writeJSON(outPath, existing); err != nil {
				return err
			}
			p.log.Info().Str("combination", combo.String()).Str("service", service).
				Msg("recalculated infrastructure metrics")
		}
	}
	return nil
}
