// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "extract <results-dir>",
		Short: "Run the full extraction pipeline over a results tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.newPipeline()
			if err != nil {
				return err
			}
			results, err := p.Run(args[0], outDir)
			if err != nil {
				return err
			}
			for _, res := range results {
				cmd.Printf("%s: %d files processed, %d skipped\n",
					res.Combination, res.Counts.Processed, res.Counts.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "extracted_metrics", "output directory")
	return cmd
}

func newRecalcCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <results-dir> <out-dir>",
		Short: "Recalculate infrastructure summaries in existing outputs",
		Long: `Recalculate rewrites the cloudwatch_metrics.json files under
<out-dir> from the raw time-series exports under <results-dir>,
applying the configured per-metric-kind aggregation policy.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.newPipeline()
			if err != nil {
				return err
			}
			return p.RecalcInfra(args[0], args[1])
		},
	}
}
