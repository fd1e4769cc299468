// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Single-step subcommands mirror the pipeline's stages for one
// scenario directory, writing their output next to the inputs.

func newK6Cmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "k6 <scenario-dir>",
		Short: "Average the k6 summaries of one scenario directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.newPipeline()
			if err != nil {
				return err
			}
			avg, counts := p.AggregateK6(args[0])
			if avg == nil {
				return fmt.Errorf("no k6 metrics extracted from %s", args[0])
			}
			out := filepath.Join(args[0], "average_k6_metrics.json")
			if err := writeJSON(out, avg); err != nil {
				return err
			}
			cmd.Printf("%d files processed, %d skipped, average saved to %s\n",
				counts.Processed, counts.Skipped, out)
			return nil
		},
	}
}

func newLogsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <scenario-dir>",
		Short: "Reduce per-service structured-log latencies of one scenario directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.newPipeline()
			if err != nil {
				return err
			}
			latency, counts := p.LatencyByService(args[0])
			if len(latency) == 0 {
				return fmt.Errorf("no latency metrics extracted from %s", args[0])
			}
			for service, stats := range latency {
				out := filepath.Join(args[0], service, "cloudwatch_logs_metrics.json")
				if err := writeJSON(out, stats); err != nil {
					return err
				}
			}
			out := filepath.Join(args[0], "average_cloudwatch_logs_metrics.json")
			if err := writeJSON(out, latency); err != nil {
				return err
			}
			cmd.Printf("%d files processed, %d skipped, combined metrics saved to %s\n",
				counts.Processed, counts.Skipped, out)
			return nil
		},
	}
}

func newMetricsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <scenario-dir> <service>",
		Short: "Summarize one service's infrastructure time-series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.newPipeline()
			if err != nil {
				return err
			}
			dir, service := args[0], args[1]
			infra, counts := p.InfraForService(dir, service)
			if len(infra) == 0 {
				return fmt.Errorf("no infrastructure metrics extracted for %s under %s", service, dir)
			}
			out := filepath.Join(dir, service, "average_cloudwatch_metrics.json")
			if err := writeJSON(out, infra); err != nil {
				return err
			}
			cmd.Printf("%d files processed, %d skipped, metrics saved to %s\n",
				counts.Processed, counts.Skipped, out)
			return nil
		},
	}
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o666)
}
