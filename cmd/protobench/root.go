// Copyright 2025 The Protobench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/protobench/protobench/pipeline"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "protobench",
		Short:         "Extract and aggregate protocol benchmark artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML pipeline configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newExtractCmd(opts))
	cmd.AddCommand(newK6Cmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newMetricsCmd(opts))
	cmd.AddCommand(newRecalcCmd(opts))
	return cmd
}

// newPipeline builds the pipeline shared by all subcommands.
func (o *rootOptions) newPipeline() (*pipeline.Pipeline, error) {
	cfg := pipeline.DefaultConfig()
	if o.configPath != "" {
		var err error
		cfg, err = pipeline.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
	}
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
	return pipeline.New(cfg, log), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
