// elMap: a high-performance driver for mapping sequence reads.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elmap/blob/master/LICENSE.txt>.

// Package cmd implements the elmap command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exascience/elmap/utils"
)

var rootCmd = &cobra.Command{
	Use:   utils.ProgramName,
	Short: "Map sequence reads against a reference with a pipeline of algorithms",
	Long: `elmap maps FASTA/FASTQ reads against a reference genome. Each read is
offered to every configured algorithm in order, the candidates of all
algorithms are merged, and one primary candidate with a mapping quality
is chosen per read end. The results are written as SAM.

Every parameter can also be set in the environment (ELMAP_THREADS,
ELMAP_LOG_PATH, ...) or in a configuration file given with --config.`,
	Version:       utils.ProgramVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.ErrOrStderr(), ProgramMessage)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "read parameters from a configuration file (any format viper supports)")
}

// Execute runs the command given on the command line.
func Execute() error {
	return rootCmd.Execute()
}
