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

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/exascience/elmap/algorithms"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "Print the default algorithm pipeline as TOML",
	Long: `Print the default algorithm pipeline as TOML.

The output is a valid --algorithms file for the map command, and a
starting point for custom pipelines. Keys left out of an algorithm
keep the defaults of its kind.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return algorithms.WriteConfig(cmd.OutOrStdout(), algorithms.DefaultConfig())
	},
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
}
