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
	"errors"
	"log"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/exascience/elmap/fasta"
)

var fastaToElfastaCmd = &cobra.Command{
	Use:   "fasta-to-elfasta fasta-file elfasta-file",
	Short: "Convert a FASTA reference to the memory-mappable .elfasta format",
	Long: `Convert a FASTA reference to the memory-mappable .elfasta format.

Bases are upper cased, and every base other than A, C, G or T is
stored as N. The map command opens .elfasta references without
parsing them.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newSettings(cmd)
		if err != nil {
			return err
		}
		setLogOutput(v.GetString("log-path"))
		return fastaToElfasta(args[0], args[1])
	},
}

func init() {
	fastaToElfastaCmd.Flags().String("log-path", "", "write log files to the specified directory")
	rootCmd.AddCommand(fastaToElfastaCmd)
}

func fastaToElfasta(input, output string) error {
	if !checkExist("", input) || !checkCreate("", output) {
		return errors.New("invalid command line parameters")
	}
	ref, err := fasta.ParseFasta(input)
	if err != nil {
		return err
	}
	var bases int64
	for _, contig := range ref.Contigs() {
		bases += int64(len(ref.Seq(contig)))
	}
	if err := fasta.ToElfasta(ref, output); err != nil {
		return err
	}
	log.Printf("Stored %v contigs with %v bases in %v.\n", humanize.Comma(int64(len(ref.Contigs()))), humanize.Comma(bases), output)
	return nil
}
