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
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/exascience/pargo/parallel"
	"github.com/spf13/cobra"

	"github.com/exascience/elmap/algorithms"
	"github.com/exascience/elmap/fasta"
	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/output"
	"github.com/exascience/elmap/seq"
)

// mapSettings are the parameters of the map command, after layering
// flags, environment and configuration file.
type mapSettings struct {
	Reference  string   `mapstructure:"reference"`
	Reads      []string `mapstructure:"reads"`
	Output     string   `mapstructure:"output"`
	Algorithms string   `mapstructure:"algorithms"`
	Threads    int      `mapstructure:"threads"`
	BatchSize  int      `mapstructure:"batch-size"`
	BlockSize  int      `mapstructure:"block-size"`
	Seed       int64    `mapstructure:"seed"`
	Secondary  bool     `mapstructure:"secondary"`
	LogPath    string   `mapstructure:"log-path"`
	Timed      bool     `mapstructure:"timed"`
	Profile    string   `mapstructure:"profile"`
	Verbose    bool     `mapstructure:"verbose"`
}

var mapCmd = &cobra.Command{
	Use:   "map --reference ref.elfasta --reads reads.fq [--reads mates.fq] --output out.sam",
	Short: "Map reads against a reference and write SAM",
	Long: `Map reads against a reference and write SAM.

The reference is either a .elfasta file (see fasta-to-elfasta) or a
FASTA file. Reads are FASTA or FASTQ, optionally gzip or zstd
compressed. With two --reads files, the records of both files are
mates and are mapped as pairs.

Without --algorithms, reads are mapped with the default pipeline: a
fast exact k-mer seeder followed by a sensitive one. The "algorithms"
command prints that pipeline in the format --algorithms expects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, err := newSettings(cmd)
		if err != nil {
			return err
		}
		var settings mapSettings
		if err := v.Unmarshal(&settings); err != nil {
			return err
		}
		setLogOutput(settings.LogPath)
		if _, err := runMap(&settings, strings.Join(os.Args, " ")); err != nil {
			return err
		}
		if info, err := os.Stat(settings.Output); err == nil {
			log.Printf("Wrote %v to %v.\n", humanize.Bytes(uint64(info.Size())), settings.Output)
		}
		return nil
	},
}

func init() {
	flags := mapCmd.Flags()
	flags.String("reference", "", "reference file (.elfasta or FASTA)")
	flags.StringSlice("reads", nil, "read file, given twice for pairs of mates")
	flags.String("output", "", "SAM output file")
	flags.String("algorithms", "", "TOML file with the algorithm pipeline")
	flags.Int("threads", 0, "number of worker threads (default: number of CPUs)")
	flags.Int("batch-size", mapping.DefaultBatchSize, "number of reads per batch")
	flags.Int("block-size", mapping.DefaultBlockSize, "number of reads a worker claims at once")
	flags.Int64("seed", mapping.DefaultSeed, "seed for random tie breaking")
	flags.Bool("secondary", false, "also write candidates that are not primary")
	flags.String("log-path", "", "write log files to the specified directory")
	flags.Bool("timed", false, "log the time spent in each phase")
	flags.String("profile", "", "write a CPU profile per phase with the given prefix")
	flags.Bool("verbose", false, "log each read an algorithm failed on")
	rootCmd.AddCommand(mapCmd)
}

func (settings *mapSettings) check() error {
	ok := checkExist("--reference", settings.Reference)
	if len(settings.Reads) < 1 || len(settings.Reads) > 2 {
		log.Printf("Error: %v read files given, 1 or 2 expected for command line parameter --reads.\n", len(settings.Reads))
		ok = false
	}
	for _, filename := range settings.Reads {
		ok = checkExist("--reads", filename) && ok
	}
	ok = checkCreate("--output", settings.Output) && ok
	if settings.Algorithms != "" {
		ok = checkExist("--algorithms", settings.Algorithms) && ok
	}
	if settings.Profile != "" {
		ok = checkCreate("--profile", settings.Profile+"0.prof") && ok
	}
	if !ok {
		return errors.New("invalid command line parameters")
	}
	return nil
}

func openReference(filename string) (mapping.Reference, error) {
	if strings.HasSuffix(filename, ".elfasta") {
		ref := fasta.OpenElfasta(filename)
		if err := ref.Wait(); err != nil {
			return nil, err
		}
		return ref, nil
	}
	ref, err := fasta.ParseFasta(filename)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// openInputs loads the reference and opens the read files
// concurrently.
func openInputs(reference string, reads []string) (ref mapping.Reference, readers []*seq.Reader, err error) {
	readers = make([]*seq.Reader, len(reads))
	errs := make([]error, len(reads)+1)
	thunks := []func(){func() { ref, errs[0] = openReference(reference) }}
	for i, filename := range reads {
		i, filename := i, filename
		thunks = append(thunks, func() { readers[i], errs[i+1] = seq.Open(filename) })
	}
	parallel.Do(thunks...)
	if err = errors.Join(errs...); err != nil {
		closeInputs(ref, readers)
		return nil, nil, err
	}
	return ref, readers, nil
}

func closeInputs(ref mapping.Reference, readers []*seq.Reader) {
	for _, r := range readers {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			log.Printf("Warning: %v, while closing read file.\n", err)
		}
	}
	if c, ok := ref.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("Warning: %v, while closing reference.\n", err)
		}
	}
}

// runMap runs the map command for the given settings, and returns
// the statistics of the run.
func runMap(settings *mapSettings, commandLine string) (stats mapping.Stats, err error) {
	if err = settings.check(); err != nil {
		return stats, err
	}
	configs := algorithms.DefaultConfig()
	if settings.Algorithms != "" {
		if configs, err = algorithms.LoadConfig(settings.Algorithms); err != nil {
			return stats, err
		}
	}

	threads := settings.Threads
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	opts := mapping.Options{
		Threads:   threads,
		BatchSize: settings.BatchSize,
		BlockSize: settings.BlockSize,
		Seed:      settings.Seed,
	}
	if settings.Verbose {
		opts.OnReadFailure = func(failure *mapping.ReadFailure) {
			log.Println("Warning:", failure)
		}
	}
	driver, err := mapping.NewDriver(opts)
	if err != nil {
		return stats, err
	}
	defer driver.Close()
	for _, config := range configs {
		if err = driver.Register(config.Name, config.Algorithm()); err != nil {
			return stats, err
		}
	}
	log.Printf("Run %v with algorithms %v.\n", driver.RunID(), strings.Join(driver.Algorithms(), ", "))

	var phase int64

	var ref mapping.Reference
	var readers []*seq.Reader
	timedRun(settings.Timed, settings.Profile, "Loading reference and opening read files.", phase, func() {
		ref, readers, err = openInputs(settings.Reference, settings.Reads)
	})
	phase++
	if err != nil {
		return stats, err
	}
	defer closeInputs(ref, readers)

	timedRun(settings.Timed, settings.Profile, "Initializing algorithms.", phase, func() {
		err = driver.Initialize(ref)
	})
	phase++
	if err != nil {
		return stats, err
	}

	out, err := os.Create(settings.Output)
	if err != nil {
		return stats, err
	}
	defer func() {
		if nerr := out.Close(); err == nil {
			err = nerr
		}
	}()
	sink, err := output.NewSamSink(out, ref, driver.RunID(), output.SamOptions{
		Secondary:   settings.Secondary,
		CommandLine: commandLine,
	})
	if err != nil {
		return stats, err
	}
	recordReaders := make([]mapping.RecordReader, len(readers))
	for i, r := range readers {
		recordReaders[i] = r
	}
	source, err := mapping.NewReaderSource(recordReaders...)
	if err != nil {
		return stats, err
	}

	timedRun(settings.Timed, settings.Profile, "Mapping reads.", phase, func() {
		stats, err = driver.Run(source, sink)
	})
	if nerr := sink.Flush(); err == nil {
		err = nerr
	}
	if err != nil {
		return stats, err
	}
	logSummary(driver.Algorithms(), &stats, sink.Lines())
	return stats, nil
}

func logSummary(names []string, stats *mapping.Stats, lines int64) {
	log.Printf("Mapped %v of %v read ends (%v reads in %v batches) in %v.\n",
		humanize.Comma(stats.Mapped), humanize.Comma(stats.Ends),
		humanize.Comma(stats.Reads), humanize.Comma(stats.Batches), stats.Elapsed)
	for i, name := range names {
		a := stats.Algorithms[i]
		log.Printf("Algorithm %v: %v seeds, %v candidates, %v read ends with candidates, %v failures.\n",
			name, humanize.Comma(a.Seeds), humanize.Comma(a.Candidates), humanize.Comma(a.Mapped), humanize.Comma(a.Failures))
	}
	log.Printf("Wrote %v SAM lines.\n", humanize.Comma(lines))
}
