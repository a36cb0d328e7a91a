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

package algorithms

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/exascience/elmap/mapping"
)

// Kinds of algorithms a Config can describe.
const (
	KindFast      = "fast"
	KindSensitive = "sensitive"
)

// A Config describes one algorithm of the pipeline, as read from an
// algorithms file:
//
//	[[algorithm]]
//	name = "exact"
//	kind = "fast"
//	max-mismatches = 0
//
// Keys that are not given keep the default of the kind.
type Config struct {
	Name          string `toml:"name"`
	Kind          string `toml:"kind"`
	K             int    `toml:"k"`
	Step          int    `toml:"step"`
	MaxHits       int    `toml:"max-hits"`
	MaxMismatches int    `toml:"max-mismatches"`
	MaxCandidates int    `toml:"max-candidates"`
	ExtendedCigar bool   `toml:"extended-cigar"`
}

type configFile struct {
	Algorithms []toml.Primitive `toml:"algorithm"`
}

type encodedConfigFile struct {
	Algorithms []Config `toml:"algorithm"`
}

func configOf(name, kind string, seeder *KmerSeeder) Config {
	return Config{
		Name:          name,
		Kind:          kind,
		K:             seeder.K,
		Step:          seeder.Step,
		MaxHits:       seeder.MaxHits,
		MaxMismatches: seeder.MaxMismatches,
		MaxCandidates: seeder.MaxCandidates,
		ExtendedCigar: seeder.ExtendedCigar,
	}
}

// DefaultKindConfig returns the default configuration of a kind.
func DefaultKindConfig(kind string) (Config, error) {
	switch kind {
	case KindFast:
		return configOf(KindFast, KindFast, Fast()), nil
	case KindSensitive:
		return configOf(KindSensitive, KindSensitive, Sensitive()), nil
	default:
		return Config{}, fmt.Errorf("unknown algorithm kind %q", kind)
	}
}

// DefaultConfig returns the default pipeline: fast, then sensitive.
func DefaultConfig() []Config {
	fast, _ := DefaultKindConfig(KindFast)
	sensitive, _ := DefaultKindConfig(KindSensitive)
	return []Config{fast, sensitive}
}

// ReadConfig parses an algorithms file. Each algorithm is decoded onto
// the defaults of its kind. The algorithms are returned in file order.
func ReadConfig(r io.Reader) ([]Config, error) {
	var file configFile
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, err
	}
	if len(file.Algorithms) == 0 {
		return nil, fmt.Errorf("no algorithms configured")
	}
	configs := make([]Config, 0, len(file.Algorithms))
	for i, prim := range file.Algorithms {
		var kind struct {
			Kind string `toml:"kind"`
		}
		if err := md.PrimitiveDecode(prim, &kind); err != nil {
			return nil, fmt.Errorf("%w, in algorithm %v", err, i)
		}
		if kind.Kind == "" {
			return nil, fmt.Errorf("algorithm %v has no kind", i)
		}
		config, err := DefaultKindConfig(kind.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w, in algorithm %v", err, i)
		}
		config.Name = ""
		if err := md.PrimitiveDecode(prim, &config); err != nil {
			return nil, fmt.Errorf("%w, in algorithm %v", err, i)
		}
		if config.Name == "" {
			config.Name = config.Kind
		}
		if err := config.Seeder().Validate(); err != nil {
			return nil, fmt.Errorf("%w, in algorithm %v", err, config.Name)
		}
		configs = append(configs, config)
	}
	return configs, nil
}

// LoadConfig parses the named algorithms file.
func LoadConfig(filename string) ([]Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	configs, err := ReadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w, while reading %v", err, filename)
	}
	return configs, nil
}

// WriteConfig writes configs in the format ReadConfig parses.
func WriteConfig(w io.Writer, configs []Config) error {
	return toml.NewEncoder(w).Encode(encodedConfigFile{Algorithms: configs})
}

// Seeder returns a new seeder with the tunables of the config.
func (config Config) Seeder() *KmerSeeder {
	return &KmerSeeder{
		K:             config.K,
		Step:          config.Step,
		MaxHits:       config.MaxHits,
		MaxMismatches: config.MaxMismatches,
		MaxCandidates: config.MaxCandidates,
		ExtendedCigar: config.ExtendedCigar,
	}
}

// Algorithm returns the mapping.Algorithm of the config.
func (config Config) Algorithm() mapping.Algorithm {
	return config.Seeder().Algorithm()
}
