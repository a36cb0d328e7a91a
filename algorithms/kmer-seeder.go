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

// Package algorithms provides reference mapping algorithms for the
// mapping driver.
package algorithms

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/willf/bitset"

	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/seq"
	"github.com/exascience/elmap/utils"
)

const (
	// MismatchPenalty is subtracted from the score for each mismatch.
	MismatchPenalty = 4

	// MaxMapq is the quality of a read end with one best locus and no
	// competing locus.
	MaxMapq = 60

	mapqPerScore = 5
)

// A KmerSeeder looks up the k-mers of a read in a k-mer index of the
// reference, and extends each seed without gaps over the whole read,
// on both strands.
type KmerSeeder struct {
	// K is the k-mer length, at most MaxK.
	K int
	// Step is the distance between the read offsets that are looked
	// up; 0 or 1 looks up every k-mer.
	Step int
	// MaxHits skips k-mers with more occurrences in the reference; 0
	// means no limit.
	MaxHits int
	// MaxMismatches is the number of mismatches an extension may have.
	MaxMismatches int
	// MaxCandidates limits the candidates per read end; 0 means no
	// limit.
	MaxCandidates int
	// ExtendedCigar reports matches and mismatches as = and X
	// instead of M.
	ExtendedCigar bool

	index *kmerIndex
}

// Scratch is the state a worker keeps for a KmerSeeder.
type Scratch struct {
	reverse    seq.Record
	diagonals  []int64
	mismatches *bitset.BitSet
	cigar      []byte
}

// Fast returns a seeder that finds near exact placements quickly.
func Fast() *KmerSeeder {
	return &KmerSeeder{K: 16, Step: 8, MaxHits: 64, MaxMismatches: 2, MaxCandidates: 16}
}

// Sensitive returns a seeder that seeds at every read offset and
// tolerates more mismatches.
func Sensitive() *KmerSeeder {
	return &KmerSeeder{K: 11, Step: 1, MaxHits: 1024, MaxMismatches: 8, MaxCandidates: 64}
}

// Validate checks the tunables of the seeder.
func (seeder *KmerSeeder) Validate() error {
	switch {
	case seeder.K < 1 || seeder.K > MaxK:
		return fmt.Errorf("k-mer length %v not in [1, %v]", seeder.K, MaxK)
	case seeder.Step < 0:
		return fmt.Errorf("invalid step %v", seeder.Step)
	case seeder.MaxHits < 0:
		return fmt.Errorf("invalid maximum number of hits %v", seeder.MaxHits)
	case seeder.MaxMismatches < 0:
		return fmt.Errorf("invalid maximum number of mismatches %v", seeder.MaxMismatches)
	case seeder.MaxCandidates < 0:
		return fmt.Errorf("invalid maximum number of candidates %v", seeder.MaxCandidates)
	}
	return nil
}

// Algorithm returns the seeder ready for registration.
func (seeder *KmerSeeder) Algorithm() mapping.Algorithm {
	return mapping.NewAlgorithm[*Scratch](seeder)
}

// Init builds the k-mer index of the reference.
func (seeder *KmerSeeder) Init(ref mapping.Reference, _ *mapping.AlgorithmOptions) (err error) {
	if err = seeder.Validate(); err != nil {
		return err
	}
	seeder.index, err = newKmerIndex(ref, seeder.K)
	return err
}

// ThreadInit allocates the scratch space of a worker.
func (seeder *KmerSeeder) ThreadInit(_ *mapping.AlgorithmOptions) (*Scratch, error) {
	return &Scratch{mismatches: bitset.New(256)}, nil
}

// Map returns the placements of the read on both strands, forward
// strand first, each strand in reference order.
func (seeder *KmerSeeder) Map(thread *Scratch, read *seq.Record, env *mapping.MapEnv) (mapping.Candidates, error) {
	if seeder.index == nil {
		return nil, errors.New("k-mer index not initialized")
	}
	if read.Len() < seeder.index.k {
		return nil, nil
	}
	read.ToInt()
	cands := seeder.mapStrand(thread, read.Seq, false, nil, env.Stats)
	reverse := &thread.reverse
	reverse.Seq = append(reverse.Seq[:0], read.Seq...)
	reverse.IsInt = true
	reverse.ReverseComplement()
	return seeder.mapStrand(thread, reverse.Seq, true, cands, env.Stats), nil
}

func (seeder *KmerSeeder) step() int {
	if seeder.Step < 1 {
		return 1
	}
	return seeder.Step
}

// mapStrand collects the distinct diagonals the seeds of bases hit,
// and extends them in reference order.
func (seeder *KmerSeeder) mapStrand(thread *Scratch, bases []byte, reverse bool, cands mapping.Candidates, stats *mapping.AlgorithmStats) mapping.Candidates {
	index := seeder.index
	k, step := index.k, seeder.step()
	mask := uint64(1)<<(2*uint(k)) - 1
	diagonals := thread.diagonals[:0]
	var kmer uint64
	valid := 0
	for i, b := range bases {
		if b > 3 {
			kmer, valid = 0, 0
			continue
		}
		kmer = (kmer<<2 | uint64(b)) & mask
		if valid++; valid < k {
			continue
		}
		offset := i - k + 1
		if offset%step != 0 {
			continue
		}
		hits := index.lookup(kmer)
		if len(hits) == 0 || (seeder.MaxHits > 0 && len(hits) > seeder.MaxHits) {
			continue
		}
		stats.Seeds += int64(len(hits))
		for _, h := range hits {
			start := int64(h.pos) - int64(offset)
			if start < 0 || start+int64(len(bases)) > int64(len(index.seqs[h.contig])) {
				continue
			}
			diagonals = append(diagonals, int64(h.contig)<<32|start)
		}
	}
	sort.Slice(diagonals, func(i, j int) bool {
		return diagonals[i] < diagonals[j]
	})
	thread.diagonals = diagonals
	for i, d := range diagonals {
		if i > 0 && d == diagonals[i-1] {
			continue
		}
		if seeder.MaxCandidates > 0 && len(cands) >= seeder.MaxCandidates {
			break
		}
		if c, ok := seeder.extend(thread, bases, int32(d>>32), int(d&0xffffffff), reverse); ok {
			cands = append(cands, c)
		}
	}
	return cands
}

// extend compares bases with the reference at the given diagonal.
func (seeder *KmerSeeder) extend(thread *Scratch, bases []byte, contig int32, start int, reverse bool) (mapping.Candidate, bool) {
	ref := seeder.index.seqs[contig][start : start+len(bases)]
	thread.mismatches.ClearAll()
	mismatches := 0
	for i, b := range bases {
		if b > 3 || seq.BaseToInt(ref[i]) != b {
			if mismatches++; mismatches > seeder.MaxMismatches {
				return mapping.Candidate{}, false
			}
			thread.mismatches.Set(uint(i))
		}
	}
	return mapping.Candidate{
		Contig:     seeder.index.symbols[contig],
		Pos:        int32(start),
		Reverse:    reverse,
		Score:      int32(len(bases) - MismatchPenalty*mismatches),
		Mismatches: int32(mismatches),
		Cigar:      seeder.cigar(thread, len(bases), mismatches),
	}, true
}

func (seeder *KmerSeeder) cigar(thread *Scratch, length, mismatches int) string {
	if !seeder.ExtendedCigar {
		return strconv.Itoa(length) + "M"
	}
	buf := thread.cigar[:0]
	for i := 0; i < length; {
		mismatch := mismatches > 0 && thread.mismatches.Test(uint(i))
		j := i + 1
		for j < length && (mismatches > 0 && thread.mismatches.Test(uint(j))) == mismatch {
			j++
		}
		buf = strconv.AppendInt(buf, int64(j-i), 10)
		if mismatch {
			buf = append(buf, 'X')
		} else {
			buf = append(buf, '=')
		}
		i = j
	}
	thread.cigar = buf
	return string(buf)
}

type locus struct {
	contig  utils.Symbol
	pos     int32
	reverse bool
}

// Mapq assigns 0 to read ends with several equally good loci, and
// otherwise a quality that grows with the score gap to the next best
// locus. Candidates for the same locus from different algorithms
// count once.
func (seeder *KmerSeeder) Mapq(cands mapping.Candidates, _ int, _ *mapping.AlgorithmOptions) int {
	best, first, _ := cands.Best()
	if first < 0 {
		return 0
	}
	bestLocus := locus{cands[first].Contig, cands[first].Pos, cands[first].Reverse}
	var second int32
	found := false
	for _, c := range cands {
		if (locus{c.Contig, c.Pos, c.Reverse}) == bestLocus {
			continue
		}
		if c.Score == best {
			return 0
		}
		if !found || c.Score > second {
			second, found = c.Score, true
		}
	}
	if !found {
		return MaxMapq
	}
	if q := int(best-second) * mapqPerScore; q < MaxMapq {
		return q
	}
	return MaxMapq
}

// ThreadCleanup releases the scratch space of a worker.
func (seeder *KmerSeeder) ThreadCleanup(thread *Scratch, _ *mapping.AlgorithmOptions) error {
	if thread == nil {
		return nil
	}
	thread.reverse = seq.Record{}
	thread.diagonals = nil
	thread.mismatches = nil
	thread.cigar = nil
	return nil
}

// Cleanup releases the k-mer index.
func (seeder *KmerSeeder) Cleanup() error {
	seeder.index = nil
	return nil
}
