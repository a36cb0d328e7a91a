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

package mapping

import (
	"github.com/willf/bitset"

	"github.com/exascience/elmap/utils"
)

// A Candidate is one proposed placement of a read end on the
// reference. Apart from Algorithm, which the driver sets to the
// registration index of the algorithm that produced it, the driver
// does not interpret candidates beyond comparing scores.
type Candidate struct {
	Contig     utils.Symbol
	Pos        int32 // 0-based leftmost position
	Reverse    bool
	Score      int32
	Mismatches int32
	Cigar      string
	Algorithm  int
}

// Candidates is the ordered output of one algorithm for one read end,
// or the merged output of all algorithms.
type Candidates []Candidate

// Best returns the best score, the index of the first candidate with
// that score, and how many candidates share it. For an empty set it
// returns index -1 and count 0.
func (cands Candidates) Best() (score int32, first, count int) {
	first = -1
	for i, c := range cands {
		switch {
		case first < 0 || c.Score > score:
			score, first, count = c.Score, i, 1
		case c.Score == score:
			count++
		}
	}
	return
}

// A Mapping is the merged, quality-scored result for one read end.
type Mapping struct {
	Candidates Candidates
	Mapq       int
	ReadLength int

	// Primary is the index in Candidates of the candidate to report
	// first, or -1 if there are no candidates.
	Primary int

	// Failed has the registration index of each algorithm that
	// failed on this read end set, and is nil if none failed.
	Failed *bitset.BitSet
}

// Mapped reports whether any algorithm found a candidate.
func (m *Mapping) Mapped() bool {
	return len(m.Candidates) > 0
}

// PrimaryCandidate returns the primary candidate, if any.
func (m *Mapping) PrimaryCandidate() (Candidate, bool) {
	if m.Primary < 0 || m.Primary >= len(m.Candidates) {
		return Candidate{}, false
	}
	return m.Candidates[m.Primary], true
}

// AlgorithmFailed reports whether the algorithm with the given
// registration index failed on this read end.
func (m *Mapping) AlgorithmFailed(index int) bool {
	return m.Failed != nil && m.Failed.Test(uint(index))
}

// A Record is the final result for one read: one Mapping per end.
type Record struct {
	Ends []Mapping
}
