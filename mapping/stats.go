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

import "time"

// AlgorithmStats counts the work of one algorithm.
type AlgorithmStats struct {
	// Candidates is the number of candidates the algorithm produced.
	Candidates int64
	// Mapped is the number of read ends with at least one candidate
	// from this algorithm.
	Mapped int64
	// Failures is the number of read ends the algorithm failed on.
	Failures int64
	// Seeds is maintained by the algorithm itself through MapEnv.
	Seeds int64
}

// Stats are the run-wide counters. Each worker accumulates its own
// Stats, which are merged only when a batch has been joined.
type Stats struct {
	// Reads is the number of reads processed, counting a pair of
	// mates as one read.
	Reads int64
	// Ends is the number of read ends processed.
	Ends int64
	// Mapped and Unmapped count read ends with and without
	// candidates.
	Mapped, Unmapped int64
	// Batches is the number of batches flushed.
	Batches int64
	// Algorithms has one entry per registered algorithm, in
	// registration order.
	Algorithms []AlgorithmStats
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

func newStats(algorithms int) Stats {
	return Stats{Algorithms: make([]AlgorithmStats, algorithms)}
}

// Merge adds the counters of other to s. Elapsed is not merged.
func (s *Stats) Merge(other *Stats) {
	s.Reads += other.Reads
	s.Ends += other.Ends
	s.Mapped += other.Mapped
	s.Unmapped += other.Unmapped
	s.Batches += other.Batches
	if len(s.Algorithms) < len(other.Algorithms) {
		s.Algorithms = append(s.Algorithms, make([]AlgorithmStats, len(other.Algorithms)-len(s.Algorithms))...)
	}
	for i, a := range other.Algorithms {
		s.Algorithms[i].Candidates += a.Candidates
		s.Algorithms[i].Mapped += a.Mapped
		s.Algorithms[i].Failures += a.Failures
		s.Algorithms[i].Seeds += a.Seeds
	}
}

func (s *Stats) reset() {
	s.Reads, s.Ends, s.Mapped, s.Unmapped, s.Batches = 0, 0, 0, 0, 0
	for i := range s.Algorithms {
		s.Algorithms[i] = AlgorithmStats{}
	}
}
