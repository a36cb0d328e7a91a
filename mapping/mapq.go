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

import "github.com/exascience/elmap/internal"

// A MapqPolicy assigns a mapping quality to the merged candidates of
// one read end. It must be deterministic for a given candidate order.
type MapqPolicy interface {
	Mapq(cands Candidates, readLength int) int
}

// A TiePolicy determines the quality of read ends with several
// equally best candidates.
type TiePolicy int

const (
	// TiesDivide divides the maximum quality by the number of ties.
	TiesDivide TiePolicy = iota
	// TiesZero assigns quality 0 to tied read ends.
	TiesZero
)

// DefaultMaxMapq is the maximum quality DefaultMapq assigns.
const DefaultMaxMapq = 60

// DefaultMapq is the mapping quality policy used when no algorithm
// provides one. A single best candidate gets Max; n equally best
// candidates get a quality determined by Ties; no candidates get 0.
type DefaultMapq struct {
	// Max is the quality of a unique best candidate; 0 means DefaultMaxMapq.
	Max  int
	Ties TiePolicy
}

// Mapq implements MapqPolicy.
func (policy DefaultMapq) Mapq(cands Candidates, _ int) int {
	top := policy.Max
	if top <= 0 {
		top = DefaultMaxMapq
	}
	_, _, n := cands.Best()
	switch {
	case n == 0:
		return 0
	case n == 1:
		return top
	case policy.Ties == TiesZero:
		return 0
	default:
		return top / n
	}
}

// selectPrimary returns the index of the candidate to report first.
// The random generator is only consulted when several candidates share
// the best score; candidate order is never changed.
func selectPrimary(cands Candidates, rng *internal.Rand) int {
	best, first, n := cands.Best()
	if n <= 1 {
		return first
	}
	k := rng.Intn(n)
	for i := first; i < len(cands); i++ {
		if cands[i].Score == best {
			if k == 0 {
				return i
			}
			k--
		}
	}
	return first
}
