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
	"testing"

	"github.com/exascience/elmap/internal"
)

func TestBest(t *testing.T) {
	if score, first, count := (Candidates{}).Best(); first != -1 || count != 0 || score != 0 {
		t.Errorf("empty Best returned %v %v %v", score, first, count)
	}
	cands := Candidates{{Score: 3}, {Score: 9}, {Score: 1}, {Score: 9}, {Score: 9}}
	if score, first, count := cands.Best(); score != 9 || first != 1 || count != 3 {
		t.Errorf("Best returned %v %v %v", score, first, count)
	}
	negative := Candidates{{Score: -5}, {Score: -2}}
	if score, first, count := negative.Best(); score != -2 || first != 1 || count != 1 {
		t.Errorf("Best with negative scores returned %v %v %v", score, first, count)
	}
}

func TestDefaultMapq(t *testing.T) {
	unique := Candidates{{Score: 10}, {Score: 4}}
	tied := Candidates{{Score: 10}, {Score: 4}, {Score: 10}}
	for _, test := range []struct {
		policy   DefaultMapq
		cands    Candidates
		expected int
	}{
		{DefaultMapq{}, nil, 0},
		{DefaultMapq{}, unique, DefaultMaxMapq},
		{DefaultMapq{}, tied, DefaultMaxMapq / 2},
		{DefaultMapq{Max: 40}, unique, 40},
		{DefaultMapq{Max: 40, Ties: TiesZero}, tied, 0},
		{DefaultMapq{Ties: TiesZero}, unique, DefaultMaxMapq},
	} {
		if q := test.policy.Mapq(test.cands, 100); q != test.expected {
			t.Errorf("%+v on %v candidates: mapq %v, expected %v", test.policy, len(test.cands), q, test.expected)
		}
	}
}

func TestSelectPrimary(t *testing.T) {
	rng := internal.NewRand(7)
	if selectPrimary(nil, rng) != -1 {
		t.Error("primary selected from no candidates")
	}
	if p := selectPrimary(Candidates{{Score: 1}, {Score: 5}, {Score: 2}}, rng); p != 1 {
		t.Errorf("unique best at %v, expected 1", p)
	}
	cands := Candidates{{Score: 5, Pos: 0}, {Score: 2, Pos: 1}, {Score: 5, Pos: 2}, {Score: 5, Pos: 3}}
	seen := make(map[int]bool)
	for seed := int64(0); seed < 200; seed++ {
		internal.Reseed(rng, seed)
		p := selectPrimary(cands, rng)
		if cands[p].Score != 5 {
			t.Fatalf("primary %v is not a best candidate", p)
		}
		seen[p] = true
		internal.Reseed(rng, seed)
		if q := selectPrimary(cands, rng); q != p {
			t.Errorf("seed %v selected %v and %v", seed, p, q)
		}
	}
	if len(seen) != 3 {
		t.Errorf("tie breaking only chose %v", seen)
	}
	for i, c := range cands {
		if c.Pos != int32(i) {
			t.Error("selectPrimary reordered the candidates")
		}
	}
}

func TestStatsMerge(t *testing.T) {
	total := newStats(2)
	a := Stats{Reads: 3, Ends: 6, Mapped: 4, Unmapped: 2, Algorithms: []AlgorithmStats{{Candidates: 5, Mapped: 4}, {Failures: 1}}}
	b := Stats{Reads: 1, Ends: 2, Mapped: 1, Unmapped: 1, Batches: 1, Algorithms: []AlgorithmStats{{Candidates: 1, Mapped: 1}, {Candidates: 2, Mapped: 1}}}
	total.Merge(&a)
	total.Merge(&b)
	if total.Reads != 4 || total.Ends != 8 || total.Mapped != 5 || total.Unmapped != 3 || total.Batches != 1 {
		t.Errorf("bad totals %+v", total)
	}
	if total.Algorithms[0] != (AlgorithmStats{Candidates: 6, Mapped: 5}) || total.Algorithms[1] != (AlgorithmStats{Candidates: 2, Mapped: 1, Failures: 1}) {
		t.Errorf("bad algorithm totals %+v", total.Algorithms)
	}
	a.reset()
	if a.Reads != 0 || a.Algorithms[0] != (AlgorithmStats{}) || len(a.Algorithms) != 2 {
		t.Errorf("reset failed %+v", a)
	}
	var empty Stats
	empty.Merge(&b)
	if len(empty.Algorithms) != 2 || empty.Algorithms[1].Candidates != 2 {
		t.Errorf("merge into empty stats failed %+v", empty)
	}
}
