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
	"sort"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"

	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/seq"
	"github.com/exascience/elmap/utils"
)

// MaxK is the largest k-mer length that fits in a packed k-mer.
const MaxK = 31

// A hit is one occurrence of a k-mer in the reference.
type hit struct {
	kmer   uint64
	contig int32
	pos    int32
}

type hitSorter []hit

func (s hitSorter) SequentialSort(i, j int) {
	hits := s[i:j]
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].kmer < hits[j].kmer
	})
}

func (s hitSorter) NewTemp() psort.StableSorter {
	return hitSorter(make([]hit, len(s)))
}

func (s hitSorter) Len() int {
	return len(s)
}

func (s hitSorter) Less(i, j int) bool {
	return s[i].kmer < s[j].kmer
}

func (s hitSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(hitSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// A kmerIndex lists all positions of each k-mer of the reference,
// sorted by k-mer, and for equal k-mers by contig and position.
type kmerIndex struct {
	k       int
	symbols []utils.Symbol
	seqs    [][]byte
	hits    []hit
}

// contigHits returns the hits of one contig in position order.
// K-mers that contain a base other than A, C, G or T are skipped.
func contigHits(contig int32, bases []byte, k int) []hit {
	mask := uint64(1)<<(2*uint(k)) - 1
	hits := make([]hit, 0, len(bases))
	var kmer uint64
	valid := 0
	for i, c := range bases {
		b := seq.BaseToInt(c)
		if b > 3 {
			kmer, valid = 0, 0
			continue
		}
		kmer = (kmer<<2 | uint64(b)) & mask
		if valid++; valid >= k {
			hits = append(hits, hit{kmer: kmer, contig: contig, pos: int32(i - k + 1)})
		}
	}
	return hits
}

func newKmerIndex(ref mapping.Reference, k int) (*kmerIndex, error) {
	if k < 1 || k > MaxK {
		return nil, fmt.Errorf("invalid k-mer length %v", k)
	}
	contigs := ref.Contigs()
	if len(contigs) == 0 {
		return nil, fmt.Errorf("reference has no contigs")
	}
	index := &kmerIndex{
		k:       k,
		symbols: make([]utils.Symbol, len(contigs)),
		seqs:    make([][]byte, len(contigs)),
	}
	for i, contig := range contigs {
		bases := ref.Seq(contig)
		if int64(len(bases)) > int64(1<<31-1) {
			return nil, fmt.Errorf("contig %v too long", contig)
		}
		index.symbols[i] = utils.Intern(contig)
		index.seqs[i] = bases
	}
	index.hits = parallel.RangeReduce(0, len(contigs), 0, func(low, high int) interface{} {
		var hits []hit
		for i := low; i < high; i++ {
			hits = append(hits, contigHits(int32(i), index.seqs[i], k)...)
		}
		return hits
	}, func(left, right interface{}) interface{} {
		return append(left.([]hit), right.([]hit)...)
	}).([]hit)
	psort.StableSort(hitSorter(index.hits))
	return index, nil
}

// lookup returns the hits of the given k-mer.
func (index *kmerIndex) lookup(kmer uint64) []hit {
	hits := index.hits
	low := sort.Search(len(hits), func(i int) bool {
		return hits[i].kmer >= kmer
	})
	high := low + sort.Search(len(hits)-low, func(i int) bool {
		return hits[low+i].kmer > kmer
	})
	return hits[low:high]
}
