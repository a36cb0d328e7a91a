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

// Package seq provides sequence records for reads, and readers that
// produce them from FASTA and FASTQ files.
package seq

import (
	"errors"
	"fmt"
)

// A Record holds one read: its name, comment, bases and qualities.
//
// The bases are either in character encoding (IsInt == false), or
// in integer encoding where A, C, G, T and N are stored as 0 to 4.
type Record struct {
	Name    []byte
	Comment []byte
	Seq     []byte
	Qual    []byte
	IsInt   bool
}

// ErrQualityLength is returned when a record has qualities, but not
// one for each base.
var ErrQualityLength = errors.New("sequence and quality lengths differ")

var ntCharToInt = func() (table [256]byte) {
	for i := range table {
		table[i] = 4
	}
	table['A'], table['a'] = 0, 0
	table['C'], table['c'] = 1, 1
	table['G'], table['g'] = 2, 2
	table['T'], table['t'] = 3, 3
	return
}()

const ntIntToChar = "ACGTN"

var ntCharComplement = func() (table [256]byte) {
	for i := range table {
		table[i] = 'N'
	}
	for _, pair := range [...][2]byte{
		{'A', 'T'}, {'C', 'G'}, {'G', 'C'}, {'T', 'A'},
		{'a', 't'}, {'c', 'g'}, {'g', 'c'}, {'t', 'a'},
		{'n', 'n'},
	} {
		table[pair[0]] = pair[1]
	}
	return
}()

// BaseToInt returns the integer encoding of a base character.
func BaseToInt(base byte) byte {
	return ntCharToInt[base]
}

// Len returns the number of bases.
func (r *Record) Len() int {
	return len(r.Seq)
}

// Validate checks that the qualities, if present, match the bases.
func (r *Record) Validate() error {
	if len(r.Qual) > 0 && len(r.Qual) != len(r.Seq) {
		return fmt.Errorf("%w for read %s (%v bases, %v qualities)", ErrQualityLength, r.Name, len(r.Seq), len(r.Qual))
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	return &Record{
		Name:    append([]byte(nil), r.Name...),
		Comment: append([]byte(nil), r.Comment...),
		Seq:     append([]byte(nil), r.Seq...),
		Qual:    append([]byte(nil), r.Qual...),
		IsInt:   r.IsInt,
	}
}

// ToInt converts the bases to integer encoding. Characters other than
// A, C, G and T (in either case) become N. Calling ToInt on a record
// that is already in integer encoding has no effect.
func (r *Record) ToInt() {
	if r.IsInt {
		return
	}
	for i, b := range r.Seq {
		r.Seq[i] = ntCharToInt[b]
	}
	r.IsInt = true
}

// ToChar converts the bases to upper case character encoding. Calling
// ToChar on a record that is already in character encoding has no
// effect.
func (r *Record) ToChar() {
	if !r.IsInt {
		return
	}
	for i, b := range r.Seq {
		if b > 4 {
			b = 4
		}
		r.Seq[i] = ntIntToChar[b]
	}
	r.IsInt = false
}

// ReverseComplement reverse complements the bases in their current
// encoding, and reverses the qualities.
func (r *Record) ReverseComplement() {
	s := r.Seq
	for i, j := 0, len(s)-1; i <= j; i, j = i+1, j-1 {
		si, sj := s[i], s[j]
		if r.IsInt {
			s[i], s[j] = complementInt(sj), complementInt(si)
		} else {
			s[i], s[j] = ntCharComplement[sj], ntCharComplement[si]
		}
	}
	q := r.Qual
	for i, j := 0, len(q)-1; i < j; i, j = i+1, j-1 {
		q[i], q[j] = q[j], q[i]
	}
}

func complementInt(b byte) byte {
	if b < 4 {
		return 3 - b
	}
	return 4
}
