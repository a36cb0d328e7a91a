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

package seq

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodingRoundTrip(t *testing.T) {
	r := &Record{Seq: []byte("ACGTNNACGT")}
	original := append([]byte(nil), r.Seq...)
	r.ToInt()
	if !r.IsInt {
		t.Error("ToInt did not set IsInt")
	}
	if !bytes.Equal(r.Seq, []byte{0, 1, 2, 3, 4, 4, 0, 1, 2, 3}) {
		t.Errorf("ToInt failed: %v", r.Seq)
	}
	r.ToChar()
	if r.IsInt || !bytes.Equal(r.Seq, original) {
		t.Errorf("ToChar failed: %s", r.Seq)
	}
}

func TestEncodingIdempotence(t *testing.T) {
	r := &Record{Seq: []byte("GATTACA")}
	r.ToInt()
	once := append([]byte(nil), r.Seq...)
	r.ToInt()
	if !bytes.Equal(once, r.Seq) {
		t.Error("second ToInt changed the bases")
	}
	r.ToChar()
	r.ToChar()
	if string(r.Seq) != "GATTACA" {
		t.Errorf("second ToChar changed the bases: %s", r.Seq)
	}
}

func TestEncodingAmbiguity(t *testing.T) {
	r := &Record{Seq: []byte("acgtRYn")}
	r.ToInt()
	r.ToChar()
	if string(r.Seq) != "ACGTNNN" {
		t.Errorf("ambiguity codes not normalized: %s", r.Seq)
	}
}

func TestReverseComplement(t *testing.T) {
	r := &Record{Seq: []byte("AACGTN"), Qual: []byte("ABCDEF")}
	r.ReverseComplement()
	if string(r.Seq) != "NACGTT" {
		t.Errorf("character ReverseComplement failed: %s", r.Seq)
	}
	if string(r.Qual) != "FEDCBA" {
		t.Errorf("quality reversal failed: %s", r.Qual)
	}
	r.ToInt()
	r.ReverseComplement()
	r.ToChar()
	if string(r.Seq) != "AACGTN" {
		t.Errorf("integer ReverseComplement failed: %s", r.Seq)
	}
	odd := &Record{Seq: []byte("ACG")}
	odd.ReverseComplement()
	if string(odd.Seq) != "CGT" {
		t.Errorf("odd length ReverseComplement failed: %s", odd.Seq)
	}
}

func TestClone(t *testing.T) {
	r := &Record{Name: []byte("r1"), Seq: []byte("ACGT"), Qual: []byte("IIII")}
	c := r.Clone()
	c.Seq[0] = 'T'
	if r.Seq[0] != 'A' {
		t.Error("Clone shares base memory")
	}
	if string(c.Name) != "r1" || string(c.Qual) != "IIII" || c.IsInt != r.IsInt {
		t.Error("Clone lost fields")
	}
}

func TestValidate(t *testing.T) {
	if err := (&Record{Seq: []byte("ACGT")}).Validate(); err != nil {
		t.Error("record without qualities rejected")
	}
	err := (&Record{Name: []byte("r"), Seq: []byte("ACGT"), Qual: []byte("II")}).Validate()
	if !errors.Is(err, ErrQualityLength) {
		t.Errorf("length mismatch not detected: %v", err)
	}
}
