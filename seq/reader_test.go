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
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func readAll(t *testing.T, r *Reader) []*Record {
	var records []*Record
	for {
		record, err := r.Read()
		if err == io.EOF {
			return records
		}
		if err != nil {
			t.Fatal(err)
		}
		records = append(records, record)
	}
}

const fastqInput = "@r1 first read\nACGT\n+\nIIII\n\n@r2\nGGCC\n+r2\n!!!!\n"

func TestReadFastq(t *testing.T) {
	r, err := NewReader(strings.NewReader(fastqInput))
	if err != nil {
		t.Fatal(err)
	}
	if r.Format() != Fastq {
		t.Errorf("detected %v", r.Format())
	}
	records := readAll(t, r)
	if len(records) != 2 {
		t.Fatalf("read %v records", len(records))
	}
	if string(records[0].Name) != "r1" || string(records[0].Comment) != "first read" {
		t.Errorf("bad header %q %q", records[0].Name, records[0].Comment)
	}
	if string(records[1].Seq) != "GGCC" || string(records[1].Qual) != "!!!!" {
		t.Errorf("bad record %s %s", records[1].Seq, records[1].Qual)
	}
}

func TestReadFasta(t *testing.T) {
	r, err := NewReader(strings.NewReader(">s1 desc\nACGT\nACGT\n\n>s2\nTTT\n"))
	if err != nil {
		t.Fatal(err)
	}
	records := readAll(t, r)
	if len(records) != 2 {
		t.Fatalf("read %v records", len(records))
	}
	if string(records[0].Seq) != "ACGTACGT" || records[0].Qual != nil {
		t.Errorf("bad multi-line record %s", records[0].Seq)
	}
	if string(records[1].Name) != "s2" || string(records[1].Seq) != "TTT" {
		t.Errorf("bad record %s %s", records[1].Name, records[1].Seq)
	}
}

func TestReadFastqLengthMismatch(t *testing.T) {
	r, err := NewReader(strings.NewReader("@r1\nACGT\n+\nII\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Read(); !errors.Is(err, ErrQualityLength) {
		t.Errorf("length mismatch not reported: %v", err)
	}
}

func TestReadFastqTruncated(t *testing.T) {
	r, err := NewReader(strings.NewReader("@r1\nACGT\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Read(); err == nil || err == io.EOF {
		t.Errorf("truncated record not reported: %v", err)
	}
}

func TestReadEmpty(t *testing.T) {
	r, err := NewReader(strings.NewReader("\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Read(); err != io.EOF {
		t.Errorf("empty input gave %v", err)
	}
}

func TestReadInvalid(t *testing.T) {
	if _, err := NewReader(strings.NewReader("ACGT\n")); err == nil {
		t.Error("headerless input accepted")
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte("ACGT\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(&buf); err == nil {
		t.Error("headerless gzip input accepted")
	}
}

func TestReadInvalidClosesInput(t *testing.T) {
	closed := 0
	in := decompressor{Reader: strings.NewReader("\nACGT\n"), close: func() error {
		closed++
		return nil
	}}
	r, err := newReader(in)
	if err == nil || r != nil {
		t.Fatalf("headerless input accepted: %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("unexpected error %v", err)
	}
	if closed != 1 {
		t.Errorf("input closed %v times", closed)
	}
}

func TestReadGzip(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(fastqInput)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if n := len(readAll(t, r)); n != 2 {
		t.Errorf("read %v gzip records", n)
	}
}

func TestReadZstd(t *testing.T) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(fastqInput)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if n := len(readAll(t, r)); n != 2 {
		t.Errorf("read %v zstd records", n)
	}
}
