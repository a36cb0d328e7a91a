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

package fasta

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	filename := filepath.Join(dir, name)
	if err := os.WriteFile(filename, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestParseFasta(t *testing.T) {
	dir := t.TempDir()
	filename := writeFile(t, dir, "ref.fa", ">chr2 second\nacgtRY\nAC\n>chr1\nGGGG\n")
	ref, err := ParseFasta(filename)
	if err != nil {
		t.Fatal(err)
	}
	contigs := ref.Contigs()
	if len(contigs) != 2 || contigs[0] != "chr2" || contigs[1] != "chr1" {
		t.Errorf("contig order not preserved: %v", contigs)
	}
	if string(ref.Seq("chr2")) != "ACGTNNAC" {
		t.Errorf("bases not normalized: %s", ref.Seq("chr2"))
	}
}

func TestParseFastaEmpty(t *testing.T) {
	filename := writeFile(t, t.TempDir(), "empty.fa", "")
	if _, err := ParseFasta(filename); err == nil {
		t.Error("empty reference accepted")
	}
}

func TestElfastaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ref := New()
	ref.Add("chrB", []byte("ACGTACGT"))
	ref.Add("chrA", []byte("TTTT"))
	ref.Add("chrM", nil)
	filename := filepath.Join(dir, "ref.elfasta")
	if err := ToElfasta(ref, filename); err != nil {
		t.Fatal(err)
	}
	mapped := OpenElfasta(filename)
	if err := mapped.Wait(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := mapped.Close(); err != nil {
			t.Error(err)
		}
	}()
	contigs := mapped.Contigs()
	if len(contigs) != 3 || contigs[0] != "chrB" || contigs[1] != "chrA" || contigs[2] != "chrM" {
		t.Errorf("contig order not preserved: %v", contigs)
	}
	if string(mapped.Seq("chrB")) != "ACGTACGT" || string(mapped.Seq("chrA")) != "TTTT" {
		t.Error("sequences differ after round trip")
	}
	if len(mapped.Seq("chrM")) != 0 {
		t.Error("empty contig not empty")
	}
}

func TestOpenElfastaInvalid(t *testing.T) {
	filename := writeFile(t, t.TempDir(), "bad.elfasta", "not an elfasta file")
	if err := OpenElfasta(filename).Wait(); err == nil {
		t.Error("invalid magic accepted")
	}
}
