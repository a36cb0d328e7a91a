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

// Package fasta provides the reference sequences that mapping
// algorithms search, either parsed from FASTA files or memory mapped
// from .elfasta files.
package fasta

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/exascience/elmap/seq"
)

var iupacUpperTable = map[byte]byte{
	'A': 'A', 'a': 'A',
	'C': 'C', 'c': 'C',
	'G': 'G', 'g': 'G',
	'T': 'T', 't': 'T',
	'N': 'N', 'n': 'N',
	'R': 'N', 'r': 'N',
	'Y': 'N', 'y': 'N',
	'M': 'N', 'm': 'N',
	'K': 'N', 'k': 'N',
	'W': 'N', 'w': 'N',
	'S': 'N', 's': 'N',
	'B': 'N', 'b': 'N',
	'D': 'N', 'd': 'N',
	'H': 'N', 'h': 'N',
	'V': 'N', 'v': 'N',
}

// ToUpperAndN can be used to normalize ambiguity codes in FASTA references,
// and convert all codes to upper case.
func ToUpperAndN(base byte) byte {
	if n, ok := iupacUpperTable[base]; ok {
		return n
	}
	return base
}

// Fasta is an in-memory reference. Contigs are kept in file order.
type Fasta struct {
	names []string
	seqs  map[string][]byte
}

// New returns an empty in-memory reference.
func New() *Fasta {
	return &Fasta{seqs: make(map[string][]byte)}
}

// Add adds a contig. Adding a contig name twice replaces the
// sequence but keeps its original position.
func (fasta *Fasta) Add(contig string, sequence []byte) {
	if _, ok := fasta.seqs[contig]; !ok {
		fasta.names = append(fasta.names, contig)
	}
	fasta.seqs[contig] = sequence
}

// Contigs returns the contig names in file order.
func (fasta *Fasta) Contigs() []string {
	return fasta.names
}

// Seq fetches the sequence for the given contig.
func (fasta *Fasta) Seq(contig string) []byte {
	return fasta.seqs[contig]
}

// ParseFasta sequentially parses a (possibly compressed) FASTA file.
// All bases are converted to upper case, and ambiguity codes are
// normalized to N.
func ParseFasta(filename string) (*Fasta, error) {
	reader, err := seq.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()
	if reader.Format() == seq.Fastq {
		return nil, fmt.Errorf("reference %v is a FASTQ file", filename)
	}
	fasta := New()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, c := range record.Seq {
			record.Seq[i] = ToUpperAndN(c)
		}
		fasta.Add(string(record.Name), record.Seq)
	}
	if len(fasta.names) == 0 {
		return nil, fmt.Errorf("empty fasta file %v", filename)
	}
	return fasta, nil
}

// ElfastaMagic is the magic byte sequence that every .elfasta file starts with.
var ElfastaMagic = []byte{0x31, 0xFA, 0x57, 0xA1} // 31FA57A1 => ELFASTA1

// ToElfasta stores fasta data into a mmappable .elfasta file.
//
// The file starts with the magic bytes, followed by one
// "contig\t<offset><size>" entry per contig in contig order (offset
// and size as fixed-width varints), a newline, and the concatenated
// sequences.
func ToElfasta(fasta *Fasta, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	var body []byte
	body = append(body, ElfastaMagic...)
	entries := make([]int, len(fasta.names))
	for i, contig := range fasta.names {
		body = append(body, contig...)
		body = append(body, '\t')
		entries[i] = len(body)
		body = append(body, make([]byte, 2*binary.MaxVarintLen64)...)
	}
	body = append(body, '\n')
	offset := len(body)
	for i, contig := range fasta.names {
		size := len(fasta.seqs[contig])
		binary.PutVarint(body[entries[i]:entries[i]+binary.MaxVarintLen64], int64(offset))
		binary.PutVarint(body[entries[i]+binary.MaxVarintLen64:entries[i]+2*binary.MaxVarintLen64], int64(size))
		offset += size
	}
	if _, err = file.Write(body); err != nil {
		return err
	}
	for _, contig := range fasta.names {
		if _, err = file.Write(fasta.seqs[contig]); err != nil {
			return err
		}
	}
	return nil
}

// MappedFasta represents the contents of an .elfasta file. It is
// safe for concurrent use by multiple goroutines once opened, and
// is never modified.
type MappedFasta struct {
	wait  sync.WaitGroup
	err   error
	names []string
	fasta map[string][]byte
	data  []byte
	file  *os.File
}

// OpenElfasta opens a .elfasta file. The mapping is established in
// the background; Wait reports whether it succeeded.
func OpenElfasta(filename string) (result *MappedFasta) {
	result = new(MappedFasta)
	result.wait.Add(1)
	go func() {
		defer result.wait.Done()
		result.err = result.open(filename)
	}()
	return result
}

func (fasta *MappedFasta) open(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	if stat.Size() < int64(len(ElfastaMagic)+1) {
		_ = file.Close()
		return fmt.Errorf("%v is not a .elfasta file - file too short", filename)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()
		return err
	}
	fail := func(format string, args ...interface{}) error {
		_ = unix.Munmap(data)
		_ = file.Close()
		return fmt.Errorf(format, args...)
	}
	for i, b := range ElfastaMagic {
		if data[i] != b {
			return fail("%v is not a .elfasta file - invalid magic byte sequence", filename)
		}
	}
	var names []string
	contigs := make(map[string][]byte)
	index := len(ElfastaMagic)
	for index < len(data) && data[index] != '\n' {
		start := index
		for ; index < len(data) && data[index] != '\t'; index++ {
		}
		if index+1+2*binary.MaxVarintLen64 > len(data) {
			return fail("truncated contig table in elfasta file %v", filename)
		}
		contig := string(data[start:index])
		index++
		offset, n := binary.Varint(data[index : index+binary.MaxVarintLen64])
		if n <= 0 {
			return fail("bad number of bytes while parsing offset in elfasta file %v", filename)
		}
		size, n := binary.Varint(data[index+binary.MaxVarintLen64 : index+2*binary.MaxVarintLen64])
		if n <= 0 {
			return fail("bad number of bytes while parsing size in elfasta file %v", filename)
		}
		if offset < 0 || size < 0 || offset+size > int64(len(data)) {
			return fail("contig %v out of bounds in elfasta file %v", contig, filename)
		}
		names = append(names, contig)
		contigs[contig] = data[int(offset):int(offset+size)]
		index += 2 * binary.MaxVarintLen64
	}
	fasta.names = names
	fasta.fasta = contigs
	fasta.data = data
	fasta.file = file
	return nil
}

// Wait blocks until the file is mapped, and returns any error that
// occurred while mapping it.
func (fasta *MappedFasta) Wait() error {
	fasta.wait.Wait()
	return fasta.err
}

// Close closes the .elfasta file.
func (fasta *MappedFasta) Close() error {
	if err := fasta.Wait(); err != nil {
		return nil
	}
	if fasta.data == nil {
		return nil
	}
	err := unix.Munmap(fasta.data)
	fasta.data = nil
	if nerr := fasta.file.Close(); err == nil {
		err = nerr
	}
	fasta.file = nil
	fasta.fasta = nil
	fasta.names = nil
	return err
}

// Contigs returns the contig names in the order they were stored.
func (fasta *MappedFasta) Contigs() []string {
	fasta.wait.Wait()
	return fasta.names
}

// Seq fetches a sequence for the given contig
// from the .elfasta file.
func (fasta *MappedFasta) Seq(contig string) []byte {
	fasta.wait.Wait()
	return fasta.fasta[contig]
}
