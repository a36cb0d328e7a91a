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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Format identifies the kind of sequence file a Reader parses.
type Format int

// Sequence file formats.
const (
	Unknown Format = iota
	Fasta
	Fastq
)

func (f Format) String() string {
	switch f {
	case Fasta:
		return "FASTA"
	case Fastq:
		return "FASTQ"
	default:
		return "unknown"
	}
}

const maxLineLength = 1 << 28

// A Reader sequentially parses FASTA or FASTQ records. The format is
// detected from the first non-empty line. FASTA sequences may span
// several lines, FASTQ records must have exactly four lines.
// Compressed input (gzip, BGZF or zstd) is decompressed
// transparently.
type Reader struct {
	name    string
	format  Format
	scanner *bufio.Scanner
	line    []byte
	pending bool
	lineNo  int
	closers []io.Closer
}

// Open opens the named file for reading sequence records.
func Open(filename string) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w, while opening %v", err, filename)
	}
	r.name = filename
	r.closers = append(r.closers, f)
	return r, nil
}

// NewReader returns a Reader that parses records from r.
func NewReader(r io.Reader) (*Reader, error) {
	in, err := decompress(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	return newReader(in)
}

// newReader detects the format of in. It closes in when it returns
// an error.
func newReader(in io.ReadCloser) (*Reader, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(nil, maxLineLength)
	reader := &Reader{name: "input", scanner: scanner, closers: []io.Closer{in}}
	for len(reader.line) == 0 {
		if !reader.next() {
			if err := reader.scanner.Err(); err != nil {
				_ = in.Close()
				return nil, err
			}
			return reader, nil
		}
	}
	switch reader.line[0] {
	case '>':
		reader.format = Fasta
	case '@':
		reader.format = Fastq
	default:
		err := fmt.Errorf("invalid sequence file - line %v starts with %q", reader.lineNo, reader.line[0])
		_ = in.Close()
		return nil, err
	}
	reader.pending = true
	return reader, nil
}

// Format returns the detected format, or Unknown for empty input.
func (r *Reader) Format() Format {
	return r.format
}

func (r *Reader) next() bool {
	if !r.scanner.Scan() {
		r.line = nil
		return false
	}
	r.lineNo++
	r.line = r.scanner.Bytes()
	return true
}

// nextLine returns the next line, honoring a pushed back line.
func (r *Reader) nextLine() ([]byte, bool) {
	if r.pending {
		r.pending = false
		return r.line, true
	}
	if r.next() {
		return r.line, true
	}
	return nil, false
}

func splitHeader(b []byte) (name, comment []byte) {
	b = b[1:]
	if i := bytes.IndexAny(b, " \t"); i >= 0 {
		return append([]byte(nil), b[:i]...), append([]byte(nil), bytes.TrimSpace(b[i+1:])...)
	}
	return append([]byte(nil), b...), nil
}

// Read returns the next record, or io.EOF when the input is
// exhausted. Returned records are in character encoding and own
// their memory.
func (r *Reader) Read() (*Record, error) {
	switch r.format {
	case Fasta:
		return r.readFasta()
	case Fastq:
		return r.readFastq()
	default:
		return nil, io.EOF
	}
}

func (r *Reader) readFasta() (*Record, error) {
	line, ok := r.nextLine()
	for ok && len(line) == 0 {
		line, ok = r.nextLine()
	}
	if !ok {
		return nil, r.eof()
	}
	if line[0] != '>' {
		return nil, fmt.Errorf("invalid FASTA file %v - missing header at line %v", r.name, r.lineNo)
	}
	record := new(Record)
	record.Name, record.Comment = splitHeader(line)
	for {
		line, ok = r.nextLine()
		if !ok {
			break
		}
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			r.pending = true
			break
		}
		record.Seq = append(record.Seq, line...)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Reader) readFastq() (*Record, error) {
	line, ok := r.nextLine()
	for ok && len(line) == 0 {
		line, ok = r.nextLine()
	}
	if !ok {
		return nil, r.eof()
	}
	if line[0] != '@' {
		return nil, fmt.Errorf("invalid FASTQ file %v - missing @ header at line %v", r.name, r.lineNo)
	}
	record := new(Record)
	record.Name, record.Comment = splitHeader(line)
	if line, ok = r.nextLine(); !ok {
		return nil, r.truncated()
	}
	record.Seq = append([]byte(nil), line...)
	if line, ok = r.nextLine(); !ok {
		return nil, r.truncated()
	}
	if len(line) == 0 || line[0] != '+' {
		return nil, fmt.Errorf("invalid FASTQ file %v - missing + separator at line %v", r.name, r.lineNo)
	}
	if line, ok = r.nextLine(); !ok {
		return nil, r.truncated()
	}
	record.Qual = append([]byte(nil), line...)
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w in %v at line %v", err, r.name, r.lineNo)
	}
	return record, nil
}

func (r *Reader) eof() error {
	if err := r.scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (r *Reader) truncated() error {
	if err := r.scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("invalid FASTQ file %v - truncated record at line %v", r.name, r.lineNo)
}

// Close closes the underlying input.
func (r *Reader) Close() (err error) {
	for _, c := range r.closers {
		if nerr := c.Close(); err == nil {
			err = nerr
		}
	}
	r.closers = nil
	return err
}
