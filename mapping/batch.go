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
	"fmt"
	"io"

	"github.com/exascience/elmap/seq"
)

// A Read is one unit of work: a single read, or a pair of mates.
type Read struct {
	Ends []*seq.Record
}

// Name returns the name of the first end.
func (read Read) Name() string {
	if len(read.Ends) == 0 || read.Ends[0] == nil {
		return ""
	}
	return string(read.Ends[0].Name)
}

// A Batch is a group of reads that is processed and flushed as a
// whole.
type Batch struct {
	// Index is the 0-based position of the batch in the run.
	Index int64
	// Offset is the number of reads in all earlier batches.
	Offset int64
	Reads  []Read
}

// A BatchSource supplies the reads of a run in output order. A nil or
// empty batch signals the end of the input.
type BatchSource interface {
	NextBatch(max int) (*Batch, error)
}

// A Sink receives the records of each batch, in read order, once the
// batch is complete. Batches are delivered in the order they were
// read.
type Sink interface {
	WriteBatch(batch *Batch, records []Record) error
}

// A RecordReader reads sequence records, returning io.EOF at the end.
type RecordReader interface {
	Read() (*seq.Record, error)
}

// ReaderSource is a BatchSource that reads single reads from one
// RecordReader, or pairs of mates from two.
type ReaderSource struct {
	readers []RecordReader
	reads   int64
	done    bool
}

// NewReaderSource returns a source for one or two readers.
func NewReaderSource(readers ...RecordReader) (*ReaderSource, error) {
	if len(readers) < 1 || len(readers) > 2 {
		return nil, configErrorf("%v read files given, 1 or 2 expected", len(readers))
	}
	return &ReaderSource{readers: readers}, nil
}

// NextBatch implements BatchSource.
func (source *ReaderSource) NextBatch(max int) (*Batch, error) {
	if source.done {
		return nil, nil
	}
	batch := &Batch{Reads: make([]Read, 0, max)}
	for len(batch.Reads) < max {
		ends := make([]*seq.Record, len(source.readers))
		eof := 0
		for i, r := range source.readers {
			record, err := r.Read()
			if err == io.EOF {
				eof++
				continue
			}
			if err != nil {
				return nil, err
			}
			ends[i] = record
		}
		if eof == len(ends) {
			source.done = true
			break
		}
		if eof > 0 {
			return nil, fmt.Errorf("mate files differ in length at read %v", source.reads+1)
		}
		batch.Reads = append(batch.Reads, Read{Ends: ends})
		source.reads++
	}
	return batch, nil
}

// SliceSource is a BatchSource over reads held in memory.
type SliceSource struct {
	reads []Read
}

// NewSliceSource returns a source for the given reads.
func NewSliceSource(reads []Read) *SliceSource {
	return &SliceSource{reads: reads}
}

// NextBatch implements BatchSource.
func (source *SliceSource) NextBatch(max int) (*Batch, error) {
	n := len(source.reads)
	if n > max {
		n = max
	}
	batch := &Batch{Reads: source.reads[:n:n]}
	source.reads = source.reads[n:]
	return batch, nil
}

// BatchCollector is a Sink that keeps all records in memory.
type BatchCollector struct {
	Records []Record
	Batches int
}

// WriteBatch implements Sink.
func (sink *BatchCollector) WriteBatch(_ *Batch, records []Record) error {
	sink.Records = append(sink.Records, records...)
	sink.Batches++
	return nil
}
