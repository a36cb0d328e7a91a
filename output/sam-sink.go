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

// Package output renders mapping records.
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/biogo/hts/sam"
	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/seq"
	"github.com/exascience/elmap/utils"
)

// SamVersion is the SAM format version in the header.
const SamVersion = "1.6"

var (
	tagNM = sam.NewTag("NM")
	tagAS = sam.NewTag("AS")
)

// SamOptions control the SAM rendering.
type SamOptions struct {
	// Secondary also writes the candidates that are not primary.
	Secondary bool
	// CommandLine is recorded in the @PG header line.
	CommandLine string
}

// A SamSink is a mapping.Sink that writes SAM. Each read end results
// in one primary line, mapped or unmapped, and optionally one
// secondary line per other candidate.
type SamSink struct {
	out       *bufio.Writer
	writer    *sam.Writer
	header    *sam.Header
	refs      map[utils.Symbol]*sam.Reference
	secondary bool
	lines     int64
}

// NewSamSink writes the SAM header for ref to w, and returns a sink
// for the records of a run.
func NewSamSink(w io.Writer, ref mapping.Reference, runID string, opts SamOptions) (*SamSink, error) {
	contigs := ref.Contigs()
	refs := make([]*sam.Reference, 0, len(contigs))
	symbols := make(map[utils.Symbol]*sam.Reference, len(contigs))
	for _, contig := range contigs {
		length := len(ref.Seq(contig))
		if length == 0 {
			continue
		}
		r, err := sam.NewReference(contig, "", "", length, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w, for contig %v", err, contig)
		}
		refs = append(refs, r)
		symbols[utils.Intern(contig)] = r
	}
	header, err := sam.NewHeader(nil, refs)
	if err != nil {
		return nil, err
	}
	header.Version = SamVersion
	header.SortOrder = sam.Unsorted
	if runID != "" {
		header.Comments = append(header.Comments, "run id: "+runID)
	}
	if err := header.AddProgram(sam.NewProgram(utils.ProgramName, utils.ProgramName, opts.CommandLine, "", utils.ProgramVersion)); err != nil {
		return nil, err
	}
	out := bufio.NewWriter(w)
	writer, err := sam.NewWriter(out, header, sam.FlagDecimal)
	if err != nil {
		return nil, err
	}
	return &SamSink{
		out:       out,
		writer:    writer,
		header:    header,
		refs:      symbols,
		secondary: opts.Secondary,
	}, nil
}

// Header returns the SAM header of the sink.
func (sink *SamSink) Header() *sam.Header {
	return sink.header
}

// Lines returns the number of alignment lines written so far.
func (sink *SamSink) Lines() int64 {
	return sink.lines
}

type unit struct {
	read   *mapping.Read
	record *mapping.Record
}

// WriteBatch implements mapping.Sink. The records are converted in
// parallel, and written in read order.
func (sink *SamSink) WriteBatch(batch *mapping.Batch, records []mapping.Record) error {
	if len(records) == 0 {
		return nil
	}
	units := make([]unit, len(records))
	for i := range units {
		units[i] = unit{read: &batch.Reads[i], record: &records[i]}
	}
	var p pipeline.Pipeline
	p.Source(units)
	p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			units := data.([]unit)
			recs := make([]*sam.Record, 0, 2*len(units))
			for _, u := range units {
				var err error
				if recs, err = sink.appendRecords(recs, u.read, u.record); err != nil {
					p.SetErr(fmt.Errorf("%w, for read %v", err, u.read.Name()))
					return recs
				}
			}
			return recs
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			for _, rec := range data.([]*sam.Record) {
				if err := sink.writer.Write(rec); err != nil {
					p.SetErr(fmt.Errorf("%w, while writing SAM output", err))
					return data
				}
				sink.lines++
			}
			return data
		})),
	)
	p.Run()
	return p.Err()
}

// Flush writes buffered output.
func (sink *SamSink) Flush() error {
	return sink.out.Flush()
}

func samQual(qual []byte) []byte {
	if len(qual) == 0 {
		return nil
	}
	q := make([]byte, len(qual))
	for i, c := range qual {
		q[i] = c - 33
	}
	return q
}

func samMapq(mapq int) byte {
	switch {
	case mapq < 0:
		return 0
	case mapq > 254:
		return 254
	default:
		return byte(mapq)
	}
}

// appendRecords appends the SAM records of all ends of a read.
func (sink *SamSink) appendRecords(recs []*sam.Record, read *mapping.Read, record *mapping.Record) ([]*sam.Record, error) {
	if len(record.Ends) != len(read.Ends) {
		return recs, fmt.Errorf("%v mappings for %v read ends", len(record.Ends), len(read.Ends))
	}
	paired := len(read.Ends) == 2
	for e, end := range read.Ends {
		m := &record.Ends[e]
		var flags sam.Flags
		var mate mapping.Candidate
		mateMapped := false
		if paired {
			flags |= sam.Paired
			if e == 0 {
				flags |= sam.Read1
			} else {
				flags |= sam.Read2
			}
			if mate, mateMapped = record.Ends[1-e].PrimaryCandidate(); !mateMapped {
				flags |= sam.MateUnmapped
			} else if mate.Reverse {
				flags |= sam.MateReverse
			}
		}
		primary, ok := m.PrimaryCandidate()
		if !ok {
			rec := &sam.Record{
				Name:    string(end.Name),
				Pos:     -1,
				MatePos: -1,
				Flags:   flags | sam.Unmapped,
				Seq:     sam.NewSeq(end.Seq),
				Qual:    samQual(end.Qual),
			}
			if mateMapped {
				rec.Ref, rec.Pos = sink.refs[mate.Contig], int(mate.Pos)
				rec.MateRef, rec.MatePos = rec.Ref, rec.Pos
			}
			recs = append(recs, rec)
			continue
		}
		var reverse *seq.Record
		basesFor := func(c mapping.Candidate) *seq.Record {
			if !c.Reverse {
				return end
			}
			if reverse == nil {
				reverse = end.Clone()
				reverse.ReverseComplement()
			}
			return reverse
		}
		rec, err := sink.newRecord(end.Name, basesFor(primary), primary, flags, m.Mapq)
		if err != nil {
			return recs, err
		}
		if mateMapped {
			rec.MateRef, rec.MatePos = sink.refs[mate.Contig], int(mate.Pos)
		}
		recs = append(recs, rec)
		if !sink.secondary {
			continue
		}
		for i, c := range m.Candidates {
			if i == m.Primary {
				continue
			}
			rec, err := sink.newRecord(end.Name, basesFor(c), c, flags|sam.Secondary, 0)
			if err != nil {
				return recs, err
			}
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (sink *SamSink) newRecord(name []byte, bases *seq.Record, c mapping.Candidate, flags sam.Flags, mapq int) (*sam.Record, error) {
	ref, ok := sink.refs[c.Contig]
	if !ok {
		return nil, fmt.Errorf("unknown contig %v", utils.SymbolString(c.Contig))
	}
	cigar, err := sam.ParseCigar([]byte(c.Cigar))
	if err != nil {
		return nil, err
	}
	nm, err := sam.NewAux(tagNM, c.Mismatches)
	if err != nil {
		return nil, err
	}
	as, err := sam.NewAux(tagAS, c.Score)
	if err != nil {
		return nil, err
	}
	if c.Reverse {
		flags |= sam.Reverse
	}
	return &sam.Record{
		Name:      string(name),
		Ref:       ref,
		Pos:       int(c.Pos),
		MapQ:      samMapq(mapq),
		Cigar:     cigar,
		Flags:     flags,
		MatePos:   -1,
		Seq:       sam.NewSeq(bases.Seq),
		Qual:      samQual(bases.Qual),
		AuxFields: []sam.Aux{nm, as},
	}, nil
}
