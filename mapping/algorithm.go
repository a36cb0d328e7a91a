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

	"github.com/exascience/elmap/internal"
	"github.com/exascience/elmap/seq"
)

// A Reference is the read-only handle to the reference that all
// algorithms search. The driver never modifies it.
type Reference interface {
	Contigs() []string
	Seq(contig string) []byte
}

// AlgorithmOptions are passed to every stage of a registered
// algorithm. Tunables specific to an algorithm are fields of the
// algorithm value itself and must not change after registration.
type AlgorithmOptions struct {
	// Name is the name the algorithm was registered with.
	Name string
	// Index is the registration index of the algorithm.
	Index int
	// Global refers to the driver options.
	Global *Options
}

// A MapEnv is what a worker hands to the map stage of an algorithm
// besides the read itself.
type MapEnv struct {
	Reference Reference
	// Stats are the counters of the calling worker for this algorithm.
	Stats *AlgorithmStats
	// Rand is owned by the calling worker and reseeded for each read.
	Rand    *internal.Rand
	Options *AlgorithmOptions
}

type (
	// A Mapper is the only mandatory stage of an algorithm. T is the
	// type of the state each worker keeps for the algorithm.
	//
	// Map is called once per read end. It may switch the encoding of
	// the read, but must not otherwise modify it, and must not retain
	// it. An error only affects this algorithm's contribution to this
	// read end.
	Mapper[T any] interface {
		Map(thread T, read *seq.Record, env *MapEnv) (Candidates, error)
	}

	// An Initializer builds process-wide state, for example lookup
	// tables derived from the reference. Init is called once, before
	// any read is mapped. The state must be read-only afterwards.
	Initializer interface {
		Init(ref Reference, opts *AlgorithmOptions) error
	}

	// A ThreadInitializer creates the state a worker keeps for the
	// algorithm. ThreadInit is called once per worker, before it maps
	// its first read. Without it, workers use the zero value of T.
	ThreadInitializer[T any] interface {
		ThreadInit(opts *AlgorithmOptions) (T, error)
	}

	// A MapqCalculator assigns the mapping quality of a read end from
	// the merged candidates of all algorithms.
	MapqCalculator interface {
		Mapq(cands Candidates, readLength int, opts *AlgorithmOptions) int
	}

	// A ThreadCleaner releases the state of a worker after its last
	// batch. Errors are logged as warnings.
	ThreadCleaner[T any] interface {
		ThreadCleanup(thread T, opts *AlgorithmOptions) error
	}

	// A Cleaner releases process-wide state at shutdown. Errors are
	// logged as warnings.
	Cleaner interface {
		Cleanup() error
	}
)

// threadState is the state of one algorithm in one worker.
type threadState interface {
	mapRead(read *seq.Record, env *MapEnv) (Candidates, error)
	cleanup(opts *AlgorithmOptions) error
}

type typedThread[T any] struct {
	alg   Mapper[T]
	state T
}

func (thread *typedThread[T]) mapRead(read *seq.Record, env *MapEnv) (Candidates, error) {
	return thread.alg.Map(thread.state, read, env)
}

func (thread *typedThread[T]) cleanup(opts *AlgorithmOptions) error {
	if c, ok := any(thread.alg).(ThreadCleaner[T]); ok {
		return c.ThreadCleanup(thread.state, opts)
	}
	return nil
}

// plugin is a registered algorithm with its stages resolved.
type plugin struct {
	opts        AlgorithmOptions
	init        Initializer
	mapq        MapqCalculator
	cleanup     Cleaner
	newThread   func(opts *AlgorithmOptions) (threadState, error)
	initialized bool

	// origin is the plugin of the Algorithm this one was registered from.
	origin *plugin
}

// An Algorithm is a mapping algorithm ready for registration with a
// Driver. Its zero value has no map stage.
type Algorithm struct {
	plugin *plugin
}

// NewAlgorithm resolves the stages alg implements. T is the type of
// the per-worker state of alg, and must be given explicitly:
//
//	mapping.NewAlgorithm[*scratch](alg)
func NewAlgorithm[T any](alg Mapper[T]) Algorithm {
	if alg == nil {
		return Algorithm{}
	}
	p := &plugin{
		newThread: func(opts *AlgorithmOptions) (threadState, error) {
			thread := &typedThread[T]{alg: alg}
			if ti, ok := any(alg).(ThreadInitializer[T]); ok {
				state, err := ti.ThreadInit(opts)
				if err != nil {
					return nil, err
				}
				thread.state = state
			}
			return thread, nil
		},
	}
	p.init, _ = any(alg).(Initializer)
	p.mapq, _ = any(alg).(MapqCalculator)
	p.cleanup, _ = any(alg).(Cleaner)
	return Algorithm{plugin: p}
}

// HasMapq reports whether the algorithm has a mapq stage.
func (alg Algorithm) HasMapq() bool {
	return alg.plugin != nil && alg.plugin.mapq != nil
}

func (p *plugin) clone() *plugin {
	return &plugin{
		init:      p.init,
		mapq:      p.mapq,
		cleanup:   p.cleanup,
		newThread: p.newThread,
		origin:    p,
	}
}

// mapRead calls the map stage, turning panics into errors, and
// restores the encoding the read had before the call.
func (p *plugin) mapRead(thread threadState, read *seq.Record, env *MapEnv) (cands Candidates, err error) {
	isInt := read.IsInt
	defer func() {
		if r := recover(); r != nil {
			cands, err = nil, fmt.Errorf("panic: %v", r)
		}
		if isInt {
			read.ToInt()
		} else {
			read.ToChar()
		}
	}()
	return thread.mapRead(read, env)
}
