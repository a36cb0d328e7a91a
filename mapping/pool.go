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
	"log"
	"sync"

	"github.com/willf/bitset"
	"go.uber.org/atomic"

	"github.com/exascience/elmap/internal"
	"github.com/exascience/elmap/seq"
)

// A pool is a fixed set of workers that jointly process one batch at
// a time. Workers claim blocks of reads by advancing a shared cursor,
// and write each finished record into the slot of its read, so no
// two workers ever touch the same slot.
type pool struct {
	driver  *Driver
	workers []*worker

	cursor  *atomic.Int64
	batch   *Batch
	records []Record
	done    sync.WaitGroup
	exit    sync.WaitGroup
}

type worker struct {
	id      int
	pool    *pool
	start   chan struct{}
	threads []threadState
	envs    []MapEnv
	rng     *internal.Rand
	stats   Stats
}

// startPool starts the workers and runs their thread init stages. If
// any of them fails, all workers are cleaned up and shut down, and
// the first failure is returned.
func startPool(d *Driver) (*pool, error) {
	p := &pool{
		driver:  d,
		workers: make([]*worker, d.opts.Threads),
		cursor:  atomic.NewInt64(0),
	}
	ready := make(chan error, len(p.workers))
	for i := range p.workers {
		w := &worker{
			id:      i,
			pool:    p,
			start:   make(chan struct{}),
			threads: make([]threadState, 0, len(d.plugins)),
			envs:    make([]MapEnv, len(d.plugins)),
			rng:     internal.NewRand(d.opts.Seed),
			stats:   newStats(len(d.plugins)),
		}
		p.workers[i] = w
		p.exit.Add(1)
		go w.run(ready)
	}
	var err error
	for range p.workers {
		if nerr := <-ready; nerr != nil && err == nil {
			err = nerr
		}
	}
	if err != nil {
		p.shutdown()
		return nil, err
	}
	return p, nil
}

func (w *worker) run(ready chan<- error) {
	defer w.pool.exit.Done()
	d := w.pool.driver
	var err error
	for i, p := range d.plugins {
		var thread threadState
		if thread, err = p.newThread(&p.opts); err != nil {
			err = &FatalInitError{Algorithm: p.opts.Name, Stage: StageThreadInit, Worker: w.id, Err: err}
			break
		}
		w.threads = append(w.threads, thread)
		w.envs[i] = MapEnv{
			Reference: d.ref,
			Stats:     &w.stats.Algorithms[i],
			Rand:      w.rng,
			Options:   &p.opts,
		}
	}
	ready <- err
	for range w.start {
		w.drain()
		w.pool.done.Done()
	}
	w.cleanup()
}

// cleanup runs the thread cleanup stages of the algorithms this
// worker initialized, in reverse registration order.
func (w *worker) cleanup() {
	plugins := w.pool.driver.plugins
	for i := len(w.threads) - 1; i >= 0; i-- {
		opts := &plugins[i].opts
		if err := w.threads[i].cleanup(opts); err != nil {
			log.Printf("Warning: thread cleanup of algorithm %v on worker %v failed: %v\n", opts.Name, w.id, err)
		}
	}
	w.threads = nil
}

// process lets all workers drain the batch, and returns once every
// read has its record.
func (p *pool) process(batch *Batch, records []Record) {
	p.batch, p.records = batch, records
	p.cursor.Store(0)
	p.done.Add(len(p.workers))
	for _, w := range p.workers {
		w.start <- struct{}{}
	}
	p.done.Wait()
	p.batch, p.records = nil, nil
}

// collectStats merges the counters of all workers into total, and
// resets them.
func (p *pool) collectStats(total *Stats) {
	for _, w := range p.workers {
		total.Merge(&w.stats)
		w.stats.reset()
	}
}

// shutdown retires all workers after running their cleanup stages.
func (p *pool) shutdown() {
	for _, w := range p.workers {
		close(w.start)
	}
	p.exit.Wait()
}

func (w *worker) drain() {
	p := w.pool
	opts := &p.driver.opts
	size := int64(len(p.batch.Reads))
	block := int64(opts.BlockSize)
	for {
		high := p.cursor.Add(block)
		low := high - block
		if low >= size {
			return
		}
		if high > size {
			high = size
		}
		if opts.OnClaim != nil {
			opts.OnClaim(w.id, int(low), int(high))
		}
		for i := low; i < high; i++ {
			p.records[i] = w.processRead(p.batch.Reads[i], p.batch.Offset+i)
		}
	}
}

func (w *worker) processRead(read Read, ordinal int64) Record {
	internal.Reseed(w.rng, internal.ReadSeed(w.pool.driver.opts.Seed, ordinal))
	record := Record{Ends: make([]Mapping, len(read.Ends))}
	for i, end := range read.Ends {
		record.Ends[i] = w.mapEnd(end)
	}
	w.stats.Reads++
	return record
}

// mapEnd runs all algorithms in registration order on one read end,
// concatenates their candidates, and assigns the mapping quality.
func (w *worker) mapEnd(read *seq.Record) Mapping {
	d := w.pool.driver
	m := Mapping{ReadLength: read.Len(), Primary: -1}
	for i, p := range d.plugins {
		cands, err := p.mapRead(w.threads[i], read, &w.envs[i])
		stats := &w.stats.Algorithms[i]
		if err != nil {
			stats.Failures++
			if m.Failed == nil {
				m.Failed = bitset.New(uint(len(d.plugins)))
			}
			m.Failed.Set(uint(i))
			if d.opts.OnReadFailure != nil {
				d.opts.OnReadFailure(&ReadFailure{Algorithm: p.opts.Name, Read: string(read.Name), Err: err})
			}
			continue
		}
		if len(cands) == 0 {
			continue
		}
		stats.Mapped++
		stats.Candidates += int64(len(cands))
		for _, c := range cands {
			c.Algorithm = i
			m.Candidates = append(m.Candidates, c)
		}
	}
	m.Mapq = d.mapq(m.Candidates, m.ReadLength)
	m.Primary = selectPrimary(m.Candidates, w.rng)
	w.stats.Ends++
	if m.Mapped() {
		w.stats.Mapped++
	} else {
		w.stats.Unmapped++
	}
	return m
}
