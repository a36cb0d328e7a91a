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

// Package mapping implements the mapping driver: it runs a fixed,
// ordered list of pluggable mapping algorithms over batches of reads
// with a pool of workers, and produces one merged, quality-scored
// record per read, in input order.
//
// The output of a run does not depend on the number of workers:
// every read is processed entirely by one worker, which writes its
// record into the slot of that read, and random tie breaking is
// seeded per read rather than per worker.
package mapping

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type driverState int

const (
	registering driverState = iota
	initialized
	running
	finished
)

// Driver is the registry of algorithms for a run. It owns the
// process-wide state of the algorithms.
type Driver struct {
	mutex   sync.Mutex
	state   driverState
	opts    Options
	plugins []*plugin
	ref     Reference
	runID   uuid.UUID
	mapq    func(cands Candidates, readLength int) int
}

// NewDriver returns a driver for the given options.
func NewDriver(opts Options) (*Driver, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	return &Driver{opts: opts, runID: uuid.New()}, nil
}

// Register appends an algorithm to the end of the list of algorithms
// of the driver. Algorithms run in registration order, and their
// candidates are merged in that order. Registration fails once
// Initialize has been called.
//
// The stages of an Algorithm share the Mapper value it was created
// from, so each registration needs a fresh Algorithm. Registering the
// same Algorithm twice, even under different names, is a ConfigError.
func (d *Driver) Register(name string, alg Algorithm) error {
	if alg.plugin == nil {
		return configErrorf("algorithm %v has no map stage", name)
	}
	if name == "" {
		return configErrorf("algorithm without a name")
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.state != registering {
		return configErrorf("algorithm %v registered after processing has begun", name)
	}
	for _, p := range d.plugins {
		if p.opts.Name == name {
			return configErrorf("algorithm %v registered twice", name)
		}
		if p.origin == alg.plugin {
			return configErrorf("algorithm %v already registered as %v", name, p.opts.Name)
		}
	}
	p := alg.plugin.clone()
	p.opts = AlgorithmOptions{Name: name, Index: len(d.plugins), Global: &d.opts}
	d.plugins = append(d.plugins, p)
	return nil
}

// Options returns the normalized driver options.
func (d *Driver) Options() Options {
	return d.opts
}

// RunID returns the unique identifier of this run.
func (d *Driver) RunID() string {
	return d.runID.String()
}

// Algorithms returns the names of the registered algorithms in
// registration order.
func (d *Driver) Algorithms() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	names := make([]string, len(d.plugins))
	for i, p := range d.plugins {
		names[i] = p.opts.Name
	}
	return names
}

// Initialize runs the init stage of each algorithm in registration
// order. If one fails, the algorithms initialized before it are
// cleaned up, and a FatalInitError is returned.
func (d *Driver) Initialize(ref Reference) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.state != registering {
		return configErrorf("driver initialized twice")
	}
	if len(d.plugins) == 0 {
		return configErrorf("no algorithms registered")
	}
	d.state = initialized
	d.ref = ref
	for _, p := range d.plugins {
		if p.init != nil {
			if err := p.init.Init(ref, &p.opts); err != nil {
				d.cleanup()
				d.state = finished
				return &FatalInitError{Algorithm: p.opts.Name, Stage: StageInit, Worker: -1, Err: err}
			}
		}
		p.initialized = true
	}
	d.mapq = d.opts.Mapq.Mapq
	for _, p := range d.plugins {
		if p.mapq != nil {
			calc, opts := p.mapq, &p.opts
			d.mapq = func(cands Candidates, readLength int) int {
				return calc.Mapq(cands, readLength, opts)
			}
			break
		}
	}
	return nil
}

// cleanup runs the cleanup stages of the initialized algorithms in
// reverse registration order.
func (d *Driver) cleanup() {
	for i := len(d.plugins) - 1; i >= 0; i-- {
		p := d.plugins[i]
		if !p.initialized {
			continue
		}
		p.initialized = false
		if p.cleanup != nil {
			if err := p.cleanup.Cleanup(); err != nil {
				log.Printf("Warning: cleanup of algorithm %v failed: %v\n", p.opts.Name, err)
			}
		}
	}
}

// Close runs the cleanup stages of the algorithms if Initialize
// succeeded but Run was never called. It is safe to call Close more
// than once, and after Run.
func (d *Driver) Close() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.state == initialized {
		d.cleanup()
		d.state = finished
	}
}

// Run maps all reads of the source and writes their records to the
// sink, one batch at a time. It starts the workers, which run their
// thread init stages, and repeatedly fetches a batch, lets the
// workers process it, and flushes it to the sink. The next batch is
// only fetched once the previous one has been flushed. At the end,
// the thread cleanup stages run on each worker, followed by the
// cleanup stages of the algorithms.
//
// Run returns the merged statistics of the run. Batches flushed
// before an error remain valid.
func (d *Driver) Run(source BatchSource, sink Sink) (stats Stats, err error) {
	d.mutex.Lock()
	if d.state != initialized {
		d.mutex.Unlock()
		return stats, configErrorf("driver must be initialized exactly once before running")
	}
	d.state = running
	d.mutex.Unlock()

	start := time.Now()
	stats = newStats(len(d.plugins))
	defer func() {
		d.mutex.Lock()
		d.cleanup()
		d.state = finished
		d.mutex.Unlock()
		stats.Elapsed = time.Since(start)
	}()

	p, err := startPool(d)
	if err != nil {
		return stats, err
	}
	defer p.shutdown()

	var offset int64
	for index := int64(0); ; index++ {
		batch, err := source.NextBatch(d.opts.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("%w, while reading batch %v", err, index)
		}
		if batch == nil || len(batch.Reads) == 0 {
			return stats, nil
		}
		if err := checkBatch(batch); err != nil {
			return stats, fmt.Errorf("%w in batch %v", err, index)
		}
		batch.Index, batch.Offset = index, offset
		records := make([]Record, len(batch.Reads))
		p.process(batch, records)
		p.collectStats(&stats)
		stats.Batches++
		if err := sink.WriteBatch(batch, records); err != nil {
			return stats, fmt.Errorf("%w, while writing batch %v", err, index)
		}
		offset += int64(len(batch.Reads))
	}
}

func checkBatch(batch *Batch) error {
	for i, read := range batch.Reads {
		if len(read.Ends) < 1 || len(read.Ends) > 2 {
			return fmt.Errorf("read %v has %v ends", i, len(read.Ends))
		}
		for _, end := range read.Ends {
			if end == nil {
				return fmt.Errorf("read %v has a missing end", i)
			}
		}
	}
	return nil
}
