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

const (
	// DefaultBlockSize is the number of reads a worker claims at once.
	DefaultBlockSize = 512

	// DefaultBatchSize is the number of reads fetched per batch.
	DefaultBatchSize = 262144

	// DefaultSeed seeds the per-read random streams.
	DefaultSeed = 13
)

// Options are the global driver options. They are immutable once the
// driver is constructed.
type Options struct {
	// Threads is the number of workers. It must be positive.
	Threads int

	// BatchSize is the maximum number of reads per batch; 0 means
	// DefaultBatchSize.
	BatchSize int

	// BlockSize is the number of reads claimed per claim; 0 means
	// DefaultBlockSize.
	BlockSize int

	// Seed seeds the random streams used for tie breaking.
	Seed int64

	// Mapq assigns mapping qualities when no registered algorithm
	// has a mapq stage; nil means DefaultMapq{}.
	Mapq MapqPolicy

	// OnClaim, if not nil, is called by a worker for each block
	// [low, high) of the current batch it claims. It is called
	// concurrently from all workers.
	OnClaim func(worker, low, high int)

	// OnReadFailure, if not nil, is called for each read an
	// algorithm fails to map. It is called concurrently from all
	// workers.
	OnReadFailure func(failure *ReadFailure)
}

func (opts *Options) normalize() error {
	switch {
	case opts.Threads <= 0:
		return configErrorf("invalid number of threads %v", opts.Threads)
	case opts.BatchSize < 0:
		return configErrorf("invalid batch size %v", opts.BatchSize)
	case opts.BlockSize < 0:
		return configErrorf("invalid block size %v", opts.BlockSize)
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Mapq == nil {
		opts.Mapq = DefaultMapq{}
	}
	return nil
}
