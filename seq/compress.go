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
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

type decompressor struct {
	io.Reader
	close func() error
}

func (d decompressor) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

// decompress checks if the given reader produces a gzip (including
// BGZF) or zstd stream by peeking at its magic bytes. It then either
// returns a decompressing reader, or returns the given reader
// unchanged.
func decompress(buf *bufio.Reader) (io.ReadCloser, error) {
	magic, err := buf.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		gz, err := gzip.NewReader(buf)
		if err != nil {
			return nil, err
		}
		return decompressor{Reader: gz, close: gz.Close}, nil
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(buf)
		if err != nil {
			return nil, err
		}
		return decompressor{Reader: zr, close: func() error { zr.Close(); return nil }}, nil
	default:
		return decompressor{Reader: buf}, nil
	}
}
