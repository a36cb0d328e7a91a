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

import "fmt"

// A ConfigError reports an invalid driver configuration or an invalid
// registration. It is always detected before any read is processed.
type ConfigError struct {
	Msg string
}

func (err *ConfigError) Error() string {
	return "configuration error: " + err.Msg
}

func configErrorf(format string, v ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, v...)}
}

// Stage names used in FatalInitError.
const (
	StageInit       = "init"
	StageThreadInit = "thread init"
)

// A FatalInitError reports that the init or thread init stage of an
// algorithm failed. The run is aborted.
type FatalInitError struct {
	Algorithm string
	Stage     string
	// Worker is the worker that failed during thread init, or -1.
	Worker int
	Err    error
}

func (err *FatalInitError) Error() string {
	if err.Worker >= 0 {
		return fmt.Sprintf("fatal error in %v of algorithm %v on worker %v: %v", err.Stage, err.Algorithm, err.Worker, err.Err)
	}
	return fmt.Sprintf("fatal error in %v of algorithm %v: %v", err.Stage, err.Algorithm, err.Err)
}

func (err *FatalInitError) Unwrap() error {
	return err.Err
}

// A ReadFailure reports that one algorithm failed to map one read. It
// only affects the contribution of that algorithm to that read.
type ReadFailure struct {
	Algorithm string
	Read      string
	Err       error
}

func (err *ReadFailure) Error() string {
	return fmt.Sprintf("algorithm %v failed on read %v: %v", err.Algorithm, err.Read, err.Err)
}

func (err *ReadFailure) Unwrap() error {
	return err.Err
}
