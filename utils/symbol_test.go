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

package utils

import "testing"

func TestIntern(t *testing.T) {
	a := Intern("chr1")
	b := Intern(string([]byte("chr1")))
	if a != b {
		t.Error("Intern returned different symbols for equal strings")
	}
	if a == Intern("chr2") {
		t.Error("Intern returned the same symbol for different strings")
	}
	if *a != "chr1" {
		t.Error("Intern does not preserve the string")
	}
	if SymbolString(nil) != "*" || SymbolString(a) != "chr1" {
		t.Error("SymbolString failed")
	}
}
