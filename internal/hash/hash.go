/*
Copyright © 2026 the brew authors.
This file is part of brew.

brew is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

brew is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with brew.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package hash computes stable keys for simulation inputs, so that
// identical scenarios can share cached results.
package hash

import (
	"encoding/hex"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// printer dumps values deterministically: map keys are sorted and
// pointer addresses are left out.
var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Key returns a hex key identifying object by value. Values that print
// identically, including NaNs, have the same key.
func Key(object interface{}) string {
	h := fnv.New128a()
	printer.Fprintf(h, "%#v", object)
	return hex.EncodeToString(h.Sum(nil))
}
