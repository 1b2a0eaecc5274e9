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

package hash

import (
	"math"
	"testing"
)

type scenario struct {
	Name   string
	Values []float64
	Labels map[string]string
	Next   *scenario
}

func TestKey(t *testing.T) {
	a := scenario{
		Name:   "a",
		Values: []float64{1, 2, 3},
		Labels: map[string]string{"x": "1", "y": "2", "z": "3"},
		Next:   &scenario{Name: "b"},
	}
	b := scenario{
		Name:   "a",
		Values: append(make([]float64, 0, 10), 1, 2, 3),
		Labels: map[string]string{"z": "3", "y": "2", "x": "1"},
		Next:   &scenario{Name: "b"},
	}
	if Key(a) != Key(b) {
		t.Errorf("equal values have different keys: %s != %s", Key(a), Key(b))
	}
	if len(Key(a)) != 32 {
		t.Errorf("key length: have %d, want 32", len(Key(a)))
	}

	t.Run("different", func(t *testing.T) {
		c := b
		c.Values = []float64{1, 2, 3.0000001}
		if Key(a) == Key(c) {
			t.Error("different values have the same key")
		}
		d := b
		d.Next = &scenario{Name: "c"}
		if Key(a) == Key(d) {
			t.Error("different pointed-to values have the same key")
		}
	})

	t.Run("NaN", func(t *testing.T) {
		x := []float64{math.NaN()}
		y := []float64{math.NaN()}
		if Key(x) != Key(y) {
			t.Error("NaNs have different keys")
		}
	})
}
