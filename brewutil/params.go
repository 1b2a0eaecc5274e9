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

package brewutil

import (
	"fmt"
	"io"
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/unit"
	"github.com/micheleben/brew"
)

// WriteParams writes p to w in TOML format, so that it can be read back
// in as a configuration file.
func WriteParams(w io.Writer, p *brew.Params) error {
	if err := toml.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("brew: writing parameters: %v", err)
	}
	return nil
}

// Quantity is a physical parameter with its SI value.
type Quantity struct {
	Name, Desc string
	Value      *unit.Unit
}

// siUnits maps the unit labels used in brew.Params to SI dimensions and
// the factor that converts a value to SI.
var siUnits = map[string]struct {
	dims   unit.Dimensions
	factor float64
}{
	"":      {unit.Dimensions{}, 1},
	"m":     {unit.Dimensions{unit.LengthDim: 1}, 1},
	"s":     {unit.Dimensions{unit.TimeDim: 1}, 1},
	"m²/s":  {unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1}, 1},
	"Pa·s":  {unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -1}, 1},
	"kg/m³": {unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -3}, 1},
	"g/mL":  {unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -3}, 1000},
}

// Quantities returns the numeric parameters in p as SI quantities, in the
// order they are declared.
func Quantities(p *brew.Params) []Quantity {
	v := reflect.ValueOf(p).Elem()
	typ := v.Type()
	var q []Quantity
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		var val float64
		switch v.Field(i).Kind() {
		case reflect.Float64:
			val = v.Field(i).Float()
		case reflect.Int:
			val = float64(v.Field(i).Int())
		default:
			continue
		}
		u, ok := siUnits[f.Tag.Get("units")]
		if !ok {
			panic(fmt.Errorf("brew: no SI conversion for units %q of %s", f.Tag.Get("units"), f.Name))
		}
		q = append(q, Quantity{
			Name:  f.Name,
			Desc:  f.Tag.Get("desc"),
			Value: unit.New(val*u.factor, u.dims),
		})
	}
	return q
}
