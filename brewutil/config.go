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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/micheleben/brew"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ParamsConfig reads the simulation parameters from cfg. Parameters that
// have not been set keep their default values.
func ParamsConfig(cfg *viper.Viper) (*brew.Params, error) {
	p := brew.DefaultParams()
	v := reflect.ValueOf(p).Elem()
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		name := typ.Field(i).Name
		if !cfg.IsSet(name) {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.Float64:
			val, err := cast.ToFloat64E(cfg.Get(name))
			if err != nil {
				return nil, fmt.Errorf("brew: parsing %s: %v", name, err)
			}
			f.SetFloat(val)
		case reflect.Int:
			val, err := cast.ToIntE(cfg.Get(name))
			if err != nil {
				return nil, fmt.Errorf("brew: parsing %s: %v", name, err)
			}
			f.SetInt(int64(val))
		case reflect.String:
			f.SetString(os.ExpandEnv(cfg.GetString(name)))
		default:
			panic(fmt.Errorf("brew: unsupported parameter type %v", f.Kind()))
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Flow specifies the flow conditions of a simulation: either a fixed
// superficial velocity or a fixed pressure drop.
type Flow struct {
	// Rate is the superficial flow velocity [m/s].
	Rate float64

	// PressureDrop is the pressure drop across the bed [Pa]. It is used
	// instead of Rate when FixedPressure is true.
	PressureDrop  float64
	FixedPressure bool
}

// Manipulator returns a function that applies the flow conditions to a
// simulation.
func (f Flow) Manipulator() brew.DomainManipulator {
	if f.FixedPressure {
		return brew.FixedPressureDrop(f.PressureDrop)
	}
	return brew.FixedFlowRate(f.Rate)
}

func (f Flow) String() string {
	if f.FixedPressure {
		return fmt.Sprintf("Δp=%g Pa", f.PressureDrop)
	}
	return fmt.Sprintf("q=%g m/s", f.Rate)
}

// FlowConfig reads the flow conditions of a single simulation from cfg.
func FlowConfig(cfg *viper.Viper) (Flow, error) {
	q := cfg.GetFloat64("FlowRate")
	dp := cfg.GetFloat64("PressureDrop")
	if dp < 0 {
		return Flow{}, fmt.Errorf("brew: PressureDrop=%g but should be >= 0", dp)
	}
	if dp > 0 {
		return Flow{PressureDrop: dp, FixedPressure: true}, nil
	}
	if q < 0 {
		return Flow{}, fmt.Errorf("brew: FlowRate=%g but should be >= 0", q)
	}
	return Flow{Rate: q}, nil
}

// sweepFlows reads the list of flow conditions to be simulated from cfg.
func sweepFlows(cfg *viper.Viper) ([]Flow, error) {
	rates, err := toFloat64SliceE(cfg.Get("FlowRates"))
	if err != nil {
		return nil, fmt.Errorf("brew: parsing FlowRates: %v", err)
	}
	drops, err := toFloat64SliceE(cfg.Get("PressureDrops"))
	if err != nil {
		return nil, fmt.Errorf("brew: parsing PressureDrops: %v", err)
	}
	switch {
	case len(rates) > 0 && len(drops) > 0:
		return nil, fmt.Errorf("brew: only one of FlowRates and PressureDrops can be specified")
	case len(rates) == 0 && len(drops) == 0:
		return nil, fmt.Errorf("brew: there are no flow conditions to simulate; please specify FlowRates or PressureDrops")
	}
	var flows []Flow
	for _, q := range rates {
		if q < 0 {
			return nil, fmt.Errorf("brew: FlowRates contains %g but should be >= 0", q)
		}
		flows = append(flows, Flow{Rate: q})
	}
	for _, dp := range drops {
		if dp < 0 {
			return nil, fmt.Errorf("brew: PressureDrops contains %g but should be >= 0", dp)
		}
		flows = append(flows, Flow{PressureDrop: dp, FixedPressure: true})
	}
	return flows, nil
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		k = os.ExpandEnv(k)
		if k == "" {
			return nil, fmt.Errorf("brew: output variable with expression %q has no name", v)
		}
		o[k] = os.ExpandEnv(v)
	}
	return o, nil
}

// checkOutputFile expands environment variables in the output file path
// and makes sure that its directory exists and its format is supported.
// An empty path means no output file.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", nil
	}
	f = os.ExpandEnv(f)
	switch ext := strings.ToLower(filepath.Ext(f)); ext {
	case ".csv", ".xlsx":
	default:
		return f, fmt.Errorf("brew: OutputFile %q should end in .csv or .xlsx", f)
	}
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return f, fmt.Errorf("brew: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkPlotFile is like checkOutputFile for the plot file.
func checkPlotFile(f string) (string, error) {
	if f == "" {
		return "", nil
	}
	f = os.ExpandEnv(f)
	if strings.ToLower(filepath.Ext(f)) != ".png" {
		return f, fmt.Errorf("brew: PlotFile %q should end in .png", f)
	}
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return f, fmt.Errorf("brew: the PlotFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// toFloat64SliceE converts a configuration value to a slice of floats. It
// accepts lists from configuration files as well as the "[1,2]" and "1,2"
// forms produced by command-line flags and environment variables.
func toFloat64SliceE(s interface{}) ([]float64, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case []float64:
		return v, nil
	case []interface{}:
		o := make([]float64, len(v))
		for i, val := range v {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, err
			}
			o[i] = f
		}
		return o, nil
	case []string:
		return parseFloats(v)
	case string:
		v = strings.TrimSpace(v)
		v = strings.TrimPrefix(v, "[")
		v = strings.TrimSuffix(v, "]")
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return parseFloats(strings.Split(v, ","))
	default:
		return nil, fmt.Errorf("invalid type for a list of numbers: %#v", s)
	}
}

func parseFloats(s []string) ([]float64, error) {
	o := make([]float64, len(s))
	for i, val := range s {
		f, err := cast.ToFloat64E(strings.TrimSpace(val))
		if err != nil {
			return nil, err
		}
		o[i] = f
	}
	return o, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("brew: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("brew: invalid type for %s: %#v", varName, i)
	}
}
