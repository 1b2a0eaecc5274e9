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

package brew

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Metrics returns the extraction yield [%], the fraction of initially
// available solubles carried out of the bed by the flow, and the beverage
// strength [%], from the bulk concentration at the top layer. It does not
// change the simulation state.
func (e *Extraction) Metrics() (yield, strength float64) {
	if len(e.Layers) == 0 {
		return 0, 0
	}
	strength = e.Layers[0].Cb / e.p.Density * 100
	if available := e.AvailableMass(); available > 0 {
		yield = e.ExtractedMass() / available * 100
	}
	return yield, strength
}

// ExtractedMass returns the integral of the advective flux q·c_b over the
// bed height.
func (e *Extraction) ExtractedMass() float64 {
	if len(e.Layers) < 2 {
		return 0
	}
	flux := e.Concentrations()
	floats.Scale(e.Q, flux)
	return integrate.Trapezoidal(e.Heights(), flux)
}

// AvailableMass returns the solubles initially held by the particles,
// summed over layers using the current particle volumes weighted by the
// number density of each class.
func (e *Extraction) AvailableMass() float64 {
	var volume float64
	for _, l := range e.Layers {
		rf, rc := l.Fine.Radius(), l.Coarse.Radius()
		volume += 4. / 3. * math.Pi * (rf*rf*rf*e.nFine + rc*rc*rc*e.nCoarse)
	}
	return volume * e.p.InitialConcentration * e.Dz
}

// Heights returns the position of each layer within the bed.
func (e *Extraction) Heights() []float64 {
	z := make([]float64, len(e.Layers))
	for i, l := range e.Layers {
		z[i] = l.Z
	}
	return z
}

// Concentrations returns a copy of the bulk concentration profile.
func (e *Extraction) Concentrations() []float64 {
	c := make([]float64, len(e.Layers))
	for i, l := range e.Layers {
		c[i] = l.Cb
	}
	return c
}

// Porosities returns a copy of the porosity profile.
func (e *Extraction) Porosities() []float64 {
	p := make([]float64, len(e.Layers))
	for i, l := range e.Layers {
		p[i] = l.Porosity
	}
	return p
}

// MeanPorosity returns the average porosity of the layers.
func (e *Extraction) MeanPorosity() float64 {
	if len(e.Layers) == 0 {
		return 0
	}
	return stat.Mean(e.Porosities(), nil)
}

// meanRadius returns the average physical radius of particle class c.
func (e *Extraction) meanRadius(c Class) float64 {
	r := make([]float64, len(e.Layers))
	for i, l := range e.Layers {
		r[i] = l.Particle(c).Radius()
	}
	return stat.Mean(r, nil)
}

// MaxSwellingDegree returns the largest relative volume increase of any
// particle in the bed.
func (e *Extraction) MaxSwellingDegree() float64 {
	s := make([]float64, len(e.particles))
	for i, p := range e.particles {
		s[i] = p.SwellingDegree()
	}
	if len(s) == 0 {
		return 0
	}
	return floats.Max(s)
}

// meanWaterContent returns the average relative water content of all
// particles.
func (e *Extraction) meanWaterContent() float64 {
	w := make([]float64, len(e.particles))
	for i, p := range e.particles {
		w[i] = p.WaterContent()
	}
	if len(w) == 0 {
		return 0
	}
	return stat.Mean(w, nil)
}

// Snapshot holds bed-averaged model output at one point in time.
type Snapshot struct {
	Time         float64 `desc:"Simulation time" units:"s"`
	Dt           float64 `desc:"Time step" units:"s"`
	FlowRate     float64 `desc:"Superficial flow velocity" units:"m/s"`
	Yield        float64 `desc:"Extraction yield" units:"%"`
	Strength     float64 `desc:"Beverage strength" units:"%"`
	Porosity     float64 `desc:"Mean bed porosity" units:""`
	FineRadius   float64 `desc:"Mean fine particle radius" units:"m"`
	CoarseRadius float64 `desc:"Mean coarse particle radius" units:"m"`
	WaterContent float64 `desc:"Mean relative particle water content" units:""`
	Swelling     float64 `desc:"Largest particle swelling degree" units:""`
}

// SnapshotVariables are the names of the Snapshot fields, in output order.
var SnapshotVariables = []string{"Time", "Dt", "FlowRate", "Yield", "Strength",
	"Porosity", "FineRadius", "CoarseRadius", "WaterContent", "Swelling"}

// Value returns the snapshot field with the given name.
func (s Snapshot) Value(name string) (float64, error) {
	switch name {
	case "Time":
		return s.Time, nil
	case "Dt":
		return s.Dt, nil
	case "FlowRate":
		return s.FlowRate, nil
	case "Yield":
		return s.Yield, nil
	case "Strength":
		return s.Strength, nil
	case "Porosity":
		return s.Porosity, nil
	case "FineRadius":
		return s.FineRadius, nil
	case "CoarseRadius":
		return s.CoarseRadius, nil
	case "WaterContent":
		return s.WaterContent, nil
	case "Swelling":
		return s.Swelling, nil
	default:
		return math.NaN(), fmt.Errorf("brew: unknown snapshot variable %q", name)
	}
}

// Snapshot returns the current bed-averaged state of the simulation.
func (e *Extraction) Snapshot() Snapshot {
	yield, strength := e.Metrics()
	return Snapshot{
		Time:         e.T,
		Dt:           e.Dt,
		FlowRate:     e.Q,
		Yield:        yield,
		Strength:     strength,
		Porosity:     e.MeanPorosity(),
		FineRadius:   e.meanRadius(Fine),
		CoarseRadius: e.meanRadius(Coarse),
		WaterContent: e.meanWaterContent(),
		Swelling:     e.MaxSwellingDegree(),
	}
}

// History is a record of simulation output.
type History struct {
	Snapshots []Snapshot

	// Heights and Profile hold the bulk concentration profile at the
	// last time it was recorded.
	Heights []float64
	Profile []float64
}

func (h *History) add(e *Extraction) {
	h.Snapshots = append(h.Snapshots, e.Snapshot())
	h.Heights = e.Heights()
	h.Profile = e.Concentrations()
}

// Series returns the named snapshot variable over time.
func (h *History) Series(name string) ([]float64, error) {
	out := make([]float64, len(h.Snapshots))
	for i, s := range h.Snapshots {
		v, err := s.Value(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Record returns a function that appends a snapshot to h whenever at
// least interval seconds of simulation time have passed since the last
// one. The first call always records. It should be placed before the
// stepping function in RunFuncs.
func Record(h *History, interval float64) DomainManipulator {
	var next float64
	first := true
	return func(e *Extraction) error {
		if !first && e.T < next {
			return nil
		}
		h.add(e)
		if first {
			next = e.T
			first = false
		}
		if interval <= 0 {
			return nil
		}
		for next <= e.T {
			next += interval
		}
		return nil
	}
}

// Finalize returns a function that records the final state of the
// simulation in h, unless it has already been recorded. It is meant to
// be used in CleanupFuncs.
func Finalize(h *History) DomainManipulator {
	return func(e *Extraction) error {
		if n := len(h.Snapshots); n > 0 && h.Snapshots[n-1].Time == e.T {
			h.Heights = e.Heights()
			h.Profile = e.Concentrations()
			return nil
		}
		h.add(e)
		return nil
	}
}
