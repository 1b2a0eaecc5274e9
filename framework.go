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

// Package brew simulates coffee extraction in a packed bed of swelling
// particles. Each layer of the bed holds one fine and one coarse
// representative particle whose water uptake and soluble diffusion are
// solved on a radial grid, coupled to advective transport of the bulk
// liquid down the bed.
package brew

import (
	"errors"
	"fmt"
	"math"
)

// Version gives the version number.
const Version = "0.1.0"

var (
	// ErrNotInitialized is returned when a simulation is stepped or
	// configured before Init has been called.
	ErrNotInitialized = errors.New("brew: simulation has not been initialized")

	// ErrNoFlowConditions is returned when stepping a simulation that has
	// neither a flow rate nor a pressure drop.
	ErrNoFlowConditions = errors.New("brew: neither a flow rate nor a pressure drop has been set")

	// ErrFlowAlreadySet is returned when the flow conditions of a
	// simulation are set more than once.
	ErrFlowAlreadySet = errors.New("brew: flow conditions have already been set")

	// ErrTargetPassed is returned by StepTo when the target time is not
	// after the current simulation time.
	ErrTargetPassed = errors.New("brew: target time is not after the current time")
)

// Extraction holds the current state of the simulation.
type Extraction struct {
	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. Therefore, at least one of the functions should
	// set "Done" to true when the simulation is finished.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// after the simulation has completed.
	CleanupFuncs []DomainManipulator

	// Physics are the particle calculations performed at each time step,
	// in order. If nil when the bed is set up, water uptake is followed by
	// soluble extraction.
	Physics []ParticleManipulator

	Layers []*Layer

	T     float64 // simulation time [s]
	Dt    float64 // time step for the next step [s]
	Q     float64 // superficial flow velocity [m/s]
	Dz    float64 // layer spacing [m]
	Steps int     // number of completed steps

	// Done specifies whether the simulation is finished.
	Done bool

	p            Params
	nFine        float64 // number density of fine particles [1/m³]
	nCoarse      float64 // number density of coarse particles [1/m³]
	flow         flowMode
	pressureDrop float64
	particles    []*Particle
	cb           []float64
}

// Layer holds the state of a single horizontal slice of the bed.
type Layer struct {
	Z        float64 `desc:"Distance from the top of the bed" units:"m"`
	Cb       float64 `desc:"Bulk liquid soluble concentration" units:"g/mL"`
	Porosity float64 `desc:"Bed porosity" units:""`

	Fine   *Particle
	Coarse *Particle

	porosityPrev float64
}

// Particle returns the representative particle of class c.
func (l *Layer) Particle(c Class) *Particle {
	if c == Fine {
		return l.Fine
	}
	return l.Coarse
}

// DomainManipulator is a class of functions that operate on the entire
// simulation.
type DomainManipulator func(e *Extraction) error

// ParticleManipulator is a class of functions that operate on a single
// particle over time step Δt.
type ParticleManipulator func(p *Particle, Δt float64)

type flowMode int

const (
	flowUnset flowMode = iota
	flowFixedRate
	flowFixedPressure
)

// Init initializes the simulation by running InitFuncs.
func (e *Extraction) Init() error {
	for _, f := range e.InitFuncs {
		if err := f(e); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running RunFuncs until Done is true,
// followed by CleanupFuncs.
func (e *Extraction) Run() error {
	if e.Layers == nil {
		return ErrNotInitialized
	}
	if len(e.RunFuncs) == 0 {
		return fmt.Errorf("brew: no RunFuncs have been specified")
	}
	for !e.Done {
		for _, f := range e.RunFuncs {
			if err := f(e); err != nil {
				return err
			}
		}
	}
	for _, f := range e.CleanupFuncs {
		if err := f(e); err != nil {
			return err
		}
	}
	return nil
}

// New creates and initializes a simulation with parameters p. Flow
// conditions must be set before it can be stepped.
func New(p *Params) (*Extraction, error) {
	e := &Extraction{InitFuncs: []DomainManipulator{Setup(p)}}
	if err := e.Init(); err != nil {
		return nil, err
	}
	return e, nil
}

// Setup returns a function that builds a fresh bed of dry particles
// from parameters p. The parameters are copied, so later changes to p
// do not affect the simulation.
func Setup(p *Params) DomainManipulator {
	return func(e *Extraction) error {
		if p == nil {
			return fmt.Errorf("brew: setting up bed: nil parameters")
		}
		if err := p.Validate(); err != nil {
			return err
		}
		e.p = *p
		n := e.p.Layers
		if n > 1 {
			e.Dz = e.p.BedHeight / float64(n-1)
		} else {
			e.Dz = e.p.BedHeight
		}
		e.Layers = make([]*Layer, n)
		e.particles = make([]*Particle, 0, 2*n)
		e.cb = make([]float64, n)
		for i := range e.Layers {
			l := &Layer{
				Z:            float64(i) * e.Dz,
				Porosity:     e.p.BedPorosity,
				porosityPrev: e.p.BedPorosity,
				Fine:         NewParticle(Fine, e.p.FineRadius, &e.p),
				Coarse:       NewParticle(Coarse, e.p.CoarseRadius, &e.p),
			}
			e.Layers[i] = l
			e.particles = append(e.particles, l.Fine, l.Coarse)
		}
		e.nFine = numberDensity(e.p.BedPorosity, e.p.FineFraction, e.p.FineRadius)
		e.nCoarse = numberDensity(e.p.BedPorosity, e.p.CoarseFraction, e.p.CoarseRadius)
		if e.Physics == nil {
			e.Physics = []ParticleManipulator{Swelling(), Leaching()}
		}
		e.T = 0
		e.Dt = e.p.DtInit
		e.Q = 0
		e.Steps = 0
		e.Done = false
		e.flow = flowUnset
		e.pressureDrop = 0
		return nil
	}
}

// numberDensity returns the number of particles per unit bed volume for
// a size class occupying fraction of the solids.
func numberDensity(porosity, fraction, radius float64) float64 {
	return (1 - porosity) * 3 * fraction / (4 * math.Pi * radius * radius * radius)
}

// Parameters returns a copy of the simulation parameters.
func (e *Extraction) Parameters() Params { return e.p }

// SetFlowRate fixes the superficial flow velocity q [m/s] for the rest of
// the simulation. Flow conditions can only be set once.
func (e *Extraction) SetFlowRate(q float64) error {
	if e.flow != flowUnset {
		return fmt.Errorf("brew: setting flow rate: %w", ErrFlowAlreadySet)
	}
	if !(q >= 0) || math.IsInf(q, 0) {
		return fmt.Errorf("brew: flow rate must be finite and >= 0; got %g", q)
	}
	e.Q = q
	e.flow = flowFixedRate
	return nil
}

// SetPressureDrop fixes the pressure drop across the bed [Pa]. The flow
// rate is then recomputed from the bed permeability at every step. Flow
// conditions can only be set once.
func (e *Extraction) SetPressureDrop(dp float64) error {
	if e.Layers == nil {
		return ErrNotInitialized
	}
	if e.flow != flowUnset {
		return fmt.Errorf("brew: setting pressure drop: %w", ErrFlowAlreadySet)
	}
	if !(dp >= 0) || math.IsInf(dp, 0) {
		return fmt.Errorf("brew: pressure drop must be finite and >= 0; got %g", dp)
	}
	e.pressureDrop = dp
	e.flow = flowFixedPressure
	e.updateFlowRate()
	return nil
}

// FixedFlowRate returns a function that sets a constant flow rate q [m/s].
func FixedFlowRate(q float64) DomainManipulator {
	return func(e *Extraction) error { return e.SetFlowRate(q) }
}

// FixedPressureDrop returns a function that sets a constant pressure drop
// dp [Pa] across the bed.
func FixedPressureDrop(dp float64) DomainManipulator {
	return func(e *Extraction) error { return e.SetPressureDrop(dp) }
}
