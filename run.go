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
	"runtime"
	"sync"
	"time"
)

// calculate concurrently runs a series of calculations on all of the
// particles in the bed. Particles are independent within a step, so
// no locking is needed.
func (e *Extraction) calculate(Δt float64, calculators []ParticleManipulator) {
	nprocs := runtime.GOMAXPROCS(0) // number of processors
	if nprocs > len(e.particles) {
		nprocs = len(e.particles)
	}
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for ii := pp; ii < len(e.particles); ii += nprocs {
				p := e.particles[ii]
				for _, f := range calculators {
					f(p, Δt)
				}
			}
		}(pp)
	}
	wg.Wait()
}

// Step advances the simulation by the current time step Dt.
func (e *Extraction) Step() error {
	if e.Layers == nil {
		return ErrNotInitialized
	}
	return e.step(e.Dt, false, 0)
}

// StepTo advances the simulation by one step without passing target.
// It returns ErrTargetPassed if target is not after the current time.
func (e *Extraction) StepTo(target float64) error {
	if e.Layers == nil {
		return ErrNotInitialized
	}
	if !(target > e.T) {
		return fmt.Errorf("brew: stepping to t=%g s from t=%g s: %w", target, e.T, ErrTargetPassed)
	}
	if remaining := target - e.T; remaining <= e.Dt {
		return e.step(remaining, true, target)
	}
	return e.step(e.Dt, false, 0)
}

// step advances the simulation by Δt. If snap is true, the simulation
// time is set to target afterwards so that rounding never leaves a
// sliver of time before it.
func (e *Extraction) step(Δt float64, snap bool, target float64) error {
	if e.flow == flowUnset {
		return ErrNoFlowConditions
	}
	for _, l := range e.Layers {
		l.Fine.Cb = l.Cb
		l.Coarse.Cb = l.Cb
	}
	e.calculate(Δt, e.Physics)
	e.updatePorosity()
	if e.flow == flowFixedPressure {
		e.updateFlowRate()
	}
	e.bedTransport(Δt)
	if snap {
		e.T = target
	} else {
		e.T += Δt
	}
	e.Steps++
	e.updateTimeStep()
	return nil
}

// updateTimeStep sets Dt for the next step. The diffusive limit relaxes
// from DtInit toward DtSat as the particles saturate, and the advective
// limit keeps the Courant number at CFLFraction.
func (e *Extraction) updateTimeStep() {
	p := &e.p
	dtDiff := p.DtSat - (p.DtSat-p.DtInit)*math.Exp(-e.T/p.SwellTime)
	dtCFL := p.DtSat
	if v := e.maxVelocity(); v > 0 {
		dtCFL = p.CFLFraction * e.Dz / v
	}
	e.Dt = math.Min(dtDiff, dtCFL)
}

// maxVelocity returns the largest interstitial velocity in the bed.
func (e *Extraction) maxVelocity() float64 {
	var v float64
	for _, l := range e.Layers {
		v = math.Max(v, e.Q/l.Porosity)
	}
	return v
}

// Advance returns a function that advances the simulation by one step
// without passing endTime, and sets the Done flag once endTime has been
// reached.
func Advance(endTime float64) DomainManipulator {
	return func(e *Extraction) error {
		if e.T >= endTime {
			e.Done = true
			return nil
		}
		if err := e.StepTo(endTime); err != nil {
			return err
		}
		if e.T >= endTime {
			e.Done = true
		}
		return nil
	}
}

// NumSteps returns a function that advances the simulation by one step
// and sets the Done flag after n steps have been taken.
func NumSteps(n int) DomainManipulator {
	iteration := 0
	return func(e *Extraction) error {
		if iteration >= n {
			e.Done = true
			return nil
		}
		if err := e.Step(); err != nil {
			return err
		}
		iteration++
		if iteration >= n {
			e.Done = true
		}
		return nil
	}
}

// YieldConvergenceCheck returns a function that sets the Done flag once
// the extraction yield changes by less than tolerance percentage points
// between checks spaced at least period seconds apart. It does not step
// the simulation itself.
func YieldConvergenceCheck(tolerance, period float64) DomainManipulator {
	var lastCheck, oldYield float64
	checked := false
	return func(e *Extraction) error {
		if checked && e.T-lastCheck < period {
			return nil
		}
		yield, _ := e.Metrics()
		if checked && math.Abs(yield-oldYield) < tolerance {
			e.Done = true
		}
		checked = true
		lastCheck = e.T
		oldYield = yield
		return nil
	}
}

// SimulationStatus holds information about the progress of a simulation.
type SimulationStatus struct {
	Step         int
	Time         float64 // simulation time [s]
	Dt           float64 // next time step [s]
	FlowRate     float64 // superficial velocity [m/s]
	Yield        float64 // extraction yield [%]
	Strength     float64 // beverage strength [%]
	Porosity     float64 // mean bed porosity
	Walltime     time.Duration
	StepWalltime time.Duration
}

func (s *SimulationStatus) String() string {
	return fmt.Sprintf("step %-6d  t=%7.3f s  Δt=%.3g s  q=%.3g m/s  yield=%6.2f%%  strength=%6.3f%%  porosity=%.4f  walltime=%6.3gh  Δwalltime=%4.2gs",
		s.Step, s.Time, s.Dt, s.FlowRate, s.Yield, s.Strength, s.Porosity,
		s.Walltime.Hours(), s.StepWalltime.Seconds())
}

// Log returns a function that sends simulation status messages to c.
// The send blocks, so c must be drained by the caller.
func Log(c chan *SimulationStatus) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()
	return func(e *Extraction) error {
		yield, strength := e.Metrics()
		c <- &SimulationStatus{
			Step:         e.Steps,
			Time:         e.T,
			Dt:           e.Dt,
			FlowRate:     e.Q,
			Yield:        yield,
			Strength:     strength,
			Porosity:     e.MeanPorosity(),
			Walltime:     time.Since(startTime),
			StepWalltime: time.Since(timeStepTime),
		}
		timeStepTime = time.Now()
		return nil
	}
}
