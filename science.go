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
	"math"

	"github.com/ctessum/atmos/advect"
)

// Swelling returns a function that calculates water uptake into the
// particle matrix and the resulting swelling.
func Swelling() ParticleManipulator {
	return func(p *Particle, Δt float64) {
		p.StepSwelling(Δt)
	}
}

// Leaching returns a function that calculates diffusion of solubles
// through the particle and out of its surface.
func Leaching() ParticleManipulator {
	return func(p *Particle, Δt float64) {
		p.StepExtraction(Δt)
	}
}

// updatePorosity recomputes the bed porosity of each layer from the
// swollen particle volumes.
func (e *Extraction) updatePorosity() {
	p := &e.p
	for _, l := range e.Layers {
		l.porosityPrev = l.Porosity
		xf := l.Fine.Radius() / p.FineRadius
		xc := l.Coarse.Radius() / p.CoarseRadius
		solids := p.FineFraction*xf*xf*xf + p.CoarseFraction*xc*xc*xc
		l.Porosity = math.Max(1-(1-p.BedPorosity)*solids, p.MinPorosity)
	}
}

// sauterMeanDiameter returns the surface-volume mean particle diameter
// of the bed, based on the mean swollen radius of each class.
func (e *Extraction) sauterMeanDiameter() float64 {
	var rf, rc float64
	for _, l := range e.Layers {
		rf += l.Fine.Radius()
		rc += l.Coarse.Radius()
	}
	n := float64(len(e.Layers))
	rf /= n
	rc /= n
	return 2 / (e.p.CoarseFraction/rc + e.p.FineFraction/rf)
}

// permeability returns the Kozeny–Carman permeability [m²] of a bed with
// the given porosity and mean particle diameter d.
func permeability(porosity, d float64) float64 {
	return porosity * porosity * porosity * d * d / (72 * (1 - porosity) * (1 - porosity))
}

// updateFlowRate sets the flow rate from Darcy's law using the mean
// mobility of the layers.
func (e *Extraction) updateFlowRate() {
	d := e.sauterMeanDiameter()
	var mobility float64
	for _, l := range e.Layers {
		mobility += permeability(l.Porosity, d) / e.p.Viscosity
	}
	mobility /= float64(len(e.Layers))
	e.Q = mobility * e.pressureDrop / e.p.BedHeight
}

// bedTransport advances the bulk liquid concentration by Δt, accounting
// for advection, solubles released by the particles, and dilution by
// porosity change. The bottom layer is an open outlet held at zero.
//
// Dilution uses the change of each layer's porosity over the step,
// (ε-ε_prev)/Δt. It is not a difference of porosity between neighboring
// layers: only the pore volume gained or lost in place dilutes or
// concentrates the liquid already there.
func (e *Extraction) bedTransport(Δt float64) {
	for i, l := range e.Layers {
		e.cb[i] = l.Cb
	}
	n := len(e.Layers)
	fineArea := 4 * math.Pi * e.nFine
	coarseArea := 4 * math.Pi * e.nCoarse
	for i, l := range e.Layers {
		rf, rc := l.Fine.Radius(), l.Coarse.Radius()
		source := (fineArea*rf*rf*l.Fine.Flux() + coarseArea*rc*rc*l.Coarse.Flux()) / l.Porosity
		dilution := -(l.Porosity - l.porosityPrev) / Δt * e.cb[i] / l.Porosity
		l.Cb = math.Max(e.cb[i]+Δt*(e.advection(i)+source+dilution), 0)
	}
	e.Layers[n-1].Cb = 0
}

// advection returns the rate of change of the bulk concentration in
// layer i due to flow down the bed.
func (e *Extraction) advection(i int) float64 {
	if e.p.Advection == SchemeUpwind {
		return e.upwindAdvection(i)
	}
	v := e.Q / e.Layers[i].Porosity
	return -v * gradient(e.cb, e.Dz, i)
}

// upwindAdvection calculates advection using first-order upwind fluxes
// at the layer faces. Water enters the top of the bed free of solubles.
func (e *Extraction) upwindAdvection(i int) float64 {
	n := len(e.cb)
	v := e.Q / e.Layers[i].Porosity
	vIn, cIn := v, 0.
	if i > 0 {
		vIn = 0.5 * (e.Q/e.Layers[i-1].Porosity + v)
		cIn = e.cb[i-1]
	}
	vOut, cOut := v, e.cb[i]
	if i < n-1 {
		vOut = 0.5 * (v + e.Q/e.Layers[i+1].Porosity)
		cOut = e.cb[i+1]
	}
	return advect.UpwindFlux(vIn, cIn, e.cb[i], e.Dz) -
		advect.UpwindFlux(vOut, e.cb[i], cOut, e.Dz)
}

// gradient returns the derivative of f at index i with spacing h, using
// central differences in the interior and one-sided differences at the
// ends.
func gradient(f []float64, h float64, i int) float64 {
	n := len(f)
	switch {
	case n < 2:
		return 0
	case i == 0:
		return (f[1] - f[0]) / h
	case i == n-1:
		return (f[n-1] - f[n-2]) / h
	default:
		return (f[i+1] - f[i-1]) / (2 * h)
	}
}
