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

	"gonum.org/v1/gonum/integrate"
)

// geometryEps keeps the swelling integrand finite as the water fraction
// approaches one.
const geometryEps = 1e-10

// Particle is a spherical coffee particle discretized into radial shells
// on a fixed material (dry) coordinate. The exported slices are the model
// state and should be treated as read-only by callers.
type Particle struct {
	Class Class

	R0 float64 `desc:"Dry radius" units:"m"`
	dR float64

	// R holds the material coordinate of each shell, from the center (0)
	// to the dry radius.
	R []float64

	// Cw is the water volume fraction in each shell.
	Cw []float64

	// C is the soluble concentration in each shell.
	C []float64

	// Radii is the physical (swollen) radial position of each shell.
	Radii []float64

	// Cb is the bulk liquid concentration surrounding the particle. It is
	// set by the bed before each step.
	Cb float64

	p   *Params
	sys *tridiag
}

// NewParticle creates a dry particle of class c with the given radius.
// It panics if p.Shells < 3 or the radius is not positive.
func NewParticle(c Class, radius float64, p *Params) *Particle {
	n := p.Shells
	if n < 3 {
		panic(fmt.Errorf("brew: a particle needs at least 3 shells; got %d", n))
	}
	if !(radius > 0) {
		panic(fmt.Errorf("brew: particle radius must be positive; got %g", radius))
	}
	pt := &Particle{
		Class: c,
		R0:    radius,
		dR:    radius / float64(n-1),
		R:     make([]float64, n),
		Cw:    make([]float64, n),
		C:     make([]float64, n),
		Radii: make([]float64, n),
		p:     p,
		sys:   newTridiag(n),
	}
	for i := range pt.R {
		pt.R[i] = float64(i) * pt.dR
		pt.C[i] = p.InitialConcentration
	}
	pt.R[n-1] = radius
	copy(pt.Radii, pt.R)
	return pt
}

// StepSwelling advances water uptake by Δt with an implicit scheme and
// updates the physical geometry. The surface shell is held at the
// saturation water fraction.
func (pt *Particle) StepSwelling(Δt float64) {
	n := len(pt.Cw)
	s := pt.sys
	s.lower[0], s.diag[0], s.upper[0], s.rhs[0] = 0, 1, -1, 0
	for i := 1; i < n-1; i++ {
		d := pt.p.WaterDiffusivity * math.Pow(1-pt.Cw[i], pt.p.MobilityExponent)
		pt.setInterior(i, d*Δt/(pt.dR*pt.dR))
		s.rhs[i] = pt.Cw[i]
	}
	s.lower[n-1], s.diag[n-1], s.upper[n-1], s.rhs[n-1] = 0, 1, 0, pt.p.MaxWaterFraction
	s.solve(pt.Cw)
	for i, v := range pt.Cw {
		pt.Cw[i] = math.Min(math.Max(v, 0), pt.p.MaxWaterFraction)
	}
	pt.updateGeometry()
}

// StepExtraction advances soluble diffusion by Δt with an implicit scheme.
// The intra-particle diffusivity grows with the local water fraction, and
// the moving matrix contributes a source proportional to the curvature of
// the water profile. Solubles leave through the surface only while the
// equilibrium surface concentration is below the adjacent interior value.
func (pt *Particle) StepExtraction(Δt float64) {
	n := len(pt.C)
	s := pt.sys
	p := pt.p
	s.lower[0], s.diag[0], s.upper[0], s.rhs[0] = 0, 1, -1, 0
	for i := 1; i < n-1; i++ {
		pt.setInterior(i, pt.diffusivity(i)*Δt/(pt.dR*pt.dR))
		s.rhs[i] = pt.C[i] - Δt*pt.C[i]*p.WaterDiffusivity*pt.waterLaplacian(i)
	}
	s.upper[n-1] = 0
	if target := pt.Cb / p.Partition; target < pt.C[n-2] {
		s.lower[n-1], s.diag[n-1], s.rhs[n-1] = 0, 1, target
	} else {
		// No flux.
		s.lower[n-1], s.diag[n-1], s.rhs[n-1] = -1, 1, 0
	}
	s.solve(pt.C)
	for i, v := range pt.C {
		pt.C[i] = math.Max(v, 0)
	}
}

// setInterior fills row i of the particle system for a spherical
// diffusion operator with dimensionless coefficient a = D·Δt/ΔR².
func (pt *Particle) setInterior(i int, a float64) {
	g := pt.dR / (2 * pt.R[i])
	pt.sys.lower[i] = -a * (1 - g)
	pt.sys.diag[i] = 1 + 2*a
	pt.sys.upper[i] = -a * (1 + g)
}

// diffusivity returns the effective soluble diffusivity in shell i.
func (pt *Particle) diffusivity(i int) float64 {
	p := pt.p
	eps := 1 - (1-p.ParticlePorosity)*(1-pt.Cw[i])
	return p.BulkDiffusivity * eps / (p.Tortuosity * p.Hindrance)
}

// waterLaplacian returns the spherical Laplacian of the water fraction at
// interior shell i, using radii at the shell midpoints.
func (pt *Particle) waterLaplacian(i int) float64 {
	rp := 0.5 * (pt.R[i] + pt.R[i+1])
	rm := 0.5 * (pt.R[i-1] + pt.R[i])
	outer := rp * rp * (pt.Cw[i+1] - pt.Cw[i]) / pt.dR
	inner := rm * rm * (pt.Cw[i] - pt.Cw[i-1]) / pt.dR
	return (outer - inner) / (pt.dR * pt.R[i] * pt.R[i])
}

// updateGeometry recomputes the physical shell positions from the water
// profile: r³ = R³ + 3∫₀^R ξ²·c_w/(1-c_w) dξ. Shell positions never move
// inward.
func (pt *Particle) updateGeometry() {
	var integral, prev float64
	for i := 1; i < len(pt.R); i++ {
		f := pt.R[i] * pt.R[i] * pt.Cw[i] / (1 - pt.Cw[i] + geometryEps)
		integral += 0.5 * (prev + f) * pt.dR
		prev = f
		r := math.Cbrt(pt.R[i]*pt.R[i]*pt.R[i] + 3*integral)
		if r > pt.Radii[i] {
			pt.Radii[i] = r
		}
	}
}

// Radius returns the physical radius of the particle.
func (pt *Particle) Radius() float64 { return pt.Radii[len(pt.Radii)-1] }

// Flux returns the outward soluble flux density at the particle surface.
// It is never negative.
func (pt *Particle) Flux() float64 {
	n := len(pt.C)
	r := pt.Radius()
	if r <= 0 {
		return 0
	}
	dcdR := (pt.C[n-1] - pt.C[n-2]) / pt.dR
	// Convert the material gradient to the physical surface.
	jacobian := r * r * (1 - pt.Cw[n-1]) / (pt.R0 * pt.R0)
	return math.Max(-pt.diffusivity(n-1)*dcdR*jacobian, 0)
}

// WaterContent returns the volume-averaged water fraction of the particle
// relative to saturation, between 0 (dry) and 1 (saturated).
func (pt *Particle) WaterContent() float64 {
	if pt.p.MaxWaterFraction == 0 {
		return 0
	}
	weighted := make([]float64, len(pt.R))
	volume := make([]float64, len(pt.R))
	for i, r := range pt.R {
		volume[i] = r * r
		weighted[i] = r * r * pt.Cw[i]
	}
	return integrate.Trapezoidal(pt.R, weighted) /
		integrate.Trapezoidal(pt.R, volume) / pt.p.MaxWaterFraction
}

// SwellingDegree returns the relative volume increase of the particle.
func (pt *Particle) SwellingDegree() float64 {
	x := pt.Radius() / pt.R0
	return x*x*x - 1
}
