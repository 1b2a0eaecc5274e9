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
)

// Class identifies a particle size class.
type Class int

// The particle size classes present in every layer of the bed.
const (
	Fine Class = iota
	Coarse
)

func (c Class) String() string {
	switch c {
	case Fine:
		return "fine"
	case Coarse:
		return "coarse"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Advection schemes for bulk transport through the bed.
const (
	SchemeCentral = "central"
	SchemeUpwind  = "upwind"
)

// Params holds the physical and numerical parameters of an extraction.
// Concentrations are mass fractions scaled so that the initial intra-particle
// concentration is InitialConcentration; the bulk liquid concentration uses
// the same scale.
type Params struct {
	BedHeight float64 `desc:"Height of the coffee bed" units:"m"`
	Layers    int     `desc:"Number of vertical layers in the bed" units:""`
	Shells    int     `desc:"Number of radial shells in each particle" units:""`

	FineRadius     float64 `desc:"Dry radius of fine particles" units:"m"`
	CoarseRadius   float64 `desc:"Dry radius of coarse particles" units:"m"`
	FineFraction   float64 `desc:"Solid volume fraction of fine particles" units:""`
	CoarseFraction float64 `desc:"Solid volume fraction of coarse particles" units:""`

	WaterDiffusivity float64 `desc:"Diffusivity of water into the particle matrix" units:"m²/s"`
	BulkDiffusivity  float64 `desc:"Free diffusivity of solubles in water" units:"m²/s"`
	Viscosity        float64 `desc:"Dynamic viscosity of the brewing water" units:"Pa·s"`
	Density          float64 `desc:"Density of the brewing water" units:"kg/m³"`

	BedPorosity      float64 `desc:"Initial porosity of the packed bed" units:""`
	ParticlePorosity float64 `desc:"Intra-particle porosity of the dry matrix" units:""`
	Tortuosity       float64 `desc:"Tortuosity of the intra-particle pore network" units:""`
	Hindrance        float64 `desc:"Hindrance factor for solute diffusion" units:""`
	Partition        float64 `desc:"Solid/liquid partition coefficient at the particle surface" units:""`

	InitialConcentration float64 `desc:"Initial soluble concentration in the particles" units:"g/mL"`
	MaxWaterFraction     float64 `desc:"Water volume fraction at particle saturation" units:""`
	MaxSwelling          float64 `desc:"Swelling degree above which a warning is reported" units:""`

	DtInit    float64 `desc:"Initial time step" units:"s"`
	DtSat     float64 `desc:"Time step once the particles are saturated" units:"s"`
	SwellTime float64 `desc:"Time constant of the time step relaxation" units:"s"`

	MobilityExponent float64 `desc:"Exponent of the water mobility factor (1-c_w)^n" units:""`
	MinPorosity      float64 `desc:"Lower bound on bed porosity" units:""`
	CFLFraction      float64 `desc:"Courant number used to limit the time step" units:""`
	Advection        string  `desc:"Advection scheme for the bulk liquid (central or upwind)" units:""`
}

// DefaultParams returns the parameters of a typical espresso shot.
func DefaultParams() *Params {
	return &Params{
		BedHeight: 0.0126,
		Layers:    10,
		Shells:    30,

		FineRadius:     13.74e-6,
		CoarseRadius:   160.85e-6,
		FineFraction:   0.292,
		CoarseFraction: 0.708,

		WaterDiffusivity: 1.25e-10,
		BulkDiffusivity:  2e-9,
		Viscosity:        1e-3,
		Density:          1000,

		BedPorosity:      0.17,
		ParticlePorosity: 0.4,
		Tortuosity:       3.2,
		Hindrance:        2.0,
		Partition:        0.6,

		InitialConcentration: 0.216,
		MaxWaterFraction:     0.1,
		MaxSwelling:          0.036,

		DtInit:    0.001,
		DtSat:     0.02,
		SwellTime: 1.0,

		MobilityExponent: 1,
		MinPorosity:      0.01,
		CFLFraction:      0.1,
		Advection:        SchemeCentral,
	}
}

// Validate checks that the parameters describe a physically meaningful
// extraction.
func (p *Params) Validate() error {
	const prefix = "brew: invalid parameters"
	if p.Layers < 1 {
		return fmt.Errorf("%s: Layers=%d but should be >= 1", prefix, p.Layers)
	}
	if p.Shells < 3 {
		return fmt.Errorf("%s: Shells=%d but should be >= 3", prefix, p.Shells)
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"BedHeight", p.BedHeight},
		{"FineRadius", p.FineRadius},
		{"CoarseRadius", p.CoarseRadius},
		{"WaterDiffusivity", p.WaterDiffusivity},
		{"BulkDiffusivity", p.BulkDiffusivity},
		{"Viscosity", p.Viscosity},
		{"Density", p.Density},
		{"Tortuosity", p.Tortuosity},
		{"Hindrance", p.Hindrance},
		{"Partition", p.Partition},
		{"DtInit", p.DtInit},
		{"DtSat", p.DtSat},
		{"SwellTime", p.SwellTime},
		{"CFLFraction", p.CFLFraction},
	}
	for _, v := range positive {
		if !(v.v > 0) || math.IsInf(v.v, 0) {
			return fmt.Errorf("%s: %s=%g but should be > 0", prefix, v.name, v.v)
		}
	}
	fractions := []struct {
		name string
		v    float64
	}{
		{"FineFraction", p.FineFraction},
		{"CoarseFraction", p.CoarseFraction},
		{"ParticlePorosity", p.ParticlePorosity},
	}
	for _, v := range fractions {
		if !(v.v >= 0 && v.v <= 1) {
			return fmt.Errorf("%s: %s=%g but should be within [0, 1]", prefix, v.name, v.v)
		}
	}
	if sum := p.FineFraction + p.CoarseFraction; math.Abs(sum-1) > 1e-3 {
		return fmt.Errorf("%s: FineFraction+CoarseFraction=%g but should be 1", prefix, sum)
	}
	if !(p.BedPorosity > 0 && p.BedPorosity < 1) {
		return fmt.Errorf("%s: BedPorosity=%g but should be within (0, 1)", prefix, p.BedPorosity)
	}
	if !(p.MaxWaterFraction >= 0 && p.MaxWaterFraction < 1) {
		return fmt.Errorf("%s: MaxWaterFraction=%g but should be within [0, 1)", prefix, p.MaxWaterFraction)
	}
	if !(p.MinPorosity > 0 && p.MinPorosity < 1) {
		return fmt.Errorf("%s: MinPorosity=%g but should be within (0, 1)", prefix, p.MinPorosity)
	}
	if p.MinPorosity > p.BedPorosity {
		return fmt.Errorf("%s: MinPorosity=%g but should be <= BedPorosity=%g", prefix, p.MinPorosity, p.BedPorosity)
	}
	if !(p.InitialConcentration >= 0) {
		return fmt.Errorf("%s: InitialConcentration=%g but should be >= 0", prefix, p.InitialConcentration)
	}
	if !(p.MobilityExponent >= 0) {
		return fmt.Errorf("%s: MobilityExponent=%g but should be >= 0", prefix, p.MobilityExponent)
	}
	if !(p.MaxSwelling >= 0) {
		return fmt.Errorf("%s: MaxSwelling=%g but should be >= 0", prefix, p.MaxSwelling)
	}
	if p.DtSat < p.DtInit {
		return fmt.Errorf("%s: DtSat=%g is smaller than DtInit=%g", prefix, p.DtSat, p.DtInit)
	}
	switch p.Advection {
	case SchemeCentral, SchemeUpwind:
	default:
		return fmt.Errorf("%s: Advection=%q but should be %q or %q", prefix, p.Advection,
			SchemeCentral, SchemeUpwind)
	}
	return nil
}

// radius returns the dry radius of particle class c.
func (p *Params) radius(c Class) float64 {
	if c == Fine {
		return p.FineRadius
	}
	return p.CoarseRadius
}

// fraction returns the solid volume fraction of particle class c.
func (p *Params) fraction(c Class) float64 {
	if c == Fine {
		return p.FineFraction
	}
	return p.CoarseFraction
}
