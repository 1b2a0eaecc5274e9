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
	"testing"

	"gonum.org/v1/gonum/integrate"
)

func TestNewParticle(t *testing.T) {
	p := DefaultParams()
	pt := NewParticle(Fine, p.FineRadius, p)
	n := p.Shells
	if len(pt.R) != n || len(pt.Cw) != n || len(pt.C) != n || len(pt.Radii) != n {
		t.Fatalf("shell count mismatch: %d, %d, %d, %d", len(pt.R), len(pt.Cw), len(pt.C), len(pt.Radii))
	}
	if pt.R[0] != 0 || pt.R[n-1] != p.FineRadius {
		t.Errorf("material grid spans [%g, %g]", pt.R[0], pt.R[n-1])
	}
	if pt.Radius() != p.FineRadius {
		t.Errorf("radius = %g; want %g", pt.Radius(), p.FineRadius)
	}
	for i := range pt.C {
		if pt.Cw[i] != 0 || pt.C[i] != p.InitialConcentration {
			t.Errorf("shell %d: c_w=%g, c=%g", i, pt.Cw[i], pt.C[i])
		}
	}
	if f := pt.Flux(); f != 0 {
		t.Errorf("flux of a uniform particle = %g", f)
	}
	if w := pt.WaterContent(); w != 0 {
		t.Errorf("water content of a dry particle = %g", w)
	}
	if s := pt.SwellingDegree(); s != 0 {
		t.Errorf("swelling degree of a dry particle = %g", s)
	}
}

func TestNewParticlePanics(t *testing.T) {
	t.Run("shells", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected a panic")
			}
		}()
		p := DefaultParams()
		p.Shells = 2
		NewParticle(Fine, p.FineRadius, p)
	})
	t.Run("radius", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected a panic")
			}
		}()
		NewParticle(Coarse, 0, DefaultParams())
	})
}

// A dry particle wets at its surface on the first step and starts to swell.
func TestSwellingSurfaceWetting(t *testing.T) {
	p := DefaultParams()
	for _, c := range []Class{Fine, Coarse} {
		t.Run(c.String(), func(t *testing.T) {
			pt := NewParticle(c, p.radius(c), p)
			r0 := pt.Radius()
			for i := 0; i < 10; i++ {
				pt.StepSwelling(p.DtInit)
			}
			if pt.Cw[len(pt.Cw)-1] != p.MaxWaterFraction {
				t.Errorf("surface water fraction = %g; want %g", pt.Cw[len(pt.Cw)-1], p.MaxWaterFraction)
			}
			if !(pt.Radius() > r0) {
				t.Errorf("radius %g did not exceed initial radius %g", pt.Radius(), r0)
			}
		})
	}
}

func TestSwellingBounds(t *testing.T) {
	p := DefaultParams()
	p.Shells = 15
	pt := NewParticle(Fine, p.FineRadius, p)
	prev := append([]float64{}, pt.Radii...)
	for step := 0; step < 300; step++ {
		pt.StepSwelling(p.DtSat)
		for i, cw := range pt.Cw {
			if cw < 0 || cw > p.MaxWaterFraction {
				t.Fatalf("step %d shell %d: c_w=%g out of bounds", step, i, cw)
			}
			if pt.Radii[i] < prev[i] {
				t.Fatalf("step %d shell %d: position moved inward from %g to %g", step, i, prev[i], pt.Radii[i])
			}
			if i > 0 && pt.Radii[i] < pt.Radii[i-1] {
				t.Fatalf("step %d: shell positions not increasing at %d", step, i)
			}
		}
		if w := pt.WaterContent(); w > 1.01 {
			t.Fatalf("step %d: water content %g exceeds saturation", step, w)
		}
		copy(prev, pt.Radii)
	}
}

// A saturated particle has taken up c_w/(1-c_w) of its dry volume in water.
func TestSwellingSaturation(t *testing.T) {
	p := DefaultParams()
	pt := NewParticle(Fine, p.FineRadius, p)
	for step := 0; step < 500; step++ {
		pt.StepSwelling(p.DtSat)
	}
	if w := pt.WaterContent(); different(w, 1, 1e-3) {
		t.Errorf("water content = %g; want 1", w)
	}
	want := p.MaxWaterFraction / (1 - p.MaxWaterFraction)
	if s := pt.SwellingDegree(); different(s, want, 0.01) {
		t.Errorf("swelling degree = %g; want %g", s, want)
	}
}

func TestLeaching(t *testing.T) {
	p := DefaultParams()
	p.Shells = 20
	pt := NewParticle(Fine, p.FineRadius, p)
	content := func() float64 {
		f := make([]float64, len(pt.R))
		for i, r := range pt.R {
			f[i] = r * r * pt.C[i]
		}
		return integrate.Trapezoidal(pt.R, f)
	}
	initial := content()
	for step := 0; step < 100; step++ {
		pt.StepSwelling(p.DtInit)
		pt.StepExtraction(p.DtInit)
		if f := pt.Flux(); f < 0 {
			t.Fatalf("step %d: negative flux %g", step, f)
		}
		for i, c := range pt.C {
			if c < 0 {
				t.Fatalf("step %d shell %d: negative concentration %g", step, i, c)
			}
		}
	}
	if pt.C[len(pt.C)-1] != 0 {
		t.Errorf("surface concentration into clean water = %g; want 0", pt.C[len(pt.C)-1])
	}
	if pt.Flux() <= 0 {
		t.Errorf("flux into clean water = %g; want > 0", pt.Flux())
	}
	if after := content(); !(after < initial) {
		t.Errorf("soluble content grew from %g to %g", initial, after)
	}
}

// Solubles stay put when the surrounding liquid is richer than the
// particle surface.
func TestLeachingNoFlux(t *testing.T) {
	p := DefaultParams()
	pt := NewParticle(Coarse, p.CoarseRadius, p)
	pt.Cb = p.InitialConcentration * p.Partition * 2
	for step := 0; step < 50; step++ {
		pt.StepExtraction(p.DtSat)
	}
	for i, c := range pt.C {
		if absDifferent(c, p.InitialConcentration, 1e-12) {
			t.Errorf("shell %d: c=%g; want %g", i, c, p.InitialConcentration)
		}
	}
	if f := pt.Flux(); f > 1e-15 {
		t.Errorf("flux = %g; want 0", f)
	}
}

func TestLeachingZeroConcentration(t *testing.T) {
	p := DefaultParams()
	p.InitialConcentration = 0
	pt := NewParticle(Fine, p.FineRadius, p)
	for step := 0; step < 100; step++ {
		pt.StepSwelling(p.DtInit)
		pt.StepExtraction(p.DtInit)
		if f := pt.Flux(); f != 0 {
			t.Fatalf("step %d: flux = %g", step, f)
		}
	}
	for i, c := range pt.C {
		if c != 0 {
			t.Errorf("shell %d: c=%g", i, c)
		}
	}
}
