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
	"testing"
)

func TestMetricsIdempotent(t *testing.T) {
	e := testExtraction(t, nil)
	if err := e.SetFlowRate(1.2e-3); err != nil {
		t.Fatal(err)
	}
	for step := 0; step < 100; step++ {
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
	}
	y1, s1 := e.Metrics()
	y2, s2 := e.Metrics()
	if y1 != y2 || s1 != s2 {
		t.Errorf("metrics changed between calls: (%g, %g) != (%g, %g)", y1, s1, y2, s2)
	}
	if snap1, snap2 := e.Snapshot(), e.Snapshot(); snap1 != snap2 {
		t.Errorf("snapshots differ: %+v != %+v", snap1, snap2)
	}
}

func TestZeroFlowYield(t *testing.T) {
	e := testExtraction(t, nil)
	if err := e.SetFlowRate(0); err != nil {
		t.Fatal(err)
	}
	for step := 0; step < 200; step++ {
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
		if yield, strength := e.Metrics(); yield != 0 || strength < 0 {
			t.Fatalf("step %d: yield=%g, strength=%g", step, yield, strength)
		}
	}
}

func TestMetricsValues(t *testing.T) {
	e := testExtraction(t, nil)
	if err := e.SetFlowRate(2e-3); err != nil {
		t.Fatal(err)
	}
	p := e.Parameters()
	for i, l := range e.Layers {
		l.Cb = float64(i + 1)
	}
	// Trapezoidal integral of q·c over uniformly spaced layers.
	var integral float64
	for i := 1; i < len(e.Layers); i++ {
		integral += 0.5 * (e.Layers[i-1].Cb + e.Layers[i].Cb) * e.Dz
	}
	integral *= 2e-3
	if m := e.ExtractedMass(); different(m, integral, 1e-12) {
		t.Errorf("extracted mass = %g; want %g", m, integral)
	}
	nf := numberDensity(p.BedPorosity, p.FineFraction, p.FineRadius)
	nc := numberDensity(p.BedPorosity, p.CoarseFraction, p.CoarseRadius)
	volume := float64(p.Layers) * 4. / 3. * math.Pi *
		(math.Pow(p.FineRadius, 3)*nf + math.Pow(p.CoarseRadius, 3)*nc)
	available := volume * p.InitialConcentration * e.Dz
	// Dry particles fill the solid fraction of the bed.
	solids := float64(p.Layers) * (1 - p.BedPorosity) * p.InitialConcentration * e.Dz
	if m := e.AvailableMass(); different(m, solids, 1e-9) {
		t.Errorf("available mass = %g; want %g", m, solids)
	}
	yield, strength := e.Metrics()
	if different(yield, integral/available*100, 1e-12) {
		t.Errorf("yield = %g; want %g", yield, integral/available*100)
	}
	if different(strength, 1/p.Density*100, 1e-12) {
		t.Errorf("strength = %g; want %g", strength, 1/p.Density*100)
	}
}

func TestMetricsNoSolubles(t *testing.T) {
	e := testExtraction(t, func(p *Params) { p.InitialConcentration = 0 })
	if err := e.SetFlowRate(1e-3); err != nil {
		t.Fatal(err)
	}
	e.Layers[0].Cb = 1
	if yield, _ := e.Metrics(); yield != 0 {
		t.Errorf("yield with nothing available = %g", yield)
	}
}

func TestRecordInterval(t *testing.T) {
	e := testExtraction(t, nil)
	if err := e.SetFlowRate(1e-3); err != nil {
		t.Fatal(err)
	}
	h := new(History)
	record := Record(h, 0.005)
	for step := 0; step < 30; step++ {
		if err := record(e); err != nil {
			t.Fatal(err)
		}
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
	}
	times, err := h.Series("Time")
	if err != nil {
		t.Fatal(err)
	}
	if len(times) < 2 || len(times) >= 30 {
		t.Fatalf("recorded %d snapshots in 30 steps", len(times))
	}
	// At most one snapshot per interval.
	for i := 1; i < len(times); i++ {
		prev := math.Floor(times[i-1]/0.005 + 1e-9)
		if cur := math.Floor(times[i]/0.005 + 1e-9); cur <= prev {
			t.Errorf("snapshots at %g and %g fall in the same interval", times[i-1], times[i])
		}
	}
	if _, err := h.Series("Temperature"); err == nil {
		t.Error("expected an error for an unknown variable")
	}
}

func TestRecordEveryStep(t *testing.T) {
	e := testExtraction(t, nil)
	if err := e.SetFlowRate(1e-3); err != nil {
		t.Fatal(err)
	}
	h := new(History)
	record := Record(h, 0)
	for step := 0; step < 5; step++ {
		if err := record(e); err != nil {
			t.Fatal(err)
		}
		if err := e.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if len(h.Snapshots) != 5 {
		t.Errorf("recorded %d snapshots; want 5", len(h.Snapshots))
	}
}

func TestSnapshotValues(t *testing.T) {
	e := testExtraction(t, nil)
	s := e.Snapshot()
	for _, name := range SnapshotVariables {
		if _, err := s.Value(name); err != nil {
			t.Error(err)
		}
	}
	p := e.Parameters()
	if s.FineRadius != p.FineRadius || s.CoarseRadius != p.CoarseRadius {
		t.Errorf("initial radii %g, %g", s.FineRadius, s.CoarseRadius)
	}
	if s.Porosity != p.BedPorosity || s.WaterContent != 0 || s.Swelling != 0 {
		t.Errorf("initial snapshot %+v", s)
	}
}
