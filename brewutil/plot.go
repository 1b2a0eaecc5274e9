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
	"os"

	"github.com/micheleben/brew"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Plot saves a 2×2 grid of plots to the PNG file fileName: extraction
// yield, beverage strength, and mean porosity over time, and the final
// bulk concentration profile through the bed.
func Plot(h *brew.History, fileName string) error {
	if len(h.Snapshots) == 0 {
		return fmt.Errorf("brew: there is no recorded output to plot")
	}
	series := func(name string, scale float64) []float64 {
		v, err := h.Series(name)
		if err != nil {
			panic(err) // names are fixed below
		}
		for i := range v {
			v[i] *= scale
		}
		return v
	}
	t := series("Time", 1)

	z := make([]float64, len(h.Heights))
	c := make([]float64, len(h.Profile))
	for i := range h.Heights {
		z[i] = h.Heights[i] * 1000
		c[i] = h.Profile[i] * 1000
	}

	type panel struct {
		title, x, y string
		xs, ys      []float64
	}
	panels := [][]panel{
		{
			{"Extraction yield", "Time (s)", "Yield (%)", t, series("Yield", 1)},
			{"Beverage strength", "Time (s)", "Strength (%)", t, series("Strength", 1)},
		},
		{
			{"Bed porosity", "Time (s)", "Mean porosity", t, series("Porosity", 1)},
			{"Final concentration profile", "Height (mm)", "Concentration (mg/mL)", z, c},
		},
	}

	plots := make([][]*plot.Plot, len(panels))
	for j, row := range panels {
		plots[j] = make([]*plot.Plot, len(row))
		for i, pn := range row {
			p, err := linePlot(pn.title, pn.x, pn.y, pn.xs, pn.ys)
			if err != nil {
				return err
			}
			plots[j][i] = p
		}
	}

	img := vgimg.New(vg.Points(800), vg.Points(600))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(panels),
		Cols:      len(panels[0]),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("brew: creating plot file: %v", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("brew: writing plot file: %v", err)
	}
	return f.Close()
}

func linePlot(title, xLabel, yLabel string, x, y []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	xy := make(plotter.XYs, len(x))
	for i := range x {
		xy[i].X = x[i]
		xy[i].Y = y[i]
	}
	if err := plotutil.AddLinePoints(p, xy); err != nil {
		return nil, fmt.Errorf("brew: plotting %s: %v", title, err)
	}
	return p, nil
}
