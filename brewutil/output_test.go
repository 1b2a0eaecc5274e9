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
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/Knetic/govaluate"
	"github.com/micheleben/brew"
	"github.com/tealeg/xlsx"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func testHistory() *brew.History {
	return &brew.History{
		Snapshots: []brew.Snapshot{
			{Time: 0, Dt: 0.001, FlowRate: 1e-3, Porosity: 0.17},
			{Time: 1, Dt: 0.01, FlowRate: 1e-3, Yield: 10, Strength: 5, Porosity: 0.16},
			{Time: 2, Dt: 0.02, FlowRate: 1e-3, Yield: 20, Strength: 8, Porosity: 0.15},
		},
		Heights: []float64{0, 0.005, 0.01},
		Profile: []float64{0.1, 0.05, 0},
	}
}

func TestNewOutputterErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"syntax":          {"a": "Yield +"},
		"unknown":         {"a": "Espresso * 2"},
		"cycle":           {"a": "b + 1", "b": "c + 1", "c": "a + 1"},
		"model variable":  {"Yield": "Strength * 2"},
		"unknown in deps": {"a": "b", "b": "Crema"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewOutputter("out.csv", vars, nil); err == nil {
				t.Errorf("expected an error for %v", vars)
			}
		})
	}
}

func TestOutputterResults(t *testing.T) {
	o, err := NewOutputter("out.csv", map[string]string{
		"YieldFraction": "Yield / 100",
		"Double":        "YieldFraction * 2",
		"Ratio":         "pow(Strength, 2) / exp(log(Strength + 1) - log(Strength + 1))",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	wantCols := append(append([]string{}, brew.SnapshotVariables...), "Double", "Ratio", "YieldFraction")
	if cols := o.Columns(); !reflect.DeepEqual(cols, wantCols) {
		t.Errorf("columns: have %v, want %v", cols, wantCols)
	}
	rows, err := o.Results(testHistory())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("have %d rows, want 3", len(rows))
	}
	n := len(brew.SnapshotVariables)
	for i, want := range [][]float64{{0, 0, 0}, {0.2, 25, 0.1}, {0.4, 64, 0.2}} {
		for j, w := range want {
			if different(rows[i][n+j], w, 1e-12) {
				t.Errorf("row %d column %s: have %g, want %g", i, wantCols[n+j], rows[i][n+j], w)
			}
		}
		if rows[i][0] != float64(i) {
			t.Errorf("row %d Time: have %g, want %d", i, rows[i][0], i)
		}
	}
}

func TestOutputterCustomFunction(t *testing.T) {
	o, err := NewOutputter("out.csv", map[string]string{"a": "double(Yield)"},
		map[string]govaluate.ExpressionFunction{"double": func(arg ...interface{}) (interface{}, error) {
			return arg[0].(float64) * 2, nil
		}})
	if err != nil {
		t.Fatal(err)
	}
	rows, err := o.Results(testHistory())
	if err != nil {
		t.Fatal(err)
	}
	if v := rows[2][len(rows[2])-1]; v != 40 {
		t.Errorf("have %g, want 40", v)
	}
}

func TestOutputCSV(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "out.csv")
	o, err := NewOutputter(fileName, map[string]string{"YieldFraction": "Yield / 100"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(testHistory()); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(fileName)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("have %d records, want 4", len(records))
	}
	if !reflect.DeepEqual(records[0], o.Columns()) {
		t.Errorf("header: have %v, want %v", records[0], o.Columns())
	}
	last := records[3]
	if last[len(last)-1] != "0.2" {
		t.Errorf("YieldFraction: have %s, want 0.2", last[len(last)-1])
	}
	if last[3] != "20" {
		t.Errorf("Yield: have %s, want 20", last[3])
	}
}

func TestOutputXLSX(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "out.xlsx")
	o, err := NewOutputter(fileName, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(testHistory()); err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	sheet, ok := f.Sheet["History"]
	if !ok {
		t.Fatal("missing History sheet")
	}
	if len(sheet.Rows) != 4 {
		t.Fatalf("have %d rows, want 4", len(sheet.Rows))
	}
	for j, c := range sheet.Rows[0].Cells {
		if c.Value != brew.SnapshotVariables[j] {
			t.Errorf("header %d: have %q, want %q", j, c.Value, brew.SnapshotVariables[j])
		}
	}
	v, err := strconv.ParseFloat(sheet.Rows[2].Cells[3].Value, 64)
	if err != nil {
		t.Fatal(err)
	}
	if v != 10 {
		t.Errorf("Yield: have %g, want 10", v)
	}
}

func TestWriteTableFormat(t *testing.T) {
	err := writeTable(filepath.Join(t.TempDir(), "out.txt"), "x", []string{"a"}, nil)
	if err == nil || !strings.Contains(err.Error(), ".txt") {
		t.Errorf("expected an unsupported format error, got %v", err)
	}
}
