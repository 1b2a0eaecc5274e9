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
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/micheleben/brew"
	"github.com/tealeg/xlsx"
)

// Outputter is a holder for output parameters.
//
// fileName contains the path where the output will be saved.
//
// outputVariables maps output column names to expressions of the recorded
// model variables (brew.SnapshotVariables) and of other output variables.
//
// Functions are defined in the outputFunctions variable.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	expressions     map[string]*govaluate.EvaluableExpression
	order           []string
	outputFunctions map[string]govaluate.ExpressionFunction
}

// NewOutputter initializes a new Outputter holder and adds a set of default
// output functions. Default functions include:
//
// 'exp(x)' which applies the exponential function e^x.
//
// 'log(x)' which applies the natural logarithm.
//
// 'pow(x, y)' which raises x to the power y.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("brew: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"log": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("brew: got %d arguments for function 'log', but needs 1", len(arg))
			}
			return math.Log(arg[0].(float64)), nil
		},
		"pow": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("brew: got %d arguments for function 'pow', but needs 2", len(arg))
			}
			return math.Pow(arg[0].(float64), arg[1].(float64)), nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
		outputFunctions: defaultOutputFuncs,
	}
	for name, expr := range outputVariables {
		if isModelVariable(name) {
			return nil, fmt.Errorf("brew: output variable %q has the same name as a model variable", name)
		}
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("brew: output variable %s: %v", name, err)
		}
		o.expressions[name] = e
	}
	order, err := o.evaluationOrder()
	if err != nil {
		return nil, err
	}
	o.order = order
	return o, nil
}

func isModelVariable(name string) bool {
	for _, v := range brew.SnapshotVariables {
		if v == name {
			return true
		}
	}
	return false
}

// evaluationOrder sorts the output variables so that each one is evaluated
// after any other output variables it depends on.
func (o *Outputter) evaluationOrder() ([]string, error) {
	names := make([]string, 0, len(o.expressions))
	for name := range o.expressions {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int)
	var order []string
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("brew: output variables depend on each other in a cycle: %s",
				strings.Join(append(path, name), " -> "))
		}
		state[name] = visiting
		for _, v := range o.expressions[name].Vars() {
			if _, ok := o.expressions[v]; ok {
				if err := visit(v, append(path, name)); err != nil {
					return err
				}
			} else if !isModelVariable(v) {
				return fmt.Errorf("brew: output variable %s uses unknown variable %q; available variables are %s",
					name, v, strings.Join(brew.SnapshotVariables, ", "))
			}
		}
		state[name] = visited
		order = append(order, name)
		return nil
	}
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Columns returns the names of the output columns: the recorded model
// variables followed by the output variables in alphabetical order.
func (o *Outputter) Columns() []string {
	derived := make([]string, 0, len(o.expressions))
	for name := range o.expressions {
		derived = append(derived, name)
	}
	sort.Strings(derived)
	return append(append([]string{}, brew.SnapshotVariables...), derived...)
}

// Results returns one row of values for each recorded snapshot, in the
// order given by Columns.
func (o *Outputter) Results(h *brew.History) ([][]float64, error) {
	cols := o.Columns()
	rows := make([][]float64, len(h.Snapshots))
	for i, s := range h.Snapshots {
		params := make(map[string]interface{}, len(cols))
		for _, name := range brew.SnapshotVariables {
			v, err := s.Value(name)
			if err != nil {
				return nil, err
			}
			params[name] = v
		}
		for _, name := range o.order {
			r, err := o.expressions[name].Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("brew: evaluating output variable %s: %v", name, err)
			}
			v, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("brew: output variable %s evaluates to %#v, which is not a number", name, r)
			}
			params[name] = v
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = params[c].(float64)
		}
		rows[i] = row
	}
	return rows, nil
}

// Output writes the recorded history to the output file. The format is
// chosen from the file extension.
func (o *Outputter) Output(h *brew.History) error {
	rows, err := o.Results(h)
	if err != nil {
		return err
	}
	return writeTable(o.fileName, "History", o.Columns(), rows)
}

// writeTable writes a table of numbers with a header row to fileName as
// CSV or, for the .xlsx extension, as a spreadsheet with one sheet.
func writeTable(fileName, sheet string, cols []string, rows [][]float64) error {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return writeCSV(fileName, cols, rows)
	case ".xlsx":
		return writeXLSX(fileName, sheet, cols, rows)
	default:
		return fmt.Errorf("brew: unsupported output file format %q", filepath.Ext(fileName))
	}
}

func writeCSV(fileName string, cols []string, rows [][]float64) error {
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("brew: creating output file: %v", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		f.Close()
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeXLSX(fileName, sheetName string, cols []string, rows [][]float64) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("brew: creating spreadsheet: %v", err)
	}
	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}
	for _, row := range rows {
		r := sheet.AddRow()
		for _, v := range row {
			r.AddCell().SetFloat(v)
		}
	}
	if err := file.Save(fileName); err != nil {
		return fmt.Errorf("brew: saving spreadsheet: %v", err)
	}
	return nil
}
