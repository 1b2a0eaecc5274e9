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

// Package brewutil contains the command-line interface for brew, along
// with functions for configuring, running, and writing the output of
// extraction simulations.
package brewutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/micheleben/brew"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	// Options are the configuration options available to brew.
	options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "FlowRate",
			usage: `
              FlowRate specifies a constant superficial flow velocity through
              the bed in m/s. It is ignored if PressureDrop is > 0.`,
			defaultVal: 1.2e-3,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "PressureDrop",
			usage: `
              PressureDrop specifies a constant pressure drop across the bed
              in Pa. If > 0, the flow rate is calculated from the bed
              permeability at every time step instead of being fixed.`,
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "EndTime",
			usage: `
              EndTime specifies the duration of the shot in seconds.`,
			defaultVal: 60.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), sweepCmd.Flags()},
		},
		{
			name: "SaveInterval",
			usage: `
              SaveInterval specifies how often, in seconds of simulation time,
              model output is recorded.`,
			defaultVal: 1.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ConvergenceTolerance",
			usage: `
              ConvergenceTolerance specifies a change in extraction yield, in
              percentage points, below which the simulation is considered
              converged and stops before EndTime. The yield is compared
              every ConvergencePeriod seconds. If 0, the simulation always
              runs until EndTime.`,
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ConvergencePeriod",
			usage: `
              ConvergencePeriod specifies the simulation time in seconds
              between yield comparisons when ConvergenceTolerance > 0.`,
			defaultVal: 1.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to the desired output file
              location, including environment variables. The extension
              determines the format: '.csv' or '.xlsx'. If empty, no
              output file is written.`,
			defaultVal: "brew_output.csv",
			shorthand:  "o",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), sweepCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile specifies the path to a '.png' file where plots of
              the yield, strength, and porosity over time and the final
              concentration profile will be saved. If empty, no plots
              are created.`,
			defaultVal: "brew_output.png",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "open",
			usage: `
              open specifies whether to open the plot file in the default
              viewer after the simulation finishes.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the desired logfile location. It
              can include environment variables. If LogFile is left blank,
              log messages are only written to the terminal.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), sweepCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which derived variables should be
              included in the output file in addition to the recorded model
              variables, in the form of a JSON object, where the keys are
              column names and the values are expressions of the model
              variables (for example '{"YieldFraction":"Yield / 100"}').
              Available model variables are ` + strings.Join(brew.SnapshotVariables, ", ") + `.`,
			defaultVal: map[string]string{
				"YieldFraction": "Yield / 100",
				"FlowRate_mm":   "FlowRate * 1000",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "FlowRates",
			usage: `
              FlowRates specifies a list of superficial flow velocities in m/s
              to be simulated.`,
			defaultVal: []float64{},
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "PressureDrops",
			usage: `
              PressureDrops specifies a list of pressure drops across the bed
              in Pa to be simulated. It cannot be combined with FlowRates.`,
			defaultVal: []float64{},
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "CacheSize",
			usage: `
              CacheSize specifies the number of simulation results that are
              kept in memory so that repeated scenarios are only run once.`,
			defaultVal: 128,
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "out",
			usage: `
              out specifies the file the parameters are written to. If
              empty, they are written to standard output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{paramsCmd.Flags()},
		},
	}
	options = append(options, paramOptions()...)

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("BREW")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case []float64:
				set.Float64SliceP(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, strings.TrimSpace(b.String()), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// paramOptions returns one option for each simulation parameter, with the
// default value and documentation taken from brew.Params.
func paramOptions() []option {
	def := reflect.ValueOf(brew.DefaultParams()).Elem()
	typ := def.Type()
	opts := make([]option, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		usage := f.Tag.Get("desc")
		if u := f.Tag.Get("units"); u != "" {
			usage += " [" + u + "]"
		}
		opts[i] = option{
			name:       f.Name,
			usage:      "\n              " + f.Name + " specifies the " + strings.ToLower(usage[:1]) + usage[1:] + ".",
			defaultVal: def.Field(i).Interface(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), paramsCmd.Flags(), sweepCmd.Flags()},
		}
	}
	return opts
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(paramsCmd)
	Root.AddCommand(sweepCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("brew: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "brew",
	Short: "A coffee extraction model.",
	Long: `brew simulates the extraction of solubles from a packed bed of swelling
coffee particles, as in an espresso shot. Use the subcommands specified below
to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'BREW_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of brew.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("brew v%s\n", brew.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that simulates a single shot.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a single extraction.",
	Long: `run simulates a single extraction with either a fixed flow rate or a
fixed pressure drop, prints a table of the extraction yield and beverage
strength over time, and saves the results and plots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ParamsConfig(Cfg)
		if err != nil {
			return err
		}
		flow, err := FlowConfig(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		plotFile, err := checkPlotFile(Cfg.GetString("PlotFile"))
		if err != nil {
			return err
		}
		outputVars, err := GetStringMapString("OutputVariables", Cfg)
		if err != nil {
			return err
		}
		outputVars, err = checkOutputVars(outputVars)
		if err != nil {
			return err
		}
		endTime, saveInterval := Cfg.GetFloat64("EndTime"), Cfg.GetFloat64("SaveInterval")
		if !(endTime > 0) {
			return fmt.Errorf("brew: EndTime=%g but should be > 0", endTime)
		}
		tolerance, period := Cfg.GetFloat64("ConvergenceTolerance"), Cfg.GetFloat64("ConvergencePeriod")
		if tolerance < 0 {
			return fmt.Errorf("brew: ConvergenceTolerance=%g but should be >= 0", tolerance)
		}
		if tolerance > 0 && !(period > 0) {
			return fmt.Errorf("brew: ConvergencePeriod=%g but should be > 0", period)
		}

		if err := Run(cmd, os.ExpandEnv(Cfg.GetString("LogFile")), outputFile, plotFile,
			outputVars, p, flow, endTime, saveInterval, tolerance, period); err != nil {
			return err
		}
		if plotFile != "" && Cfg.GetBool("open") {
			return open.Run(plotFile)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// paramsCmd writes the simulation parameters as a configuration file.
var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the simulation parameters.",
	Long: `params prints the simulation parameters, after applying any
configuration file, command-line, and environment settings, in TOML format
so that they can be edited and used as a configuration file. The physical
quantities are also listed with their SI units.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ParamsConfig(Cfg)
		if err != nil {
			return err
		}
		if out := os.ExpandEnv(Cfg.GetString("out")); out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("brew: creating parameter file: %v", err)
			}
			if err := WriteParams(f, p); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		} else if err := WriteParams(cmd.OutOrStdout(), p); err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.ErrOrStderr(), 0, 8, 2, ' ', 0)
		for _, q := range Quantities(p) {
			fmt.Fprintf(w, "%s\t%v\t%s\n", q.Name, q.Value, q.Desc)
		}
		return w.Flush()
	},
	DisableAutoGenTag: true,
}

// sweepCmd runs a set of simulations with different flow conditions.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Simulate extractions over a range of flow conditions.",
	Long: `sweep simulates one extraction for each of the specified flow rates or
pressure drops and reports the final yield, strength, and porosity of each.
Simulations run concurrently, and results of repeated scenarios are reused.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ParamsConfig(Cfg)
		if err != nil {
			return err
		}
		flows, err := sweepFlows(Cfg)
		if err != nil {
			return err
		}
		endTime := Cfg.GetFloat64("EndTime")
		if !(endTime > 0) {
			return fmt.Errorf("brew: EndTime=%g but should be > 0", endTime)
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		scenarios := make([]Scenario, len(flows))
		for i, f := range flows {
			scenarios[i] = Scenario{Params: *p, Flow: f, EndTime: endTime}
		}
		log, closeLog, err := newLogger(cmd, os.ExpandEnv(Cfg.GetString("LogFile")))
		if err != nil {
			return err
		}
		defer closeLog()
		s := NewSweeper(Cfg.GetInt("CacheSize"), log)
		results, err := s.Run(scenarios)
		if err != nil {
			return err
		}
		if err := writeSweepTable(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		if outputFile != "" {
			return WriteSweep(outputFile, results)
		}
		return nil
	},
	DisableAutoGenTag: true,
}
