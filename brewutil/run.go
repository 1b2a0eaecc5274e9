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
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/micheleben/brew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// logInterval is how often simulation progress is logged.
const logInterval = 2 * time.Second

// newLogger returns a logger writing to the error stream of cmd and, if
// logFile is not empty, to logFile. The returned function closes the log
// file.
func newLogger(cmd *cobra.Command, logFile string) (*logrus.Logger, func(), error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	var w io.Writer = os.Stderr
	if cmd != nil {
		w = cmd.ErrOrStderr()
	}
	closer := func() {}
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("brew: problem creating log file: %v", err)
		}
		w = io.MultiWriter(w, f)
		closer = func() { f.Close() }
	}
	log.SetOutput(w)
	return log, closer, nil
}

// Run runs a single extraction simulation.
//
// CobraCommand is the cobra.Command instance where Run is called from.
// The table of results is printed to its output stream and log messages
// to its error stream.
//
// LogFile is the path to the desired logfile location. If empty, log
// messages are not saved.
//
// OutputFile is the path to the desired output file location. Its
// extension determines the format (.csv or .xlsx). If empty, no output
// file is written.
//
// PlotFile is the path to a .png file for the summary plots. If empty,
// no plots are created.
//
// OutputVariables specifies derived variables to be included in the
// output file, as expressions of the recorded model variables.
//
// p holds the simulation parameters, and flow specifies the flow
// conditions. The simulation runs until EndTime, recording output every
// SaveInterval seconds.
//
// If ConvergenceTolerance > 0, the simulation also stops once the yield
// changes by less than ConvergenceTolerance percentage points over
// ConvergencePeriod seconds.
func Run(CobraCommand *cobra.Command, LogFile, OutputFile, PlotFile string, OutputVariables map[string]string,
	p *brew.Params, flow Flow, EndTime, SaveInterval, ConvergenceTolerance, ConvergencePeriod float64) error {

	log, closeLog, err := newLogger(CobraCommand, LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	// Check the output variables before spending time on the simulation.
	var o *Outputter
	if OutputFile != "" {
		o, err = NewOutputter(OutputFile, OutputVariables, nil)
		if err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"layers":   p.Layers,
		"shells":   p.Shells,
		"flow":     flow.String(),
		"end time": EndTime,
	}).Info("starting simulation")

	// Start a function to receive and print log messages.
	cLog := make(chan *brew.SimulationStatus)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := time.Now()
		for msg := range cLog {
			if time.Since(last) < logInterval {
				continue
			}
			last = time.Now()
			log.WithFields(logrus.Fields{
				"step":     msg.Step,
				"time":     fmt.Sprintf("%.2fs", msg.Time),
				"yield":    fmt.Sprintf("%.2f%%", msg.Yield),
				"strength": fmt.Sprintf("%.3f%%", msg.Strength),
				"porosity": fmt.Sprintf("%.4f", msg.Porosity),
			}).Info(msg.String())
		}
	}()

	h := new(brew.History)
	e := &brew.Extraction{
		InitFuncs: []brew.DomainManipulator{
			brew.Setup(p),
			flow.Manipulator(),
		},
		RunFuncs: []brew.DomainManipulator{
			brew.Record(h, SaveInterval),
			brew.Advance(EndTime),
			brew.Log(cLog),
		},
		CleanupFuncs: []brew.DomainManipulator{
			brew.Finalize(h),
		},
	}
	if ConvergenceTolerance > 0 {
		e.RunFuncs = append(e.RunFuncs, brew.YieldConvergenceCheck(ConvergenceTolerance, ConvergencePeriod))
	}
	startTime := time.Now()
	if err = e.Init(); err == nil {
		err = e.Run()
	}
	close(cLog)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("brew: simulation failed: %v", err)
	}
	if e.T < EndTime {
		log.Infof("yield converged at t=%.2fs, before EndTime=%gs", e.T, EndTime)
	}

	yield, strength := e.Metrics()
	log.WithFields(logrus.Fields{
		"steps":    e.Steps,
		"yield":    fmt.Sprintf("%.2f%%", yield),
		"strength": fmt.Sprintf("%.3f%%", strength),
		"porosity": fmt.Sprintf("%.4f", e.MeanPorosity()),
		"walltime": time.Since(startTime).Round(time.Millisecond),
	}).Info("simulation finished")
	if s := e.MaxSwellingDegree(); s > p.MaxSwelling {
		log.Warnf("particles swelled by %.1f%% of their dry volume, more than the expected %.1f%%",
			s*100, p.MaxSwelling*100)
	}

	var w io.Writer = os.Stdout
	if CobraCommand != nil {
		w = CobraCommand.OutOrStdout()
	}
	if err := writeHistoryTable(w, h); err != nil {
		return err
	}

	if o != nil {
		if err := o.Output(h); err != nil {
			return err
		}
		log.Infof("output written to %s", OutputFile)
	}
	if PlotFile != "" {
		if err := Plot(h, PlotFile); err != nil {
			return err
		}
		log.Infof("plots written to %s", PlotFile)
	}
	return nil
}

// writeHistoryTable prints the recorded yield and strength over time.
func writeHistoryTable(w io.Writer, h *brew.History) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Time (s)\tYield (%)\tStrength (%)\tPorosity\tFlow (m/s)\t")
	for _, s := range h.Snapshots {
		fmt.Fprintf(tw, "%.2f\t%.2f\t%.3f\t%.4f\t%.3g\t\n", s.Time, s.Yield, s.Strength, s.Porosity, s.FlowRate)
	}
	return tw.Flush()
}
