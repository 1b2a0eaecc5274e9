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
	"runtime"
	"sync"
	"text/tabwriter"

	"github.com/golang/groupcache/lru"
	"github.com/micheleben/brew"
	"github.com/micheleben/brew/internal/hash"
	"github.com/sirupsen/logrus"
)

// Scenario is a single extraction to be simulated.
type Scenario struct {
	Params  brew.Params
	Flow    Flow
	EndTime float64
}

// SweepResult holds the final state of a simulated scenario.
type SweepResult struct {
	Scenario Scenario
	brew.Snapshot
}

// simulate runs scenario s to completion.
func simulate(s Scenario) (brew.Snapshot, error) {
	p := s.Params
	e := &brew.Extraction{
		InitFuncs: []brew.DomainManipulator{brew.Setup(&p), s.Flow.Manipulator()},
		RunFuncs:  []brew.DomainManipulator{brew.Advance(s.EndTime)},
	}
	if err := e.Init(); err != nil {
		return brew.Snapshot{}, err
	}
	if err := e.Run(); err != nil {
		return brew.Snapshot{}, err
	}
	return e.Snapshot(), nil
}

// Sweeper runs sets of scenarios concurrently and caches their results.
type Sweeper struct {
	log *logrus.Logger

	mu    sync.Mutex
	cache *lru.Cache

	// run is the simulation function; it is replaced in tests.
	run func(Scenario) (brew.Snapshot, error)
}

// NewSweeper returns a Sweeper that keeps up to cacheSize results. log may
// be nil.
func NewSweeper(cacheSize int, log *logrus.Logger) *Sweeper {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	if cacheSize < 1 {
		cacheSize = 1
	}
	return &Sweeper{log: log, cache: lru.New(cacheSize), run: simulate}
}

func (s *Sweeper) cached(key string) (brew.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(key)
	if !ok {
		return brew.Snapshot{}, false
	}
	return v.(brew.Snapshot), true
}

func (s *Sweeper) store(key string, snap brew.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(key, snap)
}

// Run simulates each scenario and returns the results in the same order.
// Scenarios that have already been simulated, or that appear more than
// once, are only run once.
func (s *Sweeper) Run(scenarios []Scenario) ([]SweepResult, error) {
	keys := make([]string, len(scenarios))
	pending := make(map[string]Scenario)
	for i, sc := range scenarios {
		keys[i] = hash.Key(sc)
		if _, ok := s.cached(keys[i]); !ok {
			pending[keys[i]] = sc
		}
	}
	s.log.WithFields(logrus.Fields{
		"scenarios": len(scenarios),
		"to run":    len(pending),
	}).Info("starting sweep")

	type job struct {
		key string
		sc  Scenario
	}
	jobs := make(chan job)
	errs := make(chan error, len(pending))
	var wg sync.WaitGroup
	nprocs := runtime.GOMAXPROCS(0)
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				snap, err := s.run(j.sc)
				if err != nil {
					errs <- fmt.Errorf("brew: simulating %v: %v", j.sc.Flow, err)
					continue
				}
				s.store(j.key, snap)
				s.log.WithFields(logrus.Fields{
					"flow":     j.sc.Flow.String(),
					"yield":    fmt.Sprintf("%.2f%%", snap.Yield),
					"strength": fmt.Sprintf("%.3f%%", snap.Strength),
				}).Info("scenario finished")
			}
		}()
	}
	for key, sc := range pending {
		jobs <- job{key: key, sc: sc}
	}
	close(jobs)
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(scenarios))
	for i, sc := range scenarios {
		snap, ok := s.cached(keys[i])
		if !ok {
			return nil, fmt.Errorf("brew: the result for %v was evicted from the cache; increase CacheSize", sc.Flow)
		}
		results[i] = SweepResult{Scenario: sc, Snapshot: snap}
	}
	return results, nil
}

var sweepColumns = []string{"FlowRate", "PressureDrop", "EndTime", "Yield", "Strength", "Porosity", "Swelling"}

func sweepRow(r SweepResult) []float64 {
	return []float64{r.FlowRate, r.Scenario.Flow.PressureDrop, r.Scenario.EndTime,
		r.Yield, r.Strength, r.Porosity, r.Swelling}
}

// writeSweepTable prints the results of a sweep.
func writeSweepTable(w io.Writer, results []SweepResult) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Flow\tFinal q (m/s)\tYield (%)\tStrength (%)\tPorosity\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%v\t%.4g\t%.2f\t%.3f\t%.4f\t\n", r.Scenario.Flow, r.FlowRate, r.Yield, r.Strength, r.Porosity)
	}
	return tw.Flush()
}

// WriteSweep writes the results of a sweep to fileName as CSV or XLSX.
func WriteSweep(fileName string, results []SweepResult) error {
	rows := make([][]float64, len(results))
	for i, r := range results {
		rows[i] = sweepRow(r)
	}
	return writeTable(fileName, "Sweep", sweepColumns, rows)
}
