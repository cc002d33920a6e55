// Package runner iterates the benchmark matrix, feeds cells to the
// execution engine, persists and compares results and renders the run
// summary.
package runner

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/cell"
	"github.com/GssMahadevan/gvthread/pkg/manifest"
	"github.com/GssMahadevan/gvthread/pkg/results"
	"github.com/GssMahadevan/gvthread/pkg/utils/uuid"
)

// Options configure one invocation of the matrix.
type Options struct {
	Manifest     *manifest.Manifest
	TestType     string
	ResultsDir   string
	ReportsDir   string
	Repeat       int
	DryRun       bool
	NoSave       bool
	NoReport     bool
	SaveBaseline bool

	// CompareBaseline compares each candidate aggregate against its
	// stored baseline and fails the run on regressions.
	CompareBaseline bool
	ThresholdPct    float64
}

// Runner executes the profile × candidate × config matrix sequentially.
type Runner struct {
	opts   Options
	engine *cell.Engine

	// runID groups every document this invocation persists.
	runID string
}

// New returns a runner driving the given engine.
func New(opts Options, engine *cell.Engine) *Runner {
	if opts.Repeat < 1 {
		opts.Repeat = 1
	}

	return &Runner{opts: opts, engine: engine, runID: uuid.New()}
}

// Plan computes the full execution matrix in profile-major document
// order without touching any process.
func (r *Runner) Plan() []cell.Cell {
	m := r.opts.Manifest

	var cells []cell.Cell
	for _, profileName := range m.ProfileNames() {
		profile := m.Profiles[profileName]
		for _, candidateName := range m.CandidateNames() {
			candidate := m.Candidates[candidateName]
			for _, config := range candidate.Configs {
				cells = append(cells, cell.Cell{
					Profile:   profile,
					Candidate: candidate,
					Config:    config,
				})
			}
		}
	}

	return cells
}

// List prints the execution matrix without building or launching
// anything.
func (r *Runner) List(w io.Writer) {
	m := r.opts.Manifest

	fmt.Fprintf(w, "\nManifest: %s\n\nCommon profiles:\n", m.Path)
	for _, name := range m.ProfileNames() {
		p := m.Profiles[name]
		fmt.Fprintf(w, "  %-16s cores=%d par=%d conns=%d dur=%ds — %s\n",
			name, p.CPUCores(), p.Parallelism(), p.WrkConnections(), p.MeasureSec(), p.Desc())
	}

	fmt.Fprintf(w, "\nApps:\n")
	for _, name := range m.CandidateNames() {
		c := m.Candidates[name]
		configNames := make([]string, 0, len(c.Configs))
		for _, cfg := range c.Configs {
			configNames = append(configNames, cfg.Name)
		}
		fmt.Fprintf(w, "  %-20s lang=%-6s model=%-14s io=%-10s port=%-6d configs=%v\n",
			name, c.Lang, c.Model, c.IO, c.Port, configNames)
	}

	cells := r.Plan()
	fmt.Fprintf(w, "\nExecution matrix:\n")
	for _, c := range cells {
		fmt.Fprintf(w, "  %s\n", c.Tag())
	}
	fmt.Fprintf(w, "\nTotal cells: %d × %d repeats = %d runs\n\n",
		len(cells), r.opts.Repeat, len(cells)*r.opts.Repeat)
}

// subSamples accumulates one sub-test's values across repeats.
type subSamples struct {
	name string
	rps  []float64
	p50s []float64
	p99s []float64

	durationS float64
}

// Run executes the whole matrix and returns true only when every
// attempted cell produced strictly positive throughput and, when
// baseline comparison is on, no regression was flagged. Per-cell
// failures are logged and never abort the run.
func (r *Runner) Run() bool {
	cells := r.Plan()
	r.engine.DryRun = r.opts.DryRun
	if !r.opts.DryRun {
		log.Infof("Run %s: %d cells × %d repeats", r.runID, len(cells), r.opts.Repeat)
	}

	attempted, succeeded := 0, 0
	byProfile := map[string][]*results.CellResult{}
	samples := map[string]map[string]*subSamples{}
	sampleOrder := map[string][]string{}

	for _, c := range cells {
		for i := 0; i < r.opts.Repeat; i++ {
			if r.opts.Repeat > 1 {
				log.Infof("[%s] repeat %d/%d", c.Tag(), i+1, r.opts.Repeat)
			}

			result, err := r.engine.Run(c)
			if r.opts.DryRun {
				continue
			}

			attempted++
			if err != nil {
				log.Errorf("%v", err)
				continue
			}
			if result == nil {
				continue
			}
			if result.RequestsPerSec() > 0 {
				succeeded++
			}

			byProfile[c.Profile.Name] = append(byProfile[c.Profile.Name], result)
			r.collect(samples, sampleOrder, c, result)

			if !r.opts.NoSave {
				dir := filepath.Join(r.opts.ResultsDir, r.opts.TestType, c.Candidate.Name)
				if path, saveErr := result.Save(dir); saveErr != nil {
					log.Errorf("[%s] cannot save result: %v", c.Tag(), saveErr)
				} else {
					log.Infof("[%s] saved: %s", c.Tag(), filepath.Base(path))
				}
			}
		}
	}

	if r.opts.DryRun {
		log.Infof("Planned %d cells, launched nothing.", len(cells))
		return true
	}

	for _, profileName := range r.opts.Manifest.ProfileNames() {
		profileResults := byProfile[profileName]
		printSummaryTable(profileResults, profileName)

		if !r.opts.NoReport && len(profileResults) > 0 {
			reportPath := filepath.Join(r.opts.ReportsDir, profileName+".md")
			if err := writeMarkdownReport(profileResults, profileName, reportPath); err != nil {
				log.Errorf("cannot write report %s: %v", reportPath, err)
			} else {
				log.Infof("Report: %s", reportPath)
			}
		}
	}

	regressionFree := r.finishCandidates(samples, sampleOrder)

	log.Infof("Done. %d/%d cells completed successfully.", succeeded, attempted)

	return succeeded == attempted && regressionFree
}

func (r *Runner) collect(samples map[string]map[string]*subSamples, order map[string][]string, c cell.Cell, result *results.CellResult) {
	name := c.Profile.Name + "/" + c.Config.Name

	perCandidate := samples[c.Candidate.Name]
	if perCandidate == nil {
		perCandidate = map[string]*subSamples{}
		samples[c.Candidate.Name] = perCandidate
	}
	sub := perCandidate[name]
	if sub == nil {
		sub = &subSamples{name: name, durationS: float64(c.Profile.MeasureSec())}
		perCandidate[name] = sub
		order[c.Candidate.Name] = append(order[c.Candidate.Name], name)
	}

	sub.rps = append(sub.rps, result.RequestsPerSec())
	if result.Metrics.P50LatencyUs > 0 {
		sub.p50s = append(sub.p50s, result.Metrics.P50LatencyUs)
	}
	if result.Metrics.P99LatencyUs > 0 {
		sub.p99s = append(sub.p99s, result.Metrics.P99LatencyUs)
	}
}

// finishCandidates persists per-candidate aggregates and runs the
// baseline workflow. Returns false when any regression was flagged.
func (r *Runner) finishCandidates(samples map[string]map[string]*subSamples, order map[string][]string) bool {
	regressionFree := true

	for _, candidateName := range r.opts.Manifest.CandidateNames() {
		perCandidate := samples[candidateName]
		if len(perCandidate) == 0 {
			continue
		}

		aggregate := results.NewCandidateResult(r.opts.TestType, candidateName)
		aggregate.Metadata = map[string]interface{}{
			"run_id":   r.runID,
			"hostname": r.engine.System.Hostname,
			"git_sha":  r.engine.System.GitSHA,
		}
		for _, name := range order[candidateName] {
			aggregate.AddMeasurement(perCandidate[name].measurement())
		}

		if !r.opts.NoSave {
			if _, err := aggregate.Save(r.opts.ResultsDir); err != nil {
				log.Errorf("cannot save %s aggregate: %v", candidateName, err)
			}
		}
		if r.opts.SaveBaseline {
			if path, err := aggregate.SaveBaseline(r.opts.ResultsDir); err != nil {
				log.Errorf("cannot save %s baseline: %v", candidateName, err)
			} else {
				log.Infof("[%s/%s] baseline saved: %s", r.opts.TestType, candidateName, path)
			}
		}

		if r.opts.CompareBaseline {
			if !r.compareAgainstBaseline(candidateName, aggregate) {
				regressionFree = false
			}
		}
	}

	return regressionFree
}

func (r *Runner) compareAgainstBaseline(candidateName string, aggregate *results.CandidateResult) bool {
	baseline, err := results.LoadBaseline(r.opts.ResultsDir, r.opts.TestType, candidateName)
	if err != nil {
		log.Errorf("[%s/%s] cannot load baseline: %v", r.opts.TestType, candidateName, err)
		return true
	}
	if baseline == nil {
		log.Infof("[%s/%s] no baseline found, skipping comparison", r.opts.TestType, candidateName)
		return true
	}

	regressions := results.Compare(aggregate, baseline, r.opts.ThresholdPct)
	if len(regressions) == 0 {
		log.Infof("[%s/%s] no regressions vs baseline", r.opts.TestType, candidateName)
		return true
	}

	for _, regression := range regressions {
		log.Errorf("[%s/%s] REGRESSION %s", r.opts.TestType, candidateName, regression)
	}

	return false
}

func (s *subSamples) measurement() results.Measurement {
	m := results.Measurement{Name: s.name, DurationS: s.durationS}
	m.ThroughputRPS, _ = stats.Mean(s.rps)
	if len(s.p50s) > 0 {
		p50, _ := stats.Mean(s.p50s)
		m.P50Us = &p50
	}
	if len(s.p99s) > 0 {
		p99, _ := stats.Mean(s.p99s)
		m.P99Us = &p99
	}

	return m
}
