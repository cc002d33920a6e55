package main

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/cell"
	"github.com/GssMahadevan/gvthread/pkg/conf"
	"github.com/GssMahadevan/gvthread/pkg/executor"
	"github.com/GssMahadevan/gvthread/pkg/loadgen"
	"github.com/GssMahadevan/gvthread/pkg/manifest"
	"github.com/GssMahadevan/gvthread/pkg/registry"
	"github.com/GssMahadevan/gvthread/pkg/runner"
	"github.com/GssMahadevan/gvthread/pkg/sysinfo"
	"github.com/GssMahadevan/gvthread/pkg/utils/errutil"
)

var (
	appName = os.Args[0]

	manifestFlag = conf.NewFileFlag("manifest", "Path to the benchmark manifest document.", "")

	profileFlag   = conf.NewStringFlag("profile", "Run only this shared profile (default: all).", "")
	candidateFlag = conf.NewStringFlag("candidate", "Run only this candidate app (default: all).", "")
	configFlag    = conf.NewStringFlag("config", "Run only this config within the candidate (default: all).", "")

	listFlag   = conf.NewBoolFlag("list", "List the execution matrix and exit.", false)
	dryRunFlag = conf.NewBoolFlag("dry_run", "Plan and print each cell without executing anything.", false)

	repeatFlag = conf.NewIntFlag("repeat", "Repeat each cell N times and aggregate by mean.", 1)
	buildFlag  = conf.NewStringFlag("build", "Build profile for binary path resolution (release or debug).", "release")

	buildCandidatesFlag = conf.NewBoolFlag("build_candidates", "Build every candidate before running the matrix.", false)

	noSaveFlag   = conf.NewBoolFlag("no_save", "Do not persist result JSON documents.", false)
	noReportFlag = conf.NewBoolFlag("no_report", "Do not generate markdown reports.", false)

	wrkrFlag   = conf.NewStringFlag("wrkr", "Path to the wrkr binary (default: auto-detect).", "")
	useWrkFlag = conf.NewBoolFlag("use_wrk", "Force the wrk text generator instead of wrkr.", false)

	readinessTimeoutFlag = conf.NewDurationFlag("readiness_timeout",
		"How long to wait for a server to bind its port before declaring a startup failure.",
		cell.DefaultReadinessTimeout)

	baselineFlag     = conf.NewBoolFlag("baseline", "Compare results against the stored baseline.", false)
	saveBaselineFlag = conf.NewBoolFlag("save_baseline", "Store this run's aggregates as the new baseline.", false)
	thresholdFlag    = conf.NewFloatFlag("threshold", "Regression threshold in percent.", 5.0)

	resultsDirFlag = conf.NewStringFlag("results_dir", "Results directory (default: <manifest dir>/results).", "")
	rootDirFlag    = conf.NewStringFlag("root_dir", "Repository root for binary resolution (default: walk up for a .git marker).", "")
	testTypeFlag   = conf.NewStringFlag("test_type", "Registered test type (default: the manifest's directory name).", "")
)

func main() {
	conf.SetAppName(filepath.Base(appName))
	conf.SetHelp("Fair-comparison benchmark runner: iterates shared profiles × candidate apps × configs, " +
		"supervises each server under test and drives it with a load generator.")
	errutil.Check(conf.ParseFlags())
	log.SetLevel(conf.LogLevel())

	manifestPath := manifestFlag.Value()
	if manifestPath == "" {
		log.Fatal("no manifest given (use --manifest or GVT_MANIFEST)")
	}
	manifestPath, err := filepath.Abs(manifestPath)
	errutil.Check(err)
	benchDir := filepath.Dir(manifestPath)

	// The root is an explicit input; the marker walk is a one-time
	// bootstrap convenience, never consulted again after this point.
	rootDir := rootDirFlag.Value()
	if rootDir == "" {
		rootDir = findRootDir(benchDir)
	}

	full, err := manifest.Load(manifestPath)
	errutil.Check(err)
	subset, err := full.SelectSubset(profileFlag.Value(), candidateFlag.Value(), configFlag.Value())
	errutil.Check(err)

	testType := resolveTestType(benchDir)

	opts := runner.Options{
		Manifest:        subset,
		TestType:        testType.Name,
		ResultsDir:      resultsDirFlag.Value(),
		ReportsDir:      filepath.Join(benchDir, "reports"),
		Repeat:          repeatFlag.Value(),
		DryRun:          dryRunFlag.Value(),
		NoSave:          noSaveFlag.Value(),
		NoReport:        noReportFlag.Value(),
		SaveBaseline:    saveBaselineFlag.Value(),
		CompareBaseline: baselineFlag.Value(),
		ThresholdPct:    thresholdFlag.Value(),
	}
	if opts.ResultsDir == "" {
		opts.ResultsDir = filepath.Join(benchDir, "results")
	}

	if listFlag.Value() {
		runner.New(opts, nil).List(os.Stdout)
		return
	}

	generator, err := loadgen.Detect(wrkrFlag.Value(), rootDir, buildFlag.Value(), useWrkFlag.Value())
	errutil.Check(err)
	log.Infof("Manifest: %s", manifestPath)
	log.Infof("Repo root: %s", rootDir)
	log.Infof("Load generator: %s", generator.Name())

	if buildCandidatesFlag.Value() && !dryRunFlag.Value() {
		if failed := runner.BuildCandidates(subset, testType, rootDir, buildFlag.Value()); len(failed) > 0 {
			log.Errorf("build failed for: %v (their cells will be skipped)", failed)
		}
	}

	// An operator abort must still tear down the in-flight server.
	executor.RegisterInterruptHandle()

	system := sysinfo.Collect(rootDir)
	engine := cell.NewEngine(rootDir, buildFlag.Value(), generator, system)
	engine.ReadinessTimeout = readinessTimeoutFlag.Value()

	if !runner.New(opts, engine).Run() {
		os.Exit(1)
	}
}

// resolveTestType maps the test-type flag (or the manifest's directory
// name) onto the registry. An unregistered name still runs, without
// build rules.
func resolveTestType(benchDir string) registry.TestType {
	name := testTypeFlag.Value()
	if name == "" {
		name = filepath.Base(benchDir)
	}

	testType, err := registry.Lookup(name)
	if err != nil {
		log.Warnf("%v; proceeding without build rules", err)
		return registry.TestType{Name: name}
	}

	return testType
}

// findRootDir walks up from start looking for a .git marker. Falls back
// to start itself when no marker exists.
func findRootDir(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
