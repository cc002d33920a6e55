package cell

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/GssMahadevan/gvthread/pkg/executor"
	"github.com/GssMahadevan/gvthread/pkg/isolation"
	"github.com/GssMahadevan/gvthread/pkg/loadgen"
	"github.com/GssMahadevan/gvthread/pkg/manifest"
	"github.com/GssMahadevan/gvthread/pkg/metrics"
	"github.com/GssMahadevan/gvthread/pkg/results"
	"github.com/GssMahadevan/gvthread/pkg/sysinfo"
	"github.com/GssMahadevan/gvthread/pkg/utils/netutil"
)

const (
	// DefaultReadinessTimeout bounds the wait for the candidate to bind
	// its port when no override is configured.
	DefaultReadinessTimeout = 10 * time.Second

	// stderrTailBytes is how much of the server's stderr is retained in a
	// successful result for postmortem.
	stderrTailBytes = 2048
)

// Engine supervises cells one at a time. Cells run sequentially by
// construction: concurrent candidates would contend for CPU and ports
// and void the comparison.
type Engine struct {
	RootDir      string
	BuildProfile string
	Generator    loadgen.LoadGenerator
	System       sysinfo.Info

	// DryRun logs the full plan, environment included, and stops before
	// the binary existence check.
	DryRun bool

	// ReadinessTimeout bounds the wait for the candidate to bind its port.
	ReadinessTimeout time.Duration

	newExecutor   func(env map[string]string, decorators ...isolation.Decorator) executor.Executor
	isListening   netutil.IsListeningFunction
	evictListener netutil.EvictListenerFunction
	sampleRSS     func(pid int) int
}

// NewEngine returns an engine resolving binaries against rootDir and
// driving load with generator.
func NewEngine(rootDir, buildProfile string, generator loadgen.LoadGenerator, system sysinfo.Info) *Engine {
	return &Engine{
		RootDir:          rootDir,
		BuildProfile:     buildProfile,
		Generator:        generator,
		System:           system,
		ReadinessTimeout: DefaultReadinessTimeout,
		newExecutor:      newLocalExecutor,
		isListening:      netutil.IsListening,
		evictListener:    netutil.EvictListener,
		sampleRSS:        sampleRSS,
	}
}

func newLocalExecutor(env map[string]string, decorators ...isolation.Decorator) executor.Executor {
	return executor.NewLocalIsolated(decorators...).WithEnv(env)
}

// Run executes one cell. On success it returns the assembled result; on
// failure a classified *Error. Teardown of the candidate process is
// unconditional on every exit path past launch. A dry run returns
// (nil, nil).
func (e *Engine) Run(c Cell) (res *results.CellResult, err error) {
	tag := c.Tag()

	if violations := manifest.ValidateNoOverlap(c.Profile, c.Config); len(violations) > 0 {
		return nil, failure(OverlapViolation, tag,
			"config overrides shared keys %v, breaking the apples-to-apples comparison", violations)
	}

	env := manifest.Project(c.Profile, c.Config, c.Candidate.Port)
	binaryPath, err := e.resolveBinary(c)
	if err != nil {
		return nil, err
	}

	e.logPlan(c, binaryPath, env)
	if e.DryRun {
		log.Infof("[%s] dry run, skipping execution", tag)
		return nil, nil
	}

	if _, statErr := os.Stat(binaryPath); statErr != nil {
		return nil, failure(MissingArtifact, tag, "binary not found: %s (build it first)", binaryPath)
	}
	if e.Generator == nil {
		return nil, failure(MissingArtifact, tag, "no load generator available")
	}

	// Leftover listeners from an aborted run would steal the bind.
	e.evictListener(c.Candidate.Port)

	var decorators []isolation.Decorator
	if cores := c.Profile.CPUCores(); cores > 0 {
		if d := isolation.TasksetForCores(cores); d != nil {
			decorators = append(decorators, d)
		}
	}

	handle, execErr := e.newExecutor(env, decorators...).Execute(binaryPath)
	if execErr != nil {
		return nil, failure(StartupFailure, tag, "cannot start server: %v", execErr)
	}

	dumped := false
	defer func() {
		e.teardown(handle, tag, res, dumped)
		handle.Clean()
		handle.EraseOutput()
	}()

	address := fmt.Sprintf("127.0.0.1:%d", c.Candidate.Port)
	if !e.isListening(address, e.ReadinessTimeout) {
		dumped = true
		if handle.Status() == executor.TERMINATED {
			e.dumpDiagnostics(handle, tag)
			return nil, failure(StartupFailure, tag,
				"server crashed during startup (%s)", exitStatus(handle))
		}
		e.dumpDiagnostics(handle, tag)
		return nil, failure(StartupFailure, tag,
			"server running but not listening on port %d within %s", c.Candidate.Port, e.ReadinessTimeout)
	}
	log.Infof("[%s] server ready (pid=%d), load-gen=%s", tag, handle.Pid(), e.Generator.Name())

	params := loadgen.DriveParams{
		Port:        c.Candidate.Port,
		Connections: c.Profile.WrkConnections(),
		Threads:     c.Profile.WrkThreads(),
		KeepAlive:   c.Profile.KeepAlive(),
		CellTag:     tag,
	}

	if warmup := c.Profile.WarmupSec(); warmup > 0 {
		log.Infof("[%s] warming up (%ds)...", tag, warmup)
		params.Warmup = true
		params.Duration = time.Duration(warmup) * time.Second
		if _, _, warmupErr := e.Generator.Drive(params); warmupErr != nil {
			log.Debugf("[%s] warm-up drive reported: %v", tag, warmupErr)
		}
		if handle.Status() == executor.TERMINATED {
			dumped = true
			e.dumpDiagnostics(handle, tag)
			return nil, failure(RuntimeCrash, tag,
				"server crashed during warmup (%s)", exitStatus(handle))
		}
	}

	measure := c.Profile.MeasureSec()
	log.Infof("[%s] measuring (%ds)...", tag, measure)
	params.Warmup = false
	params.Duration = time.Duration(measure) * time.Second
	measured, raw, driveErr := e.Generator.Drive(params)
	if driveErr != nil || measured == nil {
		dumped = true
		if handle.Status() == executor.TERMINATED {
			e.dumpDiagnostics(handle, tag)
			return nil, failure(RuntimeCrash, tag,
				"server crashed during measurement (%s)", exitStatus(handle))
		}
		e.dumpDiagnostics(handle, tag)
		return nil, failure(MeasurementTimeout, tag, "load generator failed: %v", driveErr)
	}

	// Sampled while the server is still alive; teardown would lose it.
	rssKb := e.sampleRSS(handle.Pid())

	res = e.assemble(c, binaryPath, measured, raw, rssKb)
	log.Infof("[%s] result: %.0f req/s  p50=%.0fus  p99=%.0fus", tag,
		measured.RequestsPerSec, measured.P50LatencyUs, measured.P99LatencyUs)

	return res, nil
}

func (e *Engine) resolveBinary(c Cell) (string, error) {
	binary := c.Candidate.Binary
	if binary == "" {
		return "", failure(MissingArtifact, c.Tag(), "no binary specified")
	}
	if e.BuildProfile != "" && e.BuildProfile != "release" {
		binary = strings.Replace(binary, "target/release/", "target/"+e.BuildProfile+"/", 1)
	}
	if e.RootDir != "" && !filepath.IsAbs(binary) {
		binary = filepath.Join(e.RootDir, binary)
	}

	return binary, nil
}

func (e *Engine) logPlan(c Cell, binaryPath string, env map[string]string) {
	log.Infof("Cell: %s", c.Tag())
	log.Infof("  Common: %s — %s", c.Profile.Name, c.Profile.Desc())
	log.Infof("  App:    %s (lang=%s, model=%s, io=%s)",
		c.Candidate.Name, c.Candidate.Lang, c.Candidate.Model, c.Candidate.IO)
	log.Infof("  Config: %s", c.Config.Name)
	log.Infof("  HW:     cores=%d, parallelism=%d", c.Profile.CPUCores(), c.Profile.Parallelism())
	log.Infof("  Port:   %d (per-candidate)", c.Candidate.Port)
	log.Infof("  Binary: %s (%s)", binaryPath, e.BuildProfile)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, k+"="+env[k])
	}
	log.Infof("  Env:    %s", strings.Join(entries, " "))
}

// teardown runs on every exit path past launch and never panics past
// this boundary. With a live process it stops it gracefully, escalating
// inside Stop; with a dead one it just records the exit status. The
// stderr tail is attached to successful results only after death.
func (e *Engine) teardown(handle executor.TaskHandle, tag string, res *results.CellResult, dumped bool) {
	if handle.Status() == executor.TERMINATED {
		log.Infof("[%s] server already exited (%s)", tag, exitStatus(handle))
		if res == nil && !dumped {
			e.dumpDiagnostics(handle, tag)
		}
	} else {
		log.Infof("[%s] stopping server (pid=%d)...", tag, handle.Pid())
		if err := handle.Stop(); err != nil {
			log.Errorf("[%s] cannot stop server: %v", tag, err)
			return
		}
	}

	if res != nil {
		res.ServerStderrTail = executor.StderrTailBytes(handle, stderrTailBytes)
	}
}

// dumpDiagnostics logs the tail of the server's captured output. The
// process must be dead first: output files are only read after death, so
// a still-running process is stopped here.
func (e *Engine) dumpDiagnostics(handle executor.TaskHandle, tag string) {
	if handle.Status() == executor.RUNNING {
		if err := handle.Stop(); err != nil {
			log.Errorf("[%s] cannot stop server before reading output: %v", tag, err)
			return
		}
	}

	stdoutTail, stderrTail := executor.OutputTails(handle, 10, 20)
	if stderrTail != "" {
		log.Errorf("[%s] server stderr:", tag)
		for _, line := range strings.Split(strings.TrimSpace(stderrTail), "\n") {
			log.Errorf("    %s", line)
		}
	}
	if stdoutTail != "" {
		log.Infof("[%s] server stdout:", tag)
		for _, line := range strings.Split(strings.TrimSpace(stdoutTail), "\n") {
			log.Infof("    %s", line)
		}
	}
}

func (e *Engine) assemble(c Cell, binaryPath string, measured *metrics.Metrics, raw string, rssKb int) *results.CellResult {
	result := &results.CellResult{
		Cell:          c.Tag(),
		CommonProfile: c.Profile.Name,
		CommonDesc:    c.Profile.Desc(),
		App:           c.Candidate.Name,
		Config:        c.Config.Name,
		Lang:          c.Candidate.Lang,
		Model:         c.Candidate.Model,
		IOBackend:     c.Candidate.IO,
		Binary:        binaryPath,
		BuildProfile:  e.BuildProfile,

		CommonParams: c.Profile.Params(),
		AppParams:    c.Config.Params,

		LoadGen:        e.Generator.Name(),
		WrkThreads:     c.Profile.WrkThreads(),
		WrkConnections: c.Profile.WrkConnections(),
		MeasureSec:     c.Profile.MeasureSec(),
		KeepAlive:      c.Profile.KeepAlive(),

		Metrics:          measured,
		RSSKb:            rssKb,
		RawLoadGenOutput: raw,
		System:           e.System,
	}

	// Per-core throughput is not applicable without parallelism; nil, not 0.
	if parallelism := c.Profile.Parallelism(); parallelism > 0 {
		perCore := measured.RequestsPerSec / float64(parallelism)
		result.RPSPerCore = &perCore
	}

	return result
}

// exitStatus renders a handle's exit code, decoding negated signal
// numbers into names.
func exitStatus(handle executor.TaskHandle) string {
	code, err := handle.ExitCode()
	if err != nil {
		return "exit status unavailable"
	}
	if code < 0 {
		if name := unix.SignalName(syscall.Signal(-code)); name != "" {
			return fmt.Sprintf("exit=%d, %s", code, name)
		}
		return fmt.Sprintf("exit=%d, signal %d", code, -code)
	}

	return fmt.Sprintf("exit=%d", code)
}
