// Package loadgen drives HTTP load against a candidate's port and
// normalizes the heterogeneous generator outputs into one metrics record.
// Three implementations exist: wrkr (structured JSON report), wrk (text
// report scraped with anchored patterns) and an in-process fallback
// client used when neither binary is available.
package loadgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/executor"
	"github.com/GssMahadevan/gvthread/pkg/metrics"
)

// driveTimeoutSlack bounds a drive beyond its configured duration. A
// generator that has not returned by then is considered hung and killed.
const driveTimeoutSlack = 60 * time.Second

// DriveParams describes one load-driving phase against a candidate.
type DriveParams struct {
	Port        int
	Connections int
	Threads     int
	Duration    time.Duration
	KeepAlive   bool

	// Warmup discards metrics: on success Drive returns a non-nil empty
	// record so the caller can tell "completed silently" from "failed".
	Warmup bool

	// CellTag labels log lines with the owning cell.
	CellTag string
}

// URL returns the target of the drive.
func (p DriveParams) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/", p.Port)
}

// LoadGenerator drives load for the configured duration and reports
// normalized metrics plus the generator's raw output for provenance.
// Metrics are nil exactly when err is non-nil.
type LoadGenerator interface {
	Drive(params DriveParams) (*metrics.Metrics, string, error)
	Name() string
}

// TimeoutError reports a generator exceeding its bounded execution
// window. The engine classifies it separately from a candidate crash.
type TimeoutError struct {
	Generator string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %s", e.Generator, e.Timeout)
}

// runGenerator executes a generator command, waits out its bounded
// window and returns captured stdout and stderr. The handle is stopped
// and its output erased before return.
func runGenerator(exec executor.Executor, command string, timeout time.Duration, name string) (stdout, stderr string, err error) {
	handle, err := exec.Execute(command)
	if err != nil {
		return "", "", errors.Wrapf(err, "cannot launch %s", name)
	}
	defer handle.EraseOutput()
	defer handle.Clean()

	if !handle.Wait(timeout) {
		if stopErr := handle.Stop(); stopErr != nil {
			log.Errorf("cannot stop hung %s: %v", name, stopErr)
		}
		return "", "", &TimeoutError{Generator: name, Timeout: timeout}
	}

	stdout = readOutputFile(handle.StdoutFile)
	stderr = readOutputFile(handle.StderrFile)

	exitCode, err := handle.ExitCode()
	if err != nil {
		return stdout, stderr, errors.Wrapf(err, "cannot read %s exit code", name)
	}
	if exitCode != 0 {
		return stdout, stderr, errors.Errorf("%s failed (rc=%d): %.300s", name, exitCode, stderr)
	}

	return stdout, stderr, nil
}

func readOutputFile(open func() (*os.File, error)) string {
	file, err := open()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return ""
	}

	return string(data)
}
