package executor

import (
	"os"
	"time"
)

// TaskState is an enum presenting current task state.
type TaskState int

const (
	// RUNNING task state means that task is still running.
	RUNNING TaskState = iota
	// TERMINATED task state means that task completed or stopped.
	TERMINATED
)

// TaskHandle represents a process which can be stopped or monitored.
//
// Stdout and stderr of the process are captured to files and must only be
// read after the process has terminated; reading a live process's buffered
// output through its pipes could block indefinitely, which is why output goes
// to files in the first place.
type TaskHandle interface {
	// Stop terminates the task gracefully, escalating to a forced kill when
	// graceful termination does not complete within the grace period.
	Stop() error
	// Status returns a state of the task.
	Status() TaskState
	// ExitCode returns an exitCode. If task is not terminated it returns error.
	// A task killed by a signal reports the negated signal number.
	ExitCode() (int, error)
	// Pid returns the process identifier of the supervised process.
	Pid() int
	// StdoutFile returns a file handle to the task's stdout file.
	StdoutFile() (*os.File, error)
	// StderrFile returns a file handle to the task's stderr file.
	StderrFile() (*os.File, error)
	// Wait blocks for the task completion. Zero timeout means wait forever.
	// It returns true if task is terminated.
	Wait(timeout time.Duration) bool
	// Clean closes the task's stdout & stderr files.
	Clean() error
	// EraseOutput removes task's stdout & stderr files.
	EraseOutput() error
	// Address returns address where task was located.
	Address() string
}
