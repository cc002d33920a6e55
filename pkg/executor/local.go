package executor

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/isolation"
)

const (
	// killGracePeriod is how long Stop waits after SIGTERM before escalating
	// to SIGKILL.
	killGracePeriod = 5 * time.Second
	// killWaitTimeout bounds the wait for the process to die after SIGKILL.
	killWaitTimeout = 5 * time.Second
)

// Local provisioning is responsible for providing the execution environment
// on local machine via exec.Command.
// It runs command as current user.
type Local struct {
	env        map[string]string
	decorators isolation.Decorators
}

// NewLocal returns a Local instance.
func NewLocal() Local {
	return Local{}
}

// NewLocalIsolated returns a Local instance decorating every command with the
// given decorators (e.g. taskset CPU pinning).
func NewLocalIsolated(decorators ...isolation.Decorator) Local {
	return Local{decorators: decorators}
}

// WithEnv returns a copy of the executor that extends the inherited process
// environment with the given entries. The underlying environment is never
// replaced.
func (l Local) WithEnv(env map[string]string) Local {
	l.env = env
	return l
}

// Name returns user-friendly name of executor.
func (l Local) Name() string {
	return "Local Executor"
}

// Execute runs the command given as input.
// Returned TaskHandle is able to stop & monitor the provisioned process.
func (l Local) Execute(command string) (TaskHandle, error) {
	decorated := l.decorators.Decorate(command)

	stdoutFile, stderrFile, err := createExecutorOutputFiles(decorated, "local")
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create output files for %q", decorated)
	}

	log.Debug("Starting ", decorated)

	cmd := exec.Command("sh", "-c", decorated)
	// It is important to set additional Process Group ID for parent process
	// and his children to have ability to kill all the children processes.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile
	cmd.Env = append(os.Environ(), flattenEnv(l.env)...)

	err = cmd.Start()
	if err != nil {
		removeOutputFiles(stdoutFile, stderrFile)
		return nil, errors.Wrapf(err, "cannot start %q", decorated)
	}

	log.Debug("Started with pid ", cmd.Process.Pid)

	t := newLocalTaskHandle(cmd.Process.Pid, decorated, stdoutFile, stderrFile)

	// Wait for the local task in a goroutine; decode the exit status once.
	go func() {
		// Wait returns an error for nonzero exits; the exit status is
		// recovered from ProcessState either way.
		cmd.Wait()

		var exitCode int
		waitStatus := cmd.ProcessState.Sys().(syscall.WaitStatus)
		if waitStatus.Exited() {
			exitCode = waitStatus.ExitStatus()
		} else {
			// Negated signal number marks termination by signal.
			exitCode = -int(waitStatus.Signal())
		}

		log.Debug(
			"Ended ", decorated,
			" with output in file: ", stdoutFile.Name(),
			" with err output in file: ", stderrFile.Name(),
			" with status code: ", exitCode)

		t.complete(exitCode)
	}()

	register(t)

	return t, nil
}

func flattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flat := make([]string, 0, len(env))
	for _, k := range keys {
		flat = append(flat, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return flat
}

// localTaskHandle implements TaskHandle interface.
type localTaskHandle struct {
	pid        int
	command    string
	stdoutFile *os.File
	stderrFile *os.File

	// done is closed once the waiter goroutine has recorded the exit
	// status, waking every Wait at once.
	done chan struct{}

	// mu guards exitCode and terminated. The interrupt-stop goroutine
	// calls Status and Stop concurrently with the owning control flow.
	mu         sync.Mutex
	exitCode   int
	terminated bool
}

func newLocalTaskHandle(
	pid int,
	command string,
	stdoutFile *os.File,
	stderrFile *os.File,
) *localTaskHandle {
	return &localTaskHandle{
		pid:        pid,
		command:    command,
		stdoutFile: stdoutFile,
		stderrFile: stderrFile,
		done:       make(chan struct{}),
	}
}

// complete records the exit status. Called exactly once, by the waiter
// goroutine.
func (t *localTaskHandle) complete(exitCode int) {
	t.mu.Lock()
	t.exitCode = exitCode
	t.terminated = true
	t.mu.Unlock()
	close(t.done)
}

// Stop terminates the local task. The entire process group is signalled so
// children of the spawned shell die as well. When the group survives the
// grace period, the kill is escalated.
func (t *localTaskHandle) Stop() error {
	if t.Status() == TERMINATED {
		return nil
	}

	// The kill syscall interprets a negated PID N as the process group N
	// belongs to.
	log.Debug("Sending SIGTERM to process group ", t.pid)
	err := syscall.Kill(-t.pid, syscall.SIGTERM)
	if err != nil {
		return errors.Wrapf(err, "cannot terminate process group %d", t.pid)
	}

	if t.waitForStatus(killGracePeriod) {
		return nil
	}

	log.Warnf("Process group %d did not terminate within %s, sending SIGKILL",
		t.pid, killGracePeriod)
	err = syscall.Kill(-t.pid, syscall.SIGKILL)
	if err != nil {
		return errors.Wrapf(err, "cannot kill process group %d", t.pid)
	}

	if !t.waitForStatus(killWaitTimeout) {
		return errors.Errorf("process group %d still alive after SIGKILL", t.pid)
	}

	return nil
}

// Status returns a state of the task.
func (t *localTaskHandle) Status() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminated {
		return TERMINATED
	}
	return RUNNING
}

// ExitCode returns the exit code. If task is not terminated it returns error.
func (t *localTaskHandle) ExitCode() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.terminated {
		return 0, errors.Errorf("task %q is still running", t.command)
	}
	return t.exitCode, nil
}

// Pid returns the process identifier of the supervised process.
func (t *localTaskHandle) Pid() int {
	return t.pid
}

// StdoutFile returns a file handle to the task's stdout file.
func (t *localTaskHandle) StdoutFile() (*os.File, error) {
	if _, err := os.Stat(t.stdoutFile.Name()); err != nil {
		return nil, errors.Wrap(err, "stdout file is missing")
	}
	t.stdoutFile.Seek(0, 0)
	return t.stdoutFile, nil
}

// StderrFile returns a file handle to the task's stderr file.
func (t *localTaskHandle) StderrFile() (*os.File, error) {
	if _, err := os.Stat(t.stderrFile.Name()); err != nil {
		return nil, errors.Wrap(err, "stderr file is missing")
	}
	t.stderrFile.Seek(0, 0)
	return t.stderrFile, nil
}

// Wait blocks until process is terminated or timeout appeared.
// Returns true when process terminates before timeout, otherwise false.
func (t *localTaskHandle) Wait(timeout time.Duration) bool {
	return t.waitForStatus(timeout)
}

// Clean closes the task's stdout & stderr files.
func (t *localTaskHandle) Clean() error {
	if err := t.stdoutFile.Close(); err != nil {
		return errors.Wrap(err, "cannot close stdout file")
	}
	if err := t.stderrFile.Close(); err != nil {
		return errors.Wrap(err, "cannot close stderr file")
	}
	return nil
}

// EraseOutput removes task's stdout & stderr files and their directory.
func (t *localTaskHandle) EraseOutput() error {
	outputDir := filepathDir(t.stdoutFile.Name())
	if err := os.RemoveAll(outputDir); err != nil {
		return errors.Wrapf(err, "cannot remove output directory %q", outputDir)
	}
	return nil
}

// Address returns address where task was located.
func (t *localTaskHandle) Address() string {
	return "127.0.0.1"
}

func (t *localTaskHandle) String() string {
	return fmt.Sprintf("local task %q pid %d", t.command, t.pid)
}

func (t *localTaskHandle) waitForStatus(timeout time.Duration) bool {
	if timeout == 0 {
		<-t.done
		return true
	}

	select {
	case <-t.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
