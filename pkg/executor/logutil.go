package executor

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/utils/fs"
)

// OutputTails returns the last stdoutLines/stderrLines of the task's captured
// output. The task must be TERMINATED; output files of a live process are
// never read.
func OutputTails(handle TaskHandle, stdoutLines, stderrLines int) (stdoutTail, stderrTail string) {
	stdoutFile, err := handle.StdoutFile()
	if err == nil {
		stdoutTail, err = fs.ReadTail(stdoutFile.Name(), stdoutLines)
		if err != nil {
			stdoutTail = fmt.Sprintf("%v", err)
		}
	}

	stderrFile, err := handle.StderrFile()
	if err == nil {
		stderrTail, err = fs.ReadTail(stderrFile.Name(), stderrLines)
		if err != nil {
			stderrTail = fmt.Sprintf("%v", err)
		}
	}

	return stdoutTail, stderrTail
}

// StderrTailBytes returns the last byteCount bytes of the task's captured
// stderr. Used to attach a bounded postmortem snippet to results.
func StderrTailBytes(handle TaskHandle, byteCount int64) string {
	stderrFile, err := handle.StderrFile()
	if err != nil {
		return ""
	}
	tail, err := fs.ReadTailBytes(stderrFile.Name(), byteCount)
	if err != nil {
		return ""
	}
	return tail
}

// LogUnsuccessfulExecution logs the tail of captured output of a task that
// ended prematurely.
func LogUnsuccessfulExecution(whatWasExecuted string, whereWasExecuted string, handle TaskHandle) {
	const lineCount = 20

	stdoutTail, stderrTail := OutputTails(handle, lineCount/2, lineCount)

	logrus.Errorf("Command %q might have ended prematurely on %q on address %q",
		whatWasExecuted, whereWasExecuted, handle.Address())
	if stderrTail != "" {
		logrus.Errorf("Last %d lines of stderr:", lineCount)
		ErrorLogLines(strings.NewReader(stderrTail))
	}
	if stdoutTail != "" {
		logrus.Errorf("Last %d lines of stdout:", lineCount/2)
		ErrorLogLines(strings.NewReader(stdoutTail))
	}

	exitCode, err := handle.ExitCode()
	if err != nil {
		logrus.Errorf("Could not read exit code: %v", err)
	} else {
		logrus.Errorf("Exit code: %d", exitCode)
	}
}

// ErrorLogLines takes a reader and prints each line in a separate
// log.Errorf call. Rationale behind this function is fact, that logrus does
// not support multi-line logs.
func ErrorLogLines(r *strings.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logrus.Errorf("    %s", scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logrus.Errorf("Printing from reader failed: %q", err.Error())
	}
}
