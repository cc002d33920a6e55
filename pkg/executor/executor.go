// Package executor provides the execution environment for processes under
// benchmark control: candidate servers, load generators and build commands.
// Commands run asynchronously; a TaskHandle is returned for supervision.
package executor

// Executor is responsible for creating execution environment for given command.
// It returns Task Handle when the command started gracefully.
// The command is executed asynchronously.
type Executor interface {
	// Execute executes command on underlying platform.
	Execute(command string) (TaskHandle, error)
	// Name returns user-friendly name of executor.
	Name() string
}
