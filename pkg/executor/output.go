package executor

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

func getBinaryNameFromCommand(command string) (string, error) {
	_, name := path.Split(command)
	nameSplit := strings.Split(name, " ")
	if len(nameSplit) == 0 || nameSplit[0] == "" {
		return "", errors.Errorf("failed to extract command name from %q", command)
	}
	return nameSplit[0], nil
}

// createExecutorOutputFiles creates a per-task directory holding the stdout
// and stderr files of the supervised process. Output goes to files, never to
// pipes, so it can be read safely after the process dies.
func createExecutorOutputFiles(command, prefix string) (stdout, stderr *os.File, err error) {
	if len(command) == 0 {
		return nil, nil, errors.New("empty command string")
	}

	commandName, err := getBinaryNameFromCommand(command)
	if err != nil {
		return nil, nil, err
	}

	outputDir, err := os.MkdirTemp("", prefix+"_"+commandName+"_")
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create output directory for %q", commandName)
	}

	stdoutFileName := path.Join(outputDir, "stdout")
	stdout, err = os.Create(stdoutFileName)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot create stdout file")
	}

	stderr, err = os.Create(path.Join(outputDir, "stderr"))
	if err != nil {
		os.Remove(stdoutFileName)
		return nil, nil, errors.Wrap(err, "cannot create stderr file")
	}

	return stdout, stderr, nil
}

func removeOutputFiles(stdout, stderr *os.File) {
	stdout.Close()
	stderr.Close()
	os.RemoveAll(filepathDir(stdout.Name()))
}

func filepathDir(p string) string {
	return filepath.Dir(p)
}
