package runner

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/executor"
	"github.com/GssMahadevan/gvthread/pkg/manifest"
	"github.com/GssMahadevan/gvthread/pkg/registry"
)

// buildTimeout bounds one candidate's build.
const buildTimeout = 10 * time.Minute

// BuildCandidates builds every candidate through its test type's build
// rule before the matrix runs. Returns the names of candidates whose
// build failed; their cells will fail on the missing binary and the rest
// of the run proceeds.
func BuildCandidates(m *manifest.Manifest, testType registry.TestType, rootDir, buildProfile string) []string {
	local := executor.NewLocal()

	var failed []string
	for _, name := range m.CandidateNames() {
		candidate := m.Candidates[name]

		command := ""
		if testType.BuildCommand != nil {
			command = testType.BuildCommand(candidate, buildProfile)
		}
		if command == "" {
			log.Debugf("no build rule for candidate %s, skipping", name)
			continue
		}
		if rootDir != "" {
			command = fmt.Sprintf("cd %s && %s", rootDir, command)
		}

		log.Infof("Building %s: %s", name, command)
		if !buildOne(local, command, name) {
			failed = append(failed, name)
		}
	}

	return failed
}

func buildOne(local executor.Local, command, name string) bool {
	handle, err := local.Execute(command)
	if err != nil {
		log.Errorf("cannot start build of %s: %v", name, err)
		return false
	}
	defer handle.EraseOutput()
	defer handle.Clean()

	if !handle.Wait(buildTimeout) {
		log.Errorf("build of %s did not finish within %s", name, buildTimeout)
		if stopErr := handle.Stop(); stopErr != nil {
			log.Errorf("cannot stop build of %s: %v", name, stopErr)
		}
		return false
	}

	exitCode, err := handle.ExitCode()
	if err != nil || exitCode != 0 {
		executor.LogUnsuccessfulExecution(command, "localhost", handle)
		return false
	}

	return true
}
