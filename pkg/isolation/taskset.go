package isolation

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"
)

// TasksetDecorator pins the decorated command to a fixed set of CPU cores.
// Candidates under test are pinned externally so that none of them can gain
// an advantage from doing its own placement.
type TasksetDecorator struct {
	cpuRange string
}

// NewTasksetDecorator is a constructor for TasksetDecorator pinning to cores
// 0..(coreCount-1).
func NewTasksetDecorator(coreCount int) TasksetDecorator {
	if coreCount < 1 {
		coreCount = 1
	}
	return TasksetDecorator{
		cpuRange: fmt.Sprintf("0-%d", coreCount-1),
	}
}

// Decorate implements Decorator interface.
func (t TasksetDecorator) Decorate(command string) string {
	return fmt.Sprintf("taskset -c %s %s", t.cpuRange, command)
}

// TasksetAvailable reports whether the taskset tool can be found on this host.
func TasksetAvailable() bool {
	_, err := exec.LookPath("taskset")
	return err == nil
}

// TasksetForCores returns a pinning decorator for the requested core count, or
// nil (with a warning) when pinning cannot be applied on this host. A request
// for more cores than the machine has runs unpinned.
func TasksetForCores(coreCount int) Decorator {
	if coreCount < 1 {
		return nil
	}
	if total := runtime.NumCPU(); coreCount > total {
		logrus.Warnf("cpu_cores=%d exceeds available %d cores, running unpinned", coreCount, total)
		return nil
	}
	if !TasksetAvailable() {
		logrus.Warn("taskset not found, CPU pinning disabled")
		return nil
	}
	d := NewTasksetDecorator(coreCount)
	return d
}
