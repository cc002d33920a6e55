package loadgen

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/executor"
	"github.com/GssMahadevan/gvthread/pkg/metrics"
)

// Wrkr drives load with the purpose-built wrkr binary, which emits one
// JSON report on stdout.
type Wrkr struct {
	path string
	exec executor.Executor
}

// NewWrkr returns a generator invoking the wrkr binary at path.
func NewWrkr(path string) *Wrkr {
	return &Wrkr{path: path, exec: executor.NewLocal()}
}

func (w *Wrkr) Name() string {
	return "wrkr"
}

func (w *Wrkr) Drive(params DriveParams) (*metrics.Metrics, string, error) {
	command := w.command(params)
	log.Debugf("[%s] driving load: %s", params.CellTag, command)

	timeout := params.Duration + driveTimeoutSlack
	stdout, _, err := runGenerator(w.exec, command, timeout, w.Name())
	if err != nil {
		return nil, stdout, err
	}

	if params.Warmup {
		return &metrics.Metrics{}, stdout, nil
	}

	parsed, err := ParseWrkrReport([]byte(stdout))
	if err != nil {
		return nil, stdout, err
	}

	return parsed, stdout, nil
}

func (w *Wrkr) command(params DriveParams) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s %s -c %d -d %d",
		w.path, params.URL(), params.Connections, int(params.Duration.Seconds()))
	if !params.KeepAlive {
		builder.WriteString(" --no-keepalive")
	}

	return builder.String()
}
