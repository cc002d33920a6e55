package loadgen

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/GssMahadevan/gvthread/pkg/executor"
	"github.com/GssMahadevan/gvthread/pkg/metrics"
)

// Wrk drives load with the widely available wrk binary and scrapes its
// text report.
type Wrk struct {
	exec executor.Executor
}

// NewWrk returns a generator invoking wrk from PATH.
func NewWrk() *Wrk {
	return &Wrk{exec: executor.NewLocal()}
}

func (w *Wrk) Name() string {
	return "wrk"
}

func (w *Wrk) Drive(params DriveParams) (*metrics.Metrics, string, error) {
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

	return ParseWrkOutput(stdout), stdout, nil
}

func (w *Wrk) command(params DriveParams) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "wrk -t%d -c%d -d%ds --latency",
		params.Threads, params.Connections, int(params.Duration.Seconds()))
	if !params.KeepAlive {
		builder.WriteString(" -H 'Connection: close'")
	}
	builder.WriteString(" " + params.URL())

	return builder.String()
}
