package cell

import (
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"

	"github.com/GssMahadevan/gvthread/pkg/executor"
	executorMocks "github.com/GssMahadevan/gvthread/pkg/executor/mocks"
	"github.com/GssMahadevan/gvthread/pkg/isolation"
	"github.com/GssMahadevan/gvthread/pkg/loadgen"
	loadgenMocks "github.com/GssMahadevan/gvthread/pkg/loadgen/mocks"
	"github.com/GssMahadevan/gvthread/pkg/manifest"
	"github.com/GssMahadevan/gvthread/pkg/metrics"
	"github.com/GssMahadevan/gvthread/pkg/sysinfo"

	"github.com/pkg/errors"
)

const engineTestDocument = `
common:
  light:
    desc: "engine test profile"
    parallelism: 2
    warmup_sec: 0
    measure_sec: 1
apps:
  srv:
    binary: /bin/sh
    lang: go
    port: 7777
`

func engineTestCell(t *testing.T, warmupSec string) Cell {
	doc := engineTestDocument
	if warmupSec != "" {
		doc = strings.Replace(doc, "warmup_sec: 0", "warmup_sec: "+warmupSec, 1)
	}
	m, err := manifest.Parse([]byte(doc), "engine_test.yml")
	if err != nil {
		t.Fatalf("cannot parse test document: %v", err)
	}

	candidate := m.Candidates["srv"]
	return Cell{
		Profile:   m.Profiles["light"],
		Candidate: candidate,
		Config:    candidate.Configs[0],
	}
}

// testEngine wires an engine with every external effect replaced.
func testEngine(handle executor.TaskHandle, generator loadgen.LoadGenerator, listening bool) (*Engine, *int, *[]int) {
	executions := 0
	evictions := []int{}

	mockedExecutor := new(executorMocks.Executor)
	if handle != nil {
		mockedExecutor.On("Execute", mock.Anything).Return(handle, nil)
	}

	e := NewEngine("", "release", generator, sysinfo.Info{Hostname: "testhost"})
	e.newExecutor = func(env map[string]string, decorators ...isolation.Decorator) executor.Executor {
		executions++
		return mockedExecutor
	}
	e.isListening = func(address string, timeout time.Duration) bool { return listening }
	e.evictListener = func(port int) { evictions = append(evictions, port) }
	e.sampleRSS = func(pid int) int { return 4321 }

	return e, &executions, &evictions
}

func deadHandle(exitCode int) *executorMocks.TaskHandle {
	handle := new(executorMocks.TaskHandle)
	handle.On("Status").Return(executor.TERMINATED)
	handle.On("ExitCode").Return(exitCode, nil)
	handle.On("Pid").Return(1234)
	handle.On("StdoutFile").Return(nil, errors.New("no output"))
	handle.On("StderrFile").Return(nil, errors.New("no output"))
	handle.On("Clean").Return(nil)
	handle.On("EraseOutput").Return(nil)
	return handle
}

func liveHandle() *executorMocks.TaskHandle {
	handle := new(executorMocks.TaskHandle)
	handle.On("Status").Return(executor.RUNNING)
	handle.On("Pid").Return(1234)
	handle.On("Stop").Return(nil)
	handle.On("StdoutFile").Return(nil, errors.New("no output"))
	handle.On("StderrFile").Return(nil, errors.New("no output"))
	handle.On("Clean").Return(nil)
	handle.On("EraseOutput").Return(nil)
	return handle
}

func TestEngine(t *testing.T) {
	Convey("While running one benchmark cell", t, func() {
		Convey("An overlapping config aborts before any launch", func() {
			c := engineTestCell(t, "")
			c.Config = manifest.Config{
				Name:   "bad",
				Params: map[string]interface{}{"parallelism": 8},
			}

			e, executions, evictions := testEngine(nil, nil, false)
			res, err := e.Run(c)

			So(res, ShouldBeNil)
			So(err, ShouldNotBeNil)
			cellErr := err.(*Error)
			So(cellErr.Kind, ShouldEqual, OverlapViolation)
			So(cellErr.Cell, ShouldEqual, "light/srv/bad")
			So(*executions, ShouldEqual, 0)
			So(*evictions, ShouldBeEmpty)
		})

		Convey("A missing binary aborts before any launch", func() {
			c := engineTestCell(t, "")
			c.Candidate.Binary = "/nonexistent/binary"

			e, executions, _ := testEngine(nil, nil, false)
			res, err := e.Run(c)

			So(res, ShouldBeNil)
			So(err.(*Error).Kind, ShouldEqual, MissingArtifact)
			So(*executions, ShouldEqual, 0)
		})

		Convey("A dry run stops before the binary existence check", func() {
			c := engineTestCell(t, "")
			c.Candidate.Binary = "/nonexistent/binary"

			e, executions, _ := testEngine(nil, nil, false)
			e.DryRun = true
			res, err := e.Run(c)

			So(res, ShouldBeNil)
			So(err, ShouldBeNil)
			So(*executions, ShouldEqual, 0)
		})

		Convey("A crash before the port opens is a startup failure with the signal decoded", func() {
			c := engineTestCell(t, "")
			handle := deadHandle(-11)
			generator := new(loadgenMocks.LoadGenerator)
			generator.On("Name").Return("mockgen")

			e, executions, evictions := testEngine(handle, generator, false)
			res, err := e.Run(c)

			So(res, ShouldBeNil)
			cellErr := err.(*Error)
			So(cellErr.Kind, ShouldEqual, StartupFailure)
			So(cellErr.Message, ShouldContainSubstring, "SIGSEGV")
			So(*executions, ShouldEqual, 1)
			So(*evictions, ShouldResemble, []int{7777})
			handle.AssertNotCalled(t, "Stop")
		})

		Convey("A live process that never binds its port is killed and reported", func() {
			c := engineTestCell(t, "")
			handle := liveHandle()
			generator := new(loadgenMocks.LoadGenerator)
			generator.On("Name").Return("mockgen")

			e, _, _ := testEngine(handle, generator, false)
			_, err := e.Run(c)

			So(err.(*Error).Kind, ShouldEqual, StartupFailure)
			So(err.Error(), ShouldContainSubstring, "not listening")
			generator.AssertNotCalled(t, "Drive")
			handle.AssertCalled(t, "Stop")
		})

		Convey("A missing load generator aborts before any launch", func() {
			c := engineTestCell(t, "")

			e, executions, evictions := testEngine(nil, nil, false)
			res, err := e.Run(c)

			So(res, ShouldBeNil)
			cellErr := err.(*Error)
			So(cellErr.Kind, ShouldEqual, MissingArtifact)
			So(cellErr.Message, ShouldContainSubstring, "no load generator")
			So(*executions, ShouldEqual, 0)
			So(*evictions, ShouldBeEmpty)
		})

		Convey("A crash during warmup is a runtime crash", func() {
			c := engineTestCell(t, "2")

			// Alive through readiness, dead when re-checked after warmup.
			handle := new(executorMocks.TaskHandle)
			handle.On("Status").Return(executor.TERMINATED)
			handle.On("ExitCode").Return(-9, nil)
			handle.On("Pid").Return(1234)
			handle.On("StdoutFile").Return(nil, errors.New("no output"))
			handle.On("StderrFile").Return(nil, errors.New("no output"))
			handle.On("Clean").Return(nil)
			handle.On("EraseOutput").Return(nil)

			generator := new(loadgenMocks.LoadGenerator)
			generator.On("Name").Return("mockgen")
			generator.On("Drive", mock.MatchedBy(func(p loadgen.DriveParams) bool {
				return p.Warmup
			})).Return(&metrics.Metrics{}, "", nil)

			e, _, _ := testEngine(handle, generator, true)
			res, err := e.Run(c)

			So(res, ShouldBeNil)
			cellErr := err.(*Error)
			So(cellErr.Kind, ShouldEqual, RuntimeCrash)
			So(cellErr.Message, ShouldContainSubstring, "warmup")
			So(cellErr.Message, ShouldContainSubstring, "SIGKILL")
		})

		Convey("A failed drive with a live server is a measurement timeout", func() {
			c := engineTestCell(t, "")
			handle := liveHandle()

			generator := new(loadgenMocks.LoadGenerator)
			generator.On("Name").Return("mockgen")
			generator.On("Drive", mock.Anything).Return(nil, "", errors.New("wrk timed out"))

			e, _, _ := testEngine(handle, generator, true)
			res, err := e.Run(c)

			So(res, ShouldBeNil)
			So(err.(*Error).Kind, ShouldEqual, MeasurementTimeout)
			handle.AssertCalled(t, "Stop")
		})

		Convey("A successful measurement assembles a full result", func() {
			c := engineTestCell(t, "")
			handle := liveHandle()

			measured := &metrics.Metrics{
				RequestsPerSec: 45678.9,
				P50LatencyUs:   123,
				P99LatencyUs:   1530,
			}
			generator := new(loadgenMocks.LoadGenerator)
			generator.On("Name").Return("mockgen")
			generator.On("Drive", mock.MatchedBy(func(p loadgen.DriveParams) bool {
				return !p.Warmup
			})).Return(measured, "raw report", nil)

			e, _, _ := testEngine(handle, generator, true)
			res, err := e.Run(c)

			So(err, ShouldBeNil)
			So(res, ShouldNotBeNil)
			So(res.Cell, ShouldEqual, "light/srv/default")
			So(res.Metrics.RequestsPerSec, ShouldEqual, 45678.9)
			So(res.RSSKb, ShouldEqual, 4321)
			So(res.LoadGen, ShouldEqual, "mockgen")
			So(res.RawLoadGenOutput, ShouldEqual, "raw report")
			So(res.System.Hostname, ShouldEqual, "testhost")

			So(res.RPSPerCore, ShouldNotBeNil)
			So(*res.RPSPerCore, ShouldEqual, 45678.9/2)

			// Teardown still runs on the success path.
			handle.AssertCalled(t, "Stop")
			handle.AssertCalled(t, "EraseOutput")
		})
	})
}
