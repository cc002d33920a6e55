package executor

import (
	"io"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocal(t *testing.T) {
	Convey("While using Local executor", t, func() {
		l := NewLocal()

		Convey("The generic Executor test should pass", func() {
			Convey("When blocking infinitely sleep command is executed", func() {
				taskHandle, err := l.Execute("sleep inf")
				So(err, ShouldBeNil)

				defer taskHandle.EraseOutput()
				defer taskHandle.Clean()

				Convey("Task should be still running and exit code should return error", func() {
					So(taskHandle.Status(), ShouldEqual, RUNNING)
					_, err := taskHandle.ExitCode()
					So(err, ShouldNotBeNil)

					stopErr := taskHandle.Stop()
					So(stopErr, ShouldBeNil)
				})

				Convey("When we wait for task termination with the timeout", func() {
					isTaskTerminated := taskHandle.Wait(100 * time.Millisecond)

					Convey("The timeout should exceed and the task should not be terminated", func() {
						So(isTaskTerminated, ShouldBeFalse)
						So(taskHandle.Status(), ShouldEqual, RUNNING)

						stopErr := taskHandle.Stop()
						So(stopErr, ShouldBeNil)
					})
				})

				Convey("When we stop the task", func() {
					err := taskHandle.Stop()

					Convey("The task should be terminated and the exit code should "+
						"indicate that task was killed", func() {
						So(err, ShouldBeNil)
						So(taskHandle.Status(), ShouldEqual, TERMINATED)

						exitCode, err := taskHandle.ExitCode()
						So(err, ShouldBeNil)
						// SIGTERM is reported as negated signal number.
						So(exitCode, ShouldEqual, -15)
					})
				})
			})

			Convey("When command `echo output` is executed", func() {
				taskHandle, err := l.Execute("echo output")
				So(err, ShouldBeNil)

				defer taskHandle.EraseOutput()
				defer taskHandle.Clean()

				Convey("When we wait for the task to terminate", func() {
					isTaskTerminated := taskHandle.Wait(0)

					Convey("The task should be terminated with exit code 0 and "+
						"output captured", func() {
						So(isTaskTerminated, ShouldBeTrue)
						So(taskHandle.Status(), ShouldEqual, TERMINATED)

						exitCode, err := taskHandle.ExitCode()
						So(err, ShouldBeNil)
						So(exitCode, ShouldEqual, 0)

						stdoutFile, err := taskHandle.StdoutFile()
						So(err, ShouldBeNil)
						data, err := io.ReadAll(stdoutFile)
						So(err, ShouldBeNil)
						So(string(data), ShouldStartWith, "output")
					})
				})
			})

			Convey("When command which does not exist is executed", func() {
				taskHandle, err := l.Execute("command_not_existing_in_path")
				So(err, ShouldBeNil)

				defer taskHandle.EraseOutput()
				defer taskHandle.Clean()

				Convey("The task should terminate with a nonzero exit code", func() {
					So(taskHandle.Wait(0), ShouldBeTrue)

					exitCode, err := taskHandle.ExitCode()
					So(err, ShouldBeNil)
					So(exitCode, ShouldNotEqual, 0)
				})
			})
		})

		Convey("When the handle is polled from another goroutine while stopped", func() {
			taskHandle, err := l.Execute("sleep inf")
			So(err, ShouldBeNil)

			defer taskHandle.EraseOutput()
			defer taskHandle.Clean()

			// The interrupt-stop path does exactly this: Status and Stop
			// against a handle owned by another control flow.
			polled := make(chan struct{})
			go func() {
				defer close(polled)
				for taskHandle.Status() == RUNNING {
					taskHandle.ExitCode()
					time.Sleep(time.Millisecond)
				}
			}()

			Convey("Stop should win the race and both sides agree on the state", func() {
				So(taskHandle.Stop(), ShouldBeNil)
				<-polled

				So(taskHandle.Status(), ShouldEqual, TERMINATED)
				exitCode, err := taskHandle.ExitCode()
				So(err, ShouldBeNil)
				So(exitCode, ShouldEqual, -15)
			})
		})

		Convey("When the executor is extended with environment entries", func() {
			taskHandle, err := l.WithEnv(map[string]string{"gvt_app_port": "9999"}).
				Execute("echo $gvt_app_port")
			So(err, ShouldBeNil)

			defer taskHandle.EraseOutput()
			defer taskHandle.Clean()

			Convey("The process should see the injected variable", func() {
				So(taskHandle.Wait(0), ShouldBeTrue)

				stdoutFile, err := taskHandle.StdoutFile()
				So(err, ShouldBeNil)
				data, err := io.ReadAll(stdoutFile)
				So(err, ShouldBeNil)
				So(string(data), ShouldStartWith, "9999")
			})
		})
	})
}
