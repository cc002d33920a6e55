package isolation

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTasksetDecorator(t *testing.T) {
	Convey("When decorating a command with a 4 core taskset", t, func() {
		decorator := NewTasksetDecorator(4)

		Convey("The command should be prefixed with a 0-3 core range", func() {
			So(decorator.Decorate("server --port 8080"),
				ShouldEqual, "taskset -c 0-3 server --port 8080")
		})
	})

	Convey("When decorating a command with a single core taskset", t, func() {
		decorator := NewTasksetDecorator(1)

		Convey("The command should be pinned to core 0", func() {
			So(decorator.Decorate("server"), ShouldEqual, "taskset -c 0-0 server")
		})
	})

	Convey("When requesting zero cores", t, func() {
		Convey("No decorator should be produced", func() {
			So(TasksetForCores(0), ShouldBeNil)
		})
	})
}
