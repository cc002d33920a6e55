package conf

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConf(t *testing.T) {
	Convey("While using the conf package", t, func() {
		Convey("The default log level is info", func() {
			So(LogLevel(), ShouldEqual, logrus.InfoLevel)
		})

		Convey("The log level can be set from the environment", func() {
			os.Setenv("GVT_LOG", "debug")
			defer os.Unsetenv("GVT_LOG")

			So(ParseEnv(), ShouldBeNil)
			So(LogLevel(), ShouldEqual, logrus.DebugLevel)
		})

		Convey("The app name can be set for CLI output", func() {
			previous := AppName()
			defer SetAppName(previous)

			SetAppName("benchrun-test")
			So(AppName(), ShouldEqual, "benchrun-test")
		})
	})
}

func TestFlags(t *testing.T) {
	Convey("While defining flags", t, func() {
		Convey("A string flag falls back to its default", func() {
			flag := NewStringFlag("string_flag_test", "test flag", "fallback")
			So(flag.Value(), ShouldEqual, "fallback")

			Convey("and its GVT_ environment variable overrides it", func() {
				os.Setenv("GVT_STRING_FLAG_TEST", "override")
				defer os.Unsetenv("GVT_STRING_FLAG_TEST")

				So(ParseEnv(), ShouldBeNil)
				So(flag.Value(), ShouldEqual, "override")
			})
		})

		Convey("An int flag parses its environment override", func() {
			flag := NewIntFlag("int_flag_test", "test flag", 7)
			os.Setenv("GVT_INT_FLAG_TEST", "123")
			defer os.Unsetenv("GVT_INT_FLAG_TEST")

			So(ParseEnv(), ShouldBeNil)
			So(flag.Value(), ShouldEqual, 123)
		})

		Convey("A float flag parses its environment override", func() {
			flag := NewFloatFlag("float_flag_test", "test flag", 5.0)
			os.Setenv("GVT_FLOAT_FLAG_TEST", "7.5")
			defer os.Unsetenv("GVT_FLOAT_FLAG_TEST")

			So(ParseEnv(), ShouldBeNil)
			So(flag.Value(), ShouldEqual, 7.5)
		})

		Convey("A bool flag parses its environment override", func() {
			flag := NewBoolFlag("bool_flag_test", "test flag", false)
			os.Setenv("GVT_BOOL_FLAG_TEST", "true")
			defer os.Unsetenv("GVT_BOOL_FLAG_TEST")

			So(ParseEnv(), ShouldBeNil)
			So(flag.Value(), ShouldBeTrue)
		})

		Convey("A duration flag falls back to its default", func() {
			flag := NewDurationFlag("duration_flag_test", "test flag", 10*time.Second)
			So(flag.Value(), ShouldEqual, 10*time.Second)

			Convey("and parses its environment override", func() {
				os.Setenv("GVT_DURATION_FLAG_TEST", "30s")
				defer os.Unsetenv("GVT_DURATION_FLAG_TEST")

				So(ParseEnv(), ShouldBeNil)
				So(flag.Value(), ShouldEqual, 30*time.Second)
			})
		})
	})
}
