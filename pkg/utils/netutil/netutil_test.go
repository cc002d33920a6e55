package netutil

import (
	"net"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestIsListening(t *testing.T) {
	Convey("While checking a TCP endpoint", t, func() {
		Convey("A live listener is detected", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			So(err, ShouldBeNil)
			defer listener.Close()

			So(IsListening(listener.Addr().String(), 1*time.Second), ShouldBeTrue)
		})

		Convey("A closed endpoint times out as not listening", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			So(err, ShouldBeNil)
			address := listener.Addr().String()
			listener.Close()

			So(IsListening(address, 200*time.Millisecond), ShouldBeFalse)
		})
	})
}

func TestEvictListener(t *testing.T) {
	Convey("Evicting a port with no listener is a no-op", t, func() {
		// Must neither panic nor block; the port is chosen from the
		// ephemeral range and immediately released.
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		port := listener.Addr().(*net.TCPAddr).Port
		listener.Close()

		So(func() { EvictListener(port) }, ShouldNotPanic)
	})
}
