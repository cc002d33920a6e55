package loadgen

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFallback(t *testing.T) {
	Convey("Given a local HTTP server", t, func() {
		server := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
		defer server.Close()

		_, portString, err := net.SplitHostPort(server.Listener.Addr().String())
		So(err, ShouldBeNil)
		port, err := strconv.Atoi(portString)
		So(err, ShouldBeNil)

		fallback := NewFallback()
		params := DriveParams{
			Port:        port,
			Connections: 4,
			Duration:    200 * time.Millisecond,
			KeepAlive:   true,
			CellTag:     "test/fallback/default",
		}

		Convey("A measurement drive reports throughput and latencies", func() {
			result, raw, err := fallback.Drive(params)

			So(err, ShouldBeNil)
			So(result, ShouldNotBeNil)
			So(result.TotalRequests, ShouldBeGreaterThan, 0)
			So(result.RequestsPerSec, ShouldBeGreaterThan, 0)
			So(result.P50LatencyUs, ShouldBeGreaterThan, 0)
			So(result.P99LatencyUs, ShouldBeGreaterThanOrEqualTo, result.P50LatencyUs)
			So(raw, ShouldContainSubstring, "requests")
		})

		Convey("A warm-up drive completes with an empty, non-nil record", func() {
			params.Warmup = true
			result, _, err := fallback.Drive(params)

			So(err, ShouldBeNil)
			So(result, ShouldNotBeNil)
			So(result.Empty(), ShouldBeTrue)
		})
	})

	Convey("Driving a port nobody listens on fails instead of reporting zeros", t, func() {
		fallback := NewFallback()
		_, _, err := fallback.Drive(DriveParams{
			Port:        1, // reserved, nothing listens here
			Connections: 2,
			Duration:    100 * time.Millisecond,
			CellTag:     "test/fallback/closed",
		})

		So(err, ShouldNotBeNil)
	})
}
