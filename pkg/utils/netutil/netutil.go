package netutil

import (
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const retries = 100

// IsListeningFunction is a function type for checking if a TCP endpoint is
// accepting connections. Exists for mocking purposes.
type IsListeningFunction func(address string, timeout time.Duration) bool

// IsListening tries to establish TCP connection to given address in a form of
// `ip:port`. It returns true when it was able to connect to given endpoint
// within timeout time.
func IsListening(address string, timeout time.Duration) bool {
	sleepTime := time.Duration(timeout.Nanoseconds() / int64(retries))
	for i := 0; i < retries; i++ {
		conn, err := net.DialTimeout("tcp", address, sleepTime)
		if err != nil {
			time.Sleep(sleepTime)
			continue
		}
		conn.Close()
		return true
	}

	return false
}

// EvictListenerFunction is a function type for freeing a TCP port of stale
// listeners. Exists for mocking purposes.
type EvictListenerFunction func(port int)

// EvictListener kills any process still listening on the given TCP port.
// Leftovers of a previously aborted run would otherwise block the bind.
// Best-effort: a missing fuser tool or an already-free port is not an error.
func EvictListener(port int) {
	target := fmt.Sprintf("%d/tcp", port)

	out, err := exec.Command("fuser", target).Output()
	if err != nil {
		// Nonzero exit means nothing is listening; a missing binary means the
		// cleanup is unavailable on this host.
		if _, isExit := err.(*exec.ExitError); !isExit {
			logrus.Warnf("fuser not available, skipping stale listener cleanup on port %d: %v", port, err)
		}
		return
	}

	if strings.TrimSpace(string(out)) == "" {
		return
	}

	logrus.Warnf("port %d is busy, killing stale listener", port)
	if err := exec.Command("fuser", "-k", target).Run(); err != nil {
		logrus.Warnf("could not kill stale listener on port %d: %v", port, err)
		return
	}

	// Give the kernel a moment to tear the socket down.
	time.Sleep(500 * time.Millisecond)
}
