// Package sysinfo gathers host provenance embedded in every persisted
// result so measurements can be attributed to a machine and revision.
package sysinfo

import (
	"bufio"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Info is the provenance block of a result record. Collection is
// best-effort: a field that cannot be determined stays at its zero value
// and the run proceeds.
type Info struct {
	Hostname   string  `json:"hostname"`
	Kernel     string  `json:"kernel"`
	Arch       string  `json:"arch"`
	CPUModel   string  `json:"cpu_model,omitempty"`
	TotalCores int     `json:"total_cores"`
	MemoryGB   float64 `json:"memory_gb,omitempty"`
	GitSHA     string  `json:"git_sha,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

// Collect gathers host metadata. rootDir locates the repository whose
// revision is recorded; empty skips the revision lookup.
func Collect(rootDir string) Info {
	info := Info{
		Arch:       runtime.GOARCH,
		TotalCores: runtime.NumCPU(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	hostname, err := os.Hostname()
	if err != nil {
		log.Warnf("cannot determine hostname: %v", err)
	} else {
		info.Hostname = hostname
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		log.Warnf("cannot read kernel release: %v", err)
	} else {
		info.Kernel = unix.ByteSliceToString(uts.Release[:])
	}

	info.CPUModel = procField("/proc/cpuinfo", "model name")
	if memKb := procField("/proc/meminfo", "MemTotal"); memKb != "" {
		if kb, err := strconv.Atoi(strings.Fields(memKb)[0]); err == nil {
			info.MemoryGB = math.Round(float64(kb)/1024/1024*10) / 10
		}
	}

	if rootDir != "" {
		out, err := exec.Command("git", "-C", rootDir, "rev-parse", "--short", "HEAD").Output()
		if err != nil {
			log.Debugf("cannot determine git revision of %q: %v", rootDir, err)
		} else {
			info.GitSHA = strings.TrimSpace(string(out))
		}
	}

	return info
}

// procField returns the value of a "key: value" line in a /proc file.
func procField(path, key string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, key) {
			continue
		}
		if _, value, found := strings.Cut(line, ":"); found {
			return strings.TrimSpace(value)
		}
	}

	return ""
}
