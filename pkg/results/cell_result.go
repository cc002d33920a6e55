// Package results holds the persisted record formats: one JSON document
// per executed cell, a per-candidate aggregate for regression tracking,
// baseline storage under a fixed name, and the regression comparator.
package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/GssMahadevan/gvthread/pkg/metrics"
	"github.com/GssMahadevan/gvthread/pkg/sysinfo"
)

const timestampLayout = "20060102T150405"

// CellResult is the immutable outcome of one successful cell. It carries
// full provenance; the raw generator output stays in memory for live
// reporting but is never persisted.
type CellResult struct {
	Cell          string `json:"cell"`
	CommonProfile string `json:"common_profile"`
	CommonDesc    string `json:"common_desc,omitempty"`
	App           string `json:"app"`
	Config        string `json:"config"`
	Lang          string `json:"lang,omitempty"`
	Model         string `json:"model,omitempty"`
	IOBackend     string `json:"io_backend,omitempty"`
	Binary        string `json:"binary"`
	BuildProfile  string `json:"build_profile"`

	CommonParams map[string]interface{} `json:"common_params"`
	AppParams    map[string]interface{} `json:"app_params"`

	LoadGen        string `json:"load_gen"`
	WrkThreads     int    `json:"wrk_threads"`
	WrkConnections int    `json:"wrk_connections"`
	MeasureSec     int    `json:"measure_sec"`
	KeepAlive      bool   `json:"keepalive"`

	Metrics *metrics.Metrics `json:"metrics"`

	// RSSKb is the server's resident memory sampled during measurement,
	// 0 when sampling failed.
	RSSKb int `json:"rss_kb,omitempty"`

	// RPSPerCore is throughput divided by the profile's parallelism; nil
	// when parallelism is unconfigured (not applicable, not zero).
	RPSPerCore *float64 `json:"rps_per_core"`

	// ServerStderrTail keeps the last chunk of the server's stderr for
	// postmortem, captured after teardown even on success.
	ServerStderrTail string `json:"server_stderr,omitempty"`

	RawLoadGenOutput string `json:"-"`

	System sysinfo.Info `json:"system"`
}

// RequestsPerSec returns the measured throughput, 0 when unmeasured.
func (r *CellResult) RequestsPerSec() float64 {
	if r == nil || r.Metrics == nil {
		return 0
	}
	return r.Metrics.RequestsPerSec
}

// Save writes the result as one JSON document under dir. The filename
// combines the cell tag (with path separators flattened) and a timestamp
// collision-resistant to the second.
func (r *CellResult) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "cannot create results directory %q", dir)
	}

	name := strings.ReplaceAll(r.Cell, "/", "__") + "__" +
		time.Now().Format(timestampLayout) + ".json"
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "cannot serialize cell result")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, "cannot write %q", path)
	}

	return path, nil
}
