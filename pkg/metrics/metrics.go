// Package metrics defines the canonical measurement record produced by
// every load generator adapter. Adapters normalize their native output
// (JSON report, scraped text) into this one shape so that results,
// comparisons and reports never need to know which tool ran.
package metrics

// SocketErrors counts the error classes reported by the load generator.
type SocketErrors struct {
	Connect int `json:"connect"`
	Read    int `json:"read"`
	Write   int `json:"write"`
	Timeout int `json:"timeout"`
}

// Metrics is the normalized result of one measurement run.
//
// A float field holding zero means the generator did not report that
// metric; renderers print a dash for it. Throughput of exactly zero does
// not occur in practice because a run with no completed requests fails
// earlier, at crash or timeout detection.
type Metrics struct {
	RequestsPerSec   float64 `json:"requests_per_sec"`
	TotalRequests    int64   `json:"total_requests"`
	TransferMBPerSec float64 `json:"transfer_mb_per_sec"`

	AvgLatencyUs  float64 `json:"avg_latency_us"`
	P50LatencyUs  float64 `json:"p50_us"`
	P75LatencyUs  float64 `json:"p75_us"`
	P90LatencyUs  float64 `json:"p90_us"`
	P99LatencyUs  float64 `json:"p99_us"`
	P999LatencyUs float64 `json:"p99_9_us"`

	Errors *SocketErrors `json:"errors,omitempty"`
	Non2xx int64         `json:"non_2xx,omitempty"`
}

// Empty reports whether no metric was populated. Warmup runs return an
// empty (but non-nil) Metrics on purpose.
func (m *Metrics) Empty() bool {
	if m == nil {
		return true
	}
	return m.RequestsPerSec == 0 && m.TotalRequests == 0 &&
		m.TransferMBPerSec == 0 && m.AvgLatencyUs == 0 &&
		m.P50LatencyUs == 0 && m.P75LatencyUs == 0 &&
		m.P90LatencyUs == 0 && m.P99LatencyUs == 0 &&
		m.P999LatencyUs == 0 && m.Errors == nil && m.Non2xx == 0
}
