package loadgen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/GssMahadevan/gvthread/pkg/metrics"
)

var (
	requestsPerSecPattern = regexp.MustCompile(`Requests/sec:\s+([\d.]+)`)
	transferPattern       = regexp.MustCompile(`Transfer/sec:\s+([\d.]+)(\w+)`)
	avgLatencyPattern     = regexp.MustCompile(`Latency\s+([\d.]+)(us|ms|s)`)
	totalRequestsPattern  = regexp.MustCompile(`(\d+)\s+requests\s+in`)
	socketErrorsPattern   = regexp.MustCompile(`Socket errors:\s+connect\s+(\d+),\s+read\s+(\d+),\s+write\s+(\d+),\s+timeout\s+(\d+)`)
	non2xxPattern         = regexp.MustCompile(`Non-2xx or 3xx responses:\s+(\d+)`)

	// Percentile rows anchor on the full line so a bare "50" elsewhere in
	// the report can never match.
	percentilePatterns = func() map[string]*regexp.Regexp {
		patterns := map[string]*regexp.Regexp{}
		for _, pct := range []string{"50", "75", "90", "99", "99.9"} {
			patterns[pct] = regexp.MustCompile(
				fmt.Sprintf(`(?m)^\s*%s%%\s+([\d.]+)(us|ms|s)\s*$`, regexp.QuoteMeta(pct)))
		}
		return patterns
	}()
)

// ParseWrkOutput scrapes a wrk --latency text report. Missing lines leave
// the corresponding fields at their unreported zero value.
func ParseWrkOutput(output string) *metrics.Metrics {
	result := &metrics.Metrics{}

	if m := requestsPerSecPattern.FindStringSubmatch(output); m != nil {
		result.RequestsPerSec, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := transferPattern.FindStringSubmatch(output); m != nil {
		value, _ := strconv.ParseFloat(m[1], 64)
		switch m[2] {
		case "GB":
			value *= 1024
		case "KB":
			value /= 1024
		}
		result.TransferMBPerSec = value
	}
	if m := avgLatencyPattern.FindStringSubmatch(output); m != nil {
		result.AvgLatencyUs = latencyToUs(m[1], m[2])
	}
	if m := totalRequestsPattern.FindStringSubmatch(output); m != nil {
		result.TotalRequests, _ = strconv.ParseInt(m[1], 10, 64)
	}

	assign := map[string]*float64{
		"50":   &result.P50LatencyUs,
		"75":   &result.P75LatencyUs,
		"90":   &result.P90LatencyUs,
		"99":   &result.P99LatencyUs,
		"99.9": &result.P999LatencyUs,
	}
	for pct, pattern := range percentilePatterns {
		if m := pattern.FindStringSubmatch(output); m != nil {
			*assign[pct] = latencyToUs(m[1], m[2])
		}
	}

	if m := socketErrorsPattern.FindStringSubmatch(output); m != nil {
		result.Errors = &metrics.SocketErrors{
			Connect: atoi(m[1]),
			Read:    atoi(m[2]),
			Write:   atoi(m[3]),
			Timeout: atoi(m[4]),
		}
	}
	if m := non2xxPattern.FindStringSubmatch(output); m != nil {
		result.Non2xx, _ = strconv.ParseInt(m[1], 10, 64)
	}

	return result
}

// ParseWrkrReport decodes a wrkr JSON report. The report's latency keys
// are p50..p99 plus "p99.9"; the last one maps onto the same canonical
// field the text adapter fills from its 99.9% row.
func ParseWrkrReport(data []byte) (*metrics.Metrics, error) {
	var report struct {
		RequestsPerSec float64            `json:"requests_per_sec"`
		TotalRequests  int64              `json:"total_requests"`
		LatencyUs      map[string]float64 `json:"latency_us"`
		Errors         map[string]int     `json:"errors"`
		TotalErrors    int64              `json:"total_errors"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "cannot parse wrkr report")
	}

	result := &metrics.Metrics{
		RequestsPerSec: report.RequestsPerSec,
		TotalRequests:  report.TotalRequests,
		AvgLatencyUs:   report.LatencyUs["avg"],
		P50LatencyUs:   report.LatencyUs["p50"],
		P75LatencyUs:   report.LatencyUs["p75"],
		P90LatencyUs:   report.LatencyUs["p90"],
		P99LatencyUs:   report.LatencyUs["p99"],
		P999LatencyUs:  report.LatencyUs["p99.9"],
	}

	anyErrors := false
	for _, count := range report.Errors {
		if count > 0 {
			anyErrors = true
			break
		}
	}
	if anyErrors {
		result.Errors = &metrics.SocketErrors{
			Connect: report.Errors["connect"],
			Read:    report.Errors["read"],
			Write:   report.Errors["write"],
			Timeout: report.Errors["timeout"],
		}
	}
	if report.TotalErrors > 0 {
		result.Non2xx = report.TotalErrors
	}

	return result, nil
}

func latencyToUs(value, unit string) float64 {
	v, _ := strconv.ParseFloat(value, 64)
	switch unit {
	case "ms":
		v *= 1000
	case "s":
		v *= 1000000
	}

	return v
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
