package results

import (
	"fmt"
	"math"
)

// Regression is one metric degrading beyond the threshold relative to
// baseline. Derived and ephemeral; never persisted.
type Regression struct {
	Name     string
	Metric   string
	Current  float64
	Baseline float64

	// DeltaPct is the percentage change, rounded to two decimals;
	// negative for throughput drops, positive for latency increases.
	DeltaPct float64
}

func (r Regression) String() string {
	return fmt.Sprintf("%s %s: %.0f -> %.0f (%+.2f%%)",
		r.Name, r.Metric, r.Baseline, r.Current, r.DeltaPct)
}

// Compare flags throughput drops below -thresholdPct and p99 latency
// increases above +thresholdPct, matching sub-tests by name. Sub-tests
// present on only one side are ignored, and a zero or absent baseline
// value skips that metric's comparison.
func Compare(current, baseline *CandidateResult, thresholdPct float64) []Regression {
	byName := make(map[string]Measurement, len(baseline.Tests))
	for _, t := range baseline.Tests {
		byName[t.Name] = t
	}

	var regressions []Regression
	for _, test := range current.Tests {
		reference, found := byName[test.Name]
		if !found {
			continue
		}

		if reference.ThroughputRPS > 0 {
			delta := (test.ThroughputRPS - reference.ThroughputRPS) / reference.ThroughputRPS * 100
			if delta < -thresholdPct {
				regressions = append(regressions, Regression{
					Name:     test.Name,
					Metric:   "throughput_rps",
					Current:  test.ThroughputRPS,
					Baseline: reference.ThroughputRPS,
					DeltaPct: round2(delta),
				})
			}
		}

		if test.P99Us != nil && reference.P99Us != nil && *reference.P99Us > 0 {
			delta := (*test.P99Us - *reference.P99Us) / *reference.P99Us * 100
			if delta > thresholdPct {
				regressions = append(regressions, Regression{
					Name:     test.Name,
					Metric:   "p99_us",
					Current:  *test.P99Us,
					Baseline: *reference.P99Us,
					DeltaPct: round2(delta),
				})
			}
		}
	}

	return regressions
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
