package runner

import (
	"fmt"
	"os"
	"sort"

	"github.com/GssMahadevan/gvthread/pkg/results"
	"github.com/GssMahadevan/gvthread/pkg/visualization"
)

// printSummaryTable renders one profile's results ranked by throughput
// descending, ties unbroken, with the winner marked.
func printSummaryTable(profileResults []*results.CellResult, profileName string) {
	if len(profileResults) == 0 {
		return
	}

	ranked := append([]*results.CellResult(nil), profileResults...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RequestsPerSec() > ranked[j].RequestsPerSec()
	})
	best := ranked[0].RequestsPerSec()

	first := ranked[0]
	fmt.Printf("\nProfile: %s — %s\n", profileName, first.CommonDesc)
	fmt.Printf("Params:  %s\n", formatParams(first.CommonParams))

	table := visualization.NewTable([]string{
		"App", "Config", "Model", "IO", "req/s", "rps/core", "p50 us", "p99 us", "RSS MB", ""})
	for _, r := range ranked {
		winner := ""
		if len(ranked) > 1 && r.RequestsPerSec() == best {
			winner = "◀"
		}
		table.AddRow([]string{
			r.App, r.Config, r.Model, r.IOBackend,
			formatCount(r.RequestsPerSec()),
			formatPointer(r.RPSPerCore),
			formatCount(p50Of(r)),
			formatCount(p99Of(r)),
			formatRSS(r.RSSKb),
			winner,
		})
	}
	table.Draw(os.Stdout)
	fmt.Printf("Timestamp: %s\n\n", first.System.Timestamp)
}

func p50Of(r *results.CellResult) float64 {
	if r.Metrics == nil {
		return 0
	}
	return r.Metrics.P50LatencyUs
}

func p99Of(r *results.CellResult) float64 {
	if r.Metrics == nil {
		return 0
	}
	return r.Metrics.P99LatencyUs
}

// formatCount renders a value, or a dash when unreported: a zero must
// never print as 0 and imply a measurement of zero.
func formatCount(v float64) string {
	if v == 0 {
		return "—"
	}
	return fmt.Sprintf("%.0f", v)
}

func formatPointer(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.0f", *v)
}

func formatRSS(kb int) string {
	if kb == 0 {
		return "—"
	}
	return fmt.Sprintf("%.1f", float64(kb)/1024)
}

func formatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "  "
		}
		out += fmt.Sprintf("%s=%v", k, params[k])
	}

	return out
}
