package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/GssMahadevan/gvthread/pkg/results"
)

// writeMarkdownReport emits one profile's report document: shared
// parameters, host provenance and the ranked result table.
func writeMarkdownReport(profileResults []*results.CellResult, profileName, path string) error {
	if len(profileResults) == 0 {
		return nil
	}

	ranked := append([]*results.CellResult(nil), profileResults...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RequestsPerSec() > ranked[j].RequestsPerSec()
	})
	first := ranked[0]

	var b strings.Builder
	fmt.Fprintf(&b, "# Benchmark: %s\n\n", profileName)
	if first.CommonDesc != "" {
		fmt.Fprintf(&b, "> %s\n\n", first.CommonDesc)
	}

	b.WriteString("## Common Parameters\n\n| Key | Value |\n|-----|-------|\n")
	keys := make([]string, 0, len(first.CommonParams))
	for k := range first.CommonParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "| %s | %v |\n", k, first.CommonParams[k])
	}

	b.WriteString("\n## System\n\n")
	system := first.System
	fmt.Fprintf(&b, "- **hostname**: %s\n", system.Hostname)
	fmt.Fprintf(&b, "- **kernel**: %s\n", system.Kernel)
	fmt.Fprintf(&b, "- **arch**: %s\n", system.Arch)
	if system.CPUModel != "" {
		fmt.Fprintf(&b, "- **cpu_model**: %s\n", system.CPUModel)
	}
	fmt.Fprintf(&b, "- **total_cores**: %d\n", system.TotalCores)
	if system.MemoryGB > 0 {
		fmt.Fprintf(&b, "- **memory_gb**: %.1f\n", system.MemoryGB)
	}
	if system.GitSHA != "" {
		fmt.Fprintf(&b, "- **git_sha**: %s\n", system.GitSHA)
	}
	fmt.Fprintf(&b, "- **timestamp**: %s\n", system.Timestamp)

	b.WriteString("\n## Results\n\n")
	b.WriteString("| App | Config | Lang | Model | IO | req/s | rps/core | p50 μs | p99 μs | RSS MB |\n")
	b.WriteString("|-----|--------|------|-------|----|------:|---------:|-------:|-------:|-------:|\n")
	for _, r := range ranked {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.App, r.Config, r.Lang, r.Model, r.IOBackend,
			formatCount(r.RequestsPerSec()),
			formatPointer(r.RPSPerCore),
			formatCount(p50Of(r)),
			formatCount(p99Of(r)),
			formatRSS(r.RSSKb))
	}

	b.WriteString("\n## App-Specific Parameters\n\n")
	for _, r := range ranked {
		if len(r.AppParams) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- **%s/%s**: %s\n", r.App, r.Config, formatParams(r.AppParams))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "cannot create reports directory %q", filepath.Dir(path))
	}

	return errors.Wrapf(os.WriteFile(path, []byte(b.String()), 0644), "cannot write %q", path)
}
