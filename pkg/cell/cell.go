// Package cell runs one benchmark cell through its full supervised
// lifecycle: invariant validation, environment projection, stale
// listener eviction, launch, readiness wait, warm-up, measurement,
// resource sampling and unconditional teardown.
package cell

import (
	"fmt"

	"github.com/GssMahadevan/gvthread/pkg/manifest"
)

// Cell is the unit of execution: one candidate under one config driven
// under one shared profile. Consumed exactly once by the engine.
type Cell struct {
	Profile   *manifest.Profile
	Candidate *manifest.Candidate
	Config    manifest.Config
}

// Tag returns the composite identifier used in logs and result files.
func (c Cell) Tag() string {
	return fmt.Sprintf("%s/%s/%s", c.Profile.Name, c.Candidate.Name, c.Config.Name)
}
