package manifest

import (
	"fmt"
	"sort"
	"strconv"
)

// Environment namespaces consumed by candidate processes. Shared-profile
// keys project under SharedPrefix, candidate-config keys under
// CandidatePrefix, and the candidate's port is always injected as PortVar.
const (
	SharedPrefix    = "gvt_"
	CandidatePrefix = "gvt_app_"
	PortVar         = "gvt_app_port"
)

// ValidateNoOverlap returns the config keys that collide with the
// profile's key set, sorted. Name is metadata and never a violation. A
// non-empty return means the cell must not launch: a colliding key would
// let one candidate run under different shared parameters than the rest.
func ValidateNoOverlap(profile *Profile, config Config) []string {
	keys := profile.Keys()

	var violations []string
	for k := range config.Params {
		if keys[k] {
			violations = append(violations, k)
		}
	}
	sort.Strings(violations)

	return violations
}

// Project flattens one (profile, config) pair into environment entries for
// the candidate bound to port. The caller merges these into the inherited
// process environment; the environment is extended, never replaced.
func Project(profile *Profile, config Config, port int) map[string]string {
	env := map[string]string{}
	for k, v := range profile.Params() {
		env[SharedPrefix+k] = formatValue(v)
	}
	for k, v := range config.Params {
		env[CandidatePrefix+k] = formatValue(v)
	}
	env[PortVar] = strconv.Itoa(port)

	return env
}

func formatValue(v interface{}) string {
	return fmt.Sprintf("%v", v)
}
