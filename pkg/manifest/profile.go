package manifest

import "strconv"

// Desc returns the free-text description, or empty when undeclared.
func (p *Profile) Desc() string {
	if s, ok := p.params["desc"].(string); ok {
		return s
	}
	return ""
}

// CPUCores returns the pinned core count, 0 when unpinned.
func (p *Profile) CPUCores() int {
	return p.intParam("cpu_cores", 0)
}

// Parallelism returns the declared parallelism, 0 when undeclared. It is
// the divisor for per-core throughput; per-core values are not applicable
// when it is 0.
func (p *Profile) Parallelism() int {
	return p.intParam("parallelism", 0)
}

// WarmupSec returns the warm-up duration in seconds.
func (p *Profile) WarmupSec() int {
	return p.intParam("warmup_sec", DefaultWarmupSec)
}

// MeasureSec returns the measurement duration in seconds.
func (p *Profile) MeasureSec() int {
	return p.intParam("measure_sec", DefaultMeasureSec)
}

// KeepAlive reports whether the load generator reuses connections.
func (p *Profile) KeepAlive() bool {
	return p.boolParam("keepalive", true)
}

// WrkThreads returns the load-generator thread count.
func (p *Profile) WrkThreads() int {
	return p.intParam("wrk_threads", DefaultWrkThreads)
}

// WrkConnections returns the load-generator connection count.
func (p *Profile) WrkConnections() int {
	return p.intParam("wrk_connections", DefaultWrkConnections)
}

// Keys returns the set of declared parameter keys, desc excluded. This is
// the key set the no-overlap invariant is checked against.
func (p *Profile) Keys() map[string]bool {
	keys := make(map[string]bool, len(p.params))
	for k := range p.params {
		if k == "desc" {
			continue
		}
		keys[k] = true
	}

	return keys
}

// Params returns a copy of the declared parameters, desc excluded.
func (p *Profile) Params() map[string]interface{} {
	params := make(map[string]interface{}, len(p.params))
	for k, v := range p.params {
		if k == "desc" {
			continue
		}
		params[k] = v
	}

	return params
}

func (p *Profile) intParam(key string, fallback int) int {
	v, found := p.params[key]
	if !found {
		return fallback
	}
	if n, ok := asInt(v); ok {
		return n
	}

	return fallback
}

func (p *Profile) boolParam(key string, fallback bool) bool {
	v, found := p.params[key]
	if !found {
		return fallback
	}

	switch value := v.(type) {
	case bool:
		return value
	case string:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}

	return fallback
}

func asInt(v interface{}) (int, bool) {
	switch value := v.(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	case uint64:
		return int(value), true
	case float64:
		return int(value), true
	case string:
		if n, err := strconv.Atoi(value); err == nil {
			return n, true
		}
	}

	return 0, false
}
