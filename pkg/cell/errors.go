package cell

import "fmt"

// FailureKind classifies why a cell failed. Every kind is fatal to its
// cell only; the orchestrator logs it and moves on.
type FailureKind int

const (
	// OverlapViolation means a config key collides with the shared
	// profile; the candidate process is never launched.
	OverlapViolation FailureKind = iota
	// MissingArtifact means the candidate binary or the load generator
	// is absent.
	MissingArtifact
	// StartupFailure means the process exited or never bound its port
	// within the readiness timeout.
	StartupFailure
	// RuntimeCrash means the process died during warm-up or measurement.
	RuntimeCrash
	// MeasurementTimeout means the load generator failed or exceeded its
	// bounded execution window while the process stayed alive.
	MeasurementTimeout
)

func (k FailureKind) String() string {
	switch k {
	case OverlapViolation:
		return "overlap violation"
	case MissingArtifact:
		return "missing artifact"
	case StartupFailure:
		return "startup failure"
	case RuntimeCrash:
		return "runtime crash"
	case MeasurementTimeout:
		return "measurement timeout"
	}
	return "unknown failure"
}

// Error is a classified per-cell failure.
type Error struct {
	Kind    FailureKind
	Cell    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Cell, e.Kind, e.Message)
}

func failure(kind FailureKind, cellTag, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Cell: cellTag, Message: fmt.Sprintf(format, args...)}
}
