package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// BaselineFileName is the fixed name separating the explicitly approved
// baseline from timestamped per-run documents.
const BaselineFileName = "baseline.json"

// Measurement is one named sub-test inside a candidate aggregate; the
// name is "profile/config". Pointer latencies distinguish unreported from
// zero.
type Measurement struct {
	Name          string   `json:"name"`
	ThroughputRPS float64  `json:"throughput_rps"`
	P50Us         *float64 `json:"p50_us,omitempty"`
	P99Us         *float64 `json:"p99_us,omitempty"`
	DurationS     float64  `json:"duration_s"`

	// Extra carries genuinely variable per-measurement data; the typed
	// fields above are the primary carrier.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// CandidateResult aggregates one candidate's measurements across a run,
// in the shape compared against baselines.
type CandidateResult struct {
	TestType  string                 `json:"test_type"`
	Candidate string                 `json:"server"`
	Timestamp string                 `json:"timestamp"`
	Passed    bool                   `json:"passed"`
	Tests     []Measurement          `json:"tests"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewCandidateResult returns an empty aggregate stamped with the current
// time.
func NewCandidateResult(testType, candidate string) *CandidateResult {
	return &CandidateResult{
		TestType:  testType,
		Candidate: candidate,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Passed:    true,
	}
}

// AddMeasurement appends one sub-test measurement.
func (r *CandidateResult) AddMeasurement(m Measurement) {
	r.Tests = append(r.Tests, m)
}

// Save writes the aggregate under
// <baseDir>/<testType>/<candidate>/<timestamp>.json.
func (r *CandidateResult) Save(baseDir string) (string, error) {
	ts := strings.NewReplacer(":", "-", "+", "_").Replace(r.Timestamp)
	return r.write(baseDir, ts+".json")
}

// SaveBaseline overwrites the candidate's baseline wholesale.
func (r *CandidateResult) SaveBaseline(baseDir string) (string, error) {
	return r.write(baseDir, BaselineFileName)
}

func (r *CandidateResult) write(baseDir, name string) (string, error) {
	dir := filepath.Join(baseDir, r.TestType, r.Candidate)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "cannot create results directory %q", dir)
	}

	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "cannot serialize candidate result")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, "cannot write %q", path)
	}

	return path, nil
}

// LoadBaseline reads the baseline for a test-type/candidate pair. A
// missing baseline returns (nil, nil): comparison is simply skipped.
func LoadBaseline(baseDir, testType, candidate string) (*CandidateResult, error) {
	path := filepath.Join(baseDir, testType, candidate, BaselineFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read baseline %q", path)
	}

	var result CandidateResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrapf(err, "cannot parse baseline %q", path)
	}

	return &result, nil
}
