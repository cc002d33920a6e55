// Package registry maps test-type names to their capability set. Types
// are registered statically at startup; there is no filesystem scanning.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/GssMahadevan/gvthread/pkg/manifest"
)

// TestType describes one benchmark family (one manifest directory).
type TestType struct {
	Name string

	// Kind labels the served protocol, descriptive only.
	Kind string

	// BuildCommand produces the shell command building one candidate, or
	// empty when the candidate has no known build rule.
	BuildCommand func(candidate *manifest.Candidate, buildProfile string) string
}

var (
	mu    sync.Mutex
	types = map[string]TestType{}
)

// Register adds a test type. Registering a duplicate name panics; that
// is a programming error, not a runtime condition.
func Register(t TestType) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := types[t.Name]; exists {
		panic(fmt.Sprintf("test type %q registered twice", t.Name))
	}
	types[t.Name] = t
}

// Lookup returns the named test type, listing registered names on a miss.
func Lookup(name string) (TestType, error) {
	mu.Lock()
	defer mu.Unlock()

	t, found := types[name]
	if !found {
		return TestType{}, errors.Errorf("unknown test type %q (registered: %s)",
			name, strings.Join(namesLocked(), ", "))
	}

	return t, nil
}

// Names returns the registered test-type names, sorted.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()

	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// defaultBuildCommand derives the build rule from how the candidate is
// laid out: cargo workspace members keep binaries under target/, Go
// candidates build straight from their source directory.
func defaultBuildCommand(candidate *manifest.Candidate, buildProfile string) string {
	if strings.HasPrefix(candidate.Binary, "target/") {
		// cargo builds debug by default; only release needs the flag.
		if buildProfile == "release" {
			return fmt.Sprintf("cargo build --release -p %s", candidate.Name)
		}
		return fmt.Sprintf("cargo build -p %s", candidate.Name)
	}
	if candidate.Lang == "go" {
		dir := strings.TrimSuffix(candidate.Binary, "/"+candidate.Name)
		return fmt.Sprintf("go build -o %s ./%s", candidate.Binary, dir)
	}

	return ""
}

func init() {
	Register(TestType{Name: "httpd", Kind: "http", BuildCommand: defaultBuildCommand})
	Register(TestType{Name: "echo", Kind: "tcp-echo", BuildCommand: defaultBuildCommand})
}
