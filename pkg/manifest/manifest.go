// Package manifest implements the two-layer benchmark description: named
// shared profiles applied identically to every candidate, and candidate
// definitions each carrying a dedicated port and optional named config
// variants. It also owns the environment projection contract that turns
// one (profile, config) pair into gvt_* / gvt_app_* entries.
package manifest

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a shared profile omits the key.
const (
	DefaultWarmupSec      = 3
	DefaultMeasureSec     = 10
	DefaultWrkThreads     = 2
	DefaultWrkConnections = 100
)

// Manifest is a parsed benchmark description. Profile and candidate
// iteration follows document order.
type Manifest struct {
	Path string

	profileOrder []string
	Profiles     map[string]*Profile

	candidateOrder []string
	Candidates     map[string]*Candidate
}

// Profile is one shared parameter set. All parameters are held as declared
// in the document so that projection reproduces exactly the declared keys;
// the typed accessors coerce the well-known ones and supply defaults.
type Profile struct {
	Name string

	params map[string]interface{}
}

// Candidate is one server implementation under test.
type Candidate struct {
	Name   string
	Binary string `yaml:"binary"`
	Lang   string `yaml:"lang"`
	Model  string `yaml:"model"`
	IO     string `yaml:"io"`
	Port   int    `yaml:"port"`

	Configs []Config
}

// Config is one named additive parameter variant of a candidate. Name is
// metadata, never a tunable, and never projected.
type Config struct {
	Name   string
	Params map[string]interface{}
}

// Load reads and validates a manifest document.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read manifest %q", path)
	}

	return Parse(data, path)
}

// Parse validates a manifest document held in memory. path is used only
// for error messages.
func Parse(data []byte, path string) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Path: path, Reason: "unparseable document: " + err.Error()}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, &ConfigError{Path: path, Reason: "empty document"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{Path: path, Reason: "top level must be a mapping"}
	}

	m := &Manifest{
		Path:       path,
		Profiles:   map[string]*Profile{},
		Candidates: map[string]*Candidate{},
	}

	var commonNode, appsNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		switch root.Content[i].Value {
		case "common":
			commonNode = root.Content[i+1]
		case "apps":
			appsNode = root.Content[i+1]
		}
	}
	if commonNode == nil {
		return nil, &ConfigError{Path: path, Reason: "missing 'common' section"}
	}
	if appsNode == nil {
		return nil, &ConfigError{Path: path, Reason: "missing 'apps' section"}
	}

	if err := m.parseProfiles(commonNode); err != nil {
		return nil, err
	}
	if err := m.parseCandidates(appsNode); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manifest) parseProfiles(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return &ConfigError{Path: m.Path, Reason: "'common' must map profile names to parameter maps"}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		params := map[string]interface{}{}
		if err := node.Content[i+1].Decode(&params); err != nil {
			return &ConfigError{Path: m.Path,
				Reason: "profile " + name + ": " + err.Error()}
		}
		// Port is per-candidate to avoid residual-connection collisions
		// between sequential runs; a shared port would defeat that.
		if _, found := params["port"]; found {
			return &ConfigError{Path: m.Path,
				Reason: "'port' declared in common/" + name + "; ports are per-candidate"}
		}

		m.profileOrder = append(m.profileOrder, name)
		m.Profiles[name] = &Profile{Name: name, params: params}
	}

	return nil
}

func (m *Manifest) parseCandidates(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return &ConfigError{Path: m.Path, Reason: "'apps' must map candidate names to definitions"}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		var doc struct {
			Binary  string                   `yaml:"binary"`
			Lang    string                   `yaml:"lang"`
			Model   string                   `yaml:"model"`
			IO      string                   `yaml:"io"`
			Port    int                      `yaml:"port"`
			Configs []map[string]interface{} `yaml:"configs"`
		}
		if err := node.Content[i+1].Decode(&doc); err != nil {
			return &ConfigError{Path: m.Path,
				Reason: "candidate " + name + ": " + err.Error()}
		}
		if doc.Port <= 0 {
			return &ConfigError{Path: m.Path,
				Reason: "candidate " + name + " has no 'port'; each candidate needs its own"}
		}

		candidate := &Candidate{
			Name:   name,
			Binary: doc.Binary,
			Lang:   doc.Lang,
			Model:  doc.Model,
			IO:     doc.IO,
			Port:   doc.Port,
		}
		for _, raw := range doc.Configs {
			candidate.Configs = append(candidate.Configs, newConfig(raw))
		}
		if len(candidate.Configs) == 0 {
			candidate.Configs = []Config{{Name: "default", Params: map[string]interface{}{}}}
		}

		m.candidateOrder = append(m.candidateOrder, name)
		m.Candidates[name] = candidate
	}

	return nil
}

func newConfig(raw map[string]interface{}) Config {
	config := Config{Name: "default", Params: map[string]interface{}{}}
	for k, v := range raw {
		if k == "name" {
			if s, ok := v.(string); ok {
				config.Name = s
			}
			continue
		}
		config.Params[k] = v
	}

	return config
}

// ProfileNames returns profile names in document order.
func (m *Manifest) ProfileNames() []string {
	return append([]string(nil), m.profileOrder...)
}

// CandidateNames returns candidate names in document order.
func (m *Manifest) CandidateNames() []string {
	return append([]string(nil), m.candidateOrder...)
}

// SelectSubset restricts the manifest to the named profile, candidate and
// config. Empty filters select everything. Unknown names fail with
// NotFoundError listing what was available.
func (m *Manifest) SelectSubset(profile, candidate, config string) (*Manifest, error) {
	out := &Manifest{
		Path:       m.Path,
		Profiles:   map[string]*Profile{},
		Candidates: map[string]*Candidate{},
	}

	for _, name := range m.profileOrder {
		if profile != "" && name != profile {
			continue
		}
		out.profileOrder = append(out.profileOrder, name)
		out.Profiles[name] = m.Profiles[name]
	}
	if len(out.profileOrder) == 0 {
		return nil, &NotFoundError{Kind: "profile", Name: profile, Available: m.ProfileNames()}
	}

	configNames := map[string]bool{}
	for _, name := range m.candidateOrder {
		if candidate != "" && name != candidate {
			continue
		}
		source := m.Candidates[name]

		selected := &Candidate{
			Name:   source.Name,
			Binary: source.Binary,
			Lang:   source.Lang,
			Model:  source.Model,
			IO:     source.IO,
			Port:   source.Port,
		}
		for _, cfg := range source.Configs {
			configNames[cfg.Name] = true
			if config != "" && cfg.Name != config {
				continue
			}
			selected.Configs = append(selected.Configs, cfg)
		}
		if len(selected.Configs) == 0 {
			continue
		}

		out.candidateOrder = append(out.candidateOrder, name)
		out.Candidates[name] = selected
	}
	if candidate != "" && m.Candidates[candidate] == nil {
		return nil, &NotFoundError{Kind: "candidate", Name: candidate, Available: m.CandidateNames()}
	}
	if len(out.candidateOrder) == 0 {
		available := make([]string, 0, len(configNames))
		for name := range configNames {
			available = append(available, name)
		}
		sort.Strings(available)
		return nil, &NotFoundError{Kind: "config", Name: config, Available: available}
	}

	return out, nil
}
