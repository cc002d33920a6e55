package manifest

import (
	"fmt"
	"strings"
)

// ConfigError reports a malformed or invalid manifest document. It is
// fatal: no process starts once one of these is raised.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("manifest %s: %s", e.Path, e.Reason)
}

// NotFoundError reports a subset filter naming a profile, candidate or
// config absent from the document.
type NotFoundError struct {
	Kind      string
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found (available: %s)",
		e.Kind, e.Name, strings.Join(e.Available, ", "))
}
