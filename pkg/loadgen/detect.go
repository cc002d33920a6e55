package loadgen

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Detect picks the load generator, in preference order: the explicit
// wrkr path, wrkr under <rootDir>/target/<build>/, wrkr on PATH, wrk on
// PATH, and finally the in-process fallback client. forceWrk skips the
// wrkr lookups. An explicit path that does not exist is an error; every
// other miss degrades to the next option.
func Detect(wrkrPath, rootDir, build string, forceWrk bool) (LoadGenerator, error) {
	if forceWrk {
		if _, err := exec.LookPath("wrk"); err == nil {
			return NewWrk(), nil
		}
		log.Warn("wrk requested but not installed, using in-process fallback client")
		return NewFallback(), nil
	}

	if wrkrPath != "" {
		if _, err := os.Stat(wrkrPath); err != nil {
			return nil, errors.Wrapf(err, "wrkr not found at %q", wrkrPath)
		}
		return NewWrkr(wrkrPath), nil
	}

	if rootDir != "" {
		built := filepath.Join(rootDir, "target", build, "wrkr")
		if _, err := os.Stat(built); err == nil {
			return NewWrkr(built), nil
		}
	}

	if path, err := exec.LookPath("wrkr"); err == nil {
		return NewWrkr(path), nil
	}
	if _, err := exec.LookPath("wrk"); err == nil {
		return NewWrk(), nil
	}

	log.Warn("no load generator installed, using in-process fallback client")
	return NewFallback(), nil
}
