// SPDX-License-Identifier: MIT
//
// Package build holds the metadata embedded into the tuner binary at link
// time. Values are injected with -ldflags, e.g.:
//
//	go build -ldflags "-X tuner/pkg/build.buildVersion=0.2.0 \
//	    -X tuner/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X tuner/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run without them and report "dev"/"unknown".
package build

import (
	"errors"
	"fmt"
)

// ErrIncomplete is returned by Initialize when any ldflag is missing.
var ErrIncomplete = errors.New("build information incomplete")

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the one-line version banner used by `tuner --version`.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:        "tuner",
		Description: "Real-time guitar tuner based on windowed FFT peak picking",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize copies the ldflags into the shared Info. Flags that were not
// set keep their development defaults; the returned error lists them so the
// caller can decide whether that matters (release builds treat it as fatal,
// main only warns).
func Initialize() error {
	var missing []string
	set := func(dst *string, val, name string) {
		if val == "" {
			missing = append(missing, name)
			return
		}
		*dst = val
	}

	set(&buildInfo.Name, buildName, "name")
	set(&buildInfo.Time, buildTime, "time")
	set(&buildInfo.Commit, buildCommit, "commit")
	set(&buildInfo.Version, buildVersion, "version")

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncomplete, missing)
	}
	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
