// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata linked into the binary with -ldflags:
//
//	go build -ldflags "-X shaderfx/pkg/build.buildName=shaderfx \
//	    -X shaderfx/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds carry no flags; Initialize reports that and the
// "dev" placeholders stay in place.
package build

import (
	"errors"
	"fmt"
)

const (
	defaultName        = "shaderfx"
	defaultDescription = "Audio-reactive shader effect host"
	placeholder        = "dev"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the info for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = defaultInfo()

func defaultInfo() Info {
	return Info{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        placeholder,
		Commit:      placeholder,
		Version:     placeholder,
	}
}

// ErrDevelopmentBuild is wrapped by Initialize when linker flags are missing.
var ErrDevelopmentBuild = errors.New("development build")

// Initialize copies the linker flags into the build info. It fails, leaving
// the placeholders, if any flag is missing.
func Initialize() error {
	switch {
	case buildName == "":
		return fmt.Errorf("%w: BuildName is required", ErrDevelopmentBuild)
	case buildTime == "":
		return fmt.Errorf("%w: BuildTime is required", ErrDevelopmentBuild)
	case buildCommit == "":
		return fmt.Errorf("%w: BuildCommit is required", ErrDevelopmentBuild)
	case buildVersion == "":
		return fmt.Errorf("%w: BuildVersion is required", ErrDevelopmentBuild)
	}

	info.Name = buildName
	info.Time = buildTime
	info.Commit = buildCommit
	info.Version = buildVersion
	return nil
}

// Get returns the current build info.
func Get() Info {
	return info
}
