package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/poachedegg12/SplitProject/internal/version.Tag=v0.3.1 -X ..."
var (
	Tag    = "v0.0.0"
	Commit = ""
	Date   = ""
)

// Version represents the application version
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Commit string
	Date   string
}

// String returns the version in semantic format
func (v Version) String() string {
	ver := fmt.Sprintf("%d.%d.%02d", v.Major, v.Minor, v.Patch)
	if v.Commit != "" {
		ver += "+" + v.Commit
	}
	return ver
}

// ParseTag extracts version components from a git tag (e.g., "v1.2.3")
func ParseTag(tag string) (major, minor, patch int, err error) {
	tagVersion := strings.TrimPrefix(tag, "v")
	parts := strings.Split(tagVersion, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid tag format: %s (expected vX.Y.Z)", tag)
	}

	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid major version in tag %s: %w", tag, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid minor version in tag %s: %w", tag, err)
	}
	patch, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid patch version in tag %s: %w", tag, err)
	}

	return major, minor, patch, nil
}

// Current returns the running build's version. A malformed Tag reports 0.0.00;
// a missing Commit falls back to the VCS revision stamped by the toolchain.
func Current() Version {
	return build(Tag, Commit, Date, debug.ReadBuildInfo)
}

func build(tag, commit, date string, info func() (*debug.BuildInfo, bool)) Version {
	v := Version{Commit: commit, Date: date}
	if major, minor, patch, err := ParseTag(tag); err == nil {
		v.Major, v.Minor, v.Patch = major, minor, patch
	}

	if v.Commit != "" && v.Date != "" {
		return v
	}
	bi, ok := info()
	if !ok {
		return v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if v.Commit == "" && len(s.Value) >= 7 {
				v.Commit = s.Value[:7]
			}
		case "vcs.time":
			if v.Date == "" && len(s.Value) >= 10 {
				v.Date = s.Value[:10]
			}
		}
	}
	return v
}
