package patch

import (
	"errors"
	"strings"

	"github.com/poachedegg12/SplitProject/internal/paths"
)

// ErrNoExecutable is returned when the installation has nothing to launch
var ErrNoExecutable = errors.New("no executable found in game directory")

// Validity is the outcome of dry-running a patch against its target.
type Validity int

const (
	Unknown Validity = iota
	Valid
	Invalid
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Descriptor pairs a patch file with the installation file it applies to.
type Descriptor struct {
	Patch string
	// Target is empty when no installation file matched.
	Target   string
	Validity Validity
	Applied  bool
}

// Matched reports whether the patch found a target
func (d Descriptor) Matched() bool {
	return d.Target != ""
}

// Matches reports whether target's name occurs in patch's name, ignoring case
func Matches(patch, target string) bool {
	return target != "" && paths.ContainsFold(patch, target)
}

// Match pairs every patch with the first target, in sorted order, whose name
// occurs in the patch name. Descriptors are returned in sorted patch order.
func Match(patches, targets []string) []Descriptor {
	sortedTargets := paths.SortNames(targets)

	var descriptors []Descriptor
	for _, p := range paths.SortNames(patches) {
		d := Descriptor{Patch: p}
		for _, t := range sortedTargets {
			if Matches(p, t) {
				d.Target = t
				break
			}
		}
		descriptors = append(descriptors, d)
	}
	return descriptors
}

// SelectExecutable picks the executable to launch: the first one (sorted) that
// some patch targets, otherwise the first one.
func SelectExecutable(executables, patches []string) (string, error) {
	sorted := paths.SortNames(executables)
	if len(sorted) == 0 {
		return "", ErrNoExecutable
	}

	lowerPatches := make([]string, len(patches))
	for i, p := range patches {
		lowerPatches[i] = strings.ToLower(p)
	}

	for _, exe := range sorted {
		lowerExe := strings.ToLower(exe)
		for _, p := range lowerPatches {
			if strings.Contains(p, lowerExe) {
				return exe, nil
			}
		}
	}

	return sorted[0], nil
}

// Targets returns the distinct targets of the matched descriptors
func Targets(descriptors []Descriptor) []string {
	seen := make(map[string]struct{})
	var targets []string
	for _, d := range descriptors {
		if !d.Matched() {
			continue
		}
		if _, ok := seen[d.Target]; ok {
			continue
		}
		seen[d.Target] = struct{}{}
		targets = append(targets, d.Target)
	}
	return targets
}
