package session

import (
	"fmt"
	"strings"
)

// Stage is a step of the patch pipeline.
type Stage int

const (
	Idle Stage = iota
	Matching
	BackingUp
	Patching
	Overlaying
	Cleaning
	Launching
	Running
	Restoring
	Done
)

var stageNames = [...]string{
	Idle:       "idle",
	Matching:   "matching",
	BackingUp:  "backing-up",
	Patching:   "patching",
	Overlaying: "overlaying",
	Cleaning:   "cleaning",
	Launching:  "launching",
	Running:    "running",
	Restoring:  "restoring",
	Done:       "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// LaunchPolicy decides whether the game starts when no patch was applied.
type LaunchPolicy int

const (
	// LaunchAlways starts the game regardless.
	LaunchAlways LaunchPolicy = iota
	// LaunchNever skips straight to restoring.
	LaunchNever
	// LaunchAsk defers to Patcher.ConfirmLaunch.
	LaunchAsk
)

func (p LaunchPolicy) String() string {
	switch p {
	case LaunchNever:
		return "never"
	case LaunchAsk:
		return "ask"
	default:
		return "always"
	}
}

// ParseLaunchPolicy reads the policy names used in split.ini
func ParseLaunchPolicy(s string) (LaunchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return LaunchAlways, nil
	case "never":
		return LaunchNever, nil
	case "ask":
		return LaunchAsk, nil
	default:
		return LaunchAlways, fmt.Errorf("unknown launch policy %q (want always, never or ask)", s)
	}
}
