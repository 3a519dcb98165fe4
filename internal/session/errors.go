package session

import (
	"fmt"
	"path/filepath"
)

// Kind classifies a session failure.
type Kind int

const (
	Internal Kind = iota
	MatchNotFound
	ValidationFailed
	BackupFailed
	ApplyFailed
	OverlayFailed
	CleanupFailed
	LaunchError
	RestoreFailed
	NoExecutableFound
	NothingToPatch
	SessionBusy
)

var kindNames = map[Kind]string{
	Internal:          "internal error",
	MatchNotFound:     "no matching input",
	ValidationFailed:  "patch invalid",
	BackupFailed:      "backup failed",
	ApplyFailed:       "patch failed",
	OverlayFailed:     "copy failed",
	CleanupFailed:     "cleanup failed",
	LaunchError:       "launch failed",
	RestoreFailed:     "restore failed",
	NoExecutableFound: "game not launched",
	NothingToPatch:    "nothing to patch",
	SessionBusy:       "session busy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Alerts reports whether failures of this kind warrant a modal notification:
// those that put file integrity at risk or keep the game from starting.
func (k Kind) Alerts() bool {
	switch k {
	case BackupFailed, OverlayFailed, RestoreFailed, LaunchError, NoExecutableFound, Internal:
		return true
	}
	return false
}

// Title is the heading used when a failure is shown to the user
func (k Kind) Title() string {
	switch k {
	case OverlayFailed:
		return "Copy Failed"
	case NoExecutableFound:
		return "Game Not Launched"
	case LaunchError:
		return "Launch Failed"
	case BackupFailed:
		return "Backup Failed"
	case RestoreFailed:
		return "Restore Failed"
	default:
		return "Error"
	}
}

// Error is one failure recorded by a session. Sessions collect these
// instead of stopping at the first one.
type Error struct {
	Kind Kind
	// Path is the file or directory involved, if any.
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, filepath.Base(e.Path), e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, filepath.Base(e.Path))
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Alert is a failure raised to the user through a Notifier.
type Alert struct {
	Kind    Kind
	Title   string
	Message string
}

// Notifier shows alerts to the user. Implementations must not block for long:
// they are called from the session worker.
type Notifier interface {
	Notify(Alert)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Alert)

// Notify implements Notifier
func (f NotifierFunc) Notify(a Alert) {
	f(a)
}

// Sound plays short audio cues for session events.
type Sound interface {
	Play(cue string)
}

// Cues played by a session.
const (
	CueLaunch  = "launch"
	CueSuccess = "success"
	CueError   = "error"
)

type silent struct{}

func (silent) Notify(Alert) {}

func (silent) Play(string) {}
