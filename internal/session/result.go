package session

import (
	"time"

	"github.com/poachedegg12/SplitProject/internal/backup"
	"github.com/poachedegg12/SplitProject/internal/overlay"
	"github.com/poachedegg12/SplitProject/internal/patch"
)

// Result is everything a finished session reports back.
type Result struct {
	ID         string
	Mod        string
	Game       string
	Executable string

	// Stages lists every stage the session entered, in order.
	Stages      []Stage
	Descriptors []patch.Descriptor
	Backups     []backup.Record
	Overlays    []overlay.Item

	LeftoversRemoved int
	Launched         bool
	ExitCode         int

	Errors []*Error
	Lines  []Line

	Started  time.Time
	Finished time.Time
}

// Success reports whether the game ran and every original was put back
func (r *Result) Success() bool {
	if !r.Launched {
		return false
	}
	for _, rec := range r.Backups {
		if !rec.Restored {
			return false
		}
	}
	return true
}

// Applied counts the patches that were committed
func (r *Result) Applied() int {
	n := 0
	for _, d := range r.Descriptors {
		if d.Applied {
			n++
		}
	}
	return n
}

// ErrorsOf returns the recorded errors of one kind
func (r *Result) ErrorsOf(kind Kind) []*Error {
	var errs []*Error
	for _, e := range r.Errors {
		if e.Kind == kind {
			errs = append(errs, e)
		}
	}
	return errs
}

// Entered reports whether the session went through stage
func (r *Result) Entered(stage Stage) bool {
	for _, s := range r.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Duration is how long the session took, game time included
func (r *Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
