package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/poachedegg12/SplitProject/internal/session"
)

// FileName is where the summary of the last session is kept, next to the binary.
const FileName = "last-session.txt"

// Status returns the one-word outcome of a session
func Status(res *session.Result) string {
	switch {
	case res.Success() && len(res.Errors) == 0:
		return "OK"
	case res.Success():
		return "OK (with warnings)"
	default:
		return "FAILED"
	}
}

// Build creates a human readable summary of a finished session
func Build(res *session.Result) string {
	var b strings.Builder

	b.WriteString("Split Session Report\n\n")
	b.WriteString(fmt.Sprintf("Session: %s\n", res.ID))
	b.WriteString(fmt.Sprintf("Mod: %s\n", filepath.Base(res.Mod)))
	b.WriteString(fmt.Sprintf("Game: %s\n", res.Game))
	if !res.Finished.IsZero() {
		b.WriteString(fmt.Sprintf("Finished: %s (%s)\n", res.Finished.Format("2006-01-02 15:04:05"), humanize.RelTime(res.Started, res.Finished, "", "")))
	}
	b.WriteString(fmt.Sprintf("Status: %s\n", Status(res)))

	stages := make([]string, len(res.Stages))
	for i, s := range res.Stages {
		stages[i] = s.String()
	}
	b.WriteString(fmt.Sprintf("Stages: %s\n", strings.Join(stages, " > ")))

	if len(res.Descriptors) > 0 {
		section(&b, fmt.Sprintf("Patches (%d applied of %d)", res.Applied(), len(res.Descriptors)))
		for _, d := range res.Descriptors {
			switch {
			case d.Applied:
				b.WriteString(fmt.Sprintf("  + %s -> %s\n", d.Patch, d.Target))
			case !d.Matched():
				b.WriteString(fmt.Sprintf("  ? %s (no matching file)\n", d.Patch))
			default:
				b.WriteString(fmt.Sprintf("  - %s -> %s (%s)\n", d.Patch, d.Target, d.Validity))
			}
		}
	}

	if len(res.Backups) > 0 {
		section(&b, fmt.Sprintf("Backups (%d)", len(res.Backups)))
		for _, rec := range res.Backups {
			state := "restored"
			if !rec.Restored {
				state = "NOT RESTORED, original is at " + rec.Backup
			}
			b.WriteString(fmt.Sprintf("  %s: %s\n", filepath.Base(rec.Original), state))
		}
	}

	if len(res.Overlays) > 0 {
		section(&b, fmt.Sprintf("Assets (%d)", len(res.Overlays)))
		for _, item := range res.Overlays {
			mark := "+"
			if item.Err != nil {
				mark = "!"
			}
			b.WriteString(fmt.Sprintf("  %s %s (%s)\n", mark, item.Name, item.Kind))
		}
	}

	if res.LeftoversRemoved > 0 {
		b.WriteString(fmt.Sprintf("\nRemoved %s leftover translation file(s)\n", humanize.Comma(int64(res.LeftoversRemoved))))
	}

	if res.Launched {
		b.WriteString(fmt.Sprintf("\nGame ran %s and exited with code %d\n", res.Executable, res.ExitCode))
	}

	if len(res.Errors) > 0 {
		section(&b, fmt.Sprintf("Problems (%d)", len(res.Errors)))
		for _, e := range res.Errors {
			b.WriteString(fmt.Sprintf("  * %s\n", e.Error()))
		}
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n")
}

// Save writes the summary to dir/last-session.txt
func Save(dir string, res *session.Result) (string, error) {
	path := filepath.Join(dir, FileName)
	content := Build(res)

	var log strings.Builder
	for _, line := range res.Lines {
		log.WriteString(line.String())
		log.WriteString("\n")
	}
	if log.Len() > 0 {
		content += "\nLog:\n\n" + log.String()
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write session report: %w", err)
	}
	return path, nil
}

// Age describes how long ago a report was written, for "split recover"
func Age(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	return humanize.RelTime(info.ModTime(), time.Now(), "ago", "from now"), true
}
