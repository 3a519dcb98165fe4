package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/poachedegg12/SplitProject/internal/report"
	"github.com/poachedegg12/SplitProject/internal/session"
)

var (
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	okColor      = color.New(color.FgGreen)
	stageColor   = color.New(color.FgCyan)
	alertTitle   = color.New(color.FgRed, color.Bold)
	headingColor = color.New(color.Bold)
)

// printLine writes one session log line, colored by level
func (a *app) printLine(line session.Line) {
	switch {
	case line.Level == zerolog.DebugLevel && !a.verbose:
		return
	case line.Level < zerolog.WarnLevel && a.quiet:
		return
	}

	stage := stageColor.Sprintf("[%s]", line.Stage)
	switch {
	case line.Level >= zerolog.ErrorLevel:
		fmt.Fprintf(a.out, "%s %s\n", stage, errorColor.Sprint(line.Text))
	case line.Level == zerolog.WarnLevel:
		fmt.Fprintf(a.out, "%s %s\n", stage, warnColor.Sprint(line.Text))
	default:
		fmt.Fprintf(a.out, "%s %s\n", stage, line.Text)
	}
}

// notifier shows session alerts on stderr. In a console program this is the
// closest thing to a message box.
func (a *app) notifier() session.Notifier {
	return session.NotifierFunc(func(alert session.Alert) {
		w := a.errOut
		fmt.Fprintln(w)
		alertTitle.Fprintf(w, "*** %s ***\n", alert.Title)
		fmt.Fprintln(w, alert.Message)
		fmt.Fprintln(w)
	})
}

// printSummary writes the closing summary of a session
func printSummary(w io.Writer, res *session.Result) {
	fmt.Fprintln(w)
	headingColor.Fprintf(w, "%s: ", filepath.Base(res.Mod))

	status := report.Status(res)
	switch {
	case strings.HasPrefix(status, "FAILED"):
		errorColor.Fprintln(w, status)
	case res.Success() && len(res.Errors) > 0:
		warnColor.Fprintln(w, status)
	default:
		okColor.Fprintln(w, status)
	}

	restored := 0
	for _, rec := range res.Backups {
		if rec.Restored {
			restored++
		}
	}
	fmt.Fprintf(w, "  %s of %s applied, %s of %s restored\n",
		humanize.Comma(int64(res.Applied())), plural(len(res.Descriptors), "patch", "patches"),
		humanize.Comma(int64(restored)), plural(len(res.Backups), "backup", "backups"))
	if res.LeftoversRemoved > 0 {
		fmt.Fprintf(w, "  %s removed\n", plural(res.LeftoversRemoved, "leftover file", "leftover files"))
	}
	if res.Launched {
		fmt.Fprintf(w, "  Game exited with code %d\n", res.ExitCode)
	}
	if n := len(res.ErrorsOf(session.RestoreFailed)); n > 0 {
		errorColor.Fprintf(w, "  %s could not be restored. Run \"split recover\" to try again.\n", plural(n, "file", "files"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(int64(n)) + " " + many
}
