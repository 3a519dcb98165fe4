package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Options controls how much the console logger prints.
type Options struct {
	// Quiet only lets warnings and errors through.
	Quiet bool
	// Verbose enables debug output. Quiet wins when both are set.
	Verbose bool
	// Out defaults to stderr.
	Out io.Writer
	// JSON writes raw zerolog events instead of the console format.
	JSON bool
}

// New builds the console logger used by the CLI
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	w := out
	if !opts.JSON {
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !IsTerminal(out),
			TimeFormat: time.TimeOnly,
		}
	}

	return zerolog.New(w).Level(Level(opts)).With().Timestamp().Logger()
}

// Level maps the options to a zerolog level
func Level(opts Options) zerolog.Level {
	switch {
	case opts.Quiet:
		return zerolog.WarnLevel
	case opts.Verbose:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Nop returns a logger that discards everything
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
