package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/poachedegg12/SplitProject/internal/console"
	"github.com/poachedegg12/SplitProject/internal/prompt"
	"github.com/poachedegg12/SplitProject/internal/session"
)

const title = "Split"

func main() {
	a := newApp()

	// Global panic handler to prevent path leakage in error messages
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\nOops, something broke: %v\n", r)
			fmt.Fprintln(os.Stderr, "Run \"split recover\" if the game files look wrong.")
			a.sound.Play(session.CueError)
			a.sound.Wait(2 * time.Second)
			os.Exit(1)
		}
	}()

	con := console.Attach()
	defer con.Release()
	if err := con.SetTitle(title); err != nil {
		a.logger.Debug().Err(err).Msg("Couldn't set console title")
	}

	if err := a.rootCmd().Execute(); err != nil {
		a.fatalError(err)
	}

	// A console opened just for us disappears on exit
	if con.Owned() && a.prompt != nil {
		prompt.WaitForKey("\nPress Enter to exit...", a.prompt)
	}
	a.sound.Wait(2 * time.Second)
	os.Exit(a.exitCode)
}

// fatalError reports err and ends the process with a failure code
func (a *app) fatalError(err error) {
	a.sound.Play(session.CueError)

	msg := err.Error()
	if errors.Is(err, prompt.ErrCancelled) {
		msg = "Cancelled."
	}
	color.New(color.FgRed).Fprintf(a.errOut, "Error: %s\n", msg)

	if a.prompt != nil && !a.nonInteractive {
		prompt.WaitForKey("\nPress Enter to exit...", a.prompt)
	}
	a.sound.Wait(2 * time.Second)
	os.Exit(1)
}
