package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// ErrCancelled is returned when the user backs out of a prompt
var ErrCancelled = errors.New("cancelled")

// SoundPlayer defines the interface for playing sounds
type SoundPlayer interface {
	Play(cue string)
}

// Config holds configuration for prompting
type Config struct {
	NonInteractive bool
	Sound          SoundPlayer
	// In and Out default to the process's stdin and stdout.
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func (c *Config) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Config) readLine() (string, error) {
	if c.reader == nil {
		in := c.In
		if in == nil {
			in = os.Stdin
		}
		c.reader = bufio.NewReader(in)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Config) play(cue string) {
	if c.Sound != nil {
		c.Sound.Play(cue)
	}
}

// WaitForKey waits for user to press Enter
func WaitForKey(prompt string, cfg *Config) {
	if cfg.NonInteractive {
		return
	}
	fmt.Fprint(cfg.out(), prompt)
	_, _ = cfg.readLine()
}

// Confirm asks the user to confirm an action. Non-interactive runs answer def.
func Confirm(prompt string, def bool, cfg *Config) bool {
	if cfg.NonInteractive {
		return def
	}

	fmt.Fprintf(cfg.out(), "%s (y/n): ", prompt)
	response, err := cfg.readLine()
	if err != nil {
		return false
	}
	response = strings.ToLower(response)
	confirmed := response == "y" || response == "yes"

	if confirmed || response == "n" || response == "no" {
		cfg.play("select")
	}

	return confirmed
}

// Choose shows a numbered menu and returns the index of the picked option.
// Entering 0 or reaching the end of input cancels.
func Choose(title string, options []string, cfg *Config) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("nothing to choose from")
	}
	if cfg.NonInteractive {
		if len(options) == 1 {
			return 0, nil
		}
		return -1, fmt.Errorf("%s: a choice is required in non-interactive mode", title)
	}

	out := cfg.out()
	fmt.Fprintf(out, "\n%s\n\n", title)
	for i, opt := range options {
		fmt.Fprintf(out, "  %d. %s\n", i+1, opt)
	}
	fmt.Fprintf(out, "\nEnter your choice (1-%d) or 0 to cancel: ", len(options))

	for {
		response, err := cfg.readLine()
		if err != nil {
			return -1, ErrCancelled
		}
		if response == "0" {
			return -1, ErrCancelled
		}

		choice, err := strconv.Atoi(response)
		if err == nil && choice >= 1 && choice <= len(options) {
			cfg.play("select")
			return choice - 1, nil
		}
		fmt.Fprintf(out, "Invalid choice. Please enter 0-%d: ", len(options))
	}
}

// SelectFolder asks for the game folder: a shell dialog on Windows, a typed
// path elsewhere.
func SelectFolder(title, defaultPath string, cfg *Config) (string, error) {
	if cfg.NonInteractive {
		if defaultPath == "" {
			return "", fmt.Errorf("no folder given in non-interactive mode")
		}
		return defaultPath, nil
	}

	if runtime.GOOS != "windows" {
		return askFolder(title, defaultPath, cfg)
	}

	fmt.Fprintf(cfg.out(), "\nPress Enter to select the %s...\n", strings.ToLower(title))
	_, _ = cfg.readLine()

	path, err := browseForFolder(title)
	if err != nil {
		return "", err
	}
	cfg.play("select")
	return path, nil
}

func askFolder(title, defaultPath string, cfg *Config) (string, error) {
	if defaultPath != "" {
		fmt.Fprintf(cfg.out(), "%s [%s]: ", title, defaultPath)
	} else {
		fmt.Fprintf(cfg.out(), "%s: ", title)
	}

	response, err := cfg.readLine()
	if err != nil {
		return "", ErrCancelled
	}
	if response == "" {
		if defaultPath == "" {
			return "", ErrCancelled
		}
		return defaultPath, nil
	}
	return response, nil
}

// browseForFolder opens the Windows Shell.Application folder picker
func browseForFolder(title string) (string, error) {
	ole.CoInitialize(0)
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Shell.Application")
	if err != nil {
		return "", fmt.Errorf("failed to create Shell object: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("failed to get IDispatch interface: %w", err)
	}
	defer shell.Release()

	// 0x10 adds an edit box for typing the path
	folderObj, err := oleutil.CallMethod(shell, "BrowseForFolder", 0, title, 0x10)
	if err != nil {
		return "", fmt.Errorf("failed to show folder dialog: %w", err)
	}

	if folderObj.Value() == nil {
		return "", ErrCancelled
	}

	folderItem := folderObj.ToIDispatch()
	if folderItem == nil {
		return "", ErrCancelled
	}
	defer folderItem.Release()

	selfProp, err := oleutil.GetProperty(folderItem, "Self")
	if err != nil {
		return "", fmt.Errorf("failed to get folder item: %w", err)
	}

	selfDispatch := selfProp.ToIDispatch()
	defer selfDispatch.Release()

	pathProp, err := oleutil.GetProperty(selfDispatch, "Path")
	if err != nil {
		return "", fmt.Errorf("failed to get folder path: %w", err)
	}

	selectedPath := pathProp.ToString()
	if selectedPath == "" {
		return "", fmt.Errorf("no folder selected")
	}

	return selectedPath, nil
}
