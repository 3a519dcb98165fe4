package shortcut

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// ErrUnsupported is returned when shortcuts can't be made on this system
var ErrUnsupported = errors.New("desktop shortcuts are only supported on Windows")

// Shortcut describes a .lnk file that starts a patching session.
type Shortcut struct {
	Name        string
	Target      string
	Arguments   string
	WorkingDir  string
	Description string
}

// ForMod returns a shortcut that runs "play <mod>" with the binary at exe
func ForMod(exe, mod string) Shortcut {
	return Shortcut{
		Name:        "Split - " + mod,
		Target:      exe,
		Arguments:   fmt.Sprintf("play %q", mod),
		WorkingDir:  filepath.Dir(exe),
		Description: "Patch and launch with " + mod,
	}
}

// FileName turns a shortcut name into a valid .lnk file name
func FileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) || r < 32 {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimRight(strings.TrimSpace(name), ".")
	if name == "" {
		name = "Split"
	}
	return name + ".lnk"
}

// DesktopDir finds the user's desktop, which OneDrive may have moved
func DesktopDir() (string, error) {
	userProfile := os.Getenv("USERPROFILE")
	if userProfile == "" {
		return "", fmt.Errorf("failed to get user profile directory")
	}

	for _, desktop := range []string{
		filepath.Join(userProfile, "Desktop"),
		filepath.Join(userProfile, "OneDrive", "Desktop"),
	} {
		if info, err := os.Stat(desktop); err == nil && info.IsDir() {
			return desktop, nil
		}
	}
	return "", fmt.Errorf("desktop directory not found")
}

// Create writes s into dir and returns the path of the .lnk file
func Create(dir string, s Shortcut) (string, error) {
	if runtime.GOOS != "windows" {
		return "", ErrUnsupported
	}
	if s.Target == "" {
		return "", fmt.Errorf("shortcut %q has no target", s.Name)
	}

	if err := ole.CoInitialize(0); err != nil {
		return "", fmt.Errorf("failed to initialize COM: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return "", fmt.Errorf("failed to create WScript.Shell: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("failed to query shell interface: %w", err)
	}
	defer shell.Release()

	linkPath := filepath.Join(dir, FileName(s.Name))
	link, err := oleutil.CallMethod(shell, "CreateShortcut", linkPath)
	if err != nil {
		return "", fmt.Errorf("failed to create shortcut: %w", err)
	}
	// Don't call link.Clear() - it causes crashes

	linkDisp := link.ToIDispatch()
	defer linkDisp.Release()

	props := []struct {
		name  string
		value interface{}
	}{
		{"TargetPath", s.Target},
		{"Arguments", s.Arguments},
		{"WorkingDirectory", s.WorkingDir},
		{"Description", s.Description},
		{"WindowStyle", 1},
	}
	for _, p := range props {
		if _, err := oleutil.PutProperty(linkDisp, p.name, p.value); err != nil {
			return "", fmt.Errorf("failed to set shortcut %s: %w", p.name, err)
		}
	}

	if _, err := oleutil.CallMethod(linkDisp, "Save"); err != nil {
		return "", fmt.Errorf("failed to save shortcut: %w", err)
	}
	return linkPath, nil
}

// Target reads the target path of an existing shortcut, or "" if it can't
func Target(linkPath string) string {
	if runtime.GOOS != "windows" {
		return ""
	}
	if err := ole.CoInitialize(0); err != nil {
		return ""
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return ""
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return ""
	}
	defer shell.Release()

	link, err := oleutil.CallMethod(shell, "CreateShortcut", linkPath)
	if err != nil {
		return ""
	}

	linkDisp := link.ToIDispatch()
	defer linkDisp.Release()

	target, err := oleutil.GetProperty(linkDisp, "TargetPath")
	if err != nil {
		return ""
	}
	return target.ToString()
}
