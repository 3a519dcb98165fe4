//go:build windows

package console

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	user32           = syscall.NewLazyDLL("user32.dll")
	attachConsole    = kernel32.NewProc("AttachConsole")
	allocConsole     = kernel32.NewProc("AllocConsole")
	freeConsole      = kernel32.NewProc("FreeConsole")
	getStdHandle     = kernel32.NewProc("GetStdHandle")
	getConsoleWindow = kernel32.NewProc("GetConsoleWindow")
	setConsoleTitle  = kernel32.NewProc("SetConsoleTitleW")
	showWindowProc   = user32.NewProc("ShowWindow")
	setFocusProc     = user32.NewProc("SetFocus")
)

const (
	attachParentProcess = ^uint32(0) // -1 as uint32
	stdInputHandle      = ^uint32(0) - 10 + 1
	stdOutputHandle     = ^uint32(0) - 11 + 1
	stdErrorHandle      = ^uint32(0) - 12 + 1
	swShowNormal        = 1
)

func handle(kind uint32) (uintptr, bool) {
	h, _, _ := getStdHandle.Call(uintptr(kind))
	return h, h != 0 && h != uintptr(syscall.InvalidHandle)
}

func attach() Mode {
	// Started from a terminal: the console is already there
	if _, ok := handle(stdOutputHandle); ok {
		return Inherited
	}

	mode := Attached
	if ok, _, _ := attachConsole.Call(uintptr(attachParentProcess)); ok == 0 {
		// Double-clicked or started from a shortcut
		if ok, _, _ := allocConsole.Call(); ok == 0 {
			return None
		}
		mode = Allocated
	}

	if h, ok := handle(stdOutputHandle); ok {
		os.Stdout = os.NewFile(h, "/dev/stdout")
	}
	if h, ok := handle(stdErrorHandle); ok {
		os.Stderr = os.NewFile(h, "/dev/stderr")
	}
	if h, ok := handle(stdInputHandle); ok {
		os.Stdin = os.NewFile(h, "/dev/stdin")
	}

	if mode == Allocated {
		if hwnd, _, _ := getConsoleWindow.Call(); hwnd != 0 {
			showWindowProc.Call(hwnd, swShowNormal)
			setFocusProc.Call(hwnd)
		}
	}
	return mode
}

func detach(mode Mode) {
	if mode == Attached || mode == Allocated {
		freeConsole.Call()
	}
}

func setTitle(title string) error {
	titlePtr, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return err
	}
	r1, _, err := setConsoleTitle.Call(uintptr(unsafe.Pointer(titlePtr)))
	if r1 == 0 {
		return fmt.Errorf("SetConsoleTitle failed: %v", err)
	}
	return nil
}
