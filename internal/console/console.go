// Package console makes sure a window is there to show session output when
// the patcher is started from a desktop shortcut.
package console

// Mode tells how the process got its console.
type Mode int

const (
	// None means no console could be attached or created.
	None Mode = iota
	// Inherited means the process was started from a terminal.
	Inherited
	// Attached means the parent's console was borrowed.
	Attached
	// Allocated means a new console window was opened for this process. It
	// closes when the process exits, so output should be held on screen.
	Allocated
)

func (m Mode) String() string {
	switch m {
	case Inherited:
		return "inherited"
	case Attached:
		return "attached"
	case Allocated:
		return "allocated"
	default:
		return "none"
	}
}

// Console is the output window of the current process.
type Console struct {
	Mode Mode
}

// Attach connects the process to a console, creating one if needed
func Attach() *Console {
	return &Console{Mode: attach()}
}

// Available reports whether output can be seen
func (c *Console) Available() bool {
	return c.Mode != None
}

// Owned reports whether the window goes away with the process
func (c *Console) Owned() bool {
	return c.Mode == Allocated
}

// SetTitle sets the console window title
func (c *Console) SetTitle(title string) error {
	if !c.Available() {
		return nil
	}
	return setTitle(title)
}

// Release detaches from a console this process attached to or created
func (c *Console) Release() {
	detach(c.Mode)
	c.Mode = None
}
