//go:build !windows

package console

func attach() Mode {
	return Inherited
}

func detach(Mode) {}

func setTitle(string) error {
	return nil
}
