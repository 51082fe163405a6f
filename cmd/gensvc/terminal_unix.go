//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// disableCtrlCEcho turns off ECHOCTL while an action runs, so Ctrl+C cancels it without printing "^C"
// into the progress output. the returned func restores the terminal.
func disableCtrlCEcho() func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}

	termios, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return func() {}
	}

	saved := *termios
	termios.Lflag &^= unix.ECHOCTL
	if unix.IoctlSetTermios(fd, ioctlWriteTermios, termios) != nil {
		return func() {}
	}
	return func() { _ = unix.IoctlSetTermios(fd, ioctlWriteTermios, &saved) }
}
