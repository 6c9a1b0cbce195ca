//go:build linux

package logger

import "golang.org/x/sys/unix"

// isTerminal reports whether fd refers to a terminal, enabling color output.
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}
