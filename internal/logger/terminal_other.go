//go:build !linux

package logger

// isTerminal conservatively reports false on platforms where terminal
// detection is not implemented; logs are emitted without color.
func isTerminal(fd uintptr) bool {
	return false
}
