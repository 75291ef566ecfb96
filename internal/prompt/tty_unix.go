//go:build !windows

package prompt

// On Unix the controlling terminal is one device for both directions.
const (
	ttyReadDevice  = "/dev/tty"
	ttyWriteDevice = "/dev/tty"
)

// Unix ttys are pollable, so the deadline strategy applies.
func newLineReader() lineReader { return deadlineReader{} }
