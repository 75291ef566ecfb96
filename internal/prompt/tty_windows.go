//go:build windows

package prompt

// Windows exposes the console as separate input and output devices.
const (
	ttyReadDevice  = "CONIN$"
	ttyWriteDevice = "CONOUT$"
)

// Console handles do not support read deadlines; join a worker instead.
func newLineReader() lineReader { return workerReader{} }
