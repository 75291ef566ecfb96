// Package prompt asks the user yes/no questions on the controlling terminal,
// bypassing the process's standard streams so the answer cannot be satisfied
// by piped stdin. Reads are bounded: no answer within the timeout is a denial.
package prompt

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/delguard/delguard/internal/logger"
	"golang.org/x/term"
)

var log = logger.New("prompt")

// DefaultTimeout bounds how long a confirmation waits for an answer.
const DefaultTimeout = 30 * time.Second

// lineReader is the bounded blocking read capability. Two strategies back
// it: a read-deadline on the tty file where the platform supports polling,
// and a worker goroutine joined with a timeout everywhere else.
type lineReader interface {
	ReadLine(f *os.File, timeout time.Duration) (string, bool)
}

// deadlineReader uses os.File read deadlines. If the file does not support
// deadlines the worker strategy takes over for that read.
type deadlineReader struct{}

func (deadlineReader) ReadLine(f *os.File, timeout time.Duration) (string, bool) {
	if err := f.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return workerReader{}.ReadLine(f, timeout)
	}
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

// workerReader performs the blocking read in a goroutine and joins it with a
// timeout. A read that never completes leaves the goroutine parked on the
// tty; the process is one-shot, so it exits with the process.
type workerReader struct{}

func (workerReader) ReadLine(f *os.File, timeout time.Duration) (string, bool) {
	ch := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(f).ReadString('\n')
		if err != nil && line == "" {
			return
		}
		ch <- strings.TrimSpace(line)
	}()
	select {
	case line := <-ch:
		return line, true
	case <-time.After(timeout):
		return "", false
	}
}

// TTY is a Confirmer backed by the controlling terminal device.
type TTY struct {
	timeout time.Duration
	reader  lineReader
}

// New creates a terminal prompter with the given timeout. The read strategy
// is chosen once here, per platform.
func New(timeout time.Duration) *TTY {
	return &TTY{timeout: timeout, reader: newLineReader()}
}

// Confirm writes message to the terminal and reads a single-line response.
// Only an affirmative "y" (case-insensitive) confirms; everything else —
// any other text, EOF, no terminal, timeout — denies.
func (t *TTY) Confirm(message string) bool {
	out, err := os.OpenFile(ttyWriteDevice, os.O_WRONLY, 0)
	if err != nil {
		log.Debug("no terminal for prompt (%v), denying", err)
		return false
	}
	defer out.Close()

	if _, err := out.WriteString(message); err != nil {
		return false
	}

	in, err := os.OpenFile(ttyReadDevice, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer in.Close()

	line, ok := t.reader.ReadLine(in, t.timeout)
	if !ok {
		log.Debug("prompt timed out after %s, denying", t.timeout)
		return false
	}
	return strings.EqualFold(line, "y")
}

// Interactive reports whether a controlling terminal is available for
// prompting at all.
func Interactive() bool {
	f, err := os.OpenFile(ttyReadDevice, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer f.Close()
	return term.IsTerminal(int(f.Fd()))
}

// Static is a Confirmer with a fixed answer, for non-interactive evaluation
// and tests.
type Static bool

// Confirm returns the fixed answer without consulting a terminal.
func (s Static) Confirm(string) bool { return bool(s) }
