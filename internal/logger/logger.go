// Package logger is delguard's diagnostic channel. The hook protocol owns
// stdout (backup progress) and the block explanation owns plain stderr, so
// everything here is prefixed, leveled stderr output that a caller can grep
// out. The process lives for a single decision; records carry no timestamps
// because the invocation is the unit of time.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level orders diagnostic severity. LevelInfo is the default threshold.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"trace", "debug", "info", "warn", "error"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelError {
		return fmt.Sprintf("level(%d)", int8(l))
	}
	return levelNames[l]
}

// ParseLevel maps a config string to a Level. Empty means the default.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(s)
	if s == "" {
		return LevelInfo, nil
	}
	if s == "warning" {
		s = "warn"
	}
	for i, name := range levelNames {
		if s == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q (valid: %s)", s, strings.Join(levelNames[:], ", "))
}

var labelStyles = map[Level]lipgloss.Style{
	LevelTrace: lipgloss.NewStyle().Foreground(lipgloss.Color("#7E8A97")), // slate
	LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("#8FA1B3")), // steel blue
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#8CA878")), // sage
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E0B25D")), // amber
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#C95B4D")), // brick
}

var prefixStyle = lipgloss.NewStyle().Faint(true)

// sink is the shared output state. One mutex covers configuration and
// writing; the hook emits a handful of lines per run, so contention is not
// a concern.
var sink = struct {
	sync.Mutex
	w       io.Writer
	minimum Level
	colored bool
}{w: os.Stderr, minimum: LevelInfo, colored: true}

// SetGlobalLevel sets the minimum level that is emitted.
func SetGlobalLevel(level Level) {
	sink.Lock()
	defer sink.Unlock()
	sink.minimum = level
}

// SetGlobalLevelFromString applies a config-provided level, ignoring
// unparseable values (config validation reports those separately).
func SetGlobalLevelFromString(level string) {
	if l, err := ParseLevel(level); err == nil {
		SetGlobalLevel(l)
	}
}

// SetColored toggles styled output.
func SetColored(colored bool) {
	sink.Lock()
	defer sink.Unlock()
	sink.colored = colored
}

// SetOutput redirects diagnostics, returning the previous writer. Tests use
// this to capture output.
func SetOutput(w io.Writer) io.Writer {
	sink.Lock()
	defer sink.Unlock()
	prev := sink.w
	sink.w = w
	return prev
}

// Logger tags each record with the emitting package.
type Logger struct {
	prefix string
}

// New returns a Logger for the given package prefix.
func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

func (l *Logger) emit(level Level, format string, args ...any) {
	sink.Lock()
	defer sink.Unlock()
	if level < sink.minimum {
		return
	}

	label := strings.ToUpper(level.String())
	prefix := l.prefix + ":"
	if sink.colored {
		label = labelStyles[level].Render(label)
		prefix = prefixStyle.Render(prefix)
	}
	fmt.Fprintf(sink.w, "%s %s %s\n", label, prefix, fmt.Sprintf(format, args...))
}

// Trace records classification-grade detail, one line per target.
func (l *Logger) Trace(format string, args ...any) { l.emit(LevelTrace, format, args...) }

// Debug records pipeline stages and fallbacks.
func (l *Logger) Debug(format string, args ...any) { l.emit(LevelDebug, format, args...) }

// Warn records degraded behavior the run recovered from.
func (l *Logger) Warn(format string, args ...any) { l.emit(LevelWarn, format, args...) }

// Error records failures, including the fail-open report.
func (l *Logger) Error(format string, args ...any) { l.emit(LevelError, format, args...) }
