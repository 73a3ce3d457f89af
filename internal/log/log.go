// Package log is the smartnotes debug logger. Entries are plain text lines
// tagged with a level and a category, written to a file and mirrored on a
// pubsub broker so the manager UI can tail them. Logging stays off until
// Init is called (--debug or SMARTNOTES_DEBUG).
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/smartnotes/internal/pubsub"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Category groups related log messages.
type Category string

const (
	CatStore      Category = "store"      // metadata files
	CatAutoStart  Category = "autostart"  // auto-start registry
	CatHook       Category = "hook"       // platform startup hook
	CatSupervisor Category = "supervisor" // widget processes
	CatHistory    Category = "history"    // launch journal
	CatController Category = "controller" // instance operations
	CatStartup    Category = "startup"    // boot-time relaunch
	CatConfig     Category = "config"
	CatWatcher    Category = "watcher"
	CatUI         Category = "ui"
)

type logger struct {
	mu       sync.Mutex
	out      io.Writer
	closer   io.Closer
	minLevel Level
	broker   *pubsub.Broker[string]
}

var (
	stateMu sync.RWMutex
	current *logger
)

// Init starts logging to the file at path. The returned func closes it.
func Init(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // G304: debug log path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	install(f, f)
	return closeFn, nil
}

// InitWithTeaLog routes logging through tea.LogToFile, which also captures
// Bubble Tea's own diagnostics.
func InitWithTeaLog(path, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	install(f, f)
	return closeFn, nil
}

// InitWriter logs to w. Used by tests and by CLI commands that want entries
// on stderr.
func InitWriter(w io.Writer) func() {
	install(w, nil)
	return closeFn
}

func install(w io.Writer, c io.Closer) {
	stateMu.Lock()
	defer stateMu.Unlock()
	if current != nil {
		current.shutdown()
	}
	current = &logger{
		out:      w,
		closer:   c,
		minLevel: LevelDebug,
		broker:   pubsub.NewBroker[string](pubsub.TopicLogLine),
	}
}

func closeFn() {
	stateMu.Lock()
	defer stateMu.Unlock()
	if current != nil {
		current.shutdown()
		current = nil
	}
}

func (l *logger) shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broker.Close()
	if l.closer != nil {
		_ = l.closer.Close()
	}
}

// SetMinLevel drops entries below level.
func SetMinLevel(level Level) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	if current != nil {
		current.mu.Lock()
		current.minLevel = level
		current.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) { write(LevelDebug, cat, msg, fields) }

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) { write(LevelInfo, cat, msg, fields) }

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) { write(LevelWarn, cat, msg, fields) }

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) { write(LevelError, cat, msg, fields) }

// ErrorErr logs msg at error level with err attached as the "error" field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	errText := "<nil>"
	if err != nil {
		errText = err.Error()
	}
	write(LevelError, cat, msg, append(fields, "error", errText))
}

func write(level Level, cat Category, msg string, fields []any) {
	stateMu.RLock()
	l := current
	stateMu.RUnlock()
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel {
		return
	}

	entry := format(time.Now(), level, cat, msg, fields)
	_, _ = io.WriteString(l.out, entry)
	l.broker.Publish(entry)
}

// format renders: 2026-10-19T10:45:00 [WARN] [store] msg key=value
func format(ts time.Time, level Level, cat Category, msg string, fields []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", ts.Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	b.WriteByte('\n')
	return b.String()
}

// LogEvent is one published log line.
type LogEvent = pubsub.Event[string]

// Lines returns the stream of formatted log lines, or nil when logging is
// off.
func Lines() pubsub.Subscriber[string] {
	stateMu.RLock()
	defer stateMu.RUnlock()
	if current == nil {
		return nil
	}
	return current.broker
}
