// Package logger owns the process-wide logrus logger. Packages log through
// component entries obtained from For.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "15:04:05.000 2006/01/02"

var (
	mu  sync.RWMutex
	std = newLogger(os.Stderr, logrus.InfoLevel)
)

// Config selects the level and destination of log output.
type Config struct {
	Level string
	// File is appended to when set. Output goes to stderr otherwise.
	File string
}

// Formatter renders entries as
//
//	[time] [LEVL] component: message key=value ...
type Formatter struct {
	TimestampFormat string
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = timestampFormat
	}

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] ", entry.Time.Format(layout), level)
	if c, ok := entry.Data["component"]; ok {
		fmt.Fprintf(&b, "%v: ", c)
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "component" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&Formatter{TimestampFormat: timestampFormat})
	return l
}

// ParseLevel maps a level name to a logrus level. Unknown names yield
// InfoLevel and ok=false.
func ParseLevel(level string) (logrus.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel, true
	case "info", "":
		return logrus.InfoLevel, true
	case "warn", "warning":
		return logrus.WarnLevel, true
	case "error":
		return logrus.ErrorLevel, true
	default:
		return logrus.InfoLevel, false
	}
}

// Init replaces the process logger according to cfg.
func Init(cfg Config) error {
	level, ok := ParseLevel(cfg.Level)

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return err
		}
		out = f
	}

	l := newLogger(out, level)
	mu.Lock()
	std = l
	mu.Unlock()

	if !ok {
		l.WithField("component", "logger").Warnf("unknown log level %q, using info", cfg.Level)
	}
	return nil
}

// SetOutput redirects the current logger.
func SetOutput(w io.Writer) {
	mu.RLock()
	defer mu.RUnlock()
	std.SetOutput(w)
}

// Logger returns the current process logger.
func Logger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// For returns an entry tagged with component.
func For(component string) *logrus.Entry {
	return Logger().WithField("component", component)
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create log directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", path)
	}
	return f, nil
}
