package observability

import (
	"io"
	"os"

	"github.com/willibrandon/mtlog"
	"github.com/willibrandon/mtlog/core"
	"github.com/willibrandon/mtlog/sinks"
)

// Logger is the structured logger used throughout the resolution engine.
// Messages are mtlog message templates, e.g. "Installing {Package} in version {Version}".
type Logger interface {
	Verbose(messageTemplate string, args ...any)
	Debug(messageTemplate string, args ...any)
	Info(messageTemplate string, args ...any)
	Warn(messageTemplate string, args ...any)
	Error(messageTemplate string, args ...any)

	// ForContext returns a child logger that attaches key=value to every event.
	ForContext(key string, value any) Logger
}

// LogLevel represents log verbosity level
type LogLevel int

const (
	VerboseLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLogLevel maps a CLI verbosity name to a LogLevel. Unknown names yield InfoLevel.
func ParseLogLevel(name string) LogLevel {
	switch name {
	case "silly", "verbose":
		return VerboseLevel
	case "debug", "perf":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error", "silent":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

type mtlogAdapter struct {
	logger core.Logger
}

// NewLogger creates a console logger writing to output at the given minimum level.
func NewLogger(output io.Writer, level LogLevel) Logger {
	opts := []mtlog.Option{
		mtlog.WithSink(sinks.NewConsoleSinkWithWriter(output)),
		mtlog.WithTimestamp(),
	}

	switch level {
	case VerboseLevel:
		opts = append(opts, mtlog.Verbose())
	case DebugLevel:
		opts = append(opts, mtlog.Debug())
	case InfoLevel:
		opts = append(opts, mtlog.Information())
	case WarnLevel:
		opts = append(opts, mtlog.Warning())
	case ErrorLevel:
		opts = append(opts, mtlog.Error())
	}

	return &mtlogAdapter{logger: mtlog.New(opts...)}
}

// NewDefaultLogger logs to stderr at Info level so stdout stays usable for command output.
func NewDefaultLogger() Logger {
	return NewLogger(os.Stderr, InfoLevel)
}

func (a *mtlogAdapter) Verbose(messageTemplate string, args ...any) {
	a.logger.Verbose(messageTemplate, args...)
}

func (a *mtlogAdapter) Debug(messageTemplate string, args ...any) {
	a.logger.Debug(messageTemplate, args...)
}

func (a *mtlogAdapter) Info(messageTemplate string, args ...any) {
	a.logger.Info(messageTemplate, args...)
}

func (a *mtlogAdapter) Warn(messageTemplate string, args ...any) {
	a.logger.Warn(messageTemplate, args...)
}

func (a *mtlogAdapter) Error(messageTemplate string, args ...any) {
	a.logger.Error(messageTemplate, args...)
}

func (a *mtlogAdapter) ForContext(key string, value any) Logger {
	return &mtlogAdapter{logger: a.logger.ForContext(key, value)}
}

type nullLogger struct{}

// NewNullLogger creates a logger that discards all output
func NewNullLogger() Logger {
	return nullLogger{}
}

// OrNull returns l, or a discarding logger when l is nil.
func OrNull(l Logger) Logger {
	if l == nil {
		return nullLogger{}
	}
	return l
}

func (nullLogger) Verbose(string, ...any)          {}
func (nullLogger) Debug(string, ...any)            {}
func (nullLogger) Info(string, ...any)             {}
func (nullLogger) Warn(string, ...any)             {}
func (nullLogger) Error(string, ...any)            {}
func (n nullLogger) ForContext(string, any) Logger { return n }
