// Package logging configures the process-wide phuslu/log logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Options selects the log level and output.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Empty means info.
	Level string
	// Verbose forces debug level regardless of Level.
	Verbose bool
	// Writer defaults to os.Stderr. Stdout is reserved for command output
	// and the MCP stdio transport.
	Writer io.Writer
	// JSON disables the console writer even on a terminal.
	JSON bool
}

// Setup replaces log.DefaultLogger. A terminal gets a colored console
// writer; anything else gets one JSON object per line.
func Setup(opts Options) {
	log.DefaultLogger = New(opts)
}

// New builds a logger without installing it.
func New(opts Options) log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := ParseLevel(opts.Level)
	if opts.Verbose && level > log.DebugLevel {
		level = log.DebugLevel
	}

	logger := log.Logger{
		Level:      level,
		TimeFormat: "15:04:05",
	}
	if !opts.JSON && isTerminal(w) {
		logger.Writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    true,
			EndWithMessage: true,
		}
	} else {
		logger.TimeFormat = ""
		logger.Writer = &log.IOWriter{Writer: w}
	}
	return logger
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && log.IsTerminal(f.Fd())
}
