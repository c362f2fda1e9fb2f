package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Standard field keys.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldFile      = "file"
	FieldRequestID = "request_id"
)

// Config controls log output.
type Config struct {
	Level   string
	Format  string // "console" or "json"
	Output  string // "stderr" or "stdout"
	NoColor bool
}

// ApplyDefaults fills empty fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate checks level and format names.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil || c.Level == "" {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got: %s)", c.Level)
	}
	switch c.Format {
	case "console", "json":
		return nil
	}
	return fmt.Errorf("logging.format must be console or json (got: %s)", c.Format)
}

// Logger wraps zerolog.Logger with component tagging.
type Logger struct {
	zl zerolog.Logger
}

// New builds a logger from cfg. service is attached to every event.
func New(cfg Config, service string) *Logger {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		out = os.Stdout
	}
	if cfg.Format == "console" {
		out = consoleWriter(out, cfg.NoColor)
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Str("service", service).Logger()
	return &Logger{zl: zl}
}

// NewWriter logs JSON to w. Tests use it to inspect events.
func NewWriter(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return &Logger{zl: zerolog.New(w).Level(lvl)}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldComponent, name).Logger()}
}

// WithFields returns a logger carrying fields on every event.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.zl.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{zl: zc.Logger()}
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Error(), msg, fields)
}

// Fields builds a field map from alternating key-value pairs.
//
//	log.Info("saved", logger.Fields("file", name, "entries", n))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}

func emit(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			tag := levelTag(fmt.Sprintf("%s", i))
			if noColor {
				return tag
			}
			return levelColor(fmt.Sprintf("%s", i)) + tag + "\033[0m"
		},
	}
}

func levelTag(level string) string {
	switch level {
	case "debug":
		return "[DBG]"
	case "info":
		return "[INF]"
	case "warn":
		return "[WRN]"
	case "error":
		return "[ERR]"
	case "fatal":
		return "[FTL]"
	}
	return "[" + strings.ToUpper(level) + "]"
}

func levelColor(level string) string {
	switch level {
	case "debug":
		return "\033[36m"
	case "info":
		return "\033[32m"
	case "warn":
		return "\033[33m"
	case "error":
		return "\033[31m"
	}
	return "\033[35m"
}
