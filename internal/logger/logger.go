package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the logging level
type Level int

const (
	TRACE Level = iota
	DEBUG
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	TRACE: "TRACE",
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var zerologLevels = map[Level]zerolog.Level{
	TRACE: zerolog.TraceLevel,
	DEBUG: zerolog.DebugLevel,
	INFO:  zerolog.InfoLevel,
	WARN:  zerolog.WarnLevel,
	ERROR: zerolog.ErrorLevel,
}

// String returns the upper-case level name.
func (l Level) String() string {
	return levelNames[l]
}

// Component represents the logging component
type Component string

const (
	ComponentApp        Component = "app"
	ComponentClient     Component = "client"
	ComponentPage       Component = "page"
	ComponentExtract    Component = "extract"
	ComponentRedir      Component = "redir"
	ComponentProbe      Component = "probe"
	ComponentDownloader Component = "downloader"
)

// Format represents the log output format
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatColor
)

// Config holds logger configuration
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	Components map[Component]bool
	ShowCaller bool
	Timestamp  bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  INFO,
		Format: FormatText,
		Output: os.Stderr,
		Components: map[Component]bool{
			ComponentApp:        true,
			ComponentClient:     false,
			ComponentPage:       false,
			ComponentExtract:    false,
			ComponentRedir:      false,
			ComponentProbe:      false,
			ComponentDownloader: false,
		},
		ShowCaller: false,
		Timestamp:  false,
	}
}

// Logger provides structured logging functionality
type Logger struct {
	config *Config
	zl     zerolog.Logger
	mu     sync.RWMutex
}

// New creates a new logger instance
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Components == nil {
		config.Components = make(map[Component]bool)
	}
	if config.Output == nil {
		config.Output = os.Stderr
	}
	l := &Logger{config: config}
	l.rebuild()
	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	cfg := DefaultConfig()
	cfg.Output = io.Discard
	cfg.Components = map[Component]bool{}
	return New(cfg)
}

// rebuild recreates the zerolog backend from config. Callers hold mu.
func (l *Logger) rebuild() {
	out := zerolog.SyncWriter(l.config.Output)
	var w io.Writer = out
	if l.config.Format != FormatJSON {
		cw := zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    l.config.Format != FormatColor,
			TimeFormat: time.DateTime,
		}
		if !l.config.Timestamp {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		w = cw
	}

	ctx := zerolog.New(w).Level(zerologLevels[l.config.Level]).With()
	if l.config.Timestamp {
		ctx = ctx.Timestamp()
	}
	if l.config.ShowCaller {
		// log -> ComponentLogger.log -> ComponentLogger.Info -> call site
		ctx = ctx.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 3)
	}
	l.zl = ctx.Logger()
}

// WithComponent creates a new logger instance for a specific component
func (l *Logger) WithComponent(component Component) *ComponentLogger {
	return &ComponentLogger{
		logger:    l,
		component: component,
	}
}

// SetLevel changes the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
	l.rebuild()
}

// SetFormat changes the log format
func (l *Logger) SetFormat(format Format) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Format = format
	l.rebuild()
}

// SetOutput changes the log output
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Output = w
	l.rebuild()
}

// EnableComponent enables logging for a specific component
func (l *Logger) EnableComponent(component Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Components[component] = true
}

// DisableComponent disables logging for a specific component
func (l *Logger) DisableComponent(component Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Components[component] = false
}

// EnableAll turns on every known component.
func (l *Logger) EnableAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range []Component{ComponentApp, ComponentClient, ComponentPage, ComponentExtract, ComponentRedir, ComponentProbe, ComponentDownloader} {
		l.config.Components[c] = true
	}
}

func (l *Logger) log(level Level, component Component, message string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if level < l.config.Level {
		return
	}
	if !l.config.Components[component] {
		return
	}

	ev := l.zl.WithLevel(zerologLevels[level]).Str("component", string(component))
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(message)
}

// ComponentLogger provides component-specific logging
type ComponentLogger struct {
	logger    *Logger
	component Component
}

// Trace logs a trace message
func (cl *ComponentLogger) Trace(message string, fields ...map[string]interface{}) {
	cl.log(TRACE, message, fields...)
}

// Debug logs a debug message
func (cl *ComponentLogger) Debug(message string, fields ...map[string]interface{}) {
	cl.log(DEBUG, message, fields...)
}

// Info logs an info message
func (cl *ComponentLogger) Info(message string, fields ...map[string]interface{}) {
	cl.log(INFO, message, fields...)
}

// Warn logs a warning message
func (cl *ComponentLogger) Warn(message string, fields ...map[string]interface{}) {
	cl.log(WARN, message, fields...)
}

// Error logs an error message
func (cl *ComponentLogger) Error(message string, fields ...map[string]interface{}) {
	cl.log(ERROR, message, fields...)
}

// log merges field maps; later maps win on key collisions.
func (cl *ComponentLogger) log(level Level, message string, fields ...map[string]interface{}) {
	var merged map[string]interface{}
	switch len(fields) {
	case 0:
	case 1:
		merged = fields[0]
	default:
		merged = make(map[string]interface{})
		for _, f := range fields {
			for k, v := range f {
				merged[k] = v
			}
		}
	}
	cl.logger.log(level, cl.component, message, merged)
}

var (
	globalMu     sync.RWMutex
	globalLogger = New(DefaultConfig())
)

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// WithComponent returns a component logger from global logger
func WithComponent(component Component) *ComponentLogger {
	return GetGlobalLogger().WithComponent(component)
}
