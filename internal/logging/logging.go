// Package logging provides categorized diagnostics for infinite-context.
//
// Hook processes are short-lived and must never write to standard output
// except the single well-formed document the hook contract allows; all
// diagnostics go to standard error, tagged with the literal "[infinite-context] "
// prefix so a host multiplexing several hooks' stderr can attribute lines.
// Long-lived processes (the dashboard) additionally log through zap for
// structured, leveled output.
package logging

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem, mirroring the category-registry idiom
// this codebase's logging is descended from.
type Category string

const (
	CategoryConfig      Category = "config"
	CategoryStore       Category = "store"
	CategoryTranscript  Category = "transcript"
	CategoryExtract     Category = "extract"
	CategoryRestore     Category = "restore"
	CategoryOrchestrate Category = "orchestrate"
	CategoryHook        Category = "hook"
	CategoryCLI         Category = "cli"
	CategoryDashboard   Category = "dashboard"
	CategoryRateLimit   Category = "ratelimit"
)

const tag = "[infinite-context] "

// Logger writes leveled, categorized lines to standard error.
type Logger struct {
	category Category
	out      *os.File
}

var (
	mu      sync.Mutex
	loggers = make(map[Category]*Logger)

	zapMu  sync.Mutex
	zapLog *zap.Logger
)

// Get returns (creating if necessary) the stderr logger for a category.
func Get(category Category) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{category: category, out: os.Stderr}
	loggers[category] = l
	return l
}

func (l *Logger) line(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "%s%s [%s] %s\n", tag, level, l.category, msg)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.line("DEBUG", format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.line("INFO", format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.line("WARN", format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.line("ERROR", format, args...) }

// InitServer lazily builds and caches a zap production logger. Nothing in
// this module calls it: hook binaries log only through Get, and the CLI
// root command (including the dashboard subcommand) builds its own zap
// logger directly.
func InitServer(debug bool) (*zap.Logger, error) {
	zapMu.Lock()
	defer zapMu.Unlock()
	if zapLog != nil {
		return zapLog, nil
	}
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zapLog = l
	return l, nil
}
