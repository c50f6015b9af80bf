// Package debug provides a global, opt-in trace logger for the build
// pipeline: the CLI's per-stage trace lines (preprocessing, config
// formatting, SQF analysis, and the phased build executor) go through
// here rather than directly to stdout, so a single environment variable
// or CLI flag turns pipeline tracing on without threading a logger
// through every call. The core packages themselves do not call it.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/brettmayson/hemtt-core/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// debugOutput is the writer for debug output (defaults to nil, meaning no output)
var debugOutput io.Writer

// debugFile holds the open file handle if debug output goes to a file
var debugFile *os.File

// debugMutex protects access to debug output
var debugMutex sync.Mutex

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile initializes debug logging to a file.
// Returns the path to the log file, or an error if initialization fails.
// Call CloseDebugLog when done to ensure the file is properly closed.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "hemtt-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled returns true if debug mode is enabled: via the
// build-time EnableDebug flag, the DEBUG environment variable, or a
// writer explicitly configured through InitDebugLogFile/SetDebugOutput
// (e.g. the CLI's --debug flag).
func IsDebugEnabled() bool {
	if EnableDebug == "true" {
		return true
	}
	if os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true" {
		return true
	}
	return getDebugWriter() != nil
}

// getDebugWriter returns the writer for debug output, or nil if none is configured
func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf prints debug information only when debug mode is enabled and output is configured
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG] "+format, args...)
}

// Println prints debug information only when debug mode is enabled and output is configured
func Println(args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprint(w, "[DEBUG] ")
	fmt.Fprintln(w, args...)
}

// Log provides structured debug logging with component names
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogPreprocess logs trace output for the C-style preprocessor (macro
// expansion, #include resolution, conditional evaluation).
func LogPreprocess(format string, args ...interface{}) {
	Log("PREPROCESS", format, args...)
}

// LogConfig logs trace output for config parsing and rapification.
func LogConfig(format string, args ...interface{}) {
	Log("CONFIG", format, args...)
}

// LogAnalyze logs trace output for the SQF static analyzer and lint engine.
func LogAnalyze(format string, args ...interface{}) {
	Log("ANALYZE", format, args...)
}

// LogBuild logs trace output for the phased build executor.
func LogBuild(format string, args ...interface{}) {
	Log("BUILD", format, args...)
}

// Fatal outputs a catastrophic error message to the debug log and returns a fatal error.
// This function does not call os.Exit - callers should handle the error appropriately.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	w := getDebugWriter()
	if w != nil {
		fmt.Fprintf(w, "[FATAL] %s", msg)
	}
	return fmt.Errorf("fatal error: %s", msg)
}

// FatalAndExit outputs a catastrophic error message and exits (for CLI use only).
// This should only be used in main.go or other CLI entry points.
// Output goes to the debug log file, not stderr.
func FatalAndExit(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	w := getDebugWriter()
	if w != nil {
		fmt.Fprintf(w, "[FATAL] %s", msg)
	}
	os.Exit(1)
}

// CatastrophicError outputs an error that indicates system failure to the debug log.
func CatastrophicError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	w := getDebugWriter()
	if w != nil {
		fmt.Fprintf(w, "[CATASTROPHIC] %s", msg)
	}
}
