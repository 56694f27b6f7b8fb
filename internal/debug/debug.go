package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/csplab/linkage/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode tracks if we're running as an MCP stdio server (set by main)
var MCPMode = false

// debugOutput is the writer for debug output (defaults to nil, meaning no output)
var debugOutput io.Writer

// debugLog holds the rotating log file if debug output goes to disk
var debugLog *lumberjack.Logger

// debugMutex protects access to debug output
var debugMutex sync.Mutex

// Rotation limits for the debug log file
const (
	logMaxSizeMB  = 20
	logMaxBackups = 3
	logMaxAgeDays = 14
)

// SetMCPMode enables MCP mode which suppresses all debug output to stdio
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile routes debug output to a size-rotated log file.
// An empty path picks a timestamped file under the temp directory.
// Returns the path in use. Call CloseDebugLog when done.
func InitDebugLogFile(path string) (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if path == "" {
		timestamp := time.Now().Format("2006-01-02T150405")
		path = filepath.Join(os.TempDir(), "csplab-debug-logs", fmt.Sprintf("debug-%s.log", timestamp))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	logger := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	}
	// lumberjack opens lazily; touch the file so open errors surface here
	if _, err := logger.Write(nil); err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugLog = logger
	debugOutput = logger
	return path, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugLog != nil {
		err := debugLog.Close()
		debugLog = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled returns true if debug mode is enabled and we're not in MCP mode
func IsDebugEnabled() bool {
	if MCPMode {
		return false
	}

	if EnableDebug == "true" {
		return true
	}

	// Allow runtime override via environment variable
	if os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true" {
		return true
	}

	return false
}

// write serializes formatted output to the configured writer
func write(format string, args ...interface{}) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	if debugOutput == nil {
		return
	}
	fmt.Fprintf(debugOutput, format, args...)
}

// Printf prints debug information only when debug mode is enabled and output is configured
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	write("[DEBUG] "+format, args...)
}

// Log provides structured debug logging with component names
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	write("[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogEmbed logs embedding cache and provider activity
func LogEmbed(format string, args ...interface{}) {
	Log("EMBED", format, args...)
}

// LogMatch logs matcher decisions
func LogMatch(format string, args ...interface{}) {
	Log("MATCH", format, args...)
}

// LogDedup logs deduplication and reference selection
func LogDedup(format string, args ...interface{}) {
	Log("DEDUP", format, args...)
}

// LogMCP logs MCP server activity
func LogMCP(format string, args ...interface{}) {
	Log("MCP", format, args...)
}

// Fatal writes a fatal message to the debug log and returns it as an error.
// In MCP mode the log write is suppressed.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if !MCPMode {
		write("[FATAL] %s", msg)
	}
	return fmt.Errorf("fatal error: %s", msg)
}
