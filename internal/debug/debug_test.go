package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// saveAndRestoreState saves the debug package state and returns a cleanup function
func saveAndRestoreState() func() {
	originalDebug := EnableDebug
	originalOutput := debugOutput
	originalFile := debugFile
	return func() {
		EnableDebug = originalDebug
		debugOutput = originalOutput
		debugFile = originalFile
	}
}

// TestIsDebugEnabled tests the is debug enabled.
func TestIsDebugEnabled(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "false"
	assert.False(t, IsDebugEnabled())

	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())

	EnableDebug = "invalid"
	assert.False(t, IsDebugEnabled())
}

// TestLog tests the log.
func TestLog(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = "true"
	Log("TEST", "Hello %s", "World")

	output := buf.String()
	assert.Contains(t, output, "[DEBUG:TEST]")
	assert.Contains(t, output, "Hello World")
}

// TestLogPreprocess tests the preprocessor trace helper.
func TestLogPreprocess(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = "true"
	LogPreprocess("expanding macro %s", "QUOTE")

	output := buf.String()
	assert.Contains(t, output, "[DEBUG:PREPROCESS]")
	assert.Contains(t, output, "expanding macro QUOTE")
}

// TestFatal tests the fatal.
func TestFatal(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	err := Fatal("test error: %s", "details")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fatal error: test error: details")
	assert.Contains(t, buf.String(), "[FATAL]")
}

// TestFatalAndExit tests the fatal and exit.
func TestFatalAndExit(t *testing.T) {
	// We can't easily test os.Exit without terminating the test
	// So we'll just verify the function exists and can be called
	// In a real scenario, you might use a subprocess test

	defer saveAndRestoreState()()

	if os.Getenv("BE_FATAL_TEST") == "1" {
		var buf bytes.Buffer
		SetDebugOutput(&buf)
		FatalAndExit("test fatal exit")
		return
	}

	assert.NotNil(t, FatalAndExit)
}

// TestCatastrophicError tests the catastrophic error.
func TestCatastrophicError(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	CatastrophicError("system failure: %s", "disk full")

	output := buf.String()
	assert.Contains(t, output, "[CATASTROPHIC]")
	assert.Contains(t, output, "system failure: disk full")
}

// TestLogHelpers tests the component-specific log helpers.
func TestLogHelpers(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "true"

	tests := []struct {
		name    string
		logFunc func(string, ...interface{})
		prefix  string
		message string
	}{
		{"LogConfig", LogConfig, "[DEBUG:CONFIG]", "rapifying %d classes"},
		{"LogAnalyze", LogAnalyze, "[DEBUG:ANALYZE]", "analyzing %s"},
		{"LogBuild", LogBuild, "[DEBUG:BUILD]", "building addon %s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetDebugOutput(&buf)

			tt.logFunc(tt.message, "test")

			output := buf.String()
			assert.Contains(t, output, tt.prefix)
			assert.True(t, strings.Contains(output, "test") || strings.Contains(output, tt.message))
		})
	}
}

// TestConcurrentLogging tests the concurrent logging.
func TestConcurrentLogging(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = "true"

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			Log("CONCURRENT", "Message from goroutine %d", id)
			LogBuild("Build from goroutine %d", id)
			LogConfig("Config from goroutine %d", id)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.True(t, true)
}

// TestNoOutputWithNilWriter tests that no output occurs when writer is nil.
func TestNoOutputWithNilWriter(t *testing.T) {
	defer saveAndRestoreState()()

	SetDebugOutput(nil)
	EnableDebug = "true"

	Printf("test %s", "message")
	Println("test message")
	Log("TEST", "test %s", "message")
	LogBuild("test %s", "message")
	LogConfig("test %s", "message")
	LogAnalyze("test %s", "message")
	Fatal("test %s", "message")
	CatastrophicError("test %s", "message")
}

// TestInitDebugLogFile tests the init debug log file.
func TestInitDebugLogFile(t *testing.T) {
	defer saveAndRestoreState()()

	logPath, err := InitDebugLogFile()
	assert.NoError(t, err)
	assert.NotEmpty(t, logPath)

	_, err = os.Stat(logPath)
	assert.NoError(t, err)

	EnableDebug = "true"
	Printf("Test log message\n")

	err = CloseDebugLog()
	assert.NoError(t, err)

	content, err := os.ReadFile(logPath)
	assert.NoError(t, err)
	assert.Contains(t, string(content), "Test log message")

	os.Remove(logPath)
}
