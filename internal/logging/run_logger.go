package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RunLogger manages logging for a single generation run. Every pipeline run
// gets its own log file under gen_logs/ so a failed generation can be
// reconstructed after the fact; messages are mirrored to the service logger.
type RunLogger struct {
	runID     string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// StartRunLogging initializes logging for a new generation run
func StartRunLogging(runID string) (*RunLogger, error) {
	timestamp := time.Now().Format("20060102_150405")
	logFileName := fmt.Sprintf("gen_%s_%s.log", runID, timestamp)
	logPath := filepath.Join("gen_logs", logFileName)

	// Ensure directory exists
	if err := os.MkdirAll("gen_logs", 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &RunLogger{
		runID:     runID,
		logFile:   logFile,
		startTime: time.Now(),
	}

	logger.writeHeader()

	return logger, nil
}

func (r *RunLogger) writeHeader() {
	r.Log("Generation run %s started at %s", r.runID, r.startTime.Format(time.RFC3339))
}

// Log writes a message to the run log
func (r *RunLogger) Log(format string, args ...interface{}) {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(r.startTime)
	logMessage := fmt.Sprintf(format, args...)

	message := fmt.Sprintf("[%s] [+%v] %s\n", timestamp, elapsed.Round(time.Millisecond), logMessage)
	if r.logFile != nil {
		r.logFile.WriteString(message)
		r.logFile.Sync() // Ensure immediate write
	}

	log.Debug().Str("run_id", r.runID).Msg(logMessage)
}

// LogSection writes a section header to the log
func (r *RunLogger) LogSection(title string) {
	if r == nil {
		return
	}

	separator := strings.Repeat("=", 80)
	r.Log("%s", separator)
	r.Log("= %s", title)
	r.Log("%s", separator)
}

// LogError writes an error with its originating operation to the log
func (r *RunLogger) LogError(operation string, err error) {
	if r == nil {
		return
	}

	r.Log("ERROR in %s: %v", operation, err)
	log.Error().Err(err).Str("run_id", r.runID).Str("operation", operation).Msg("generation run error")
}

// Close finalizes and closes the run log
func (r *RunLogger) Close() {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.logFile != nil {
		elapsed := time.Since(r.startTime)
		r.logFile.WriteString(fmt.Sprintf("Run %s finished after %v\n", r.runID, elapsed.Round(time.Millisecond)))
		r.logFile.Close()
		r.logFile = nil
	}
}
