// Package logger provides logging for planning and execution progress.
//
// The console logger writes timestamped, optionally colorized lines and
// supports level filtering. Implementations are safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/pilot/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs progress to a writer with [HH:MM:SS] timestamps and
// thread safety. Color output is enabled automatically when writing to a
// terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger writing to the provided writer.
// If writer is nil, messages are silently discarded. Valid levels: trace,
// debug, info, warn, error (case-insensitive); empty or invalid defaults to
// "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a TTY that supports colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		cl.writer.Write([]byte(fmt.Sprintf("[%s] [%s] %s\n", ts, colorizeLevel(level), message)))
	} else {
		cl.writer.Write([]byte(fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)))
	}
}

func colorizeLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	}
	return level
}

// LogStepResult logs one finished step at DEBUG level, color-coded by status.
func (cl *ConsoleLogger) LogStepResult(step models.Step) {
	if cl.writer == nil || !cl.shouldLog("debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	status := string(step.Status)
	if cl.colorOutput {
		switch step.Status {
		case models.StepCompleted:
			status = color.New(color.FgGreen).Sprint(status)
		case models.StepFailed, models.StepRejected:
			status = color.New(color.FgRed).Sprint(status)
		case models.StepSkipped:
			status = color.New(color.FgYellow).Sprint(status)
		}
	}

	suffix := ""
	if step.Result != nil && step.Result.UsedFallback {
		suffix = fmt.Sprintf(" (via fallback %d)", step.Result.FallbackIndex+1)
	}
	cl.writer.Write([]byte(fmt.Sprintf("[%s] Step %d (%s): %s%s\n",
		timestamp(), step.Index+1, step.Title, status, suffix)))
}

// LogPlanSummary logs the planned task with per-step risk badges at INFO
// level.
func (cl *ConsoleLogger) LogPlanSummary(task *models.Task, insights *models.PlanningInsights) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var output string

	header := fmt.Sprintf("=== Plan: %s ===", task.Title)
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
	}
	output = fmt.Sprintf("[%s] %s\n", ts, header)

	for i := range task.Steps {
		step := &task.Steps[i]
		badge := "?"
		if step.Confidence != nil {
			badge = fmt.Sprintf("%d %s", step.Confidence.Score, step.Confidence.Risk)
			if cl.colorOutput {
				switch step.Confidence.Risk {
				case models.RiskLow:
					badge = color.New(color.FgGreen).Sprint(badge)
				case models.RiskMedium:
					badge = color.New(color.FgYellow).Sprint(badge)
				case models.RiskHigh:
					badge = color.New(color.FgRed).Sprint(badge)
				}
			}
		}
		gate := ""
		if step.RequiresApproval {
			gate = " [approval]"
		}
		output += fmt.Sprintf("[%s]   %d. %s [%s]%s (%d fallbacks)\n",
			ts, i+1, step.Title, badge, gate, len(step.Fallbacks))
	}

	if insights != nil {
		output += fmt.Sprintf("[%s] Overall confidence: %.0f, estimated success rate: %.0f%%, %d high-risk, %d memory-backed\n",
			ts, insights.OverallConfidence, insights.EstimatedSuccessRate,
			insights.HighRiskSteps, insights.MemoryBackedSteps)
	}

	cl.writer.Write([]byte(output))
}

// LogSummary logs the execution summary with completion statistics at INFO
// level.
func (cl *ConsoleLogger) LogSummary(result models.ExecutionResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var output string

	header := "=== Execution Summary ==="
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
	}
	output = fmt.Sprintf("[%s] %s\n", ts, header)
	output += fmt.Sprintf("[%s] Status: %s\n", ts, result.FinalStatus)
	output += fmt.Sprintf("[%s] Total steps: %d\n", ts, result.TotalSteps)

	completed := fmt.Sprintf("Completed: %d", result.Completed)
	if cl.colorOutput {
		completed = color.New(color.FgGreen).Sprint(completed)
	}
	output += fmt.Sprintf("[%s] %s\n", ts, completed)

	if result.Failed > 0 {
		failed := fmt.Sprintf("Failed: %d", result.Failed)
		if cl.colorOutput {
			failed = color.New(color.FgRed).Sprint(failed)
		}
		output += fmt.Sprintf("[%s] %s\n", ts, failed)
		for _, step := range result.FailedSteps {
			msg := ""
			if step.Result != nil {
				msg = ": " + step.Result.Error
			}
			output += fmt.Sprintf("[%s]   - %s%s\n", ts, step.Title, msg)
		}
	} else {
		output += fmt.Sprintf("[%s] Failed: 0\n", ts)
	}
	if result.Skipped > 0 {
		output += fmt.Sprintf("[%s] Skipped: %d\n", ts, result.Skipped)
	}
	output += fmt.Sprintf("[%s] Duration: %s\n", ts, formatDuration(result.Duration))

	cl.writer.Write([]byte(output))
}

// timestamp returns the current time formatted as "15:04:05".
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a duration to a compact human-readable string.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// NoOpLogger discards all log messages. Useful for tests or when logging is
// disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogTrace is a no-op implementation.
func (n *NoOpLogger) LogTrace(message string) {}

// LogDebug is a no-op implementation.
func (n *NoOpLogger) LogDebug(message string) {}

// LogInfo is a no-op implementation.
func (n *NoOpLogger) LogInfo(message string) {}

// LogWarn is a no-op implementation.
func (n *NoOpLogger) LogWarn(message string) {}

// LogError is a no-op implementation.
func (n *NoOpLogger) LogError(message string) {}
