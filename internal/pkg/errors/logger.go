package errors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled logger that stays quiet unless verbose mode is on.
type Logger struct {
	mu      sync.Mutex
	sugar   *zap.SugaredLogger
	level   zap.AtomicLevel
	verbose bool
}

// levelFirstEncoder prints [LEVEL] followed by a short timestamp.
func levelFirstEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
	enc.AppendString(time.Now().Format("15:04:05"))
}

var consoleEncoder = zapcore.EncoderConfig{
	TimeKey:     "",
	LevelKey:    "level",
	MessageKey:  "msg",
	EncodeLevel: levelFirstEncoder,
}

var defaultLogger = NewLogger(os.Stderr, false)

// NewLogger creates a logger writing to output. Verbose enables debug output.
func NewLogger(output io.Writer, verbose bool) *Logger {
	l := &Logger{level: zap.NewAtomicLevelAt(levelFor(verbose)), verbose: verbose}
	l.sugar = buildSugar(output, l.level)
	return l
}

func buildSugar(output io.Writer, level zap.AtomicLevel) *zap.SugaredLogger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoder),
		zapcore.AddSync(output),
		level,
	)
	return zap.New(core).Sugar()
}

func levelFor(verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	return zapcore.ErrorLevel
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(verbose bool) {
	defaultLogger.SetVerbose(verbose)
}

// IsVerbose returns whether verbose logging is enabled.
func IsVerbose() bool {
	return defaultLogger.IsVerbose()
}

// SetOutput sets the output writer for the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.sugar = buildSugar(w, defaultLogger.level)
}

// SetVerbose switches the logger between error-only and debug output.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
	l.level.SetLevel(levelFor(verbose))
}

// IsVerbose returns whether verbose logging is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verbose
}

func (l *Logger) logger() *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sugar
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger().Error(SanitizeErrorMessage(fmt.Sprintf(format, args...)))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logger().Warnf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger().Infof(format, args...)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger().Debugf(format, args...)
}

// LogAPIRequest logs an API request in verbose mode.
func (l *Logger) LogAPIRequest(provider, endpoint, model string, promptTokens int) {
	l.logger().Debugw("API request",
		"provider", provider, "endpoint", endpoint, "model", model, "prompt_tokens", promptTokens)
}

// LogAPIResponse logs the outcome of one API call in verbose mode. A failed
// call carries the HTTP status from err when the backend reported one.
func (l *Logger) LogAPIResponse(provider string, responseLength int, duration time.Duration, err error) {
	fields := []interface{}{"provider", provider, "response_length", responseLength, "duration", duration}
	if err == nil {
		l.logger().Debugw("API response", fields...)
		return
	}
	if status := StatusCode(err); status > 0 {
		fields = append(fields, "status", status)
	}
	fields = append(fields, "error", SanitizeErrorMessage(err.Error()))
	l.logger().Debugw("API call failed", fields...)
}

// LogRetry logs a retry attempt in verbose mode.
func (l *Logger) LogRetry(attempt int, maxAttempts int, err error, delay time.Duration) {
	l.logger().Debugf("Retry attempt %d/%d after error: %s (waiting %v)",
		attempt, maxAttempts, SanitizeErrorMessage(err.Error()), delay)
}

// LogCircuitBreaker logs circuit breaker state changes.
func (l *Logger) LogCircuitBreaker(from, to CircuitState, failures int) {
	if to == CircuitOpen {
		l.logger().Warnf("Circuit breaker %s -> %s (failures: %d)", from, to, failures)
		return
	}
	l.logger().Debugf("Circuit breaker %s -> %s (failures: %d)", from, to, failures)
}

// LogChunking logs how a diff was split for the provider.
func (l *Logger) LogChunking(provider string, diffTokens, budget, chunks int) {
	l.logger().Debugw("Diff chunked",
		"provider", provider, "diff_tokens", diffTokens, "budget", budget, "chunks", chunks)
}

// Package-level logging functions using the default logger

// Error logs an error message.
func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

// Info logs an info message.
func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

// LogAPIRequest logs an API request in verbose mode.
func LogAPIRequest(provider, endpoint, model string, promptTokens int) {
	defaultLogger.LogAPIRequest(provider, endpoint, model, promptTokens)
}

// LogAPIResponse logs the outcome of one API call in verbose mode.
func LogAPIResponse(provider string, responseLength int, duration time.Duration, err error) {
	defaultLogger.LogAPIResponse(provider, responseLength, duration, err)
}

// LogRetry logs a retry attempt in verbose mode.
func LogRetry(attempt int, maxAttempts int, err error, delay time.Duration) {
	defaultLogger.LogRetry(attempt, maxAttempts, err, delay)
}

// LogCircuitBreaker logs circuit breaker state changes.
func LogCircuitBreaker(from, to CircuitState, failures int) {
	defaultLogger.LogCircuitBreaker(from, to, failures)
}

// LogChunking logs how a diff was split for the provider.
func LogChunking(provider string, diffTokens, budget, chunks int) {
	defaultLogger.LogChunking(provider, diffTokens, budget, chunks)
}

// MaskAPIKey masks an API key for safe logging, showing only the last 4 characters.
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(apiKey)-4) + apiKey[len(apiKey)-4:]
}
