// Package errors provides the error taxonomy, retry policy, circuit breaker and logging for commitwise.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrorCode represents the category of an error.
type ErrorCode int

const (
	// User errors (Exit Code 1)
	ErrNoStagedChanges ErrorCode = iota + 100
	ErrInvalidConfig
	ErrMissingAPIKey
	ErrInvalidArguments
	ErrUnsupportedProvider
)

const (
	// System errors (Exit Code 2)
	ErrGitCommandFailed ErrorCode = iota + 200
	ErrFileSystemError
	ErrConfigCorruption
)

const (
	// External errors (Exit Code 3)
	ErrAIProviderFailed ErrorCode = iota + 300
	ErrNetworkError
	ErrRateLimited
	ErrTimeout
	ErrAuthenticationFailed
	ErrPermissionDenied
	ErrServerError
	ErrPromptTooLarge
	ErrInvalidResponse
	ErrNoValidMessages
	ErrCircuitBreakerOpen
)

// ExitCode returns the appropriate exit code for an error code.
func (c ErrorCode) ExitCode() int {
	switch {
	case c >= 100 && c < 200:
		return 1
	case c >= 200 && c < 300:
		return 2
	case c >= 300:
		return 3
	default:
		return 1
	}
}

var codeNames = map[ErrorCode]string{
	ErrNoStagedChanges:      "NoStagedChanges",
	ErrInvalidConfig:        "InvalidConfig",
	ErrMissingAPIKey:        "MissingAPIKey",
	ErrInvalidArguments:     "InvalidArguments",
	ErrUnsupportedProvider:  "UnsupportedProvider",
	ErrGitCommandFailed:     "GitCommandFailed",
	ErrFileSystemError:      "FileSystemError",
	ErrConfigCorruption:     "ConfigCorruption",
	ErrAIProviderFailed:     "AIProviderFailed",
	ErrNetworkError:         "NetworkError",
	ErrRateLimited:          "RateLimited",
	ErrTimeout:              "Timeout",
	ErrAuthenticationFailed: "AuthenticationFailed",
	ErrPermissionDenied:     "PermissionDenied",
	ErrServerError:          "ServerError",
	ErrPromptTooLarge:       "PromptTooLarge",
	ErrInvalidResponse:      "InvalidResponse",
	ErrNoValidMessages:      "NoValidMessages",
	ErrCircuitBreakerOpen:   "CircuitBreakerOpen",
}

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// AppError represents an application error with context.
type AppError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	Context    map[string]interface{}
	Suggestion string
	RetryAfter time.Duration // For rate limit errors
	StatusCode int           // HTTP status reported by the backend, 0 when not applicable
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error can be retried.
func (e *AppError) IsRetryable() bool {
	switch e.Code {
	case ErrRateLimited, ErrNetworkError, ErrTimeout, ErrServerError:
		return true
	case ErrAIProviderFailed:
		if e.Cause != nil {
			var retryable RetryableError
			if errors.As(e.Cause, &retryable) {
				return retryable.IsRetryable()
			}
		}
		// Unclassified provider failures are retried unless the status says otherwise.
		return !isClientStatus(e.StatusCode)
	default:
		return false
	}
}

// GetRetryAfter returns the duration to wait before retrying.
func (e *AppError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	return 0
}

// HTTPStatus returns the HTTP status code attached to the error.
func (e *AppError) HTTPStatus() int {
	return e.StatusCode
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error.
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// WithStatus records the HTTP status that produced the error.
func (e *AppError) WithStatus(status int) *AppError {
	e.StatusCode = status
	return e
}

// RetryableError is an interface for errors that can be retried.
type RetryableError interface {
	error
	IsRetryable() bool
	GetRetryAfter() time.Duration
}

// StatusCarrier is implemented by errors that know the HTTP status of a failed call.
type StatusCarrier interface {
	HTTPStatus() int
}

var (
	_ RetryableError = (*AppError)(nil)
	_ StatusCarrier  = (*AppError)(nil)
)

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// GetExitCode returns the appropriate exit code for an error.
func GetExitCode(err error) int {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code.ExitCode()
	}
	return 1
}

// StatusCode returns the HTTP status carried anywhere in the error chain, or 0.
func StatusCode(err error) int {
	var carrier StatusCarrier
	if errors.As(err, &carrier) {
		return carrier.HTTPStatus()
	}
	return 0
}

func isClientStatus(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

// IsRetryable checks if an error is worth another attempt.
// Client errors (4xx other than 429) and cancellation are never retried. Classified
// application errors decide for themselves; anything else is assumed transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if isClientStatus(StatusCode(err)) {
		return false
	}
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return true
}

// GetRetryAfter returns the retry-after duration for an error.
func GetRetryAfter(err error) time.Duration {
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.GetRetryAfter()
	}
	return 0
}

// PanicError carries a value recovered from a panicking operation, unchanged.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}

// Common error constructors with suggestions

// NewNoStagedChangesError creates an error for no staged changes.
func NewNoStagedChangesError() *AppError {
	return &AppError{
		Code:       ErrNoStagedChanges,
		Message:    "no staged changes found",
		Suggestion: "Use 'git add <files>' to stage changes before generating a commit message",
	}
}

// NewMissingAPIKeyError creates an error for missing API key.
func NewMissingAPIKeyError(provider string) *AppError {
	return &AppError{
		Code:    ErrMissingAPIKey,
		Message: fmt.Sprintf("API key is required for %s provider", provider),
		Suggestion: fmt.Sprintf("Set your API key using 'commitwise config set providers.%s.api_key <your-key>' "+
			"or set the COMMITWISE_PROVIDERS_%s_API_KEY environment variable", provider, strings.ToUpper(provider)),
	}
}

// NewInvalidConfigError creates an error for invalid configuration.
func NewInvalidConfigError(message string) *AppError {
	return &AppError{
		Code:       ErrInvalidConfig,
		Message:    message,
		Suggestion: "Run 'commitwise config init' to create a valid configuration file",
	}
}

// NewUnsupportedProviderError names the rejected value and the accepted ones.
func NewUnsupportedProviderError(name string, supported []string) *AppError {
	return &AppError{
		Code:       ErrUnsupportedProvider,
		Message:    fmt.Sprintf("unsupported provider %q (supported: %s)", name, strings.Join(supported, ", ")),
		Suggestion: "Pass one of the supported names with --provider or set provider.name in the config file",
	}
}

// NewGitError creates an error for git command failures.
func NewGitError(err error, output string) *AppError {
	appErr := &AppError{
		Code:    ErrGitCommandFailed,
		Message: "git command failed",
		Cause:   err,
	}
	if output != "" {
		appErr.Context = map[string]interface{}{
			"output": output,
		}
	}
	return appErr
}

// NewNetworkError creates an error for connectivity failures.
func NewNetworkError(provider string, err error) *AppError {
	return &AppError{
		Code:       ErrNetworkError,
		Message:    fmt.Sprintf("cannot connect to %s", provider),
		Cause:      err,
		Suggestion: "Please check your network connection and the provider endpoint",
	}
}

// NewRateLimitError creates an error for rate limiting.
func NewRateLimitError(provider string, retryAfter time.Duration) *AppError {
	suggestion := "Please try again later"
	if retryAfter > 0 {
		suggestion = fmt.Sprintf("Please wait %v and try again", retryAfter)
	}
	return &AppError{
		Code:       ErrRateLimited,
		Message:    fmt.Sprintf("rate limit exceeded for %s", provider),
		RetryAfter: retryAfter,
		Suggestion: suggestion,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewTimeoutError creates an error for timeouts.
func NewTimeoutError(err error) *AppError {
	return &AppError{
		Code:       ErrTimeout,
		Message:    "request timed out",
		Cause:      err,
		Suggestion: "Please check your network connection or raise timeout_ms",
	}
}

// NewAuthenticationError creates an error for authentication failures.
func NewAuthenticationError(provider string) *AppError {
	return &AppError{
		Code:       ErrAuthenticationFailed,
		Message:    fmt.Sprintf("authentication failed with %s", provider),
		Suggestion: "Please check your API key is valid and has not expired",
		StatusCode: http.StatusUnauthorized,
	}
}

// NewPermissionError creates an error for authorization failures.
func NewPermissionError(provider string) *AppError {
	return &AppError{
		Code:       ErrPermissionDenied,
		Message:    fmt.Sprintf("access denied by %s", provider),
		Suggestion: "Please check your permissions for the selected model",
		StatusCode: http.StatusForbidden,
	}
}

// NewServerError creates an error for 5xx responses.
func NewServerError(provider string, status int, err error) *AppError {
	return &AppError{
		Code:       ErrServerError,
		Message:    fmt.Sprintf("%s is temporarily unavailable", provider),
		Cause:      err,
		Suggestion: "Please try again in a few moments",
		StatusCode: status,
	}
}

// NewPromptTooLargeError creates an error for prompts that exceed the model context.
func NewPromptTooLargeError(provider string, err error) *AppError {
	return &AppError{
		Code:       ErrPromptTooLarge,
		Message:    fmt.Sprintf("prompt exceeds the %s model context", provider),
		Cause:      err,
		Suggestion: "Stage fewer changes or lower generation.max_diff_tokens",
	}
}

// NewInvalidResponseError creates an error for malformed backend output.
func NewInvalidResponseError(provider string, err error) *AppError {
	return &AppError{
		Code:       ErrInvalidResponse,
		Message:    "invalid response format",
		Cause:      err,
		Suggestion: fmt.Sprintf("The %s backend returned an unexpected payload; try another model", provider),
	}
}

// NewNoValidMessagesError is returned when parsing leaves no usable candidate.
func NewNoValidMessagesError(provider string) *AppError {
	return &AppError{
		Code:       ErrNoValidMessages,
		Message:    "no valid commit messages found",
		Suggestion: fmt.Sprintf("Try again or pick another %s model", provider),
	}
}

// NewAIProviderError creates an error for unclassified provider failures.
func NewAIProviderError(provider string, err error) *AppError {
	return &AppError{
		Code:       ErrAIProviderFailed,
		Message:    fmt.Sprintf("%s provider error", provider),
		Cause:      err,
		Suggestion: "Please check your API key and network connectivity",
	}
}

// ParseRetryAfterHeader parses the Retry-After header value.
// It handles both seconds (integer) and HTTP-date formats.
func ParseRetryAfterHeader(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	return 0
}

// FormatError formats an error for user display.
// API keys and other sensitive data are automatically masked.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr != nil {
		sb.WriteString("Error: ")
		sb.WriteString(SanitizeErrorMessage(appErr.Message))

		if appErr.Cause != nil {
			sb.WriteString("\n  Cause: ")
			sb.WriteString(SanitizeErrorMessage(appErr.Cause.Error()))
		}

		if appErr.Suggestion != "" {
			sb.WriteString("\n  Suggestion: ")
			sb.WriteString(appErr.Suggestion)
		}
	} else {
		sb.WriteString("Error: ")
		sb.WriteString(SanitizeErrorMessage(err.Error()))
	}

	return sb.String()
}

// FormatErrorVerbose formats an error with full details for verbose mode.
func FormatErrorVerbose(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr == nil {
		fmt.Fprintf(&sb, "Error: %v\n", SanitizeErrorMessage(err.Error()))
		sb.WriteString("  Error chain:\n")
		printErrorChain(&sb, err, 2)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Error [%s]: %s\n", appErr.Code.String(), SanitizeErrorMessage(appErr.Message))
	if appErr.StatusCode != 0 {
		fmt.Fprintf(&sb, "  HTTP status: %d\n", appErr.StatusCode)
	}
	if appErr.Cause != nil {
		fmt.Fprintf(&sb, "  Cause: %v\n", SanitizeErrorMessage(appErr.Cause.Error()))
		sb.WriteString("  Error chain:\n")
		printErrorChain(&sb, appErr.Cause, 2)
	}
	if len(appErr.Context) > 0 {
		sb.WriteString("  Context:\n")
		for k, v := range appErr.Context {
			fmt.Fprintf(&sb, "    %s: %v\n", k, SanitizeErrorMessage(fmt.Sprintf("%v", v)))
		}
	}
	if appErr.Suggestion != "" {
		fmt.Fprintf(&sb, "  Suggestion: %s\n", appErr.Suggestion)
	}
	if appErr.RetryAfter > 0 {
		fmt.Fprintf(&sb, "  Retry after: %v\n", appErr.RetryAfter)
	}

	return sb.String()
}

func printErrorChain(sb *strings.Builder, err error, indent int) {
	if err == nil {
		return
	}

	prefix := strings.Repeat("  ", indent)
	fmt.Fprintf(sb, "%s- %T: %v\n", prefix, err, SanitizeErrorMessage(err.Error()))

	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		printErrorChain(sb, unwrapped, indent+1)
	}
}

// SanitizeErrorMessage masks any API keys or sensitive data in error messages.
func SanitizeErrorMessage(msg string) string {
	return apiKeyPattern.ReplaceAllStringFunc(msg, MaskAPIKey)
}

// apiKeyPattern matches OpenAI, DeepSeek and Anthropic style keys.
var apiKeyPattern = regexp.MustCompile(`sk-(?:ant-)?[a-zA-Z0-9_-]{20,}`)
