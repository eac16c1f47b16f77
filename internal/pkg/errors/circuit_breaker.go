package errors

import (
	"context"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed allows requests to pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen blocks all requests.
	CircuitOpen
	// CircuitHalfOpen allows a single probe request.
	CircuitHalfOpen
)

// String returns the string representation of CircuitState.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig contains configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of recorded failures that opens the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a probe is allowed.
	ResetTimeout time.Duration
	// MonitoringPeriod forgets failures older than this while closed. Zero disables it.
	MonitoringPeriod time.Duration
	// HalfOpenMaxRequests is the number of probes allowed in half-open state.
	HalfOpenMaxRequests int
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the default circuit breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:    5,
		ResetTimeout:        60 * time.Second,
		MonitoringPeriod:    0,
		HalfOpenMaxRequests: 1,
	}
}

// CircuitBreakerStats is a point-in-time copy of the breaker counters.
type CircuitBreakerStats struct {
	State            CircuitState
	FailureCount     int
	SuccessCount     int
	TotalRequests    int
	LastFailureTime  time.Time
	FailureThreshold int
	Timeout          time.Duration
	MonitoringPeriod time.Duration
}

// SuccessRate returns the percentage of successful requests, 0 when none were made.
func (s CircuitBreakerStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalRequests) * 100
}

// CircuitBreaker implements the circuit breaker pattern.
//
// The gate check and the result bookkeeping take the lock separately, so a failure
// recorded by one in-flight call can open the circuit while a sibling call that
// already passed the gate is still running. Callers must not rely on the state
// staying put across the call.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu               sync.RWMutex
	state            CircuitState
	failureCount     int
	successCount     int
	totalRequests    int
	lastFailureTime  time.Time
	halfOpenRequests int
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultCircuitBreakerConfig().FailureThreshold
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		config: config,
		now:    now,
		state:  CircuitClosed,
	}
}

// ErrCircuitOpen is returned when the circuit rejects a call.
var ErrCircuitOpen = &AppError{
	Code:       ErrCircuitBreakerOpen,
	Message:    "circuit breaker is OPEN",
	Suggestion: "The provider failed repeatedly; wait a moment and try again",
}

// Execute runs fn through the circuit breaker.
// Errors returned by fn are passed back unchanged. A panic in fn is recovered,
// counted as a failure and returned as a *PanicError.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		cb.afterRequest(err)
	}()

	return fn(ctx)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	var transitioned bool
	defer func() {
		cb.mu.Unlock()
		if transitioned {
			cb.notify(CircuitOpen, CircuitHalfOpen)
		}
	}()

	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.config.ResetTimeout {
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.halfOpenRequests = 1
		transitioned = true
		return nil

	case CircuitHalfOpen:
		if cb.halfOpenRequests >= cb.config.HalfOpenMaxRequests {
			return ErrCircuitOpen
		}
		cb.halfOpenRequests++
		return nil
	}

	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	from := cb.state
	if err == nil {
		cb.onSuccess()
	} else {
		cb.onFailure()
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.successCount++
	cb.totalRequests++

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.failureCount = 0
		cb.halfOpenRequests = 0
	}
}

func (cb *CircuitBreaker) onFailure() {
	now := cb.now()

	if cb.state == CircuitClosed && cb.config.MonitoringPeriod > 0 &&
		!cb.lastFailureTime.IsZero() && now.Sub(cb.lastFailureTime) >= cb.config.MonitoringPeriod {
		cb.failureCount = 0
	}

	cb.failureCount++
	cb.totalRequests++
	cb.lastFailureTime = now

	switch cb.state {
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.halfOpenRequests = 0
	case CircuitClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
		}
	}
}

func (cb *CircuitBreaker) notify(from, to CircuitState) {
	LogCircuitBreaker(from, to, cb.FailureCount())
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats returns a snapshot of the breaker counters.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return CircuitBreakerStats{
		State:            cb.state,
		FailureCount:     cb.failureCount,
		SuccessCount:     cb.successCount,
		TotalRequests:    cb.totalRequests,
		LastFailureTime:  cb.lastFailureTime,
		FailureThreshold: cb.config.FailureThreshold,
		Timeout:          cb.config.ResetTimeout,
		MonitoringPeriod: cb.config.MonitoringPeriod,
	}
}

// Reset forces the circuit closed and zeroes every counter.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = CircuitClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.totalRequests = 0
	cb.lastFailureTime = time.Time{}
	cb.halfOpenRequests = 0
	cb.mu.Unlock()

	if from != CircuitClosed {
		cb.notify(from, CircuitClosed)
	}
}

// FailureCount returns the number of failures counted toward the threshold.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failureCount
}
