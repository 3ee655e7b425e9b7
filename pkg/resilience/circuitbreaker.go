package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ydkdan6/poly-com-ai/pkg/logger"
)

// ErrCircuitOpen is returned by Execute while the breaker is short-circuiting calls
var ErrCircuitOpen = errors.New("circuit open")

// State is the current state of a circuit breaker
type State string

const (
	// StateClosed lets every call through
	StateClosed State = "closed"
	// StateOpen rejects calls until the retry timeout expires
	StateOpen State = "open"
	// StateHalfOpen lets a limited number of trial calls through
	StateHalfOpen State = "half-open"
)

// Config holds configuration for a circuit breaker
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
	// IsFailure decides which errors count against the breaker. Nil counts every error.
	IsFailure func(error) bool
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}
}

// CircuitBreaker fails fast after repeated upstream failures. It never retries.
type CircuitBreaker struct {
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
	mutex sync.Mutex

	state           State
	failureCount    uint
	successCount    uint
	lastFailureTime time.Time
	nextAttemptTime time.Time

	totalRequests    uint64
	totalFailures    uint64
	totalRejected    uint64
	openCircuitCount uint64

	onStateChange func(name string, from, to State)
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(cfg Config, log *logger.Logger) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		state: StateClosed,
	}
}

// OnStateChange registers a callback invoked, under the breaker's lock, on every transition
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn unless the circuit is open, in which case it returns ErrCircuitOpen
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allowRequest() {
		cb.log.Warn("Circuit breaker preventing request",
			"name", cb.cfg.Name,
			"state", string(cb.GetState()),
		)
		return ErrCircuitOpen
	}

	startTime := cb.now()
	err := fn(ctx)

	if err != nil && cb.countsAsFailure(err) {
		cb.recordFailure()
		cb.log.Warn("Circuit breaker recorded failure",
			"name", cb.cfg.Name,
			"error", err.Error(),
			"duration", cb.now().Sub(startTime).String(),
		)
		return err
	}

	cb.recordSuccess()
	return err
}

func (cb *CircuitBreaker) countsAsFailure(err error) bool {
	// a caller that gave up is not the upstream's fault
	if errors.Is(err, context.Canceled) {
		return false
	}
	if cb.cfg.IsFailure == nil {
		return true
	}
	return cb.cfg.IsFailure(err)
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().After(cb.nextAttemptTime) {
			cb.transition(StateHalfOpen)
			cb.successCount = 0
			return true
		}
	case StateHalfOpen:
		if cb.successCount < cb.cfg.SuccessThreshold {
			return true
		}
	}

	cb.totalRejected++
	return false
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.failureCount = 0
			cb.successCount = 0
			cb.transition(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalFailures++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.openCircuitCount++
	cb.nextAttemptTime = cb.now().Add(cb.cfg.RetryTimeout)
	cb.transition(StateOpen)

	cb.log.Info("Circuit breaker opened",
		"name", cb.cfg.Name,
		"failures", cb.failureCount,
		"nextAttempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

// transition must be called with the mutex held
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to != StateOpen {
		cb.log.Info("Circuit breaker "+string(to), "name", cb.cfg.Name)
	}
	if cb.onStateChange != nil {
		cb.onStateChange(cb.cfg.Name, from, to)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// GetMetrics returns counters for the health endpoint
func (cb *CircuitBreaker) GetMetrics() map[string]interface{} {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return map[string]interface{}{
		"name":               cb.cfg.Name,
		"state":              string(cb.state),
		"total_requests":     cb.totalRequests,
		"total_failures":     cb.totalFailures,
		"total_rejected":     cb.totalRejected,
		"open_circuit_count": cb.openCircuitCount,
		"last_failure_time":  cb.lastFailureTime,
	}
}
