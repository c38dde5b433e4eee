package collector

import (
	"errors"
	"fmt"
)

// Error classification shared by all adapters. Adapters wrap one of these
// sentinels so the caller can decide what is retryable without knowing each
// broker's failure modes.
var (
	// ErrAuth means bad or expired credentials. Not retryable, the user must
	// fix the configuration.
	ErrAuth = errors.New("authentication failed")
	// ErrRateLimited means the broker throttled the request. Retryable with
	// backoff.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient covers network failures, timeouts and session-handshake
	// failures. Retryable.
	ErrTransient = errors.New("transient network error")
	// ErrProtocol means an unexpected payload shape, usually broker API
	// drift. Not retryable.
	ErrProtocol = errors.New("unexpected payload")
	// ErrConfig means a required credential or account id is missing. Raised
	// before any network call.
	ErrConfig = errors.New("invalid configuration")
)

// BrokerError attributes a failure to a broker and operation.
type BrokerError struct {
	Broker Broker
	Op     string
	Err    error
}

func (e *BrokerError) Error() string { return fmt.Sprintf("%s: %s: %v", e.Broker, e.Op, e.Err) }
func (e *BrokerError) Unwrap() error { return e.Err }

// Errf wraps a formatted error into a BrokerError.
func Errf(b Broker, op, format string, args ...any) *BrokerError {
	return &BrokerError{Broker: b, Op: op, Err: fmt.Errorf(format, args...)}
}

func IsAuth(err error) bool        { return errors.Is(err, ErrAuth) }
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
func IsTransient(err error) bool   { return errors.Is(err, ErrTransient) }
func IsProtocol(err error) bool    { return errors.Is(err, ErrProtocol) }
func IsConfig(err error) bool      { return errors.Is(err, ErrConfig) }

// snippet truncates a raw payload for inclusion in a protocol error. Payloads
// carry balances, never secrets, so a short prefix is safe to surface.
func snippet(raw []byte) string {
	const max = 140
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
