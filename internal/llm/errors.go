package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a completion request failed.
type ErrorKind string

// Error kinds produced by Client.Complete
const (
	// KindTransport covers connection-level failures (refused, reset, DNS).
	KindTransport ErrorKind = "transport_error"
	// KindTimeout is returned when a single attempt exceeds its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindRetryableHTTP is a non-2xx status worth retrying (408, 409, 429, 5xx).
	KindRetryableHTTP ErrorKind = "retryable_http_error"
	// KindFatalHTTP is any other non-2xx status.
	KindFatalHTTP ErrorKind = "fatal_http_error"
	// KindMalformedResponse is a 2xx response whose body is not a JSON object.
	KindMalformedResponse ErrorKind = "malformed_response"
)

// ClientError is the error type returned by Client.Complete.
type ClientError struct {
	Kind         ErrorKind
	Message      string
	StatusCode   int            // zero when no response was received
	ResponseJSON map[string]any // parsed error body, nil when unparseable
	Err          error
}

func (e *ClientError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("%s (status_code=%d)", e.Message, e.StatusCode)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *ClientError) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindTimeout, KindRetryableHTTP:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a *ClientError that may succeed on retry.
func IsRetryable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Retryable()
	}
	return false
}

// isRetryableStatus mirrors the statuses most chat-completion gateways use for
// overload, rate limiting and request races.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, 409, 429:
		return true
	}
	return statusCode >= 500 && statusCode <= 599
}
