package core

import (
	"errors"
	"fmt"
	"time"
)

// Exchange is the identifier stamped on every error raised by this module.
const Exchange = "okx"

// ErrorType represents the category of an exchange error.
type ErrorType int

// Error type constants categorize errors for proper handling.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeConfig indicates a missing or invalid construction-time setting.
	ErrorTypeConfig
	// ErrorTypeValidation indicates an unknown or malformed request parameter.
	ErrorTypeValidation
	// ErrorTypeProtocol indicates the peer or the caller broke the wire protocol.
	ErrorTypeProtocol
	// ErrorTypeParse indicates a record could not be decoded from wire data.
	ErrorTypeParse
	// ErrorTypeNetwork indicates a network connectivity issue.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates the request exceeded its deadline.
	ErrorTypeTimeout
	// ErrorTypeRateLimit indicates rate limit was exceeded.
	ErrorTypeRateLimit
	// ErrorTypeAuthentication indicates invalid or expired credentials.
	ErrorTypeAuthentication
	// ErrorTypeBadRequest indicates the exchange rejected request parameters.
	ErrorTypeBadRequest
	// ErrorTypeNotFound indicates the requested resource does not exist.
	ErrorTypeNotFound
	// ErrorTypeServerError indicates a server-side error.
	ErrorTypeServerError
	// ErrorTypeInvalidSymbol indicates the instrument is not recognized.
	ErrorTypeInvalidSymbol
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	names := [...]string{
		"UNKNOWN",
		"CONFIG",
		"VALIDATION",
		"PROTOCOL",
		"PARSE",
		"NETWORK",
		"TIMEOUT",
		"RATE_LIMIT",
		"AUTHENTICATION",
		"BAD_REQUEST",
		"NOT_FOUND",
		"SERVER_ERROR",
		"INVALID_SYMBOL",
	}
	if t < 0 || int(t) >= len(names) {
		return "UNKNOWN"
	}
	return names[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrStreamClosed is returned when reading from a closed subscription.
	ErrStreamClosed = errors.New("stream is closed")
	// ErrNoCredentials is returned when a private operation has no secret to sign with.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrInvalidChannel is returned for channel names outside the public and private tables.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrUnexpectedData is returned when a stream frame does not carry exactly one data element.
	ErrUnexpectedData = errors.New("unexpected data cardinality")
	// ErrSubscribeRejected is returned when the server answers a subscribe with an error event.
	ErrSubscribeRejected = errors.New("subscription rejected")
)

// ExchangeError represents a structured error raised by the client or returned by OKX.
type ExchangeError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code from the response, zero for local errors.
	StatusCode int `json:"status_code"`
	// Code is the OKX error code or one of the ErrorCode constants.
	Code string `json:"code"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// Exchange identifies which exchange the error relates to.
	Exchange string `json:"exchange"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface for ExchangeError.
func (e *ExchangeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (%d/%s): %s",
			e.Exchange, e.Type, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("[%s] %s (%d): %s",
		e.Exchange, e.Type, e.StatusCode, msg)
}

// Unwrap returns the underlying cause so errors.Is can reach sentinels.
func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// WithCode sets the error code and returns the error for chaining.
func (e *ExchangeError) WithCode(code ErrorCode) *ExchangeError {
	e.Code = string(code)
	return e
}

// Wrap sets the underlying cause and returns the error for chaining.
func (e *ExchangeError) Wrap(err error) *ExchangeError {
	e.Err = err
	return e
}

// NewExchangeError creates a new ExchangeError with the specified details.
// The timestamp is automatically set to the current time.
func NewExchangeError(exchange string, errorType ErrorType, statusCode int, message string) *ExchangeError {
	return &ExchangeError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Exchange:   exchange,
		Timestamp:  time.Now(),
	}
}

// NewExchangeErrorWithCode creates a new ExchangeError including an exchange-specific error code.
func NewExchangeErrorWithCode(exchange string, errorType ErrorType, statusCode int, code, message string) *ExchangeError {
	e := NewExchangeError(exchange, errorType, statusCode, message)
	e.Code = code
	return e
}

// NewConfigError reports a construction-time configuration problem.
func NewConfigError(format string, args ...any) *ExchangeError {
	return NewExchangeError(Exchange, ErrorTypeConfig, 0, fmt.Sprintf(format, args...)).WithCode(ErrCodeInvalidConfig)
}

// NewValidationError reports a rejected request parameter. No I/O has happened when it is returned.
func NewValidationError(format string, args ...any) *ExchangeError {
	return NewExchangeError(Exchange, ErrorTypeValidation, 0, fmt.Sprintf(format, args...)).WithCode(ErrCodeInvalidParam)
}

// NewProtocolError reports a wire protocol violation.
func NewProtocolError(err error, format string, args ...any) *ExchangeError {
	return NewExchangeError(Exchange, ErrorTypeProtocol, 0, fmt.Sprintf(format, args...)).Wrap(err)
}

// NewParseError reports wire data that could not be decoded into a record.
func NewParseError(err error, format string, args ...any) *ExchangeError {
	return NewExchangeError(Exchange, ErrorTypeParse, 0, fmt.Sprintf(format, args...)).WithCode(ErrCodeParse).Wrap(err)
}

func isType(err error, t ErrorType) bool {
	var e *ExchangeError
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsConfigError returns true if the error is a configuration error.
func IsConfigError(err error) bool { return isType(err, ErrorTypeConfig) }

// IsValidationError returns true if a request parameter was rejected before any I/O.
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsProtocolError returns true if the error is a wire protocol violation.
func IsProtocolError(err error) bool { return isType(err, ErrorTypeProtocol) }

// IsParseError returns true if wire data could not be decoded.
func IsParseError(err error) bool { return isType(err, ErrorTypeParse) }

// IsNetworkError returns true if the error is a network connectivity issue.
func IsNetworkError(err error) bool { return isType(err, ErrorTypeNetwork) }

// IsTimeoutError returns true if the error is a timeout.
func IsTimeoutError(err error) bool { return isType(err, ErrorTypeTimeout) }

// IsRateLimitError returns true if the error is a rate limit violation.
func IsRateLimitError(err error) bool { return isType(err, ErrorTypeRateLimit) }

// IsAuthenticationError returns true if the error is an authentication failure.
// Authentication errors require credential validation and are not retryable.
func IsAuthenticationError(err error) bool { return isType(err, ErrorTypeAuthentication) }

// IsTerminalError returns true if retrying the same request cannot succeed.
func IsTerminalError(err error) bool {
	var e *ExchangeError
	if !errors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrorTypeConfig, ErrorTypeValidation, ErrorTypeParse,
		ErrorTypeAuthentication, ErrorTypeNotFound, ErrorTypeInvalidSymbol:
		return true
	}
	return false
}
