package core

import "errors"

// ErrorCode represents a client-side error identifier.
// OKX codes are carried verbatim in ExchangeError.Code; these cover errors raised locally.
type ErrorCode string

const (
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeInvalidParam  ErrorCode = "INVALID_PARAM"
	ErrCodeParse         ErrorCode = "PARSE_ERROR"

	// Stream/WebSocket errors
	ErrCodeInvalidChannel ErrorCode = "INVALID_CHANNEL"
	ErrCodeUnexpectedData ErrorCode = "UNEXPECTED_DATA"
	ErrCodeStreamClosed   ErrorCode = "STREAM_CLOSED"
	ErrCodeHandshake      ErrorCode = "HANDSHAKE_FAILED"

	ErrCodeNoCredentials ErrorCode = "NO_CREDENTIALS"
)

// IsErrorCode checks if the error matches the specified error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return ErrorCode(exErr.Code) == code
	}
	return false
}
