package okx

import (
	"net/http"
	"strconv"

	"okxapi/pkg/core"
)

// mapOKXErrorCode classifies an OKX error code.
// Reference: https://www.okx.com/docs-v5/en/#error-code
func mapOKXErrorCode(code string) core.ErrorType {
	switch code {
	case "50011", "50040", "50061":
		return core.ErrorTypeRateLimit
	case "50004":
		return core.ErrorTypeTimeout
	case "50001", "50013", "50026":
		return core.ErrorTypeServerError
	case "51001", "60018":
		return core.ErrorTypeInvalidSymbol
	case "60009", "60024":
		return core.ErrorTypeAuthentication
	}

	n, err := strconv.Atoi(code)
	if err != nil {
		return core.ErrorTypeUnknown
	}
	switch {
	case n >= 50100 && n < 50200:
		return core.ErrorTypeAuthentication
	case n >= 50000 && n < 60000:
		return core.ErrorTypeBadRequest
	case n >= 60000 && n < 70000:
		return core.ErrorTypeProtocol
	}
	return core.ErrorTypeUnknown
}

// newAPIError builds the error for an OKX envelope with a non-zero code.
func newAPIError(status int, code, msg string) *core.ExchangeError {
	errType := mapOKXErrorCode(code)
	if errType == core.ErrorTypeUnknown {
		switch {
		case status == http.StatusNotFound:
			errType = core.ErrorTypeNotFound
		case status >= http.StatusInternalServerError:
			errType = core.ErrorTypeServerError
		}
	}
	return core.NewExchangeErrorWithCode(core.Exchange, errType, status, code, msg)
}
