package okx

import "okxapi/pkg/core"

// Visibility selects the public or private websocket namespace.
type Visibility int

const (
	Public Visibility = iota
	Private
)

func (v Visibility) String() string {
	if v == Private {
		return "private"
	}
	return "public"
}

// Channel names used by the typed stream helpers.
const (
	ChannelTrades    = "trades"
	ChannelCandle1D  = "candle1D"
	ChannelBooks     = "books"
	ChannelTickers   = "tickers"
	ChannelOrders    = "orders"
	ChannelAccount   = "account"
	ChannelPositions = "positions"
)

var publicChannels = map[string]struct{}{
	"books":               {},
	"candle1D":            {},
	"estimated-price":     {},
	"funding-rate":        {},
	"index-candle30m":     {},
	"index-tickers":       {},
	"instruments":         {},
	"mark-price":          {},
	"mark-price-candle1D": {},
	"open-interest":       {},
	"opt-summary":         {},
	"price-limit":         {},
	"status":              {},
	"tickers":             {},
	"trades":              {},
}

var privateChannels = map[string]struct{}{
	"account":              {},
	"balance_and_position": {},
	"orders":               {},
	"orders-algo":          {},
	"positions":            {},
}

// ChannelVisibility looks name up in the channel tables.
func ChannelVisibility(name string) (Visibility, error) {
	if _, ok := publicChannels[name]; ok {
		return Public, nil
	}
	if _, ok := privateChannels[name]; ok {
		return Private, nil
	}
	return 0, core.NewProtocolError(core.ErrInvalidChannel, "channel %q", name).WithCode(core.ErrCodeInvalidChannel)
}
