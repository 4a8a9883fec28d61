package okx

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"okxapi/pkg/core"
)

// decimalCtx rounds half to even, matching how change and spread are reported.
var decimalCtx = apd.Context{
	Precision:   34,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Traps:       apd.DefaultTraps,
	Rounding:    apd.RoundHalfEven,
}

// derivedExponent is the precision of Candlestick.Change and Candlestick.Spread: one decimal place.
const derivedExponent = -1

// ParseEpochMillis converts an epoch-millisecond string into a UTC instant.
// All record timestamps go through it, so every timestamp in this package is UTC.
func ParseEpochMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, core.NewParseError(err, "timestamp %q is not epoch milliseconds", raw)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseDecimal(dest *apd.Decimal, field, s string) error {
	if s == "" {
		return core.NewParseError(nil, "%s is missing", field)
	}
	if _, _, err := apd.BaseContext.SetString(dest, s); err != nil {
		return core.NewParseError(err, "%s %q is not a number", field, s)
	}
	if dest.Form != apd.Finite {
		return core.NewParseError(nil, "%s %q is not a finite number", field, s)
	}
	return nil
}

// Candlestick is one OHLCV bucket.
type Candlestick struct {
	Timestamp time.Time
	Open      apd.Decimal
	High      apd.Decimal
	Low       apd.Decimal
	Close     apd.Decimal
	// Volume is in contracts for derivatives and base currency for spot.
	Volume apd.Decimal
	// VolumeCcy is in quote currency for spot and base currency for derivatives.
	VolumeCcy apd.Decimal

	// VolumeQuote and Confirmed are only set by the nine-field candle format.
	VolumeQuote apd.Decimal
	Confirmed   bool

	// Change is close minus open, rounded to one decimal place.
	Change apd.Decimal
	// Spread is high minus low, rounded to one decimal place.
	Spread apd.Decimal
}

// NewCandlestick parses [ts, o, h, l, c, vol, volCcy]. OKX has since appended
// [volCcyQuote, confirm]; that nine-field form is accepted too, any other arity is an error.
func NewCandlestick(row []string) (*Candlestick, error) {
	if len(row) != 7 && len(row) != 9 {
		return nil, core.NewParseError(nil, "candlestick has %d fields, want 7 or 9", len(row))
	}

	ts, err := ParseEpochMillis(row[0])
	if err != nil {
		return nil, err
	}

	c := &Candlestick{Timestamp: ts}
	fields := []struct {
		name string
		dest *apd.Decimal
	}{
		{"open", &c.Open},
		{"high", &c.High},
		{"low", &c.Low},
		{"close", &c.Close},
		{"vol", &c.Volume},
		{"volCcy", &c.VolumeCcy},
	}
	for i, f := range fields {
		if err := parseDecimal(f.dest, f.name, row[i+1]); err != nil {
			return nil, err
		}
	}

	if len(row) == 9 {
		if err := parseDecimal(&c.VolumeQuote, "volCcyQuote", row[7]); err != nil {
			return nil, err
		}
		switch row[8] {
		case "0":
		case "1":
			c.Confirmed = true
		default:
			return nil, core.NewParseError(nil, "confirm %q is not 0 or 1", row[8])
		}
	}

	if err := roundedDiff(&c.Change, &c.Close, &c.Open); err != nil {
		return nil, err
	}
	if err := roundedDiff(&c.Spread, &c.High, &c.Low); err != nil {
		return nil, err
	}
	return c, nil
}

func roundedDiff(dest, x, y *apd.Decimal) error {
	var diff apd.Decimal
	if _, err := decimalCtx.Sub(&diff, x, y); err != nil {
		return core.NewParseError(err, "subtract %s - %s", x, y)
	}
	if _, err := decimalCtx.Quantize(dest, &diff, derivedExponent); err != nil {
		return core.NewParseError(err, "round %s", &diff)
	}
	return nil
}

func (c *Candlestick) String() string {
	return fmt.Sprintf("Candlestick{ts:%s o:%s h:%s l:%s c:%s}",
		c.Timestamp.Format(time.RFC3339), &c.Open, &c.High, &c.Low, &c.Close)
}

// ParseCandlesticks maps every row through NewCandlestick, failing on the first bad row.
func ParseCandlesticks(rows [][]string) ([]*Candlestick, error) {
	out := make([]*Candlestick, 0, len(rows))
	for i, row := range rows {
		c, err := NewCandlestick(row)
		if err != nil {
			return nil, fmt.Errorf("candlestick %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// TradeData is the wire form of a public trade.
type TradeData struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"`
	Ts      string `json:"ts"`
}

// Trade is a single public fill.
type Trade struct {
	InstrumentID string
	TradeID      string
	Price        apd.Decimal
	Size         apd.Decimal
	Side         core.OrderSide
	Timestamp    time.Time
}

// NewTrade validates and converts a wire trade. Every field is required.
func NewTrade(d *TradeData) (*Trade, error) {
	if d == nil {
		return nil, core.NewParseError(nil, "trade is null")
	}
	if d.InstID == "" {
		return nil, core.NewParseError(nil, "trade instId is missing")
	}
	if d.TradeID == "" {
		return nil, core.NewParseError(nil, "trade tradeId is missing")
	}

	t := &Trade{InstrumentID: d.InstID, TradeID: d.TradeID}
	if err := parseDecimal(&t.Price, "px", d.Px); err != nil {
		return nil, err
	}
	if err := parseDecimal(&t.Size, "sz", d.Sz); err != nil {
		return nil, err
	}
	side, err := core.ParseOrderSide(d.Side)
	if err != nil {
		return nil, core.NewParseError(err, "trade side")
	}
	t.Side = side
	if t.Timestamp, err = ParseEpochMillis(d.Ts); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trade) String() string {
	return fmt.Sprintf("Trade{id:%s ts:%s side:%s px:%s sz:%s}",
		t.InstrumentID, t.Timestamp.Format(time.RFC3339Nano), t.Side, &t.Price, &t.Size)
}

// Order is one order book level.
type Order struct {
	Price apd.Decimal
	Size  apd.Decimal
	// LiquidatedOrders is deprecated by OKX and always 0.
	LiquidatedOrders int64
	NumOrders        int64
}

// NewOrder parses a book level [px, sz, liquidatedOrders, numOrders].
func NewOrder(level []string) (*Order, error) {
	if len(level) != 4 {
		return nil, core.NewParseError(nil, "order book level has %d fields, want 4", len(level))
	}
	o := &Order{}
	if err := parseDecimal(&o.Price, "px", level[0]); err != nil {
		return nil, err
	}
	if err := parseDecimal(&o.Size, "sz", level[1]); err != nil {
		return nil, err
	}
	var err error
	if o.LiquidatedOrders, err = strconv.ParseInt(level[2], 10, 64); err != nil {
		return nil, core.NewParseError(err, "liquidated orders %q", level[2])
	}
	if o.NumOrders, err = strconv.ParseInt(level[3], 10, 64); err != nil {
		return nil, core.NewParseError(err, "order count %q", level[3])
	}
	return o, nil
}

// OrderBookData is the wire form of a book snapshot.
type OrderBookData struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
	Ts   string     `json:"ts"`
}

// OrderBook keeps the server's level order: asks ascending, bids descending.
type OrderBook struct {
	Asks      []*Order
	Bids      []*Order
	Timestamp time.Time
}

// NewOrderBook parses both sides of a snapshot, keeping level order.
func NewOrderBook(d *OrderBookData) (*OrderBook, error) {
	if d == nil {
		return nil, core.NewParseError(nil, "order book is null")
	}
	ts, err := ParseEpochMillis(d.Ts)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels("ask", d.Asks)
	if err != nil {
		return nil, err
	}
	bids, err := parseLevels("bid", d.Bids)
	if err != nil {
		return nil, err
	}
	return &OrderBook{Asks: asks, Bids: bids, Timestamp: ts}, nil
}

func parseLevels(side string, levels [][]string) ([]*Order, error) {
	out := make([]*Order, 0, len(levels))
	for i, level := range levels {
		o, err := NewOrder(level)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", side, i, err)
		}
		out = append(out, o)
	}
	return out, nil
}
