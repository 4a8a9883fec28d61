package okx

import (
	"context"
	"iter"

	"okxapi/pkg/core"
)

// REST paths.
const (
	PathAccountPositionRisk = "/api/v5/account/account-position-risk"
	PathAccountBalance      = "/api/v5/account/balance"
	PathAccountPositions    = "/api/v5/account/positions"
	PathAccountBills        = "/api/v5/account/bills"

	PathMarketTickers          = "/api/v5/market/tickers"
	PathMarketTicker           = "/api/v5/market/ticker"
	PathMarketIndexTickers     = "/api/v5/market/index-tickers"
	PathMarketBooks            = "/api/v5/market/books"
	PathMarketCandles          = "/api/v5/market/candles"
	PathMarketHistoryCandles   = "/api/v5/market/history-candles"
	PathMarketIndexCandles     = "/api/v5/market/index-candles"
	PathMarketMarkPriceCandles = "/api/v5/market/mark-price-candles"
	PathMarketTrades           = "/api/v5/market/trades"
	PathMarketPlatformVolume   = "/api/v5/market/platform-24-volume"
	PathMarketOracle           = "/api/v5/market/oracle"
)

// opt maps a zero value to nil so BuildQuery drops it.
func opt[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}

func optList(v []string) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (c *Client) query(ctx context.Context, path string, params ...Param) (Response, error) {
	q, err := BuildQuery(params...)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, path, q)
}

// AccountPositionRisk returns account and position risk. instType may be empty.
func (c *Client) AccountPositionRisk(ctx context.Context, instType string) (Response, error) {
	return c.query(ctx, PathAccountPositionRisk, P("instType", opt(instType)))
}

// Balance returns balances, one summary per currency when currencies are given.
func (c *Client) Balance(ctx context.Context, currencies ...string) (Response, error) {
	return c.query(ctx, PathAccountBalance, P("ccy", optList(currencies)))
}

// PositionsParams filters open positions. Empty fields are omitted.
type PositionsParams struct {
	InstType string
	InstID   string
	// PosIDs accepts at most 20 IDs.
	PosIDs []string
}

// Positions returns open positions.
func (c *Client) Positions(ctx context.Context, p PositionsParams) (Response, error) {
	return c.query(ctx, PathAccountPositions,
		P("instType", opt(p.InstType)),
		P("instId", opt(p.InstID)),
		P("posId", optList(p.PosIDs)),
	)
}

// BillsParams filters the last seven days of account bills. After and Before are bill IDs.
type BillsParams struct {
	InstType string
	Ccy      string
	MgnMode  string
	CtType   string
	Type     int
	SubType  int
	After    string
	Before   string
	Limit    int
}

// Bills returns account bills for the last seven days.
func (c *Client) Bills(ctx context.Context, p BillsParams) (Response, error) {
	return c.query(ctx, PathAccountBills,
		P("instType", opt(p.InstType)),
		P("ccy", opt(p.Ccy)),
		P("mgnMode", opt(p.MgnMode)),
		P("ctType", opt(p.CtType)),
		P("type", opt(p.Type)),
		P("subType", opt(p.SubType)),
		P("after", opt(p.After)),
		P("before", opt(p.Before)),
		P("limit", opt(p.Limit)),
	)
}

// Tickers returns 24h summaries for every instrument of instType. uly narrows derivatives.
func (c *Client) Tickers(ctx context.Context, instType, uly string) (Response, error) {
	return c.query(ctx, PathMarketTickers, P("instType", instType), P("uly", opt(uly)))
}

// Ticker returns the latest ticker for one instrument. instID is required.
func (c *Client) Ticker(ctx context.Context, instID string) (Response, error) {
	q, err := BuildQuery(P("instId", opt(instID)))
	if err != nil {
		return nil, err
	}
	if err := q.Require("instId"); err != nil {
		return nil, err
	}
	return c.Get(ctx, PathMarketTicker, q)
}

// IndexTickers needs at least one of quoteCcy or instID.
func (c *Client) IndexTickers(ctx context.Context, quoteCcy, instID string) (Response, error) {
	q, err := BuildQuery(P("quoteCcy", opt(quoteCcy)), P("instId", opt(instID)))
	if err != nil {
		return nil, err
	}
	if err := q.RequireAny("quoteCcy", "instId"); err != nil {
		return nil, err
	}
	return c.Get(ctx, PathMarketIndexTickers, q)
}

// Books returns the raw order book. depth is per side, at most 400; zero uses the server default.
func (c *Client) Books(ctx context.Context, instID string, depth int) (Response, error) {
	q, err := bookQuery(instID, depth)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, PathMarketBooks, q)
}

// OrderBook returns the first book snapshot, typed.
func (c *Client) OrderBook(ctx context.Context, instID string, depth int) (*OrderBook, error) {
	q, err := bookQuery(instID, depth)
	if err != nil {
		return nil, err
	}
	books, err := fetch[[]OrderBookData](ctx, c, PathMarketBooks, q)
	if err != nil {
		return nil, err
	}
	if len(books) != 1 {
		return nil, core.NewProtocolError(core.ErrUnexpectedData, "books returned %d snapshots, want 1", len(books))
	}
	book, err := NewOrderBook(&books[0])
	if err != nil {
		return nil, err
	}
	return book, nil
}

func bookQuery(instID string, depth int) (*Query, error) {
	q, err := BuildQuery(P("instId", opt(instID)), P("sz", opt(depth)))
	if err != nil {
		return nil, err
	}
	return q, q.Require("instId")
}

// CandleParams selects a page of candles. After returns records older than
// the given ms timestamp, Before newer ones. Zero fields are omitted.
type CandleParams struct {
	InstID string
	Bar    string
	After  int64
	Before int64
	Limit  int
}

func (p CandleParams) query() (*Query, error) {
	q, err := BuildQuery(
		P("instId", opt(p.InstID)),
		P("after", opt(p.After)),
		P("before", opt(p.Before)),
		P("bar", opt(p.Bar)),
		P("limit", opt(p.Limit)),
	)
	if err != nil {
		return nil, err
	}
	return q, q.Require("instId")
}

func (c *Client) candles(ctx context.Context, path string, p CandleParams) (Response, error) {
	q, err := p.query()
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, path, q)
}

// Candles returns the raw candlestick response for recent bars.
func (c *Client) Candles(ctx context.Context, p CandleParams) (Response, error) {
	return c.candles(ctx, PathMarketCandles, p)
}

// HistoryCandles returns raw candlesticks from recent years.
func (c *Client) HistoryCandles(ctx context.Context, p CandleParams) (Response, error) {
	return c.candles(ctx, PathMarketHistoryCandles, p)
}

// IndexCandles returns raw index price candlesticks.
func (c *Client) IndexCandles(ctx context.Context, p CandleParams) (Response, error) {
	return c.candles(ctx, PathMarketIndexCandles, p)
}

// MarkPriceCandles returns raw mark price candlesticks.
func (c *Client) MarkPriceCandles(ctx context.Context, p CandleParams) (Response, error) {
	return c.candles(ctx, PathMarketMarkPriceCandles, p)
}

// Candlesticks is Candles decoded into records, newest first as OKX sends them.
func (c *Client) Candlesticks(ctx context.Context, p CandleParams) ([]*Candlestick, error) {
	return c.candlesticks(ctx, PathMarketCandles, p)
}

// HistoryCandlesticks is HistoryCandles decoded into records.
func (c *Client) HistoryCandlesticks(ctx context.Context, p CandleParams) ([]*Candlestick, error) {
	return c.candlesticks(ctx, PathMarketHistoryCandles, p)
}

func (c *Client) candlesticks(ctx context.Context, path string, p CandleParams) ([]*Candlestick, error) {
	q, err := p.query()
	if err != nil {
		return nil, err
	}
	rows, err := fetch[[][]string](ctx, c, path, q)
	if err != nil {
		return nil, err
	}
	return ParseCandlesticks(rows)
}

// MarketTrades returns the raw recent trades response.
func (c *Client) MarketTrades(ctx context.Context, instID string, limit int) (Response, error) {
	q, err := tradesQuery(instID, limit)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, PathMarketTrades, q)
}

// Trades yields recent trades, newest first. Iteration stops at the first error.
func (c *Client) Trades(ctx context.Context, instID string, limit int) iter.Seq2[*Trade, error] {
	return func(yield func(*Trade, error) bool) {
		q, err := tradesQuery(instID, limit)
		if err != nil {
			yield(nil, err)
			return
		}
		rows, err := fetch[[]TradeData](ctx, c, PathMarketTrades, q)
		if err != nil {
			yield(nil, err)
			return
		}
		for i := range rows {
			trade, err := NewTrade(&rows[i])
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(trade, nil) {
				return
			}
		}
	}
}

func tradesQuery(instID string, limit int) (*Query, error) {
	q, err := BuildQuery(P("instId", opt(instID)), P("limit", opt(limit)))
	if err != nil {
		return nil, err
	}
	return q, q.Require("instId")
}

// PlatformVolume returns the rolling 24h platform volume in USD and CNY.
func (c *Client) PlatformVolume(ctx context.Context) (Response, error) {
	return c.Get(ctx, PathMarketPlatformVolume, nil)
}

// Oracle returns signed prices in the Open Oracle format.
func (c *Client) Oracle(ctx context.Context) (Response, error) {
	return c.Get(ctx, PathMarketOracle, nil)
}
