// Package okx is a client for the OKX v5 REST and WebSocket APIs.
//
// Client signs and dispatches REST requests. Its endpoint methods validate
// query parameters locally and return the decoded body untouched; the typed
// helpers (Candlesticks, OrderBook, Trades) unwrap the code/msg envelope and
// decode records with exact decimal arithmetic.
//
// WSClient opens one socket per channel subscription, logging in first when
// the channel is private.
//
// OKX API Documentation: https://www.okx.com/docs-v5/en/
package okx
