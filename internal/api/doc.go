// Package api defines the request and result model shared by the REST and
// WebSocket sessions.
//
// REST endpoints:
//   - Production: https://fapi.binance.com
//   - Test net: https://testnet.binancefuture.com
//
// WebSocket endpoints:
//   - Production: wss://fstream.binance.com/ws/<stream>
//   - Test net: wss://stream.binancefuture.com/ws/<stream>
//
// Signed requests carry timestamp and signature query parameters; see BuildPath.
package api
