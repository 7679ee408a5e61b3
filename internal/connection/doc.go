// Package connection implements the per-call sessions that carry REST
// requests and WebSocket subscriptions.
//
// A Factory holds what every session shares: the TLS configuration, the
// credentials used for the API-key header, and transport timeouts. Each
// session is bound to one executor.Context. Its blocking I/O runs on a
// goroutine owned by that context, and every result is posted back to the
// context's loop before being handed to the session's Deliver function.
//
// Stopping the context cancels the session: in-flight HTTP requests are
// aborted and WebSocket connections are closed.
package connection
