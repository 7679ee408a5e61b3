// Package recorder persists stream results to PostgreSQL.
//
// A Recorder's Handler is passed to exchange.Client.StartWebSocket. Each
// result becomes one row (stream, event type, event time, receive time, raw
// payload as jsonb, error text), accumulated in memory and inserted in
// batches with pgx.Batch. Rows are append-only.
package recorder
