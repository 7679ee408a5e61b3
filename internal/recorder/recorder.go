package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/binance-beast/internal/api"
)

// BatchSender sends a batch of queued statements. *pgxpool.Pool satisfies
// it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds recorder configuration.
type Config struct {
	Table         string
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits in memory
	BufferSize    int           // Results queued between handler and writer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:         "stream_messages",
		BatchSize:     1000,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// Metrics counts recorder activity.
type Metrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
	Dropped int64
}

// row is one recorded result.
type row struct {
	Stream     string
	EventType  *string
	EventTime  *int64
	ReceivedAt time.Time
	Payload    []byte
	Error      *string
}

// Recorder buffers results and writes them in batches.
type Recorder struct {
	cfg    Config
	db     BatchSender
	logger *slog.Logger
	insert string

	input   chan row
	dropped atomic.Int64

	// Batching
	batch   []row
	batchMu sync.Mutex
	metrics Metrics

	// Lifecycle. Stop cancels ctx but never writeCtx.
	ctx      context.Context
	writeCtx context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a Recorder.
func New(cfg Config, db BatchSender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.Table == "" {
		cfg.Table = d.Table
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = d.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = d.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = d.BufferSize
	}

	return &Recorder{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "recorder", "table", cfg.Table),
		insert: fmt.Sprintf(
			`INSERT INTO %s (stream, event_type, event_time, received_at, payload, error) VALUES ($1, $2, $3, $4, $5, $6)`,
			pgx.Identifier{cfg.Table}.Sanitize(),
		),
		input: make(chan row, cfg.BufferSize),
		batch: make([]row, 0, cfg.BatchSize),
	}
}

// Handler returns an api.Handler that queues every result for recording.
// Results are dropped, and counted, when the buffer is full.
func (r *Recorder) Handler() api.Handler {
	return func(res api.Result) {
		select {
		case r.input <- transform(res):
		default:
			if r.dropped.Add(1)%1000 == 1 {
				r.logger.Warn("recorder buffer full, dropping results", "dropped", r.dropped.Load())
			}
		}
	}
}

// Start begins consuming results and writing to the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.writeCtx = context.WithoutCancel(r.ctx)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the recorder down and writes what is still buffered, bounded by
// ctx.
func (r *Recorder) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
		return ctx.Err()
	}

	// Drain what the handler queued after the loops exited.
drain:
	for {
		select {
		case rw := <-r.input:
			r.add(ctx, rw)
		default:
			break drain
		}
	}

	if err := r.flush(ctx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}

	r.logger.Info("recorder stopped")
	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	m := r.metrics
	m.Dropped = r.dropped.Load()
	return m
}

func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case rw := <-r.input:
			r.add(r.writeCtx, rw)
		}
	}
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.flush(r.writeCtx)
		}
	}
}

// add appends a row and flushes when the batch is full.
func (r *Recorder) add(ctx context.Context, rw row) {
	r.batchMu.Lock()
	r.batch = append(r.batch, rw)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush(ctx)
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush(ctx context.Context) error {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return nil
	}

	// Take ownership of current batch
	batch := r.batch
	r.batch = make([]row, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	if err := r.batchInsert(ctx, batch); err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return err
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch))
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed stream results",
		"count", len(batch),
		"duration", time.Since(start),
	)
	return nil
}

func (r *Recorder) batchInsert(ctx context.Context, rows []row) error {
	batch := &pgx.Batch{}
	for _, rw := range rows {
		batch.Queue(r.insert, rw.Stream, rw.EventType, rw.EventTime, rw.ReceivedAt, rw.Payload, rw.Error)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// transform converts a Result to a row. Event type and time come from the
// "e" and "E" fields that stream payloads carry.
func transform(res api.Result) row {
	rw := row{
		Stream:     res.Stream,
		ReceivedAt: res.ReceivedAt,
	}
	if rw.ReceivedAt.IsZero() {
		rw.ReceivedAt = time.Now()
	}
	if res.Err != nil {
		msg := res.Err.Error()
		rw.Error = &msg
	}
	if len(res.JSON) == 0 {
		return rw
	}

	rw.Payload = []byte(res.JSON)

	var head struct {
		Type *string `json:"e"`
		Time *int64  `json:"E"`
	}
	if err := json.Unmarshal(res.JSON, &head); err == nil {
		rw.EventType = head.Type
		rw.EventTime = head.Time
	}
	return rw
}
