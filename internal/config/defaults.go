package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultNetwork       = "testnet"
	DefaultAPITimeout    = 30 * time.Second
	DefaultRestPool      = 4
	DefaultWebSocketPool = 6
	DefaultCallbackPool  = 4
	DefaultRenewInterval = 30 * time.Minute
	DefaultLogLevel      = "info"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 28
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 10
	DefaultMinConns      = 2
	DefaultRecorderTable = "stream_messages"
	DefaultBatchSize     = 1000
	DefaultFlushInterval = 1 * time.Second
	DefaultBufferSize    = 10000
)

// ApplyDefaults fills every unset optional field.
func (c *FileConfig) ApplyDefaults() {
	if c.Network == "" {
		c.Network = DefaultNetwork
	}

	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}

	// Pool defaults
	if c.Pools.Rest == 0 {
		c.Pools.Rest = DefaultRestPool
	}
	if c.Pools.WebSocket == 0 {
		c.Pools.WebSocket = DefaultWebSocketPool
	}
	if c.Pools.Callbacks == 0 {
		c.Pools.Callbacks = DefaultCallbackPool
	}

	if c.UserStream.RenewInterval == 0 {
		c.UserStream.RenewInterval = DefaultRenewInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Recorder defaults
	applyDBDefaults(&c.Recorder.Database)
	if c.Recorder.Table == "" {
		c.Recorder.Table = DefaultRecorderTable
	}
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
