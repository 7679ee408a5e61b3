package config

import "time"

// FileConfig is the root of the YAML configuration file.
type FileConfig struct {
	Network    string           `yaml:"network"` // "testnet" or "live"
	API        APIConfig        `yaml:"api"`
	Pools      PoolsConfig      `yaml:"pools"`
	UserStream UserStreamConfig `yaml:"user_stream"`
	Logging    LoggingConfig    `yaml:"logging"`
	Recorder   RecorderConfig   `yaml:"recorder"`
}

// APIConfig holds credentials and optional host overrides.
type APIConfig struct {
	Key      string        `yaml:"key"`       // Sent as X-MBX-APIKEY
	Secret   string        `yaml:"secret"`    // HMAC key, never sent
	RestHost string        `yaml:"rest_host"` // host[:port], empty = network default
	WsHost   string        `yaml:"ws_host"`   // host[:port], empty = network default
	Timeout  time.Duration `yaml:"timeout"`
}

// PoolsConfig sizes the execution context pools and the callback pool.
type PoolsConfig struct {
	Rest       int  `yaml:"rest"`
	WebSocket  int  `yaml:"websocket"`
	Callbacks  int  `yaml:"callbacks"`
	PinThreads bool `yaml:"pin_threads"`
}

// UserStreamConfig controls the listen key keep-alive.
type UserStreamConfig struct {
	RenewInterval time.Duration `yaml:"renew_interval"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"` // Optional rotated log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// RecorderConfig controls persisting stream messages to PostgreSQL.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	Table         string        `yaml:"table"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Connection builds the ConnectionConfig described by the file. Call after
// defaults are applied and the file is validated.
func (c *FileConfig) Connection() (ConnectionConfig, error) {
	network, err := ParseNetwork(c.Network)
	if err != nil {
		return ConnectionConfig{}, err
	}

	var cc ConnectionConfig
	if network == Live {
		cc = MakeLiveConfig(c.API.Key, c.API.Secret)
	} else {
		cc = MakeTestNetConfig(c.API.Key, c.API.Secret)
	}

	if c.API.RestHost != "" {
		cc.RestHost = c.API.RestHost
	}
	if c.API.WsHost != "" {
		cc.WsHost = c.API.WsHost
	}
	return cc, nil
}
