package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Listen keys expire after 60 minutes without a keep-alive.
const listenKeyLifetime = 60 * time.Minute

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that all required fields are set and values are valid.
func (c *FileConfig) Validate() error {
	if _, err := ParseNetwork(c.Network); err != nil {
		return fmt.Errorf("network: %w", err)
	}

	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}

	if c.Pools.Rest < 1 {
		return errors.New("pools.rest must be >= 1")
	}
	if c.Pools.WebSocket < 1 {
		return errors.New("pools.websocket must be >= 1")
	}
	if c.Pools.Callbacks < 1 {
		return errors.New("pools.callbacks must be >= 1")
	}

	if c.UserStream.RenewInterval <= 0 || c.UserStream.RenewInterval >= listenKeyLifetime {
		return fmt.Errorf("user_stream.renew_interval must be between 0 and %v, got %v",
			listenKeyLifetime, c.UserStream.RenewInterval)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	if c.Recorder.Enabled {
		if err := c.Recorder.Database.validate("recorder.database"); err != nil {
			return err
		}
		if !tableName.MatchString(c.Recorder.Table) {
			return fmt.Errorf("recorder.table %q is not a valid identifier", c.Recorder.Table)
		}
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if c.Recorder.FlushInterval <= 0 {
			return errors.New("recorder.flush_interval must be > 0")
		}
		if c.Recorder.BufferSize < 1 {
			return errors.New("recorder.buffer_size must be >= 1")
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
