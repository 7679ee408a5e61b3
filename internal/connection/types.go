package connection

import (
	"crypto/tls"
	"errors"
	"time"

	"github.com/rickgao/binance-beast/internal/api"
	"github.com/rickgao/binance-beast/internal/auth"
	"github.com/rickgao/binance-beast/internal/version"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrNilDeliver      = errors.New("deliver function is nil")
	ErrNoContext       = errors.New("execution context is nil")
	ErrContextStopped  = errors.New("execution context stopped")
)

// DefaultPort is used when a host carries no explicit port.
const DefaultPort = "443"

// Deliver receives a session's results on the owning context's loop
// goroutine. It must not block.
type Deliver func(api.Result)

// Config configures a Factory.
type Config struct {
	TLS              *tls.Config      // Shared by every session; nil uses system roots
	Credentials      auth.Credentials // API key for the X-MBX-APIKEY header
	UserAgent        string
	RequestTimeout   time.Duration // Whole REST round trip
	HandshakeTimeout time.Duration // TLS + WebSocket upgrade
	PingTimeout      time.Duration // Max time without ping/pong before a stream is stale
	PingInterval     time.Duration // Heartbeat ping period
	WriteTimeout     time.Duration // Deadline for control frames
	MaxBodyBytes     int64         // REST response bodies larger than this are truncated
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:        version.UserAgent(),
		RequestTimeout:   30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      10 * time.Minute,
		PingInterval:     30 * time.Second,
		WriteTimeout:     5 * time.Second,
		MaxBodyBytes:     16 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = d.PingTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	return c
}
