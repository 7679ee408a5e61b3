package exchange

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/binance-beast/internal/api"
	"github.com/rickgao/binance-beast/internal/config"
	"github.com/rickgao/binance-beast/internal/connection"
	"github.com/rickgao/binance-beast/internal/dispatch"
	"github.com/rickgao/binance-beast/internal/executor"
	"github.com/rickgao/binance-beast/internal/userdata"
)

// Errors
var (
	ErrNotStarted     = errors.New("client not started")
	ErrAlreadyStarted = errors.New("client already started")
	ErrEmptyStream    = errors.New("stream name is empty")
)

// Default pool sizes.
const (
	DefaultRestContexts    = 4
	DefaultWsContexts      = 6
	DefaultCallbackWorkers = 4
)

// Client is the orchestrator facade.
type Client struct {
	logger          *slog.Logger
	tlsCfg          *tls.Config
	callbackWorkers int
	pin             bool
	clock           func() time.Time
	requestTimeout  time.Duration

	mu       sync.RWMutex
	cfg      config.ConnectionConfig
	started  bool
	stopped  bool
	rest     *executor.Pool
	ws       *executor.Pool
	cb       *dispatch.Pool
	sessions *connection.Factory
	userData *userdata.Manager
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTLSConfig sets the TLS configuration shared by every connection.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		c.tlsCfg = cfg
	}
}

// WithCallbackWorkers sets the number of goroutines running user handlers.
func WithCallbackWorkers(n int) Option {
	return func(c *Client) {
		c.callbackWorkers = n
	}
}

// WithPinnedThreads pins every execution context to its own OS thread.
func WithPinnedThreads(pin bool) Option {
	return func(c *Client) {
		c.pin = pin
	}
}

// WithClock sets the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithRequestTimeout bounds each REST and listen key round trip.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// New creates a Client. Call Start before issuing requests.
func New(opts ...Option) *Client {
	c := &Client{
		logger:          slog.Default(),
		callbackWorkers: DefaultCallbackWorkers,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start creates the REST and streaming pools with nRest and nWs contexts and
// the callback pool. cfg is kept for the client's lifetime.
func (c *Client) Start(cfg config.ConnectionConfig, nRest, nWs int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.stopped {
		return ErrAlreadyStarted
	}

	rest := executor.NewPool("rest", executor.WithLogger(c.logger), executor.WithPinnedThreads(c.pin))
	if err := rest.Start(nRest); err != nil {
		return fmt.Errorf("start rest pool: %w", err)
	}
	ws := executor.NewPool("ws", executor.WithLogger(c.logger), executor.WithPinnedThreads(c.pin))
	if err := ws.Start(nWs); err != nil {
		rest.Stop()
		return fmt.Errorf("start websocket pool: %w", err)
	}

	creds := cfg.Credentials()

	sessionCfg := connection.DefaultConfig()
	sessionCfg.TLS = c.tlsCfg
	sessionCfg.Credentials = creds
	if c.requestTimeout > 0 {
		sessionCfg.RequestTimeout = c.requestTimeout
	}

	c.cfg = cfg
	c.rest = rest
	c.ws = ws
	c.cb = dispatch.NewPool(c.callbackWorkers, c.logger)
	c.sessions = connection.NewFactory(sessionCfg, c.logger)
	c.userData = userdata.NewManager(userdata.Config{
		Host:        cfg.RestHost,
		Credentials: creds,
		TLS:         c.tlsCfg,
		UserAgent:   sessionCfg.UserAgent,
		Timeout:     c.requestTimeout,
	}, c.logger)
	c.started = true

	c.logger.Info("exchange client started",
		"network", cfg.Network,
		"rest_host", cfg.RestHost,
		"ws_host", cfg.WsHost,
		"rest_contexts", nRest,
		"ws_contexts", nWs,
	)
	return nil
}

// Config returns the connection configuration given to Start.
func (c *Client) Config() config.ConnectionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SendRestRequest issues a GET. See SendRestRequestMethod.
func (c *Client) SendRestRequest(h api.Handler, path string, sign api.SignMode, params api.Params) error {
	return c.SendRestRequestMethod(h, http.MethodGet, path, sign, params)
}

// SendRestRequestMethod builds (and, for api.HMACSHA256, signs) the request
// target and runs it on the next REST context. It returns without waiting for
// the response; h is later called exactly once, on the callback pool, with
// the response or the failure.
func (c *Client) SendRestRequestMethod(h api.Handler, method, path string, sign api.SignMode, params api.Params) error {
	if h == nil {
		return api.ErrNilHandler
	}

	c.mu.RLock()
	if !c.running() {
		c.mu.RUnlock()
		return ErrNotStarted
	}
	cfg, exec, cb, sessions := c.cfg, c.rest.Next(), c.cb, c.sessions
	c.mu.RUnlock()

	target, err := api.BuildPath(path, params, sign, cfg.Credentials(), c.clock())
	if err != nil {
		return fmt.Errorf("build request path: %w", err)
	}

	s, err := sessions.NewRestSession(exec, method, func(r api.Result) {
		cb.Submit(func() { h(r) })
	})
	if err != nil {
		return err
	}

	host, port := cfg.RestEndpoint()
	return s.Run(host, port, target)
}

// StartWebSocket subscribes to stream on the next streaming context. Results
// reach h in arrival order until the connection fails or the client stops;
// a failure ends the subscription with one final error result.
func (c *Client) StartWebSocket(h api.Handler, stream string) error {
	if h == nil {
		return api.ErrNilHandler
	}
	if stream == "" {
		return ErrEmptyStream
	}

	c.mu.RLock()
	if !c.running() {
		c.mu.RUnlock()
		return ErrNotStarted
	}
	cfg, exec, cb, sessions := c.cfg, c.ws.Next(), c.cb, c.sessions
	c.mu.RUnlock()

	lane := cb.NewLane()
	s, err := sessions.NewWsSession(exec, func(r api.Result) {
		lane.Submit(func() { h(r) })
	})
	if err != nil {
		return err
	}

	host, port := cfg.WsEndpoint()
	return s.Run(host, port, stream)
}

// StartUserData subscribes to the user data stream of the current listen
// key. Create one first with CreateUserStream.
func (c *Client) StartUserData(h api.Handler) error {
	if h == nil {
		return api.ErrNilHandler
	}
	key := c.ListenKey()
	if key == "" {
		return userdata.ErrNoListenKey
	}
	return c.StartWebSocket(h, key)
}

// CreateUserStream obtains a listen key. It blocks; see userdata.Manager.
func (c *Client) CreateUserStream(ctx context.Context, h api.Handler) (bool, error) {
	if h == nil {
		return false, api.ErrNilHandler
	}
	m, err := c.userDataManager()
	if err != nil {
		return false, err
	}
	return m.Create(ctx, h)
}

// RenewUserStream extends the listen key. It blocks.
func (c *Client) RenewUserStream(ctx context.Context, h api.Handler) (bool, error) {
	if h == nil {
		return false, api.ErrNilHandler
	}
	m, err := c.userDataManager()
	if err != nil {
		return false, err
	}
	return m.Renew(ctx, h)
}

// CloseUserStream invalidates the listen key. It blocks.
func (c *Client) CloseUserStream(ctx context.Context, h api.Handler) (bool, error) {
	if h == nil {
		return false, api.ErrNilHandler
	}
	m, err := c.userDataManager()
	if err != nil {
		return false, err
	}
	return m.Close(ctx, h)
}

// ListenKey returns the current listen key, or "".
func (c *Client) ListenKey() string {
	c.mu.RLock()
	m := c.userData
	c.mu.RUnlock()

	if m == nil {
		return ""
	}
	return m.Key()
}

// UserData returns the listen key manager, or nil before Start.
func (c *Client) UserData() *userdata.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userData
}

// Pending returns the number of REST and streaming sessions in flight.
func (c *Client) Pending() (rest, ws int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started {
		return 0, 0
	}
	return c.rest.Pending(), c.ws.Pending()
}

// Stop stops both pools in parallel, waiting for every context to finish,
// then closes the callback pool. No handler runs after Stop returns. Safe to
// call more than once.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.stopped = true
		c.mu.Unlock()
		return
	}
	c.stopped = true
	rest, ws, cb, sessions := c.rest, c.ws, c.cb, c.sessions
	c.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		rest.Stop()
		return nil
	})
	g.Go(func() error {
		ws.Stop()
		return nil
	})
	g.Wait()

	cb.Close()
	sessions.CloseIdleConnections()

	c.logger.Info("exchange client stopped")
}

func (c *Client) running() bool {
	return c.started && !c.stopped
}

func (c *Client) userDataManager() (*userdata.Manager, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.running() {
		return nil, ErrNotStarted
	}
	return c.userData, nil
}
