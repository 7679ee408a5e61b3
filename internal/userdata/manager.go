package userdata

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rickgao/binance-beast/internal/api"
	"github.com/rickgao/binance-beast/internal/auth"
	"github.com/rickgao/binance-beast/internal/version"
)

// ListenKeyPath is the listen key endpoint.
const ListenKeyPath = "/fapi/v1/listenKey"

// Config configures a Manager.
type Config struct {
	Host        string // REST host, optionally with :port
	Credentials auth.Credentials
	TLS         *tls.Config // nil uses system roots
	UserAgent   string
	Timeout     time.Duration // Whole round trip; 0 means 30s
}

// Manager performs listen key transitions and holds the resulting key.
type Manager struct {
	cfg    Config
	host   string
	port   string
	logger *slog.Logger

	resolver *net.Resolver
	dialer   *net.Dialer

	mu    sync.Mutex // serializes transitions
	state KeyState
}

// NewManager creates a Manager in the NoKey state.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	host, port, err := net.SplitHostPort(cfg.Host)
	if err != nil {
		host, port = cfg.Host, "443"
	}

	return &Manager{
		cfg:      cfg,
		host:     host,
		port:     port,
		logger:   logger.With("component", "userdata"),
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{},
	}
}

// Key returns the current listen key, or "".
func (m *Manager) Key() string {
	return m.state.Key()
}

// Active reports whether a listen key is held.
func (m *Manager) Active() bool {
	return m.state.Active()
}

// State returns the current state.
func (m *Manager) State() State {
	return m.state.State()
}

// Create requests a new listen key.
func (m *Manager) Create(ctx context.Context, h api.Handler) (bool, error) {
	return m.Amend(ctx, Create, h)
}

// Renew extends the current listen key's validity.
func (m *Manager) Renew(ctx context.Context, h api.Handler) (bool, error) {
	return m.Amend(ctx, Extend, h)
}

// Close invalidates the current listen key.
func (m *Manager) Close(ctx context.Context, h api.Handler) (bool, error) {
	return m.Amend(ctx, Close, h)
}

// Amend performs one transition and reports whether a key is held
// afterwards.
//
// Transport and TLS failures are returned as errors. A response that is not
// JSON, does not parse, or carries an exchange error code is reported to h
// as a failed Result and leaves the state unchanged (except that Create
// always starts by discarding the old key). h is called on the caller's
// goroutine and only on failure.
func (m *Manager) Amend(ctx context.Context, mode Mode, h api.Handler) (bool, error) {
	if h == nil {
		return m.Active(), api.ErrNilHandler
	}
	method, err := mode.Method()
	if err != nil {
		return m.Active(), err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if mode == Create {
		m.state.clear()
	}

	resp, err := m.roundTrip(ctx, method)
	if err != nil {
		return m.state.Active(), fmt.Errorf("%s listen key: %w", mode, err)
	}

	doc, err := api.ParseBody(resp.contentType, resp.body)
	if err != nil {
		m.fail(h, mode, resp, nil, err)
		return m.state.Active(), nil
	}

	if e, ok := api.DecodeExchangeError(doc); ok {
		m.fail(h, mode, resp, doc, e)
		return m.state.Active(), nil
	}

	switch mode {
	case Create:
		var body struct {
			ListenKey string `json:"listenKey"`
		}
		if err := json.Unmarshal(doc, &body); err != nil {
			m.fail(h, mode, resp, doc, fmt.Errorf("%w: %v", api.ErrMalformedJSON, err))
			return m.state.Active(), nil
		}
		if body.ListenKey == "" {
			m.fail(h, mode, resp, doc, fmt.Errorf("%w: response has no listenKey", api.ErrMalformedJSON))
			return m.state.Active(), nil
		}
		m.state.set(body.ListenKey)
	case Close:
		m.state.clear()
	}

	m.logger.Debug("listen key amended", "mode", mode, "state", m.state.State())
	return m.state.Active(), nil
}

func (m *Manager) fail(h api.Handler, mode Mode, resp *response, doc json.RawMessage, err error) {
	m.logger.Warn("listen key request failed", "mode", mode, "status", resp.status, "error", err)
	h(api.Result{
		JSON:       doc,
		Err:        err,
		StatusCode: resp.status,
		ReceivedAt: resp.receivedAt,
	})
}

type response struct {
	status      int
	contentType string
	body        []byte
	receivedAt  time.Time
}

// roundTrip resolves the host, connects to the first address that accepts,
// performs the TLS handshake, writes one HTTP/1.1 request and reads the
// response before closing the connection.
func (m *Manager) roundTrip(ctx context.Context, method string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	addrs, err := m.resolver.LookupHost(ctx, m.host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", m.host, err)
	}

	var conn net.Conn
	var dialErr error
	for _, addr := range addrs {
		conn, dialErr = m.dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, m.port))
		if dialErr == nil {
			break
		}
	}
	if conn == nil {
		if dialErr == nil {
			dialErr = errors.New("no addresses")
		}
		return nil, fmt.Errorf("connect %s: %w", m.host, dialErr)
	}

	tlsCfg := &tls.Config{}
	if m.cfg.TLS != nil {
		tlsCfg = m.cfg.TLS.Clone()
	}
	if tlsCfg.ServerName == "" {
		tlsCfg.ServerName = m.host
	}
	tlsCfg.NextProtos = []string{"http/1.1"}

	tconn := tls.Client(conn, tlsCfg)
	// Close sends close_notify before closing the socket.
	defer tconn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		tconn.SetDeadline(deadline)
	}

	if err := tconn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, "https://"+net.JoinHostPort(m.host, m.port)+ListenKeyPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if m.port == "443" {
		req.Host = m.host
	}
	req.Header.Set("User-Agent", m.cfg.UserAgent)
	m.cfg.Credentials.Apply(req.Header)
	req.Close = true

	if err := req.Write(tconn); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(tconn), req)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        body,
		receivedAt:  time.Now(),
	}, nil
}
