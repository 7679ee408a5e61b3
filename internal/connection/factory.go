package connection

import (
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rickgao/binance-beast/internal/executor"
)

// Factory creates sessions that share one TLS configuration and transport.
type Factory struct {
	cfg    Config
	logger *slog.Logger

	httpClient *http.Client
	transport  *http.Transport
	dialer     *websocket.Dialer
}

// NewFactory builds the shared HTTP/1.1 transport and WebSocket dialer.
func NewFactory(cfg Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	tlsCfg := cfg.TLS
	if tlsCfg != nil {
		tlsCfg = tlsCfg.Clone()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsCfg,
		TLSHandshakeTimeout: cfg.HandshakeTimeout,
		MaxIdleConnsPerHost: 16,
	}
	// A non-nil empty map disables HTTP/2.
	transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	return &Factory{
		cfg:       cfg,
		logger:    logger,
		transport: transport,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			TLSClientConfig:  tlsCfg,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Config returns the effective configuration.
func (f *Factory) Config() Config {
	return f.cfg
}

// NewRestSession creates a REST session bound to exec. method defaults to
// GET.
func (f *Factory) NewRestSession(exec *executor.Context, method string, deliver Deliver) (*RestSession, error) {
	if exec == nil {
		return nil, ErrNoContext
	}
	if deliver == nil {
		return nil, ErrNilDeliver
	}
	if method == "" {
		method = http.MethodGet
	}

	return &RestSession{
		f:       f,
		exec:    exec,
		method:  method,
		deliver: deliver,
		logger:  f.logger.With("session", "rest", "ctx", exec.ID()),
	}, nil
}

// NewWsSession creates a streaming session bound to exec.
func (f *Factory) NewWsSession(exec *executor.Context, deliver Deliver) (*WsSession, error) {
	if exec == nil {
		return nil, ErrNoContext
	}
	if deliver == nil {
		return nil, ErrNilDeliver
	}

	return &WsSession{
		f:       f,
		exec:    exec,
		deliver: deliver,
		logger:  f.logger.With("session", "ws", "ctx", exec.ID()),
	}, nil
}

// CloseIdleConnections drops pooled keep-alive connections.
func (f *Factory) CloseIdleConnections() {
	f.transport.CloseIdleConnections()
}

// header builds the headers common to every request.
func (f *Factory) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", f.cfg.UserAgent)
	h.Set("Accept", "application/json")
	f.cfg.Credentials.Apply(h)
	return h
}

// hostPort joins host and port, taking an explicit port from host when port
// is empty.
func hostPort(host, port string) string {
	if port == "" {
		if _, _, err := net.SplitHostPort(host); err == nil {
			return host
		}
		port = DefaultPort
	}
	return net.JoinHostPort(host, port)
}
