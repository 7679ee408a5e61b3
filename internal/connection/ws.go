package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/binance-beast/internal/api"
	"github.com/rickgao/binance-beast/internal/executor"
)

// WsSession holds one streaming subscription. Every frame becomes a Result;
// a transport failure ends the subscription with one final error Result.
type WsSession struct {
	f       *Factory
	exec    *executor.Context
	deliver Deliver
	logger  *slog.Logger
}

// Run connects to wss://host:port/ws/<stream> on the session's context and
// keeps reading until the connection fails or the context stops. It returns
// immediately.
func (s *WsSession) Run(host, port, stream string) error {
	url := "wss://" + hostPort(host, port) + "/ws/" + stream

	_, err := s.exec.Run("ws "+stream, func(ctx context.Context) {
		s.stream(ctx, url, stream)
	})
	if err != nil {
		return fmt.Errorf("run stream %s: %w", stream, err)
	}
	return nil
}

func (s *WsSession) post(res api.Result) bool {
	return s.exec.Post(func() { s.deliver(res) })
}

func (s *WsSession) stream(ctx context.Context, url, stream string) {
	logger := s.logger.With("stream", stream)

	conn, _, err := s.f.dialer.DialContext(ctx, url, s.f.header())
	if err != nil {
		if ctx.Err() == nil {
			s.post(api.Result{Stream: stream, Err: fmt.Errorf("dial: %w", err), ReceivedAt: time.Now()})
		}
		return
	}
	logger.Debug("websocket connected", "url", url)

	l := &liveness{lastPingAt: time.Now()}
	writeTimeout := s.f.cfg.WriteTimeout

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		l.touch()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		l.touch()
		return nil
	})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	// Closing the socket is the only way to unblock ReadMessage.
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer wg.Done()
		s.heartbeat(conn, l, done, logger)
	}()

	readErr := s.readLoop(conn, stream)

	close(done)
	conn.Close()
	wg.Wait()

	if ctx.Err() != nil {
		logger.Debug("websocket closed", "reason", "stopped")
		return
	}

	if l.isStale() {
		readErr = ErrStaleConnection
	}
	logger.Debug("websocket closed", "error", readErr)
	s.post(api.Result{Stream: stream, Err: readErr, ReceivedAt: time.Now()})
}

// readLoop posts every frame to the context until a read fails.
func (s *WsSession) readLoop(conn *websocket.Conn, stream string) error {
	for {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately
		if err != nil {
			return err
		}

		res := api.Result{
			JSON:       data,
			Stream:     stream,
			ReceivedAt: receivedAt,
		}
		if !json.Valid(data) {
			res.JSON = nil
			res.Err = fmt.Errorf("%w: frame of %d bytes", api.ErrMalformedJSON, len(data))
		}

		if !s.post(res) {
			return ErrContextStopped
		}
	}
}

// heartbeat pings the server and closes a connection that has gone quiet
// for longer than PingTimeout.
func (s *WsSession) heartbeat(conn *websocket.Conn, l *liveness, done <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(s.f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.f.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				logger.Debug("failed to send ping", "error", err)
			}

			lastPing := l.last()
			if time.Since(lastPing) > s.f.cfg.PingTimeout {
				logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", s.f.cfg.PingTimeout,
				)
				l.markStale()
				conn.Close()
				return
			}
		}
	}
}

// liveness tracks the last ping or pong seen on a connection.
type liveness struct {
	mu         sync.Mutex
	lastPingAt time.Time
	stale      bool
}

func (l *liveness) touch() {
	l.mu.Lock()
	l.lastPingAt = time.Now()
	l.mu.Unlock()
}

func (l *liveness) last() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPingAt
}

func (l *liveness) markStale() {
	l.mu.Lock()
	l.stale = true
	l.mu.Unlock()
}

func (l *liveness) isStale() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stale
}
