package connection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/binance-beast/internal/api"
	"github.com/rickgao/binance-beast/internal/executor"
)

// RestSession performs one HTTP/1.1 request and delivers exactly one result.
type RestSession struct {
	f       *Factory
	exec    *executor.Context
	method  string
	deliver Deliver
	logger  *slog.Logger
}

// Run starts the request for target (path plus query) against host:port on
// the session's context. It returns immediately; the result is delivered
// later. An error means the context no longer accepts work and nothing will
// be delivered.
func (s *RestSession) Run(host, port, target string) error {
	url := "https://" + hostPort(host, port) + target

	_, err := s.exec.Run("rest "+s.method+" "+target, func(ctx context.Context) {
		res := s.roundTrip(ctx, url)
		if !s.exec.Post(func() { s.deliver(res) }) {
			s.logger.Debug("context stopped, result dropped", "target", target)
		}
	})
	if err != nil {
		return fmt.Errorf("run %s %s: %w", s.method, target, err)
	}
	return nil
}

func (s *RestSession) roundTrip(ctx context.Context, url string) api.Result {
	req, err := http.NewRequestWithContext(ctx, s.method, url, nil)
	if err != nil {
		return api.Result{Err: fmt.Errorf("create request: %w", err), ReceivedAt: time.Now()}
	}
	req.Header = s.f.header()

	resp, err := s.f.httpClient.Do(req)
	if err != nil {
		return api.Result{Err: fmt.Errorf("%s request: %w", s.method, err), ReceivedAt: time.Now()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.f.cfg.MaxBodyBytes))
	receivedAt := time.Now()
	if err != nil {
		return api.Result{
			Err:        fmt.Errorf("read response: %w", err),
			StatusCode: resp.StatusCode,
			ReceivedAt: receivedAt,
		}
	}

	doc, err := api.ParseBody(resp.Header.Get("Content-Type"), body)
	if err != nil {
		s.logger.Debug("unusable response body",
			"status", resp.StatusCode,
			"error", err,
		)
	}

	return api.Result{
		JSON:       doc,
		Err:        err,
		StatusCode: resp.StatusCode,
		ReceivedAt: receivedAt,
	}
}
