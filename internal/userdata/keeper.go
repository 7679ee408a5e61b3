package userdata

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/binance-beast/internal/api"
)

// Renewer extends a listen key.
type Renewer interface {
	Renew(ctx context.Context, h api.Handler) (bool, error)
}

// KeeperConfig holds keeper configuration.
type KeeperConfig struct {
	Interval time.Duration // Renewal period (default: 30m)
	Timeout  time.Duration // Per-renewal timeout (default: 30s)
}

// DefaultKeeperConfig returns sensible defaults.
func DefaultKeeperConfig() KeeperConfig {
	return KeeperConfig{
		Interval: 30 * time.Minute,
		Timeout:  30 * time.Second,
	}
}

// KeeperStats counts renewal outcomes.
type KeeperStats struct {
	Renewals int64
	Failures int64
}

// Keeper periodically renews the listen key so it does not expire.
type Keeper struct {
	cfg     KeeperConfig
	renewer Renewer
	handler api.Handler
	logger  *slog.Logger

	renewals atomic.Int64
	failures atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKeeper creates a Keeper. handler receives failed renewals; nil logs
// them only.
func NewKeeper(cfg KeeperConfig, renewer Renewer, handler api.Handler, logger *slog.Logger) *Keeper {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultKeeperConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	k := &Keeper{
		cfg:     cfg,
		renewer: renewer,
		handler: handler,
		logger:  logger.With("component", "userdata_keeper"),
	}
	if k.handler == nil {
		k.handler = func(r api.Result) {}
	}
	return k
}

// Start begins the renewal loop.
func (k *Keeper) Start(ctx context.Context) error {
	k.ctx, k.cancel = context.WithCancel(ctx)

	k.wg.Add(1)
	go k.run()

	k.logger.Info("listen key keeper started", "interval", k.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the keeper.
func (k *Keeper) Stop(ctx context.Context) error {
	if k.cancel != nil {
		k.cancel()
	}

	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		k.logger.Info("listen key keeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns renewal counters.
func (k *Keeper) Stats() KeeperStats {
	return KeeperStats{
		Renewals: k.renewals.Load(),
		Failures: k.failures.Load(),
	}
}

func (k *Keeper) run() {
	defer k.wg.Done()

	ticker := time.NewTicker(k.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.ctx.Done():
			return
		case <-ticker.C:
			k.renew()
		}
	}
}

func (k *Keeper) renew() {
	ctx, cancel := context.WithTimeout(k.ctx, k.cfg.Timeout)
	defer cancel()

	failed := false
	active, err := k.renewer.Renew(ctx, func(r api.Result) {
		failed = true
		k.handler(r)
	})

	switch {
	case err != nil:
		k.failures.Add(1)
		k.logger.Warn("listen key renewal failed", "error", err)
	case failed:
		k.failures.Add(1)
	case !active:
		k.failures.Add(1)
		k.logger.Warn("listen key renewed but none is held")
	default:
		k.renewals.Add(1)
		k.logger.Debug("listen key renewed")
	}
}
