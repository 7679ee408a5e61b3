package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/binance-beast/internal/api"
	"github.com/rickgao/binance-beast/internal/exchange"
	"github.com/rickgao/binance-beast/internal/userdata"
)

// amendFunc is one of the client's blocking listen key calls.
type amendFunc func(ctx context.Context, h api.Handler) (bool, error)

// amend runs fn and turns a failure reported to the handler into an error.
func amend(ctx context.Context, fn amendFunc) error {
	var (
		failed  bool
		failure api.Result
	)
	_, err := fn(ctx, func(r api.Result) {
		failed = true
		failure = r
	})
	if err != nil {
		return err
	}
	if failed {
		if err := resultError(failure); err != nil {
			return err
		}
		return fmt.Errorf("listen key request failed with status %d", failure.StatusCode)
	}
	return nil
}

func newUserStreamCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "userstream",
		Short: "Manage the user data stream listen key",
	}

	cmd.AddCommand(
		newUserStreamAmendCmd(a, "create", "Create a listen key and print it", func(c *exchange.Client) amendFunc { return c.CreateUserStream }),
		newUserStreamAmendCmd(a, "renew", "Extend the listen key's validity", func(c *exchange.Client) amendFunc { return c.RenewUserStream }),
		newUserStreamAmendCmd(a, "close", "Invalidate the listen key", func(c *exchange.Client) amendFunc { return c.CloseUserStream }),
		newUserStreamWatchCmd(a),
	)
	return cmd
}

func newUserStreamAmendCmd(a *app, use, short string, pick func(*exchange.Client) amendFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			client, err := a.startClient()
			if err != nil {
				return err
			}
			defer client.Stop()

			if err := amend(ctx, pick(client)); err != nil {
				return err
			}
			if key := client.ListenKey(); key != "" {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

func newUserStreamWatchCmd(a *app) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Create a listen key, print user data events and keep the key alive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			ctx, stop := withDuration(ctx, duration)
			defer stop()

			client, err := a.startClient()
			if err != nil {
				return err
			}
			defer client.Stop()

			if err := amend(ctx, client.CreateUserStream); err != nil {
				return err
			}
			a.logger.Info("listen key created")

			out := &lineWriter{w: cmd.OutOrStdout()}
			err = client.StartUserData(func(r api.Result) {
				if r.Err != nil {
					a.logger.Warn("user data stream error", "error", r.Err)
					return
				}
				out.printf("%s\n", r.JSON)
			})
			if err != nil {
				return err
			}

			keeper := userdata.NewKeeper(userdata.KeeperConfig{
				Interval: a.cfg.UserStream.RenewInterval,
				Timeout:  a.cfg.API.Timeout,
			}, client.UserData(), nil, a.logger)
			if err := keeper.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			keeper.Stop(shutdownCtx)
			stats := keeper.Stats()
			a.logger.Info("keeper stopped", "renewals", stats.Renewals, "failures", stats.Failures)

			if err := amend(shutdownCtx, client.CloseUserStream); err != nil {
				a.logger.Warn("failed to close listen key", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}
