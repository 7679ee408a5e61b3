package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/binance-beast/internal/recorder"
)

func newRecordCmd(a *app) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record <stream>...",
		Short: "Record streams into PostgreSQL",
		Long: `record subscribes to the given streams and writes every message to
the recorder table configured under "recorder" in the config file.`,
		Example: `  beast record -c beast.yaml btcusdt@aggTrade ethusdt@aggTrade`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := a.cfg.Recorder
			if !rc.Enabled {
				return errors.New("recorder is not enabled in config")
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			ctx, stop := withDuration(ctx, duration)
			defer stop()

			a.logger.Info("connecting to database",
				"host", rc.Database.Host,
				"database", rc.Database.Name,
			)
			pool, err := recorder.Connect(ctx, rc.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := recorder.EnsureSchema(ctx, pool, rc.Table); err != nil {
				return err
			}

			rec := recorder.New(recorder.Config{
				Table:         rc.Table,
				BatchSize:     rc.BatchSize,
				FlushInterval: rc.FlushInterval,
				BufferSize:    rc.BufferSize,
			}, pool, a.logger)
			if err := rec.Start(context.WithoutCancel(ctx)); err != nil {
				return err
			}

			client, err := a.startClient()
			if err != nil {
				rec.Stop(context.Background())
				return err
			}

			for _, name := range args {
				if err := client.StartWebSocket(rec.Handler(), name); err != nil {
					client.Stop()
					rec.Stop(context.Background())
					return err
				}
			}
			a.logger.Info("recording", "streams", args)

			<-ctx.Done()
			a.logger.Info("shutting down...")

			client.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := rec.Stop(shutdownCtx); err != nil {
				return err
			}

			stats := rec.Stats()
			a.logger.Info("recorder stopped",
				"inserts", stats.Inserts,
				"flushes", stats.Flushes,
				"errors", stats.Errors,
				"dropped", stats.Dropped,
			)
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}
