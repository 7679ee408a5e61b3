package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/binance-beast/internal/api"
)

func newStreamCmd(a *app) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:     "stream <name>...",
		Short:   "Subscribe to market streams and print every message",
		Example: `  beast stream btcusdt@aggTrade btcusdt@markPrice@1s`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			ctx, stop := withDuration(ctx, duration)
			defer stop()

			client, err := a.startClient()
			if err != nil {
				return err
			}
			defer client.Stop()

			out := &lineWriter{w: cmd.OutOrStdout()}
			handler := func(r api.Result) {
				if r.Err != nil {
					a.logger.Warn("stream error", "stream", r.Stream, "error", r.Err)
					return
				}
				out.printf("%s %s\n", r.Stream, r.JSON)
			}

			for _, name := range args {
				if err := client.StartWebSocket(handler, name); err != nil {
					return err
				}
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}
